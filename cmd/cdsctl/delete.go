package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/internal/bootstrap"
)

var deleteTable bool

func init() {
	cmd := newDeleteCmd()
	cmd.Flags().BoolVar(&deleteTable, "table", false, "The entry is a critical table")
	rootCmd.AddCommand(cmd)
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <owner.name>",
		Short: "Delete a registry entry and release its block",
		Long: `The delete command removes a registry entry. It is refused while the
owning application is listed as active (--apps or $CDS_ACTIVE_APPS).

Example:
  cdsctl delete SC.State
  cdsctl delete TBL.Limits --table`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(args)
		},
	}
}

func runDelete(args []string) error {
	return bootstrap.Run(flags(), func(s *bootstrap.Session) error {
		if err := s.Store.Delete(args[0], deleteTable); err != nil {
			return err
		}
		if jsonOut {
			return printJSON(map[string]interface{}{"deleted": args[0]})
		}
		printInfo("Deleted %s\n", args[0])
		return nil
	})
}
