package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/internal/bootstrap"
)

var (
	readOut string
	readHex bool
)

func init() {
	cmd := newReadCmd()
	cmd.Flags().StringVarP(&readOut, "out", "o", "", "Write the content to this file instead of stdout")
	cmd.Flags().BoolVar(&readHex, "hex", false, "Print a hex dump")
	rootCmd.AddCommand(cmd)
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <owner.name>",
		Short: "Copy a registered block out of the store",
		Long: `The read command restores the content of the block registered as
owner.name. Content that fails its checksum is not returned.

Example:
  cdsctl read SC.State --out state.bin
  cdsctl read SC.State --hex`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(args)
		},
	}
}

func runRead(args []string) error {
	return bootstrap.Run(flags(), func(s *bootstrap.Session) error {
		e, err := lookup(s.Store, args[0])
		if err != nil {
			return err
		}
		data, err := s.Store.RestoreFromStore(e.Handle)
		if err != nil {
			return err
		}

		switch {
		case readOut != "":
			if err := os.WriteFile(readOut, data, 0o644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			printInfo("Read %d bytes from %s into %s\n", len(data), args[0], readOut)
			return nil
		case jsonOut:
			return printJSON(map[string]interface{}{
				"name":   args[0],
				"handle": e.Handle.String(),
				"data":   data,
			})
		case readHex:
			_, err := fmt.Fprint(os.Stdout, hex.Dump(data))
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	})
}
