package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/cds"
	"github.com/joshuapare/cdskit/internal/bootstrap"
)

var registerTable bool

func init() {
	cmd := newRegisterCmd()
	cmd.Flags().BoolVar(&registerTable, "table", false, "Register a critical table")
	rootCmd.AddCommand(cmd)
}

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <owner> <name> <size>",
		Short: "Register a named block",
		Long: `The register command claims size bytes of persistent storage under
the name owner.name. Registering an existing name with the same size returns
the existing block; with another size the entry moves to a new zeroed block.

Example:
  cdsctl register SC State 128
  cdsctl register TBL Limits 4096 --table`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(args)
		},
	}
}

func runRegister(args []string) error {
	size, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", args[2], err)
	}

	return bootstrap.Run(flags(), func(s *bootstrap.Session) error {
		register := s.Store.Register
		if registerTable {
			register = s.Store.RegisterTable
		}
		h, err := register(args[0], args[1], uint32(size))
		existed := errors.Is(err, cds.ErrAlreadyExists)
		if err != nil && !existed {
			return err
		}

		if jsonOut {
			return printJSON(map[string]interface{}{
				"name":    args[0] + "." + args[1],
				"handle":  h.String(),
				"size":    size,
				"existed": existed,
			})
		}
		if existed {
			printInfo("%s.%s already registered at %s\n", args[0], args[1], h)
			return nil
		}
		printInfo("Registered %s.%s at %s (%d bytes)\n", args[0], args[1], h, size)
		return nil
	})
}
