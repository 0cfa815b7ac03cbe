package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/cds"
	"github.com/joshuapare/cdskit/internal/bootstrap"
)

func init() {
	rootCmd.AddCommand(newWriteCmd())
}

func newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <owner.name> <file>",
		Short: "Copy a file into a registered block",
		Long: `The write command copies the content of file ("-" for stdin) into the
block registered as owner.name. Content shorter than the block is zero
padded; longer content is refused.

Example:
  cdsctl write SC.State state.bin
  printf 'hello' | cdsctl write SC.State -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(args)
		},
	}
}

func runWrite(args []string) error {
	data, err := readInput(args[1])
	if err != nil {
		return err
	}

	return bootstrap.Run(flags(), func(s *bootstrap.Session) error {
		e, err := lookup(s.Store, args[0])
		if err != nil {
			return err
		}
		if err := s.Store.CopyToStore(e.Handle, data); err != nil {
			return err
		}
		printInfo("Wrote %d of %d bytes to %s\n", len(data), e.Size, args[0])
		return nil
	})
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func lookup(store *cds.Store, name string) (cds.Entry, error) {
	e, ok := store.Lookup(name)
	if !ok {
		return cds.Entry{}, fmt.Errorf("%w: %s", cds.ErrNotFound, name)
	}
	return e, nil
}
