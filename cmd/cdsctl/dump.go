package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/internal/bootstrap"
)

var (
	dumpFormat string
	dumpAll    bool
)

func init() {
	cmd := newDumpCmd()
	cmd.Flags().StringVarP(&dumpFormat, "format", "f", "text", "Output format (text, json, yaml)")
	cmd.Flags().BoolVar(&dumpAll, "all", false, "Include free registry slots")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "List registry entries",
		Long: `The dump command boots the store and lists its registry entries:
slot, name, owner, handle, size and whether the entry is a critical table.

Example:
  cdsctl dump
  cdsctl dump --format yaml
  cdsctl dump --all --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump()
		},
	}
}

func runDump() error {
	format := dumpFormat
	if jsonOut {
		format = "json"
	}
	switch format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown format: %s (must be text, json, or yaml)", format)
	}

	return bootstrap.Run(flags(), func(s *bootstrap.Session) error {
		records := s.Store.Dump()
		if dumpAll {
			records = s.Store.DumpSlots()
		}
		printVerbose("%d records\n", len(records))

		switch format {
		case "json":
			return printJSON(records)
		case "yaml":
			return printYAML(records)
		}
		if quiet {
			return nil
		}
		if dumpAll {
			for _, r := range records {
				if !r.Taken {
					fmt.Fprintf(os.Stdout, "%d\t(free)\n", r.Slot)
					continue
				}
				fmt.Fprintf(os.Stdout, "%d\t%s\t%s\t%d\n", r.Slot, r.Name, r.Handle, r.Size)
			}
			return nil
		}
		return s.Store.WriteDump(os.Stdout)
	})
}
