package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/cds"
	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/internal/bootstrap"
)

var scanRaw bool

func init() {
	cmd := newScanCmd()
	cmd.Flags().BoolVar(&scanRaw, "raw", false, "Dump the scan report structure")
	rootCmd.AddCommand(cmd)
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Walk the block pool without booting",
		Long: `The scan command walks the block pool the way recovery does and lists
every block it would keep and every gap it would reclaim. Nothing is
written to the image.

Example:
  cdsctl scan --image board.img
  cdsctl scan --image board.img --raw`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan()
		},
	}
}

func runScan() error {
	return bootstrap.Inspect(flags(), func(e *bootstrap.Env) error {
		f, err := bsp.OpenFile(e.Config.Store.Image)
		if err != nil {
			return err
		}
		defer f.Close()

		r, err := cds.Scan(f, e.StoreConfig)
		if err != nil {
			return err
		}

		switch {
		case jsonOut:
			return printJSON(r)
		case scanRaw:
			spew.Fdump(os.Stdout, r)
			return nil
		case quiet:
			return nil
		}

		fmt.Printf("Data: 0x%X-0x%X  current 0x%X (header says 0x%X)\n", r.DataStart, r.End, r.Current, r.HeaderCurrent)
		if r.HeaderError != "" {
			fmt.Printf("Header: %s\n", r.HeaderError)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "HANDLE\tCLASS\tUSED\tCRC")
		for _, b := range r.Blocks {
			state := "ok"
			if !b.CRCValid {
				state = "BAD"
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t0x%04X %s\n", b.Handle, b.Class, b.SizeUsed, b.CRC, state)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, g := range r.Gaps {
			fmt.Printf("Gap 0x%X-0x%X (%d bytes)\n", g.Start, g.End, g.End-g.Start)
		}
		return nil
	})
}
