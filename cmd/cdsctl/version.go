package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/internal/format"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version and store layout information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cdsctl %s (%s)\n", version, commit)
			fmt.Printf("  store layout: v%d\n", format.LayoutVersion)
		},
	})
}
