package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/internal/bootstrap"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	imagePath  string
	imageSize  uint32
	activeApps []string
)

var rootCmd = &cobra.Command{
	Use:   "cdsctl",
	Short: "Inspect and maintain critical data store images",
	Long: `cdsctl works on a critical data store kept in an image file. It can
initialize and validate the image, register and delete named blocks, copy
data in and out, and export compressed snapshots.

Settings come from the environment (CDS_IMAGE, CDS_SIZE, CDS_MAX_ENTRIES,
CDS_SIZE_CLASSES, CDS_ACTIVE_APPS, CDS_LOG_LEVEL), optionally read from a
.env file. Flags override them.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&imagePath, "image", "", "Store image file (default $CDS_IMAGE)")
	rootCmd.PersistentFlags().Uint32Var(&imageSize, "size", 0, "Image size in bytes when creating (default $CDS_SIZE)")
	rootCmd.PersistentFlags().
		StringSliceVar(&activeApps, "apps", nil, "Applications considered running (default $CDS_ACTIVE_APPS)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// flags collects the global flags for the bootstrap container.
func flags() bootstrap.Flags {
	return bootstrap.Flags{
		Image:   imagePath,
		Size:    imageSize,
		Apps:    activeApps,
		Verbose: verbose,
		Quiet:   quiet,
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printYAML outputs data as YAML
func printYAML(v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// formatBytes renders a byte count for humans
func formatBytes(n uint64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d bytes", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
