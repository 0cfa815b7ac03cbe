package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/cds/verify"
	"github.com/joshuapare/cdskit/internal/bootstrap"
)

func init() {
	rootCmd.AddCommand(newValidateCmd())
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the image structure without booting it",
		Long: `The validate command reads the image and checks its structure:
signatures, layout version, pool header, the block chain, free lists and
the registry. Blocks whose content fails its checksum are reported as
warnings. The image is never modified.

Example:
  cdsctl validate --image board.img
  cdsctl validate --image board.img --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate()
		},
	}
}

func runValidate() error {
	return bootstrap.Inspect(flags(), func(e *bootstrap.Env) error {
		path := e.Config.Store.Image
		printVerbose("Validating image: %s\n", path)

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		classes := e.StoreConfig.SizeClasses
		verr := verify.AllInvariants(data, classes)
		var warning error
		if verr == nil {
			warning = verify.Checksums(data, classes)
		}

		result := map[string]interface{}{
			"image": path,
			"valid": verr == nil,
		}
		if verr != nil {
			result["error"] = verr.Error()
		}
		if warning != nil {
			result["warning"] = warning.Error()
		}

		if jsonOut {
			if err := printJSON(result); err != nil {
				return err
			}
			return verr
		}

		printInfo("\nValidating %s...\n\n", path)
		if verr != nil {
			printInfo("  ✗ %v\n", verr)
			printInfo("\nResult: ✗ INVALID\n")
			return verr
		}
		printInfo("  ✓ Signatures and layout version\n")
		printInfo("  ✓ Pool header and block chain\n")
		printInfo("  ✓ Free lists\n")
		printInfo("  ✓ Registry\n")
		if warning != nil {
			printInfo("  ! %v\n", warning)
		}
		printInfo("\nResult: ✓ VALID\n")
		return nil
	})
}
