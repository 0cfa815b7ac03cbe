package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/cds"
	"github.com/joshuapare/cdskit/internal/bootstrap"
)

var initForce bool

func init() {
	cmd := newInitCmd()
	cmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if the image holds a valid store")
	rootCmd.AddCommand(cmd)
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or boot a store image",
		Long: `The init command boots the store image, creating the file when it
does not exist. A valid store is recovered and left as is; anything else is
laid out afresh. With --force the store is wiped even when valid.

Example:
  cdsctl init --image board.img --size 131072
  cdsctl init --image board.img --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func runInit() error {
	return bootstrap.Run(flags(), func(s *bootstrap.Session) error {
		if initForce {
			printVerbose("Reinitializing %s\n", s.Config.Store.Image)
			if err := s.Store.Reinitialize(); err != nil {
				return err
			}
		}
		return printBoot(s.Config.Store.Image, s.Store)
	})
}

// bootReport is the JSON form of a boot.
type bootReport struct {
	Image      string   `json:"image"`
	Outcome    string   `json:"outcome"`
	Reason     string   `json:"reason,omitempty"`
	InstanceID string   `json:"instance_id"`
	Dropped    []string `json:"dropped,omitempty"`
	Orphans    []string `json:"orphans,omitempty"`
}

func printBoot(image string, store *cds.Store) error {
	b := store.Boot()
	r := bootReport{
		Image:      image,
		Outcome:    string(b.Outcome),
		Reason:     b.Reason,
		InstanceID: b.InstanceID.String(),
	}
	for _, d := range b.Dropped {
		r.Dropped = append(r.Dropped, d.Name+": "+d.Reason)
	}
	for _, h := range b.Orphans {
		r.Orphans = append(r.Orphans, h.String())
	}

	if jsonOut {
		return printJSON(r)
	}
	printInfo("%s: %s\n", r.Image, r.Outcome)
	if r.Reason != "" {
		printInfo("  Reason: %s\n", r.Reason)
	}
	printInfo("  Instance: %s\n", r.InstanceID)
	for _, d := range r.Dropped {
		printInfo("  Dropped entry %s\n", d)
	}
	for _, h := range r.Orphans {
		printInfo("  Released orphaned block %s\n", h)
	}
	return nil
}
