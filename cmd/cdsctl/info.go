package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/internal/bootstrap"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Boot the store and summarize it",
		Long: `The info command boots the store image and reports how the boot went,
the instance ID, and how full the registry and the block pool are.

Example:
  cdsctl info --image board.img
  cdsctl info --image board.img --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	}
}

func runInfo() error {
	return bootstrap.Run(flags(), func(s *bootstrap.Session) error {
		st := s.Store.Stats()
		if jsonOut {
			return printJSON(map[string]interface{}{
				"image":             s.Config.Store.Image,
				"capacity":          st.Capacity,
				"instance_id":       st.InstanceID,
				"boot":              st.Boot,
				"reason":            s.Store.Boot().Reason,
				"registry_entries":  st.RegistryEntries,
				"registry_capacity": st.RegistryCapacity,
				"size_classes":      st.Pool.Classes,
				"bytes_used":        st.Pool.UsedBytes,
				"bytes_free":        st.Pool.FreeBytes + uint64(st.Pool.Unallocated),
			})
		}

		printInfo("\nStore Information:\n")
		printInfo("  Image: %s\n", s.Config.Store.Image)
		printInfo("  Size: %s\n", formatBytes(uint64(st.Capacity)))
		printInfo("  Instance: %s\n", st.InstanceID)
		printInfo("  Boot: %s\n", st.Boot)
		if reason := s.Store.Boot().Reason; reason != "" {
			printInfo("  Reason: %s\n", reason)
		}
		printInfo("  Registry: %d of %d entries\n", st.RegistryEntries, st.RegistryCapacity)
		printInfo("  Size classes: %s\n", st.Pool.Classes)
		printInfo("  Pool: %s used, %s free, %s never allocated\n",
			formatBytes(st.Pool.UsedBytes),
			formatBytes(st.Pool.FreeBytes),
			formatBytes(uint64(st.Pool.Unallocated)),
		)
		return nil
	})
}
