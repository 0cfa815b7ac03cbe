package main

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joshuapare/cdskit/cds/verify"
	"github.com/joshuapare/cdskit/internal/bootstrap"
)

var snapshotForce bool

func init() {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or restore compressed copies of the image",
		Long: `The snapshot commands export the image as a zstd-compressed file and
import it back. Neither boots the store.

Example:
  cdsctl snapshot save board.cds.zst
  cdsctl snapshot load board.cds.zst --image spare.img`,
	}
	load := newSnapshotLoadCmd()
	load.Flags().BoolVar(&snapshotForce, "force", false, "Load even if the snapshot does not hold a valid store")
	cmd.AddCommand(newSnapshotSaveCmd(), load)
	rootCmd.AddCommand(cmd)
}

func newSnapshotSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <file>",
		Short: "Write a compressed copy of the image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotSave(args)
		},
	}
}

func newSnapshotLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Replace the image with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotLoad(args)
		},
	}
}

func runSnapshotSave(args []string) error {
	return bootstrap.Inspect(flags(), func(e *bootstrap.Env) error {
		data, err := os.ReadFile(e.Config.Store.Image)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}

		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return err
		}
		out := enc.EncodeAll(data, nil)
		if err := enc.Close(); err != nil {
			return err
		}
		if err := os.WriteFile(args[0], out, 0o644); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		printInfo("Saved %s (%s) to %s (%s)\n",
			e.Config.Store.Image, formatBytes(uint64(len(data))), args[0], formatBytes(uint64(len(out))))
		return nil
	})
}

func runSnapshotLoad(args []string) error {
	return bootstrap.Inspect(flags(), func(e *bootstrap.Env) error {
		in, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return err
		}
		defer dec.Close()
		data, err := dec.DecodeAll(in, nil)
		if err != nil {
			return fmt.Errorf("failed to decompress snapshot: %w", err)
		}

		if err := verify.AllInvariants(data, e.StoreConfig.SizeClasses); err != nil {
			if !snapshotForce {
				return fmt.Errorf("snapshot is not a valid store (use --force to load anyway): %w", err)
			}
			e.Logger.Warn("Loading invalid snapshot", zap.Error(err))
		}
		if err := os.WriteFile(e.Config.Store.Image, data, 0o644); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
		printInfo("Loaded %s into %s (%s)\n", args[0], e.Config.Store.Image, formatBytes(uint64(len(data))))
		return nil
	})
}
