package cds

import (
	"fmt"

	"github.com/joshuapare/cdskit/cds/pool"
	"github.com/joshuapare/cdskit/internal/format"
)

// Config holds the layout parameters used when a store is initialized.
// Recovery requires the same SizeClasses as the initialization did.
type Config struct {
	// MaxEntries is the number of registry slots. It is lowered to what the
	// store can hold.
	MaxEntries int

	// SizeClasses selects the block size classes.
	SizeClasses pool.SizeClassConfig

	// ClearChunk is the write size used to zero the store on initialization.
	ClearChunk uint32
}

// DefaultConfig returns 64 registry slots, the default classes and 4K clears.
func DefaultConfig() Config {
	return Config{
		MaxEntries:  64,
		SizeClasses: pool.DefaultConfig,
		ClearChunk:  4096,
	}
}

func (c Config) validate() error {
	if c.MaxEntries < 1 {
		return fmt.Errorf("%w: %d registry entries", ErrBadArgument, c.MaxEntries)
	}
	if c.ClearChunk == 0 {
		return fmt.Errorf("%w: zero clear chunk", ErrBadArgument)
	}
	if _, err := c.SizeClasses.Classes(); err != nil {
		return fmt.Errorf("%w: %w", ErrBadArgument, err)
	}
	return nil
}

// MinStoreSize returns the smallest capacity that holds both signatures, the
// header and a one-entry registry block. It returns 0 for an unusable class
// configuration.
func MinStoreSize(cfg Config) uint32 {
	classes, err := cfg.SizeClasses.Classes()
	if err != nil {
		return 0
	}
	need := format.RegistryPayloadSize(1) + format.DescriptorSize
	for _, class := range classes {
		if class >= need {
			dataStart := format.Align8(format.PoolBase + format.PoolHeaderSize(len(classes)))
			return dataStart + class + format.SignatureSize
		}
	}
	return 0
}

// poolSize returns the pool extent for a store of the given capacity.
func poolSize(capacity uint32) uint32 {
	return capacity - format.PoolBase - format.SignatureSize
}
