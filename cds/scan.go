package cds

import (
	"fmt"

	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/cds/pool"
	"github.com/joshuapare/cdskit/internal/format"
)

// Scan reports the block layout of bs without booting or modifying it.
func Scan(bs bsp.ByteStore, cfg Config) (*pool.ScanReport, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if capacity, minSize := bs.Capacity(), MinStoreSize(cfg); capacity < minSize {
		return nil, fmt.Errorf("%w: store capacity %d below minimum %d", ErrBadArgument, capacity, minSize)
	}
	return pool.Scan(bs, poolSize(bs.Capacity()), format.PoolBase, pool.WithSizeClasses(cfg.SizeClasses))
}
