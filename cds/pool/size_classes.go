package pool

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/joshuapare/cdskit/internal/crc"
	"github.com/joshuapare/cdskit/internal/format"
)

// SizeClassConfig defines the block size class strategy.
// All sizes are total block bytes, descriptor included.
type SizeClassConfig struct {
	// Name for this configuration (reported by diagnostics)
	Name string

	// Small classes (linear increments)
	SmallMin       uint32 // Smallest class; must hold a descriptor and a free link
	SmallMax       uint32 // Last linear class
	SmallIncrement uint32

	// Up to SplitMax each power-of-two step is split in half (x1.5, then x4/3).
	SplitMax uint32

	// Large classes (geometric growth up to and including MaxClass)
	MaxClass     uint32
	GrowthFactor float64
}

// Predefined configurations.
var (
	// ConfigHalfStep: fine steps up to 512 bytes, then doubling to 128K.
	// 32 48 64 | 96 128 192 256 384 512 | 1K ... 128K = 17 classes.
	ConfigHalfStep = SizeClassConfig{
		Name:           "HalfStep",
		SmallMin:       32,
		SmallMax:       64,
		SmallIncrement: 16,
		SplitMax:       512,
		MaxClass:       128 * 1024,
		GrowthFactor:   2.0,
	}

	// ConfigPow2: powers of two from 32 bytes to 16K. Suits small stores.
	ConfigPow2 = SizeClassConfig{
		Name:           "Pow2",
		SmallMin:       32,
		SmallMax:       32,
		SmallIncrement: 32,
		SplitMax:       32,
		MaxClass:       16 * 1024,
		GrowthFactor:   2.0,
	}

	// DefaultConfig is used when no configuration is given.
	DefaultConfig = ConfigHalfStep
)

// LookupConfig returns the predefined configuration called name.
func LookupConfig(name string) (SizeClassConfig, error) {
	for _, c := range []SizeClassConfig{ConfigHalfStep, ConfigPow2} {
		if c.Name == name {
			return c, nil
		}
	}
	return SizeClassConfig{}, fmt.Errorf("%w: unknown size class configuration %q", ErrBadSizeClasses, name)
}

// minClassSize is the smallest block that can sit on a free list.
var minClassSize = format.Align8(format.DescriptorSize + format.FreeLinkSize)

// Classes computes the class table. Every class is aligned to the block
// granularity and strictly larger than its predecessor.
func (c SizeClassConfig) Classes() ([]uint32, error) {
	switch {
	case c.SmallMin < minClassSize:
		return nil, fmt.Errorf("%w: smallest class %d below %d", ErrBadSizeClasses, c.SmallMin, minClassSize)
	case c.SmallIncrement == 0:
		return nil, fmt.Errorf("%w: zero small increment", ErrBadSizeClasses)
	case c.SmallMax < c.SmallMin || c.MaxClass < c.SmallMax:
		return nil, fmt.Errorf("%w: bounds out of order", ErrBadSizeClasses)
	case c.GrowthFactor <= 1 && c.MaxClass > c.SplitMax && c.MaxClass > c.SmallMax:
		return nil, fmt.Errorf("%w: growth factor %.2f", ErrBadSizeClasses, c.GrowthFactor)
	case c.MaxClass > math.MaxUint32/2:
		return nil, fmt.Errorf("%w: largest class %d", ErrBadSizeClasses, c.MaxClass)
	}

	classes := make([]uint32, 0, 32)
	add := func(size uint32) {
		size = format.Align8(size)
		if size > c.MaxClass {
			return
		}
		if n := len(classes); n == 0 || size > classes[n-1] {
			classes = append(classes, size)
		}
	}

	// Phase 1: linear
	size := c.SmallMin
	for ; size <= c.SmallMax; size += c.SmallIncrement {
		add(size)
	}
	size = classes[len(classes)-1]

	// Phase 2: half steps between powers of two
	for size < c.SplitMax && size < c.MaxClass {
		next := nextPow2(size)
		if next == size {
			next = size + size/2
		}
		add(min(next, c.MaxClass))
		size = classes[len(classes)-1]
	}

	// Phase 3: geometric
	for size < c.MaxClass {
		next := uint32(math.Ceil(float64(size) * c.GrowthFactor))
		if next <= size {
			next = size + format.Granularity
		}
		if next > c.MaxClass {
			next = c.MaxClass
		}
		add(next)
		size = classes[len(classes)-1]
	}

	return classes, nil
}

func nextPow2(v uint32) uint32 {
	p := uint32(1)
	for p < v {
		p <<= 1
	}
	return p
}

// TableSum returns the CRC-16 persisted in the pool header for a class table.
// A pool written under one table is rejected by Rebuild under another.
func TableSum(classes []uint32) uint16 {
	b := make([]byte, 4*len(classes))
	for i, c := range classes {
		binary.LittleEndian.PutUint32(b[4*i:], c)
	}
	return crc.Sum16(b)
}

// sizeClassTable is the computed, immutable class table of a pool.
type sizeClassTable struct {
	config  SizeClassConfig
	classes []uint32
	sum     uint16
}

func newSizeClassTable(config SizeClassConfig) (*sizeClassTable, error) {
	classes, err := config.Classes()
	if err != nil {
		return nil, err
	}
	return &sizeClassTable{config: config, classes: classes, sum: TableSum(classes)}, nil
}

// classFor returns the index of the smallest class holding a payload of n
// bytes, or -1 when n is above the largest class.
func (t *sizeClassTable) classFor(n uint32) int {
	if n > t.maxPayload() {
		return -1
	}
	need := n + format.DescriptorSize
	return sort.Search(len(t.classes), func(i int) bool { return t.classes[i] >= need })
}

// indexOf returns the index of an exact class size, or -1.
func (t *sizeClassTable) indexOf(size uint32) int {
	i := sort.Search(len(t.classes), func(i int) bool { return t.classes[i] >= size })
	if i < len(t.classes) && t.classes[i] == size {
		return i
	}
	return -1
}

func (t *sizeClassTable) smallest() uint32 { return t.classes[0] }

func (t *sizeClassTable) largest() uint32 { return t.classes[len(t.classes)-1] }

func (t *sizeClassTable) maxPayload() uint32 { return t.largest() - format.DescriptorSize }

// String returns the configuration name.
func (t *sizeClassTable) String() string {
	return t.config.Name
}
