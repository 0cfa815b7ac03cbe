package pool

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/internal/buf"
	"github.com/joshuapare/cdskit/internal/format"
	"github.com/joshuapare/cdskit/internal/logging"
)

// Pool is the RAM view of a persisted block pool.
type Pool struct {
	bs    bsp.ByteStore
	log   *zap.Logger
	table *sizeClassTable

	base      uint32 // pool header offset
	dataStart uint32 // first descriptor offset
	end       uint32 // exclusive
	current   uint32 // next never-allocated offset
	heads     []uint32

	recovered []Handle // used blocks found by Rebuild
	stats     poolStats
}

type poolStats struct {
	usedBlocks int
	usedBytes  uint64
	freeBlocks []int // per class
	discarded  int
	abandoned  uint64 // gap bytes too small for any class at the last rebuild
}

// Option configures Create, Rebuild and Scan.
type Option func(*options)

type options struct {
	classes SizeClassConfig
	log     *zap.Logger
}

// WithSizeClasses selects the class table. Rebuild fails with ErrInvalid when
// the table differs from the one the pool was created with.
func WithSizeClasses(cfg SizeClassConfig) Option {
	return func(o *options) { o.classes = cfg }
}

// WithLogger sets the logger used for recovery and quarantine events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{classes: DefaultConfig, log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// geometry validates the pool extent and returns its RAM skeleton.
func geometry(bs bsp.ByteStore, totalSize, base uint32, o options) (*Pool, error) {
	table, err := newSizeClassTable(o.classes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadArgument, err)
	}
	end, ok := buf.AddU32(base, totalSize)
	if !ok || end > bs.Capacity() {
		return nil, fmt.Errorf("%w: pool [0x%X, +%d) exceeds store capacity %d", ErrBadArgument, base, totalSize, bs.Capacity())
	}
	dataStart := format.Align8(base + format.PoolHeaderSize(len(table.classes)))
	if uint64(dataStart)+uint64(table.smallest()) > uint64(end) {
		return nil, fmt.Errorf("%w: pool size %d below minimum %d", ErrBadArgument, totalSize, MinPoolSize(base, o.classes))
	}

	return &Pool{
		bs:        bs,
		log:       o.log,
		table:     table,
		base:      base,
		dataStart: dataStart,
		end:       end,
		current:   dataStart,
		heads:     make([]uint32, len(table.classes)),
		stats:     poolStats{freeBlocks: make([]int, len(table.classes))},
	}, nil
}

// MinPoolSize returns the smallest totalSize that Create accepts at base:
// the header plus exactly one block of the smallest class.
// It returns 0 for an unusable class configuration.
func MinPoolSize(base uint32, cfg SizeClassConfig) uint32 {
	classes, err := cfg.Classes()
	if err != nil {
		return 0
	}
	dataStart := format.Align8(base + format.PoolHeaderSize(len(classes)))
	return dataStart - base + classes[0]
}

// Create initializes an empty pool of totalSize bytes at base and persists
// its header. Existing bytes in the data area are left untouched.
func Create(bs bsp.ByteStore, totalSize, base uint32, opts ...Option) (*Pool, error) {
	o := buildOptions(opts)
	p, err := geometry(bs, totalSize, base, o)
	if err != nil {
		return nil, err
	}
	if err := p.writeHeader(); err != nil {
		return nil, err
	}
	p.log.Debug("Created block pool",
		zap.Uint32("base", base),
		zap.Uint32("data_start", p.dataStart),
		zap.Uint32("end", p.end),
		zap.String("classes", p.table.String()),
	)
	return p, nil
}

// Classes returns a copy of the class table.
func (p *Pool) Classes() []uint32 {
	return append([]uint32(nil), p.table.classes...)
}

// MaxPayload returns the largest size Alloc accepts.
func (p *Pool) MaxPayload() uint32 {
	return p.table.maxPayload()
}

// DataStart returns the offset of the first block descriptor. The first block
// ever allocated in a fresh pool has handle DataStart()+16.
func (p *Pool) DataStart() uint32 {
	return p.dataStart
}

// FirstHandle returns the handle the first allocation of a fresh pool receives.
func (p *Pool) FirstHandle() Handle {
	return handleOf(p.dataStart)
}

// ============================================================================
// Persisted header access
// ============================================================================

func (p *Pool) header() format.PoolHeader {
	return format.PoolHeader{
		Current:  p.current,
		TableSum: p.table.sum,
		Heads:    append([]uint32(nil), p.heads...),
	}
}

func (p *Pool) writeHeader() error {
	return p.write(p.base, p.header().Bytes())
}

func (p *Pool) writeCurrent() error {
	return p.writeU32(p.base+format.PoolCurrentOffset, p.current)
}

func (p *Pool) writeHead(i int) error {
	return p.writeU32(p.base+format.HeadOffset(i), p.heads[i])
}

// ============================================================================
// Store access, every failure mapped to ErrAccess
// ============================================================================

func (p *Pool) read(off, n uint32) ([]byte, error) {
	b, err := p.bs.Read(off, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccess, err)
	}
	return b, nil
}

func (p *Pool) write(off uint32, b []byte) error {
	if err := p.bs.Write(off, b); err != nil {
		return fmt.Errorf("%w: %w", ErrAccess, err)
	}
	return nil
}

func (p *Pool) readU32(off uint32) (uint32, error) {
	b, err := p.read(off, 4)
	if err != nil {
		return 0, err
	}
	return buf.U32LE(b), nil
}

func (p *Pool) writeU32(off, v uint32) error {
	b := make([]byte, 4)
	buf.PutU32LE(b, v)
	return p.write(off, b)
}

func (p *Pool) readDescriptor(off uint32) (format.Descriptor, error) {
	b, err := p.read(off, format.DescriptorSize)
	if err != nil {
		return format.Descriptor{}, err
	}
	return format.DecodeDescriptor(b)
}

func (p *Pool) writeDescriptor(off uint32, d format.Descriptor) error {
	return p.write(off, d.Bytes())
}
