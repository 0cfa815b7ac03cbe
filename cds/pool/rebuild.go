package pool

import (
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/internal/buf"
	"github.com/joshuapare/cdskit/internal/crc"
	"github.com/joshuapare/cdskit/internal/format"
)

// Rebuild reconstructs the RAM state of a pool previously created at base
// by scanning the raw bytes.
//
// The header magic and class table checksum must match (ErrInvalid otherwise);
// the persisted heads and high-water mark are not trusted. Starting at the
// first descriptor slot, every block with a trusted descriptor of a known
// class that fits the pool is preserved. Intact free blocks are stepped over
// as gap space; anything else is gap space probed at block granularity
// (see BlockAt). Each gap that ends at a preserved block is carved
// into free blocks, largest class first; slivers below the smallest class are
// abandoned. The high-water mark ends up just past the last preserved block.
func Rebuild(bs bsp.ByteStore, totalSize, base uint32, opts ...Option) (*Pool, error) {
	o := buildOptions(opts)
	p, err := geometry(bs, totalSize, base, o)
	if err != nil {
		return nil, err
	}
	if err := p.checkHeader(); err != nil {
		return nil, err
	}

	last, err := p.walk(
		func(off uint32, d format.Descriptor) error {
			p.recovered = append(p.recovered, handleOf(off))
			p.stats.usedBlocks++
			p.stats.usedBytes += uint64(d.ActualSize)
			return nil
		},
		p.carve,
	)
	if err != nil {
		return nil, err
	}
	p.current = last
	if err := p.writeHeader(); err != nil {
		return nil, err
	}

	s := p.Stats()
	p.log.Info("Rebuilt block pool",
		zap.Int("used_blocks", s.UsedBlocks),
		zap.Int("free_blocks", s.FreeBlocks),
		zap.Uint32("current", p.current),
		zap.Uint64("abandoned_bytes", s.AbandonedBytes),
	)
	return p, nil
}

// Recovered returns the handles of the used blocks found by Rebuild, in
// store order. It is empty for a pool made by Create.
func (p *Pool) Recovered() []Handle {
	return append([]Handle(nil), p.recovered...)
}

// WasRecovered reports whether Rebuild preserved the block at h.
func (p *Pool) WasRecovered(h Handle) bool {
	_, found := slices.BinarySearch(p.recovered, h)
	return found
}

func (p *Pool) checkHeader() error {
	b, err := p.read(p.base, format.PoolHeaderSize(len(p.table.classes)))
	if err != nil {
		return err
	}
	h, err := format.DecodePoolHeader(b)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(h.Heads) != len(p.table.classes) || h.TableSum != p.table.sum {
		return fmt.Errorf("%w: class table mismatch (stored %d classes sum 0x%04X, want %d sum 0x%04X)",
			ErrInvalid, len(h.Heads), h.TableSum, len(p.table.classes), p.table.sum)
	}
	return nil
}

// BlockAt decides how a walk over pool bytes treats descriptor d found at off.
// A size of 0 means d is not a block and the walk probes the next granule.
// Otherwise d is a block of one of classes ending by limit: used blocks are
// preserved, free blocks are stepped over whole so stale bytes left in their
// payloads are never read as descriptors.
func BlockAt(d format.Descriptor, off, limit uint32, classes []uint32) (size uint32, used bool) {
	if !d.Trusted() && !d.Free() {
		return 0, false
	}
	if !slices.Contains(classes, d.ActualSize) {
		return 0, false
	}
	if d.Trusted() && d.SizeUsed > d.Capacity() {
		return 0, false
	}
	end, ok := buf.AddU32(off, d.ActualSize)
	if !ok || end > limit {
		return 0, false
	}
	return d.ActualSize, d.Trusted()
}

// walk scans [dataStart, end) calling onBlock for each preserved block and
// onGap for each gap that ends at a preserved block. Free blocks belong to
// the gap around them. It returns the end of the last preserved block
// (dataStart when there is none).
func (p *Pool) walk(onBlock func(off uint32, d format.Descriptor) error, onGap func(start, end uint32) error) (uint32, error) {
	pos, gapStart, last := p.dataStart, p.dataStart, p.dataStart
	for uint64(pos)+format.DescriptorSize <= uint64(p.end) {
		d, err := p.readDescriptor(pos)
		if err != nil {
			return 0, err
		}
		size, used := BlockAt(d, pos, p.end, p.table.classes)
		if size == 0 {
			pos += format.Granularity
			continue
		}
		if !used {
			pos += size
			continue
		}
		if pos > gapStart && onGap != nil {
			if err := onGap(gapStart, pos); err != nil {
				return 0, err
			}
		}
		if onBlock != nil {
			if err := onBlock(pos, d); err != nil {
				return 0, err
			}
		}
		pos += d.ActualSize
		gapStart, last = pos, pos
	}
	return last, nil
}

// carve splits [start, end) into free blocks, largest class first. The whole
// range is wiped, so no stale bytes survive to be probed by the next walk.
func (p *Pool) carve(start, end uint32) error {
	classes := p.table.classes
	for end-start >= p.table.smallest() {
		remaining := end - start
		ci := sort.Search(len(classes), func(i int) bool { return classes[i] > remaining }) - 1
		class := classes[ci]

		b := make([]byte, class)
		copy(b, format.NewFreeDescriptor(class).Bytes())
		buf.PutU32LE(b[format.DescriptorSize:], p.heads[ci])
		if err := p.write(start, b); err != nil {
			return err
		}
		p.heads[ci] = start
		p.stats.freeBlocks[ci]++
		start += class
	}
	if start == end {
		return nil
	}
	if err := p.write(start, make([]byte, end-start)); err != nil {
		return err
	}
	p.stats.abandoned += uint64(end - start)
	return nil
}

// ============================================================================
// Read-only scan
// ============================================================================

// ScanBlock is one preserved block found by Scan.
type ScanBlock struct {
	Handle   Handle `json:"handle" yaml:"handle"`
	Class    uint32 `json:"class" yaml:"class"`
	SizeUsed uint32 `json:"size_used" yaml:"size_used"`
	CRC      uint16 `json:"crc" yaml:"crc"`
	CRCValid bool   `json:"crc_valid" yaml:"crc_valid"`
}

// ScanGap is a run of bytes Rebuild would carve into free blocks.
type ScanGap struct {
	Start uint32 `json:"start" yaml:"start"`
	End   uint32 `json:"end" yaml:"end"`
}

// ScanReport describes what Rebuild would find without changing the store.
type ScanReport struct {
	Classes       []uint32    `json:"classes" yaml:"classes"`
	DataStart     uint32      `json:"data_start" yaml:"data_start"`
	End           uint32      `json:"end" yaml:"end"`
	HeaderError   string      `json:"header_error,omitempty" yaml:"header_error,omitempty"`
	HeaderCurrent uint32      `json:"header_current" yaml:"header_current"`
	Current       uint32      `json:"current" yaml:"current"`
	Blocks        []ScanBlock `json:"blocks" yaml:"blocks"`
	Gaps          []ScanGap   `json:"gaps" yaml:"gaps"`
}

// Scan walks the pool at base the way Rebuild does but only reads. A header
// that Rebuild would reject is reported in HeaderError rather than failing.
func Scan(bs bsp.ByteStore, totalSize, base uint32, opts ...Option) (*ScanReport, error) {
	o := buildOptions(opts)
	p, err := geometry(bs, totalSize, base, o)
	if err != nil {
		return nil, err
	}

	r := &ScanReport{Classes: p.Classes(), DataStart: p.dataStart, End: p.end}
	if err := p.checkHeader(); err != nil {
		if !isInvalid(err) {
			return nil, err
		}
		r.HeaderError = err.Error()
	}
	if cur, err := p.readU32(p.base + format.PoolCurrentOffset); err == nil {
		r.HeaderCurrent = cur
	} else {
		return nil, err
	}

	last, err := p.walk(
		func(off uint32, d format.Descriptor) error {
			payload, err := p.read(off+format.DescriptorSize, d.SizeUsed)
			if err != nil {
				return err
			}
			r.Blocks = append(r.Blocks, ScanBlock{
				Handle:   handleOf(off),
				Class:    d.ActualSize,
				SizeUsed: d.SizeUsed,
				CRC:      d.CRC,
				CRCValid: crc.Sum16(payload) == d.CRC,
			})
			return nil
		},
		func(start, end uint32) error {
			r.Gaps = append(r.Gaps, ScanGap{Start: start, End: end})
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	r.Current = last
	return r, nil
}
