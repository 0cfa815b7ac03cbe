package pool

import "errors"

// State is a snapshot of the pool geometry and persisted header.
type State struct {
	Base         uint32
	DataStart    uint32
	End          uint32
	Current      uint32
	MinBlockSize uint32
	Heads        []uint32
}

// ClassStats reports one size class.
type ClassStats struct {
	Size uint32 `json:"size" yaml:"size"`
	Free int    `json:"free" yaml:"free"`
}

// Stats summarizes pool occupancy.
type Stats struct {
	Classes        string       `json:"classes" yaml:"classes"`
	Capacity       uint32       `json:"capacity" yaml:"capacity"` // bytes from first descriptor to end
	UsedBlocks     int          `json:"used_blocks" yaml:"used_blocks"`
	UsedBytes      uint64       `json:"used_bytes" yaml:"used_bytes"`
	FreeBlocks     int          `json:"free_blocks" yaml:"free_blocks"`
	FreeBytes      uint64       `json:"free_bytes" yaml:"free_bytes"`
	Unallocated    uint32       `json:"unallocated" yaml:"unallocated"`
	DiscardedLists int          `json:"discarded_lists" yaml:"discarded_lists"`
	AbandonedBytes uint64       `json:"abandoned_bytes" yaml:"abandoned_bytes"`
	PerClass       []ClassStats `json:"per_class" yaml:"per_class"`
}

// State returns the current geometry and header values.
func (p *Pool) State() State {
	return State{
		Base:         p.base,
		DataStart:    p.dataStart,
		End:          p.end,
		Current:      p.current,
		MinBlockSize: p.table.smallest(),
		Heads:        append([]uint32(nil), p.heads...),
	}
}

// Stats returns occupancy counters kept in RAM. Free counts cover the
// blocks this process put on or found on the lists.
func (p *Pool) Stats() Stats {
	s := Stats{
		Classes:        p.table.String(),
		Capacity:       p.end - p.dataStart,
		UsedBlocks:     p.stats.usedBlocks,
		UsedBytes:      p.stats.usedBytes,
		Unallocated:    p.end - p.current,
		DiscardedLists: p.stats.discarded,
		AbandonedBytes: p.stats.abandoned,
		PerClass:       make([]ClassStats, len(p.table.classes)),
	}
	for i, class := range p.table.classes {
		n := p.stats.freeBlocks[i]
		s.PerClass[i] = ClassStats{Size: class, Free: n}
		s.FreeBlocks += n
		s.FreeBytes += uint64(n) * uint64(class)
	}
	return s
}

// BlockSize returns the class a payload of n bytes is rounded up to, or 0
// when n is too large.
func (p *Pool) BlockSize(n uint32) uint32 {
	ci := p.table.classFor(n)
	if ci < 0 {
		return 0
	}
	return p.table.classes[ci]
}

func isInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}
