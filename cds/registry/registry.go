package registry

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/joshuapare/cdskit/cds/pool"
	"github.com/joshuapare/cdskit/internal/format"
	"github.com/joshuapare/cdskit/internal/logging"
)

// AppDirectory reports whether an application is currently active.
type AppDirectory interface {
	IsActive(app string) bool
}

// Entry is a taken registry slot.
type Entry struct {
	Slot   int         `json:"slot" yaml:"slot"`
	Name   string      `json:"name" yaml:"name"`
	Owner  string      `json:"owner" yaml:"owner"`
	Handle pool.Handle `json:"handle" yaml:"handle"`
	Size   uint32      `json:"size" yaml:"size"`
	Table  bool        `json:"table" yaml:"table"`
}

// Slot is any registry slot, taken or not.
type Slot struct {
	Taken bool
	Entry
}

// Dropped is an entry Load refused to keep.
type Dropped struct {
	Slot   int
	Name   string
	Handle pool.Handle
	Reason string
}

type slot struct {
	taken  bool
	table  bool
	handle pool.Handle
	size   uint32
	name   string
}

// Registry is the RAM copy of the persisted name table.
type Registry struct {
	p      *pool.Pool
	log    *zap.Logger
	handle pool.Handle
	slots  []slot
}

// Option configures New and Load.
type Option func(*Registry)

// WithLogger sets the logger for dropped entries and leaked blocks.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// Fit returns the largest entry count, at most maxEntries, whose table block
// fits an empty pool. It returns 0 when not even one entry fits.
func Fit(p *pool.Pool, maxEntries int) int {
	space := uint64(p.Stats().Capacity)
	for n := maxEntries; n > 0; n-- {
		class := p.BlockSize(format.RegistryPayloadSize(n))
		if class != 0 && uint64(class) <= space {
			return n
		}
	}
	return 0
}

// New creates an empty table of maxEntries slots. It must be the first
// allocation from a freshly created pool.
func New(p *pool.Pool, maxEntries int, opts ...Option) (*Registry, error) {
	if maxEntries < 1 {
		return nil, fmt.Errorf("%w: %d registry entries", pool.ErrBadArgument, maxEntries)
	}
	r := newRegistry(p, maxEntries, opts)

	h, err := p.Alloc(format.RegistryPayloadSize(maxEntries))
	if err != nil {
		return nil, fmt.Errorf("registry: allocate table: %w", err)
	}
	if h != r.handle {
		_ = p.Free(h)
		return nil, fmt.Errorf("%w: table landed at %s, want %s", ErrInvalid, h, r.handle)
	}
	if err := r.persist(); err != nil {
		return nil, err
	}
	r.log.Debug("Created registry", zap.Int("entries", maxEntries), zap.Stringer("handle", h))
	return r, nil
}

func newRegistry(p *pool.Pool, n int, opts []Option) *Registry {
	r := &Registry{p: p, log: logging.Nop(), handle: p.FirstHandle(), slots: make([]slot, n)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle returns the well-known handle of the table block.
func (r *Registry) Handle() pool.Handle { return r.handle }

// Capacity returns the number of slots.
func (r *Registry) Capacity() int { return len(r.slots) }

// Len returns the number of taken slots.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.slots {
		if s.taken {
			n++
		}
	}
	return n
}

// Register claims a block of size bytes for owner.resource.
//
// Re-registering a name with the same size returns the existing handle
// together with ErrAlreadyExists. With a different size the entry keeps its
// slot and moves to a new block; the new block is allocated before the old
// one is released, so a failed allocation leaves the entry untouched.
func (r *Registry) Register(owner, resource string, size uint32, table bool) (pool.Handle, error) {
	if err := ValidateName(owner, resource); err != nil {
		return 0, err
	}
	name := FullName(owner, resource)

	if i := r.find(name); i >= 0 {
		return r.reregister(i, size, table)
	}

	i := r.freeSlot()
	if i < 0 {
		return 0, fmt.Errorf("%w: %d entries", ErrRegistryFull, len(r.slots))
	}
	h, err := r.p.Alloc(size)
	if err != nil {
		return 0, err
	}
	r.slots[i] = slot{taken: true, table: table, handle: h, size: size, name: name}
	if err := r.persist(); err != nil {
		r.slots[i] = slot{}
		r.release(h)
		return 0, err
	}
	r.log.Debug("Registered", zap.String("name", name), zap.Stringer("handle", h), zap.Uint32("size", size))
	return h, nil
}

func (r *Registry) reregister(i int, size uint32, table bool) (pool.Handle, error) {
	s := r.slots[i]
	if s.table != table {
		return 0, fmt.Errorf("%w: %s", ErrWrongType, s.name)
	}
	if s.size == size {
		return s.handle, fmt.Errorf("%w: %s", ErrAlreadyExists, s.name)
	}

	h, err := r.p.Alloc(size)
	if err != nil {
		return 0, err
	}
	r.slots[i].handle, r.slots[i].size = h, size
	if err := r.persist(); err != nil {
		r.slots[i] = s
		r.release(h)
		return 0, err
	}
	r.log.Debug("Resized", zap.String("name", s.name), zap.Uint32("from", s.size), zap.Uint32("to", size))

	if err := r.p.Free(s.handle); err != nil {
		if !errors.Is(err, pool.ErrInvalidHandle) {
			return h, fmt.Errorf("registry: resized %s, old block not released: %w", s.name, err)
		}
		r.log.Warn("Old block of resized entry already invalid", zap.String("name", s.name), zap.Error(err))
	}
	return h, nil
}

// Delete releases the block of fullName and clears its slot. The critical
// table flag must match, and the owner must not be active in apps.
func (r *Registry) Delete(fullName string, table bool, apps AppDirectory) error {
	i := r.find(fullName)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, fullName)
	}
	s := r.slots[i]
	if s.table != table {
		return fmt.Errorf("%w: %s", ErrWrongType, fullName)
	}
	if owner := ownerOf(s.name); apps != nil && apps.IsActive(owner) {
		return fmt.Errorf("%w: %s", ErrOwnerActive, owner)
	}

	if err := r.p.Free(s.handle); err != nil {
		if !errors.Is(err, pool.ErrInvalidHandle) {
			return err
		}
		r.log.Warn("Deleting entry with invalid block", zap.String("name", fullName), zap.Error(err))
	}
	r.slots[i] = slot{}
	if err := r.persist(); err != nil {
		return err
	}
	r.log.Debug("Deleted", zap.String("name", fullName))
	return nil
}

// Lookup returns the taken entry named fullName.
func (r *Registry) Lookup(fullName string) (Entry, bool) {
	i := r.find(fullName)
	if i < 0 {
		return Entry{}, false
	}
	return r.entry(i), true
}

// Entries returns the taken entries in slot order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.slots))
	for i, s := range r.slots {
		if s.taken {
			out = append(out, r.entry(i))
		}
	}
	return out
}

// Slots returns every slot in order.
func (r *Registry) Slots() []Slot {
	out := make([]Slot, len(r.slots))
	for i, s := range r.slots {
		out[i] = Slot{Taken: s.taken, Entry: r.entry(i)}
	}
	return out
}

func (r *Registry) entry(i int) Entry {
	s := r.slots[i]
	return Entry{
		Slot:   i,
		Name:   s.name,
		Owner:  ownerOf(s.name),
		Handle: s.handle,
		Size:   s.size,
		Table:  s.table,
	}
}

func (r *Registry) find(name string) int {
	for i, s := range r.slots {
		if s.taken && s.name == name {
			return i
		}
	}
	return -1
}

func (r *Registry) freeSlot() int {
	for i, s := range r.slots {
		if !s.taken {
			return i
		}
	}
	return -1
}

// release frees a block after a failed registration. The block is unreferenced
// either way; a failure only leaks it until the next boot.
func (r *Registry) release(h pool.Handle) {
	if err := r.p.Free(h); err != nil {
		r.log.Warn("Leaked block after failed registration", zap.Stringer("handle", h), zap.Error(err))
	}
}

func (r *Registry) persist() error {
	recs := make([]format.RegistryRecord, len(r.slots))
	for i, s := range r.slots {
		if !s.taken {
			continue
		}
		recs[i] = format.RegistryRecord{
			Taken:  true,
			Table:  s.table,
			Handle: uint32(s.handle),
			Size:   s.size,
			Name:   []byte(s.name),
		}
	}
	if err := r.p.Write(r.handle, format.EncodeRegistry(recs)); err != nil {
		return fmt.Errorf("registry: persist table: %w", err)
	}
	return nil
}

func ownerOf(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == format.NameSeparator {
			return name[:i]
		}
	}
	return name
}
