package registry

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/joshuapare/cdskit/cds/pool"
	"github.com/joshuapare/cdskit/internal/format"
)

// Load reads the table from its well-known block in a rebuilt pool.
//
// The block must be a valid allocation holding a well-formed table, otherwise
// Load fails with ErrInvalid; store failures come back as pool.ErrAccess. A
// taken entry is dropped when its name is malformed or repeated, when its
// handle is the table itself or already claimed by an earlier entry, or when
// the handle is not a block the rebuild preserved with exactly the recorded
// size. The cleaned table is persisted when anything was dropped.
func Load(p *pool.Pool, opts ...Option) (*Registry, []Dropped, error) {
	h := p.FirstHandle()
	data, err := p.Read(h)
	if err != nil {
		if errors.Is(err, pool.ErrAccess) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	recs, err := format.DecodeRegistry(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if uint32(len(data)) != format.RegistryPayloadSize(len(recs)) {
		return nil, nil, fmt.Errorf("%w: block holds %d bytes for %d entries", ErrInvalid, len(data), len(recs))
	}

	r := newRegistry(p, len(recs), opts)
	var dropped []Dropped
	names := make(map[string]bool, len(recs))
	handles := map[pool.Handle]bool{h: true}
	dirty := false

	for i, rec := range recs {
		if !rec.Taken {
			if rec.Table || rec.Handle != 0 || rec.Size != 0 || len(rec.Name) != 0 {
				dirty = true
			}
			continue
		}

		eh := pool.Handle(rec.Handle)
		reason, err := r.check(rec, eh, names, handles)
		if err != nil {
			return nil, nil, err
		}
		if reason != "" {
			d := Dropped{Slot: i, Name: displayName(rec.Name), Handle: eh, Reason: reason}
			dropped = append(dropped, d)
			r.log.Warn("Dropped registry entry",
				zap.Int("slot", d.Slot),
				zap.String("name", d.Name),
				zap.Stringer("handle", d.Handle),
				zap.String("reason", d.Reason),
			)
			dirty = true
			continue
		}

		name := string(rec.Name)
		names[name] = true
		handles[eh] = true
		r.slots[i] = slot{taken: true, table: rec.Table, handle: eh, size: rec.Size, name: name}
	}

	if dirty {
		if err := r.persist(); err != nil {
			return nil, nil, err
		}
	}
	r.log.Info("Loaded registry",
		zap.Int("entries", r.Len()),
		zap.Int("capacity", r.Capacity()),
		zap.Int("dropped", len(dropped)),
	)
	return r, dropped, nil
}

// check returns why rec cannot be kept, or "" when it can.
func (r *Registry) check(rec format.RegistryRecord, h pool.Handle, names map[string]bool, handles map[pool.Handle]bool) (string, error) {
	name := string(rec.Name)
	if _, _, err := SplitName(name); err != nil {
		return "malformed name", nil
	}
	if names[name] {
		return "duplicate name", nil
	}
	if handles[h] {
		return "handle already in use", nil
	}
	d, err := r.p.Describe(h)
	if err != nil {
		if errors.Is(err, pool.ErrAccess) {
			return "", err
		}
		return "block not recovered", nil
	}
	if !r.p.WasRecovered(h) {
		return "block not recovered", nil
	}
	if d.SizeUsed != rec.Size {
		return fmt.Sprintf("size %d disagrees with block (%d)", rec.Size, d.SizeUsed), nil
	}
	return "", nil
}
