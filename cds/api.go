package cds

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/cds/pool"
	"github.com/joshuapare/cdskit/cds/registry"
	"github.com/joshuapare/cdskit/internal/metrics"
)

// Handle identifies a registered block.
type Handle = pool.Handle

// Entry is a registry entry.
type Entry = registry.Entry

var errNotReady = fmt.Errorf("%w: store not initialized", ErrInvalid)

// Register claims size bytes of persistent storage named owner.name.
//
// When the name exists with the same size the existing handle is returned
// with ErrAlreadyExists; the caller usually carries on and restores its
// content. With a different size the entry moves to a new, zeroed block.
func (s *Store) Register(owner, name string, size uint32) (Handle, error) {
	return s.register(owner, name, size, false)
}

// RegisterTable is Register for critical tables.
func (s *Store) RegisterTable(owner, name string, size uint32) (Handle, error) {
	return s.register(owner, name, size, true)
}

func (s *Store) register(owner, name string, size uint32, table bool) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reg == nil {
		return 0, errNotReady
	}

	_, existed := s.reg.Lookup(registry.FullName(owner, name))
	h, err := s.reg.Register(owner, name, size, table)
	switch {
	case err == nil:
		s.metrics.Registered("ok")
		s.metrics.Allocated(1)
		if existed {
			s.metrics.Freed(1)
		}
	case errors.Is(err, ErrAlreadyExists):
		s.metrics.Registered("exists")
	default:
		s.metrics.Registered("error")
		s.observeError(err)
		s.log.Warn("Register failed",
			zap.String("name", registry.FullName(owner, name)),
			zap.Uint32("size", size),
			zap.Error(err),
		)
	}
	s.observeOccupancy()
	return h, err
}

// Delete releases the storage of fullName ("Owner.Name"). isTable must match
// how it was registered, and the owner must not be active.
func (s *Store) Delete(fullName string, isTable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reg == nil {
		return errNotReady
	}

	err := s.reg.Delete(fullName, isTable, s.apps)
	switch {
	case err == nil:
		s.metrics.Deleted("ok")
		s.metrics.Freed(1)
	case errors.Is(err, ErrNotFound):
		s.metrics.Deleted("not_found")
	case errors.Is(err, ErrWrongType):
		s.metrics.Deleted("wrong_type")
	case errors.Is(err, ErrOwnerActive):
		s.metrics.Deleted("owner_active")
	default:
		s.metrics.Deleted("error")
		s.observeError(err)
	}
	s.observeOccupancy()
	return err
}

// Lookup returns the entry named fullName.
func (s *Store) Lookup(fullName string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reg == nil {
		return Entry{}, false
	}
	return s.reg.Lookup(fullName)
}

// CopyToStore writes data into the block h. Data shorter than the registered
// size is zero padded; longer data fails with ErrBlockTooLarge.
func (s *Store) CopyToStore(h Handle, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUserHandle(h); err != nil {
		return err
	}

	if err := s.pool.Write(h, data); err != nil {
		s.observeError(err)
		return err
	}
	s.metrics.Copied()
	return nil
}

// RestoreFromStore returns the content of block h. Content that fails its
// checksum is withheld with ErrChecksumMismatch.
func (s *Store) RestoreFromStore(h Handle) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUserHandle(h); err != nil {
		return nil, err
	}

	data, err := s.pool.Read(h)
	if err != nil {
		s.observeError(err)
		return nil, err
	}
	s.metrics.Restored()
	return data, nil
}

// checkUserHandle keeps callers away from the registry's own block.
func (s *Store) checkUserHandle(h Handle) error {
	if s.pool == nil {
		return errNotReady
	}
	if h == s.reg.Handle() {
		s.metrics.Error(metrics.KindInvalidHandle)
		return fmt.Errorf("%w: %s is reserved", ErrInvalidHandle, h)
	}
	return nil
}

// Stats summarizes the store.
type Stats struct {
	Capacity         uint32     `json:"capacity" yaml:"capacity"`
	InstanceID       string     `json:"instance_id" yaml:"instance_id"`
	Boot             Outcome    `json:"boot" yaml:"boot"`
	RegistryEntries  int        `json:"registry_entries" yaml:"registry_entries"`
	RegistryCapacity int        `json:"registry_capacity" yaml:"registry_capacity"`
	Pool             pool.Stats `json:"pool" yaml:"pool"`
}

// Stats returns occupancy figures.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Capacity:   s.bs.Capacity(),
		InstanceID: s.boot.InstanceID.String(),
		Boot:       s.boot.Outcome,
	}
	if s.reg != nil {
		st.RegistryEntries = s.reg.Len()
		st.RegistryCapacity = s.reg.Capacity()
		st.Pool = s.pool.Stats()
	}
	return st
}

// PoolState returns the block pool geometry.
func (s *Store) PoolState() pool.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool == nil {
		return pool.State{}
	}
	return s.pool.State()
}

func (s *Store) observeError(err error) {
	switch {
	case errors.Is(err, bsp.ErrIO):
		s.metrics.Error(metrics.KindIO)
	case errors.Is(err, ErrInvalidHandle):
		s.metrics.Error(metrics.KindInvalidHandle)
	case errors.Is(err, ErrChecksumMismatch):
		s.metrics.Error(metrics.KindChecksumMismatch)
	case errors.Is(err, ErrPoolUnavailable):
		s.metrics.Error(metrics.KindPoolUnavailable)
	}
}

func (s *Store) observeOccupancy() {
	if s.metrics == nil || s.pool == nil {
		return
	}
	ps := s.pool.Stats()
	s.metrics.Occupancy(ps.UsedBytes, ps.FreeBytes+uint64(ps.Unallocated), s.reg.Len())
}
