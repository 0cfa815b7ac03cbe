package cds

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/cds/pool"
	"github.com/joshuapare/cdskit/cds/registry"
	"github.com/joshuapare/cdskit/internal/buf"
	"github.com/joshuapare/cdskit/internal/format"
	"github.com/joshuapare/cdskit/internal/logging"
	"github.com/joshuapare/cdskit/internal/metrics"
)

// Outcome is how a boot ended.
type Outcome string

const (
	OutcomeRecovered     Outcome = "recovered"
	OutcomeReinitialized Outcome = "reinitialized"
)

// BootInfo describes the last boot or reinitialization.
type BootInfo struct {
	Outcome    Outcome
	Reason     string // why the store was reinitialized; empty after recovery
	InstanceID uuid.UUID
	Dropped    []registry.Dropped // registry entries recovery refused
	Orphans    []pool.Handle      // recovered blocks no entry referenced, now released
}

// Store is an opened Critical Data Store.
type Store struct {
	mu sync.Mutex

	bs      bsp.ByteStore
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics
	apps    AppDirectory

	pool *pool.Pool
	reg  *registry.Registry
	boot BootInfo
}

// Open boots the store held by bs: it recovers existing content when the
// signatures and the BSP validity flag allow it, and reinitializes otherwise.
// Open fails only when the store cannot be laid out at all.
func Open(bs bsp.ByteStore, cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if capacity, minSize := bs.Capacity(), MinStoreSize(cfg); capacity < minSize {
		return nil, fmt.Errorf("%w: store capacity %d below minimum %d", ErrBadArgument, capacity, minSize)
	}

	s := &Store{bs: bs, cfg: cfg, log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) start() error {
	reason := ""
	v, err := CheckValidity(s.bs, s.cfg)
	switch {
	case err != nil:
		s.metrics.Error(metrics.KindIO)
		reason = "validity check failed: " + err.Error()
	case v != Trustworthy:
		reason = "signatures missing or damaged"
	case !s.bs.ValidityFlag():
		reason = "BSP reports content lost"
	default:
		if err := s.recover(); err != nil {
			reason = "recovery failed: " + err.Error()
		}
	}

	if reason != "" {
		if err := s.reinitialize(reason); err != nil {
			return err
		}
	}
	s.metrics.Boot(string(s.boot.Outcome), len(s.boot.Dropped))
	s.observeOccupancy()
	return nil
}

// recover rebuilds pool and registry from the bytes and releases orphans.
func (s *Store) recover() error {
	hdr, err := s.bs.Read(format.InstanceIDOffset, format.StoreHeaderSize-format.InstanceIDOffset)
	if err != nil {
		return err
	}
	if v := buf.U32LE(hdr[format.LayoutVersionOffset-format.InstanceIDOffset:]); v != format.LayoutVersion {
		return fmt.Errorf("%w: %d", ErrLayoutVersion, v)
	}
	id, err := uuid.FromBytes(hdr[:format.InstanceIDSize])
	if err != nil {
		return err
	}

	p, err := pool.Rebuild(s.bs, poolSize(s.bs.Capacity()), format.PoolBase,
		pool.WithSizeClasses(s.cfg.SizeClasses), pool.WithLogger(s.log))
	if err != nil {
		return err
	}
	reg, dropped, err := registry.Load(p, registry.WithLogger(s.log))
	if err != nil {
		return err
	}

	referenced := map[pool.Handle]bool{reg.Handle(): true}
	for _, e := range reg.Entries() {
		referenced[e.Handle] = true
	}
	var orphans []pool.Handle
	for _, h := range p.Recovered() {
		if referenced[h] {
			continue
		}
		if err := p.Free(h); err != nil {
			return err
		}
		orphans = append(orphans, h)
		s.log.Warn("Released orphaned block", zap.Stringer("handle", h))
	}

	s.pool, s.reg = p, reg
	s.boot = BootInfo{
		Outcome:    OutcomeRecovered,
		InstanceID: id,
		Dropped:    dropped,
		Orphans:    orphans,
	}
	s.log.Info("Recovered critical data store",
		zap.String("instance", id.String()),
		zap.Int("entries", reg.Len()),
		zap.Int("dropped", len(dropped)),
		zap.Int("orphans", len(orphans)),
	)
	return nil
}

// reinitialize wipes the store and lays it out afresh. The signatures are
// written last, so an interrupted initialization is redone on the next boot.
func (s *Store) reinitialize(reason string) error {
	s.log.Warn("Reinitializing critical data store", zap.String("reason", reason))
	capacity := s.bs.Capacity()

	zero := make([]byte, s.cfg.ClearChunk)
	for off := uint32(0); off < capacity; off += s.cfg.ClearChunk {
		n := min(s.cfg.ClearChunk, capacity-off)
		if err := s.bs.Write(off, zero[:n]); err != nil {
			return s.initFailed(fmt.Errorf("cds: clear store: %w", err))
		}
	}

	p, err := pool.Create(s.bs, poolSize(capacity), format.PoolBase,
		pool.WithSizeClasses(s.cfg.SizeClasses), pool.WithLogger(s.log))
	if err != nil {
		return s.initFailed(err)
	}
	n := registry.Fit(p, s.cfg.MaxEntries)
	if n == 0 {
		return s.initFailed(fmt.Errorf("%w: no room for a registry", ErrBadArgument))
	}
	if n < s.cfg.MaxEntries {
		s.log.Warn("Registry capped by store capacity", zap.Int("requested", s.cfg.MaxEntries), zap.Int("entries", n))
	}
	reg, err := registry.New(p, n, registry.WithLogger(s.log))
	if err != nil {
		return s.initFailed(err)
	}

	id := uuid.New()
	hdr := make([]byte, format.StoreHeaderSize-format.InstanceIDOffset)
	copy(hdr, id[:])
	buf.PutU32LE(hdr[format.LayoutVersionOffset-format.InstanceIDOffset:], format.LayoutVersion)
	if err := s.bs.Write(format.InstanceIDOffset, hdr); err != nil {
		return s.initFailed(fmt.Errorf("cds: write header: %w", err))
	}
	if err := s.bs.Write(capacity-format.SignatureSize, format.SignatureEnd); err != nil {
		return s.initFailed(fmt.Errorf("cds: write end signature: %w", err))
	}
	if err := s.bs.Write(0, format.SignatureBegin); err != nil {
		return s.initFailed(fmt.Errorf("cds: write begin signature: %w", err))
	}

	s.pool, s.reg = p, reg
	s.boot = BootInfo{Outcome: OutcomeReinitialized, Reason: reason, InstanceID: id}
	s.log.Info("Initialized critical data store",
		zap.String("instance", id.String()),
		zap.Uint32("capacity", capacity),
		zap.Int("registry_entries", n),
	)
	return nil
}

func (s *Store) initFailed(err error) error {
	if errors.Is(err, bsp.ErrIO) {
		s.metrics.Error(metrics.KindIO)
	}
	s.pool, s.reg = nil, nil
	return err
}

// Reinitialize discards all content and lays the store out afresh.
func (s *Store) Reinitialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reinitialize("requested"); err != nil {
		return err
	}
	s.metrics.Boot(string(s.boot.Outcome), 0)
	s.observeOccupancy()
	return nil
}

// Boot returns what the last boot or reinitialization did.
func (s *Store) Boot() BootInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boot
	b.Dropped = append([]registry.Dropped(nil), s.boot.Dropped...)
	b.Orphans = append([]pool.Handle(nil), s.boot.Orphans...)
	return b
}

// Config returns the configuration the store was opened with.
func (s *Store) Config() Config {
	return s.cfg
}

// Sync flushes the byte store when it supports it.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.bs.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}
