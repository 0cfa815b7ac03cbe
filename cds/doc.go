// Package cds implements the Critical Data Store: a non-volatile byte region
// that keeps application state across processor resets, with a name-based
// registry so independent applications can claim persistent blocks.
//
// # Overview
//
// A Store owns one bsp.ByteStore. Its layout is:
//
//	0x00        "_CDSBeg_" begin signature
//	0x08        instance ID (new on every full initialization)
//	0x18        layout version
//	0x20        block pool header, then blocks (see package pool)
//	capacity-8  "_CDSEnd_" end signature
//
// The registry table is the first block of the pool.
//
// # Boot
//
// Open decides between recovery and full reinitialization:
//
//   - signatures present, BSP validity flag set: rebuild the pool by scanning,
//     reload the registry, release orphaned blocks
//   - anything else, including a recovery failure or an I/O error during the
//     validity check: clear the store and lay it out afresh
//
// Reinitialization loses data but never trusts bytes it cannot vouch for.
// The outcome is reported by (*Store).Boot.
//
// # Usage Example
//
//	mem := bsp.NewMemory(64 * 1024)
//	s, err := cds.Open(mem, cds.DefaultConfig(), cds.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	h, err := s.Register("SC", "State", 128)
//	if err != nil && !errors.Is(err, cds.ErrAlreadyExists) {
//	    return err
//	}
//	if err := s.CopyToStore(h, state); err != nil {
//	    return err
//	}
//
//	// After a reset, with the same bytes:
//	saved, err := s.RestoreFromStore(h)
//
// # Thread Safety
//
// Every Store method holds one mutex for the whole logical operation, so a
// register-then-allocate sequence is indivisible to other goroutines. It is
// not crash-atomic: an interrupted update is caught by the descriptor check
// bits and CRCs on the next access or the next boot.
package cds
