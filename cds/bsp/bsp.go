// Package bsp defines the board-support byte store the Critical Data Store
// lives in, plus two implementations: a RAM-backed store with fault injection
// for tests and simulation, and a file-backed store for ground tools.
//
// The store is never handed out as addressable memory. Every access is a
// synchronous Read or Write that either completes or returns an error; there
// is no partial progress, no retry and no cancellation.
package bsp

import (
	"errors"
	"fmt"

	"github.com/joshuapare/cdskit/internal/buf"
)

var (
	// ErrIO is wrapped by every failure reported by a ByteStore.
	ErrIO = errors.New("bsp: i/o error")

	// ErrOutOfRange indicates an access outside [0, Capacity()).
	ErrOutOfRange = errors.New("bsp: access out of range")

	// ErrClosed indicates the store was closed.
	ErrClosed = errors.New("bsp: store closed")
)

// ByteStore is the synchronous read/write surface of the physical medium.
type ByteStore interface {
	// Read returns a copy of n bytes starting at off.
	Read(off, n uint32) ([]byte, error)

	// Write stores p starting at off.
	Write(off uint32, p []byte) error

	// Capacity returns the usable size of the medium in bytes.
	Capacity() uint32

	// ValidityFlag reports whether the hardware believes content survived
	// the last reset. It is a hint only.
	ValidityFlag() bool
}

// IOError describes a failed store access.
type IOError struct {
	Op  string // "read" or "write"
	Off uint32
	Len uint32
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("bsp: %s at offset 0x%X (len %d): %v", e.Op, e.Off, e.Len, e.Err)
}

// Unwrap exposes both ErrIO and the underlying cause to errors.Is.
func (e *IOError) Unwrap() []error {
	if e.Err == nil || errors.Is(e.Err, ErrIO) {
		return []error{ErrIO}
	}
	return []error{ErrIO, e.Err}
}

func checkRange(op string, off, n, capacity uint32) error {
	if _, err := buf.Span(off, n, capacity); err != nil {
		return &IOError{Op: op, Off: off, Len: n, Err: fmt.Errorf("%w: %w", ErrOutOfRange, err)}
	}
	return nil
}
