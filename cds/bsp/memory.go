package bsp

import (
	"errors"
	"sync"
)

// ErrInjected is the cause reported by faults injected into a Memory store.
var ErrInjected = errors.New("bsp: injected fault")

// Memory is a RAM-backed ByteStore. It survives "resets" as long as the value
// is kept, which is what makes it useful for recovery tests.
//
// Faults can be injected to exercise error paths: FailReads/FailWrites fail
// every subsequent access, FailAfter lets n more accesses succeed first.
type Memory struct {
	mu       sync.Mutex
	data     []byte
	valid    bool
	failRead bool
	failWrit bool
	budget   int // accesses left before failing; -1 = unlimited
}

// NewMemory returns a zeroed store of the given capacity.
// The validity flag starts false, like a freshly powered board.
func NewMemory(capacity uint32) *Memory {
	return &Memory{data: make([]byte, capacity), budget: -1}
}

// NewMemoryFrom wraps a copy of image. The validity flag starts true.
func NewMemoryFrom(image []byte) *Memory {
	data := make([]byte, len(image))
	copy(data, image)
	return &Memory{data: data, valid: true, budget: -1}
}

func (m *Memory) Read(off, n uint32) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault("read", off, n, m.failRead); err != nil {
		return nil, err
	}
	if err := checkRange("read", off, n, uint32(len(m.data))); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, m.data[off:off+n])
	return out, nil
}

func (m *Memory) Write(off uint32, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := uint32(len(p))
	if err := m.fault("write", off, n, m.failWrit); err != nil {
		return err
	}
	if err := checkRange("write", off, n, uint32(len(m.data))); err != nil {
		return err
	}
	copy(m.data[off:], p)
	return nil
}

func (m *Memory) Capacity() uint32 {
	return uint32(len(m.data))
}

func (m *Memory) ValidityFlag() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// SetValidityFlag sets the hint returned by ValidityFlag.
func (m *Memory) SetValidityFlag(v bool) {
	m.mu.Lock()
	m.valid = v
	m.mu.Unlock()
}

// FailReads makes every subsequent Read fail (or succeed again when false).
func (m *Memory) FailReads(fail bool) {
	m.mu.Lock()
	m.failRead = fail
	m.mu.Unlock()
}

// FailWrites makes every subsequent Write fail (or succeed again when false).
func (m *Memory) FailWrites(fail bool) {
	m.mu.Lock()
	m.failWrit = fail
	m.mu.Unlock()
}

// FailAfter lets n more accesses (reads or writes) succeed, then fails all of
// them until Heal is called.
func (m *Memory) FailAfter(n int) {
	m.mu.Lock()
	m.budget = n
	m.mu.Unlock()
}

// Heal clears every injected fault.
func (m *Memory) Heal() {
	m.mu.Lock()
	m.failRead, m.failWrit, m.budget = false, false, -1
	m.mu.Unlock()
}

// Corrupt XORs mask into the byte at off, bypassing fault injection.
func (m *Memory) Corrupt(off uint32, mask byte) {
	m.mu.Lock()
	m.data[off] ^= mask
	m.mu.Unlock()
}

// Bytes returns a snapshot of the whole medium.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

func (m *Memory) fault(op string, off, n uint32, forced bool) error {
	if forced {
		return &IOError{Op: op, Off: off, Len: n, Err: ErrInjected}
	}
	if m.budget == 0 {
		return &IOError{Op: op, Off: off, Len: n, Err: ErrInjected}
	}
	if m.budget > 0 {
		m.budget--
	}
	return nil
}
