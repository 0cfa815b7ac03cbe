package buf

import (
	"fmt"
	"math"
)

// AddU32 adds a and b, returning ok = false when the result would overflow uint32.
// Store offsets are 32-bit, so every offset+length computation goes through here.
func AddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

// Span validates that [off, off+n) lies inside [0, limit) and returns the end offset.
func Span(off, n, limit uint32) (uint32, error) {
	end, ok := AddU32(off, n)
	if !ok {
		return 0, fmt.Errorf("overflow: off=%d + len=%d", off, n)
	}
	if end > limit {
		return 0, fmt.Errorf("bounds: end=%d > limit=%d", end, limit)
	}
	return end, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	if n > len(b)-off {
		return nil, false
	}
	return b[off : off+n], true
}
