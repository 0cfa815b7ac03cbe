package format

// Align8 returns n aligned up to the next block granularity boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n uint32) uint32 {
	return (n + GranularityMask) &^ GranularityMask
}

// IsAligned reports whether off sits on a block granularity boundary relative to base.
func IsAligned(off, base uint32) bool {
	return off >= base && (off-base)&GranularityMask == 0
}
