// Package verify checks the structural invariants of a critical data store
// image offline, without opening it.
//
// # Overview
//
// The checks work on the raw image bytes, for example a snapshot taken with
// cdsctl or the content of a bsp.Memory store in tests. They never modify
// the image.
//
// Validation categories:
//   - Signatures: begin and end markers
//   - Header: layout version
//   - PoolHeader: class table checksum, class count, current offset, free-list heads
//   - Blocks: descriptor chain from the first block to the current offset
//   - FreeLists: acyclic lists of unused blocks of the right class
//   - Registry: registry block at the well-known handle and its entries
//
// # Quick Start
//
//	data, _ := os.ReadFile("cds.img")
//	if err := verify.AllInvariants(data, pool.DefaultConfig); err != nil {
//	    fmt.Printf("Validation failed: %v\n", err)
//	}
//
// # ValidationError
//
// Every check returns a *ValidationError on failure:
//
//	type ValidationError struct {
//	    Type    string         // check that failed, e.g. "FreeLists"
//	    Message string         // human-readable description
//	    Offset  int            // image offset of the problem (-1 if N/A)
//	    Details map[string]any // additional context
//	}
//
// # Checksums
//
// Checksums compares the CRC of every used block with its payload. It is not
// part of AllInvariants: a block whose content went bad is a data problem the
// owning application sees on restore, not a structural one.
//
// # Limitations
//
// Blocks found after a crash but before the next boot (a half-finished
// allocation, a free list discarded at runtime) are reported as errors even
// though the next boot repairs them.
package verify
