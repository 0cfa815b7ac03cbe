// Package pool implements the persistent block pool of the Critical Data Store.
//
// # Overview
//
// The pool is a segregated free-list allocator whose bookkeeping lives inside
// the byte range it manages. Every block starts with a 16-byte self-describing
// descriptor, and the free-list heads plus the high-water mark are persisted
// in a small header at the pool base:
//
//	base       pool header ("CDSP", current, class count, table CRC, heads...)
//	dataStart  [descriptor][payload] [descriptor][payload] ...
//	current    never-allocated space
//	end
//
// The RAM copy of the header is a cache. Rebuild re-derives it from the raw
// bytes after a reset by scanning for trusted descriptors.
//
// # Size Classes
//
// Requests are rounded up to the smallest class that fits the payload plus
// the descriptor. The default table is:
//
//	32 48 64 96 128 192 256 384 512
//	1K 2K 4K 8K 16K 32K 64K 128K
//
// # Handles
//
// A Handle is the absolute store offset of a block payload. Every operation
// taking a Handle re-reads and checks the descriptor before touching the
// payload, so stale or forged handles fail with ErrInvalidHandle.
//
// # Crash Behavior
//
// No multi-step update is atomic. Writes are ordered so that an interrupted
// sequence leaves at worst a leaked block or a block whose descriptor no
// longer passes the check-bit or CRC gate; the next access or the next
// Rebuild quarantines it.
//
// # Thread Safety
//
// A Pool is not safe for concurrent use. The cds package serializes access
// under a single lock together with the registry.
package pool
