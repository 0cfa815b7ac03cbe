// Package registry maps "Owner.Resource" names to blocks of the critical
// data store pool.
//
// The table itself lives in the first block ever allocated from a fresh pool,
// so after a reset it is found at a fixed handle without reading anything
// else. Every mutation rewrites the whole table block. Load reconciles the
// stored table against the blocks the pool recovered and drops entries it
// cannot vouch for.
//
// A Registry is not safe for concurrent use; the cds package serializes it
// with the pool under one lock.
package registry
