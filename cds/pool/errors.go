package pool

import "errors"

var (
	// ErrBadArgument indicates a size or geometry the pool cannot honor.
	ErrBadArgument = errors.New("pool: bad argument")

	// ErrAccess wraps a byte store failure. It always also matches bsp.ErrIO.
	ErrAccess = errors.New("pool: store access failed")

	// ErrInvalid indicates the persisted pool header cannot be trusted.
	ErrInvalid = errors.New("pool: invalid pool header")

	// ErrBlockTooLarge indicates a request above the largest size class, or a
	// write larger than the block's requested size.
	ErrBlockTooLarge = errors.New("pool: block too large")

	// ErrPoolUnavailable indicates no free block and no room left to carve one.
	ErrPoolUnavailable = errors.New("pool: no space available")

	// ErrInvalidHandle covers out-of-range, misaligned, never-allocated,
	// already-freed and corrupted handles alike.
	ErrInvalidHandle = errors.New("pool: invalid handle")

	// ErrChecksumMismatch indicates the payload changed since its last write.
	ErrChecksumMismatch = errors.New("pool: checksum mismatch")

	// ErrBadSizeClasses indicates an unusable SizeClassConfig.
	ErrBadSizeClasses = errors.New("pool: bad size class configuration")
)
