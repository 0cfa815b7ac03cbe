package cds

import (
	"errors"

	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/cds/pool"
	"github.com/joshuapare/cdskit/cds/registry"
)

// Errors returned by the store, re-exported so callers need only this package.
var (
	ErrIO = bsp.ErrIO

	ErrBadArgument      = pool.ErrBadArgument
	ErrAccess           = pool.ErrAccess
	ErrInvalid          = pool.ErrInvalid
	ErrBlockTooLarge    = pool.ErrBlockTooLarge
	ErrPoolUnavailable  = pool.ErrPoolUnavailable
	ErrInvalidHandle    = pool.ErrInvalidHandle
	ErrChecksumMismatch = pool.ErrChecksumMismatch

	ErrNameInvalid     = registry.ErrNameInvalid
	ErrAlreadyExists   = registry.ErrAlreadyExists
	ErrRegistryFull    = registry.ErrRegistryFull
	ErrNotFound        = registry.ErrNotFound
	ErrWrongType       = registry.ErrWrongType
	ErrOwnerActive     = registry.ErrOwnerActive
	ErrRegistryInvalid = registry.ErrInvalid

	// ErrLayoutVersion indicates a store written with another layout version.
	ErrLayoutVersion = errors.New("cds: unsupported layout version")
)
