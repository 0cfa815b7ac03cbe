package registry

import "errors"

var (
	// ErrNameInvalid indicates a malformed or oversized resource name.
	ErrNameInvalid = errors.New("registry: invalid name")

	// ErrAlreadyExists is returned with the existing handle when a name is
	// registered again with the same size. The handle stays valid.
	ErrAlreadyExists = errors.New("registry: already exists")

	// ErrRegistryFull indicates every registry slot is taken.
	ErrRegistryFull = errors.New("registry: full")

	// ErrNotFound indicates no entry carries the name.
	ErrNotFound = errors.New("registry: not found")

	// ErrWrongType indicates the critical-table flag does not match the entry.
	ErrWrongType = errors.New("registry: wrong entry type")

	// ErrOwnerActive indicates the owning application is still running.
	ErrOwnerActive = errors.New("registry: owner application active")

	// ErrInvalid indicates the registry block cannot be trusted.
	ErrInvalid = errors.New("registry: invalid registry block")
)
