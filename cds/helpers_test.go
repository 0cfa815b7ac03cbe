package cds

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cdskit/cds/bsp"
)

const testCapacity = 64 * 1024

func openStore(t *testing.T, bs bsp.ByteStore, opts ...Option) *Store {
	t.Helper()

	s, err := Open(bs, DefaultConfig(), opts...)
	require.NoError(t, err)
	return s
}

// restart simulates a processor reset that preserved the memory.
func restart(t *testing.T, mem *bsp.Memory, opts ...Option) *Store {
	t.Helper()

	mem.SetValidityFlag(true)
	return openStore(t, mem, opts...)
}

func registerWith(t *testing.T, s *Store, owner, name string, data []byte) Handle {
	t.Helper()

	h, err := s.Register(owner, name, uint32(len(data)))
	require.NoError(t, err)
	require.NoError(t, s.CopyToStore(h, data))
	return h
}
