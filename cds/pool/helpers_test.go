package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/internal/format"
)

const testBase = format.PoolBase

// newTestPool creates a pool filling a fresh memory store of the given capacity.
func newTestPool(t *testing.T, capacity uint32, opts ...Option) (*bsp.Memory, *Pool, uint32) {
	t.Helper()

	mem := bsp.NewMemory(capacity)
	total := capacity - testBase
	p, err := Create(mem, total, testBase, opts...)
	require.NoError(t, err)
	return mem, p, total
}

// allocWrite allocates a block and fills it with data.
func allocWrite(t *testing.T, p *Pool, data []byte) Handle {
	t.Helper()

	h, err := p.Alloc(uint32(len(data)))
	require.NoError(t, err)
	require.NoError(t, p.Write(h, data))
	return h
}

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i*7)
	}
	return b
}
