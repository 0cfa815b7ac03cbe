package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/cds/pool"
	"github.com/joshuapare/cdskit/internal/format"
)

type testStore struct {
	mem   *bsp.Memory
	total uint32
	p     *pool.Pool
	r     *Registry
}

func newTestStore(t *testing.T, capacity uint32, entries int) *testStore {
	t.Helper()

	mem := bsp.NewMemory(capacity)
	total := capacity - format.PoolBase
	p, err := pool.Create(mem, total, format.PoolBase)
	require.NoError(t, err)
	r, err := New(p, entries)
	require.NoError(t, err)
	return &testStore{mem: mem, total: total, p: p, r: r}
}

// restart drops the RAM state and recovers pool and registry from the bytes.
func (s *testStore) restart(t *testing.T) []Dropped {
	t.Helper()

	p, err := pool.Rebuild(s.mem, s.total, format.PoolBase)
	require.NoError(t, err)
	r, dropped, err := Load(p)
	require.NoError(t, err)
	s.p, s.r = p, r
	return dropped
}

type apps map[string]bool

func (a apps) IsActive(app string) bool { return a[app] }
