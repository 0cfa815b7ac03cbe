package cds

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/internal/format"
)

func TestRegister_NewAndResize(t *testing.T) {
	s := openStore(t, bsp.NewMemory(testCapacity))

	h1 := registerWith(t, s, "HK", "Table", []byte("housekeeping"))
	e, ok := s.Lookup("HK.Table")
	require.True(t, ok)
	require.Equal(t, h1, e.Handle)
	require.Equal(t, "HK", e.Owner)
	require.Equal(t, uint32(12), e.Size)
	require.False(t, e.Table)

	// A new size moves the entry to a fresh, zeroed block.
	h2, err := s.Register("HK", "Table", 300)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
	got, err := s.RestoreFromStore(h2)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 300), got)

	_, err = s.RestoreFromStore(h1)
	require.ErrorIs(t, err, ErrInvalidHandle)
	require.Len(t, s.Dump(), 1)

	// Shrinking back reuses the block given up by the resize.
	h3, err := s.Register("HK", "Table", 12)
	require.NoError(t, err)
	require.Equal(t, h1, h3)
}

func TestRegister_Rejects(t *testing.T) {
	s := openStore(t, bsp.NewMemory(testCapacity))

	tests := []struct {
		name  string
		owner string
		res   string
		size  uint32
		want  error
	}{
		{"empty owner", "", "x", 8, ErrNameInvalid},
		{"empty resource", "A", "", 8, ErrNameInvalid},
		{"dotted owner", "A.B", "x", 8, ErrNameInvalid},
		{"space", "A", "x y", 8, ErrNameInvalid},
		{"too long", "A", strings.Repeat("r", 47), 8, ErrNameInvalid},
		{"zero size", "A", "x", 0, ErrBadArgument},
		{"too large", "A", "x", 1 << 20, ErrBlockTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(tt.owner, tt.res, tt.size)
			require.ErrorIs(t, err, tt.want)
		})
	}
	require.Empty(t, s.Dump())

	// Resource names may carry dots.
	_, err := s.Register("A", "sub.part", 8)
	require.NoError(t, err)
	_, ok := s.Lookup("A.sub.part")
	require.True(t, ok)
}

func TestRegister_TableMismatch(t *testing.T) {
	s := openStore(t, bsp.NewMemory(testCapacity))

	_, err := s.RegisterTable("TBL", "Limits", 32)
	require.NoError(t, err)
	_, err = s.Register("TBL", "Limits", 32)
	require.ErrorIs(t, err, ErrWrongType)

	require.ErrorIs(t, s.Delete("TBL.Limits", false), ErrWrongType)
	require.NoError(t, s.Delete("TBL.Limits", true))
}

func TestRegister_RegistryFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEntries = 2
	s, err := Open(bsp.NewMemory(testCapacity), cfg)
	require.NoError(t, err)

	_, err = s.Register("A", "one", 8)
	require.NoError(t, err)
	_, err = s.Register("A", "two", 8)
	require.NoError(t, err)
	_, err = s.Register("A", "three", 8)
	require.ErrorIs(t, err, ErrRegistryFull)

	require.NoError(t, s.Delete("A.one", false))
	_, err = s.Register("A", "three", 8)
	require.NoError(t, err)
}

func TestRegister_PoolExhausted(t *testing.T) {
	s := openStore(t, bsp.NewMemory(4096))

	var err error
	for i := 0; err == nil; i++ {
		_, err = s.Register("A", string(rune('a'+i%26))+strings.Repeat("x", i/26), 512)
	}
	require.ErrorIs(t, err, ErrPoolUnavailable)
}

func TestDelete_OwnershipGate(t *testing.T) {
	apps := NewStaticApps("SC")
	mem := bsp.NewMemory(testCapacity)
	s := openStore(t, mem, WithApps(apps))

	h := registerWith(t, s, "SC", "State", []byte("state"))

	require.ErrorIs(t, s.Delete("SC.State", false), ErrOwnerActive)
	_, ok := s.Lookup("SC.State")
	require.True(t, ok)

	apps.Stop("SC")
	require.NoError(t, s.Delete("SC.State", false))
	_, ok = s.Lookup("SC.State")
	require.False(t, ok)
	_, err := s.RestoreFromStore(h)
	require.ErrorIs(t, err, ErrInvalidHandle)
	require.ErrorIs(t, s.Delete("SC.State", false), ErrNotFound)

	// The deletion is durable.
	s = restart(t, mem, WithApps(apps))
	_, ok = s.Lookup("SC.State")
	require.False(t, ok)

	apps.Start("SC")
	registerWith(t, s, "SC", "State", []byte("again"))
	require.ErrorIs(t, s.Delete("SC.State", false), ErrOwnerActive)
}

func TestCopyRestore(t *testing.T) {
	mem := bsp.NewMemory(testCapacity)
	s := openStore(t, mem)

	h, err := s.Register("A", "buf", 16)
	require.NoError(t, err)

	got, err := s.RestoreFromStore(h)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 16), got)

	require.NoError(t, s.CopyToStore(h, []byte("0123456789abcdef")))
	got, err = s.RestoreFromStore(h)
	require.NoError(t, err)
	require.Equal(t, []byte("0123456789abcdef"), got)

	// Short writes are zero padded.
	require.NoError(t, s.CopyToStore(h, []byte("xy")))
	got, err = s.RestoreFromStore(h)
	require.NoError(t, err)
	require.Equal(t, append([]byte("xy"), make([]byte, 14)...), got)

	require.ErrorIs(t, s.CopyToStore(h, bytes.Repeat([]byte{1}, 17)), ErrBlockTooLarge)
}

func TestCopyRestore_RejectsBadHandles(t *testing.T) {
	mem := bsp.NewMemory(testCapacity)
	s := openStore(t, mem)
	h := registerWith(t, s, "A", "buf", []byte("data"))

	regHandle := Handle(s.PoolState().DataStart + format.DescriptorSize)
	require.ErrorIs(t, s.CopyToStore(regHandle, []byte("x")), ErrInvalidHandle)
	_, err := s.RestoreFromStore(regHandle)
	require.ErrorIs(t, err, ErrInvalidHandle)

	for _, bad := range []Handle{0, h + 1, h + 8, Handle(testCapacity)} {
		require.ErrorIs(t, s.CopyToStore(bad, []byte("x")), ErrInvalidHandle, "%s", bad)
		_, err := s.RestoreFromStore(bad)
		require.ErrorIs(t, err, ErrInvalidHandle, "%s", bad)
	}
}

func TestRestore_ChecksumMismatch(t *testing.T) {
	mem := bsp.NewMemory(testCapacity)
	s := openStore(t, mem)
	h := registerWith(t, s, "A", "buf", []byte("data"))

	mem.Corrupt(uint32(h)+1, 0x80)
	_, err := s.RestoreFromStore(h)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	// Rewriting the block repairs it.
	require.NoError(t, s.CopyToStore(h, []byte("new!")))
	got, err := s.RestoreFromStore(h)
	require.NoError(t, err)
	require.Equal(t, []byte("new!"), got)
}

func TestAPI_StoreFailuresPropagate(t *testing.T) {
	mem := bsp.NewMemory(testCapacity)
	s := openStore(t, mem)
	h := registerWith(t, s, "A", "buf", []byte("data"))

	mem.FailWrites(true)
	err := s.CopyToStore(h, []byte("x"))
	require.ErrorIs(t, err, ErrAccess)
	require.ErrorIs(t, err, ErrIO)
	require.NotErrorIs(t, err, ErrInvalidHandle)

	_, err = s.Register("A", "other", 8)
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, s.Delete("A.buf", false), ErrIO)
	mem.Heal()

	mem.FailReads(true)
	_, err = s.RestoreFromStore(h)
	require.ErrorIs(t, err, ErrIO)
	mem.Heal()

	got, err := s.RestoreFromStore(h)
	require.NoError(t, err)
	require.Equal(t, []byte("data"), got)
}

func TestStats(t *testing.T) {
	s := openStore(t, bsp.NewMemory(testCapacity))
	before := s.Stats()

	registerWith(t, s, "A", "x", []byte("data"))
	st := s.Stats()
	require.Equal(t, 1, st.RegistryEntries)
	require.Equal(t, before.Pool.UsedBlocks+1, st.Pool.UsedBlocks)
	require.Equal(t, string(OutcomeReinitialized), string(st.Boot))
	require.Equal(t, s.Boot().InstanceID.String(), st.InstanceID)

	require.NoError(t, s.Delete("A.x", false))
	st = s.Stats()
	require.Equal(t, before.Pool.UsedBlocks, st.Pool.UsedBlocks)
	require.Equal(t, 1, st.Pool.FreeBlocks)
}
