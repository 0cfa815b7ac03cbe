package bsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFile_CreateAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cds.img")

	f, err := CreateFile(path, 4096)
	require.NoError(t, err)
	require.False(t, f.ValidityFlag())
	require.Equal(t, uint32(4096), f.Capacity())
	require.Equal(t, path, f.Path())

	require.NoError(t, f.Write(100, []byte("persist")))
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(4096), st.Size())

	f, err = OpenFile(path)
	require.NoError(t, err)
	require.True(t, f.ValidityFlag())
	got, err := f.Read(100, 7)
	require.NoError(t, err)
	require.Equal(t, "persist", string(got))
	require.NoError(t, f.Close())

	// Same size keeps content and trust.
	f, err = CreateFile(path, 4096)
	require.NoError(t, err)
	require.True(t, f.ValidityFlag())
	got, err = f.Read(100, 7)
	require.NoError(t, err)
	require.Equal(t, "persist", string(got))
	require.NoError(t, f.Close())
}

func TestFile_ResizeDropsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cds.img")

	f, err := CreateFile(path, 256)
	require.NoError(t, err)
	require.NoError(t, f.Write(0, []byte{0xAB}))
	require.NoError(t, f.Close())

	f, err = CreateFile(path, 512)
	require.NoError(t, err)
	defer f.Close()
	require.False(t, f.ValidityFlag())
	require.Equal(t, uint32(512), f.Capacity())
	got, err := f.Read(0, 1)
	require.NoError(t, err)
	require.Equal(t, byte(0), got[0])
}

func TestFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenFile(filepath.Join(dir, "missing.img"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = CreateFile(filepath.Join(dir, "zero.img"), 0)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.img")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = OpenFile(empty)
	require.Error(t, err)

	f, err := CreateFile(filepath.Join(dir, "small.img"), 16)
	require.NoError(t, err)
	_, err = f.Read(8, 9)
	require.ErrorIs(t, err, ErrOutOfRange)
	require.NoError(t, f.Close())

	_, err = f.Read(0, 1)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, f.Write(0, []byte{1}), ErrIO)
	require.ErrorIs(t, f.Sync(), ErrClosed)
}
