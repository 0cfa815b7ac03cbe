//go:build !linux && !darwin

package bsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteThrough_FailureKeepsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.img")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o600))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]byte, 64)
	require.Error(t, writeThrough(f, data, 8, []byte("lost")))
	require.Equal(t, make([]byte, 64), data)
}
