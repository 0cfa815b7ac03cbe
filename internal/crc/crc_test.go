package crc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSum16_CheckValue(t *testing.T) {
	// Standard check input for CRC catalogues.
	require.Equal(t, uint16(0xBB3D), Sum16([]byte("123456789")))
}

func TestSum16_Empty(t *testing.T) {
	require.Equal(t, uint16(0), Sum16(nil))
}

func TestSum16_DetectsBitFlip(t *testing.T) {
	data := []byte("critical data store payload")
	before := Sum16(data)
	data[3] ^= 0x01
	require.NotEqual(t, before, Sum16(data))
}
