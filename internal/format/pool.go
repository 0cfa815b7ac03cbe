package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/cdskit/internal/buf"
)

// PoolHeader is the persisted portion of the block pool state.
// Heads holds one free-list head per size class.
type PoolHeader struct {
	Current  uint32
	TableSum uint16
	Heads    []uint32
}

// PoolHeaderSize returns the encoded header size for n size classes.
func PoolHeaderSize(n int) uint32 {
	return PoolHeadsOffset + uint32(n)*PoolHeadSize
}

// HeadOffset returns the header-relative offset of the free-list head of class i.
func HeadOffset(i int) uint32 {
	return PoolHeadsOffset + uint32(i)*PoolHeadSize
}

// DecodePoolHeader validates the magic and decodes a pool header.
func DecodePoolHeader(b []byte) (PoolHeader, error) {
	if len(b) < PoolHeadsOffset {
		return PoolHeader{}, fmt.Errorf("pool header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[PoolMagicOffset:PoolMagicOffset+4], PoolMagic) {
		return PoolHeader{}, fmt.Errorf("pool header: %w", ErrSignatureMismatch)
	}
	n := buf.U32LE(b[PoolClassCountOffset:])
	need := PoolHeaderSize(int(n))
	if n == 0 || uint32(len(b)) < need {
		return PoolHeader{}, fmt.Errorf("pool header: %w (classes=%d, have %d bytes)", ErrTruncated, n, len(b))
	}
	h := PoolHeader{
		Current:  buf.U32LE(b[PoolCurrentOffset:]),
		TableSum: buf.U16LE(b[PoolTableSumOffset:]),
		Heads:    make([]uint32, n),
	}
	for i := range h.Heads {
		h.Heads[i] = buf.U32LE(b[HeadOffset(i):])
	}
	return h, nil
}

// Bytes encodes the header.
func (h PoolHeader) Bytes() []byte {
	b := make([]byte, PoolHeaderSize(len(h.Heads)))
	copy(b[PoolMagicOffset:], PoolMagic)
	PutU32(b, PoolCurrentOffset, h.Current)
	PutU32(b, PoolClassCountOffset, uint32(len(h.Heads)))
	PutU16(b, PoolTableSumOffset, h.TableSum)
	for i, head := range h.Heads {
		PutU32(b, int(HeadOffset(i)), head)
	}
	return b
}
