package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/cdskit/internal/buf"
)

// RegistryRecord is one raw slot of the registry table.
// Name holds the stored bytes with trailing zero padding removed.
type RegistryRecord struct {
	Taken  bool
	Table  bool
	Handle uint32
	Size   uint32
	Name   []byte
}

// RegistryPayloadSize returns the registry block payload size for n entries.
func RegistryPayloadSize(n int) uint32 {
	return RegHeaderSize + uint32(n)*RegEntrySize
}

// DecodeRegistry decodes a registry block payload.
func DecodeRegistry(b []byte) ([]RegistryRecord, error) {
	if len(b) < RegHeaderSize {
		return nil, fmt.Errorf("registry: %w", ErrTruncated)
	}
	if !bytes.Equal(b[RegMagicOffset:RegMagicOffset+4], RegistryMagic) {
		return nil, fmt.Errorf("registry: %w", ErrSignatureMismatch)
	}
	n := int(buf.U32LE(b[RegCountOffset:]))
	if n == 0 {
		return nil, fmt.Errorf("registry: %w (zero entries)", ErrMalformed)
	}
	if _, ok := buf.Slice(b, RegHeaderSize, n*RegEntrySize); !ok {
		return nil, fmt.Errorf("registry: %w (entries=%d, have %d bytes)", ErrTruncated, n, len(b))
	}

	recs := make([]RegistryRecord, n)
	for i := range recs {
		e := b[RegHeaderSize+i*RegEntrySize : RegHeaderSize+(i+1)*RegEntrySize]
		name := e[RegEntryNameOffset : RegEntryNameOffset+MaxFullNameLen]
		recs[i] = RegistryRecord{
			Taken:  e[RegEntryTakenOffset] != 0,
			Table:  e[RegEntryTableOffset] != 0,
			Handle: buf.U32LE(e[RegEntryHandleOffset:]),
			Size:   buf.U32LE(e[RegEntrySizeOffset:]),
			Name:   bytes.TrimRight(name, "\x00"),
		}
	}
	return recs, nil
}

// EncodeRegistry encodes recs into a registry block payload.
// Names longer than MaxFullNameLen are truncated; callers validate first.
func EncodeRegistry(recs []RegistryRecord) []byte {
	b := make([]byte, RegistryPayloadSize(len(recs)))
	copy(b[RegMagicOffset:], RegistryMagic)
	PutU32(b, RegCountOffset, uint32(len(recs)))
	for i, r := range recs {
		e := b[RegHeaderSize+i*RegEntrySize : RegHeaderSize+(i+1)*RegEntrySize]
		if r.Taken {
			e[RegEntryTakenOffset] = 1
		}
		if r.Table {
			e[RegEntryTableOffset] = 1
		}
		PutU32(e, RegEntryHandleOffset, r.Handle)
		PutU32(e, RegEntrySizeOffset, r.Size)
		copy(e[RegEntryNameOffset:RegEntryNameOffset+MaxFullNameLen], r.Name)
	}
	return b
}
