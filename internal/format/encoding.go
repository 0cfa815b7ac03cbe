package format

import "github.com/joshuapare/cdskit/internal/buf"

// PutU16 stores v little-endian at b[off:].
func PutU16(b []byte, off int, v uint16) {
	buf.PutU16LE(b[off:], v)
}

// PutU32 stores v little-endian at b[off:].
func PutU32(b []byte, off int, v uint32) {
	buf.PutU32LE(b[off:], v)
}
