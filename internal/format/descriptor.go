package format

import (
	"fmt"

	"github.com/joshuapare/cdskit/internal/buf"
)

// Descriptor is the self-describing header stored immediately before a block payload.
type Descriptor struct {
	CheckBits  uint16
	Allocated  uint16
	ActualSize uint32 // size class, descriptor included
	SizeUsed   uint32 // caller-requested payload bytes
	CRC        uint16
}

// NewUsedDescriptor returns a descriptor for a freshly allocated block.
func NewUsedDescriptor(class, sizeUsed uint32, crc uint16) Descriptor {
	return Descriptor{
		CheckBits:  CheckPattern,
		Allocated:  BlockUsed,
		ActualSize: class,
		SizeUsed:   sizeUsed,
		CRC:        crc,
	}
}

// NewFreeDescriptor returns a descriptor for a block sitting on a free list.
func NewFreeDescriptor(class uint32) Descriptor {
	return Descriptor{
		CheckBits:  CheckPattern,
		Allocated:  BlockUnused,
		ActualSize: class,
	}
}

// DecodeDescriptor decodes the first DescriptorSize bytes of b.
func DecodeDescriptor(b []byte) (Descriptor, error) {
	if len(b) < DescriptorSize {
		return Descriptor{}, fmt.Errorf("descriptor: %w (need %d bytes, have %d)", ErrTruncated, DescriptorSize, len(b))
	}
	return Descriptor{
		CheckBits:  buf.U16LE(b[DescCheckBitsOffset:]),
		Allocated:  buf.U16LE(b[DescAllocatedOffset:]),
		ActualSize: buf.U32LE(b[DescActualSizeOffset:]),
		SizeUsed:   buf.U32LE(b[DescSizeUsedOffset:]),
		CRC:        buf.U16LE(b[DescCRCOffset:]),
	}, nil
}

// Bytes encodes the descriptor into a fresh DescriptorSize buffer.
func (d Descriptor) Bytes() []byte {
	b := make([]byte, DescriptorSize)
	PutU16(b, DescCheckBitsOffset, d.CheckBits)
	PutU16(b, DescAllocatedOffset, d.Allocated)
	PutU32(b, DescActualSizeOffset, d.ActualSize)
	PutU32(b, DescSizeUsedOffset, d.SizeUsed)
	PutU16(b, DescCRCOffset, d.CRC)
	return b
}

// Trusted reports whether the descriptor marks a meaningfully allocated block.
// Any other combination of check bits and flag is garbage or free space.
func (d Descriptor) Trusted() bool {
	return d.CheckBits == CheckPattern && d.Allocated == BlockUsed
}

// Free reports whether the descriptor marks a block parked on a free list.
func (d Descriptor) Free() bool {
	return d.CheckBits == CheckPattern && d.Allocated == BlockUnused
}

// Capacity returns the payload bytes available in the block.
func (d Descriptor) Capacity() uint32 {
	if d.ActualSize < DescriptorSize {
		return 0
	}
	return d.ActualSize - DescriptorSize
}

func (d Descriptor) String() string {
	state := "garbage"
	switch {
	case d.Trusted():
		state = "used"
	case d.Free():
		state = "free"
	}
	return fmt.Sprintf("%s class=%d used=%d crc=0x%04X", state, d.ActualSize, d.SizeUsed, d.CRC)
}
