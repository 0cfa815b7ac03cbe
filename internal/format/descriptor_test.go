package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestDecodeDescriptor(t *testing.T) {
	b := make([]byte, DescriptorSize)
	binary.LittleEndian.PutUint16(b[DescCheckBitsOffset:], CheckPattern)
	binary.LittleEndian.PutUint16(b[DescAllocatedOffset:], BlockUsed)
	binary.LittleEndian.PutUint32(b[DescActualSizeOffset:], 64)
	binary.LittleEndian.PutUint32(b[DescSizeUsedOffset:], 40)
	binary.LittleEndian.PutUint16(b[DescCRCOffset:], 0xBEEF)

	d, err := DecodeDescriptor(b)
	if err != nil {
		t.Fatalf("DecodeDescriptor: %v", err)
	}
	if !d.Trusted() || d.Free() {
		t.Fatalf("expected trusted used descriptor: %v", d)
	}
	if d.ActualSize != 64 || d.SizeUsed != 40 || d.CRC != 0xBEEF {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	if d.Capacity() != 64-DescriptorSize {
		t.Fatalf("Capacity = %d", d.Capacity())
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	want := NewUsedDescriptor(128, 100, 0x1234)
	got, err := DecodeDescriptor(want.Bytes())
	if err != nil {
		t.Fatalf("DecodeDescriptor: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestDescriptorTrustGate(t *testing.T) {
	tests := []struct {
		name    string
		d       Descriptor
		trusted bool
		free    bool
	}{
		{"used", Descriptor{CheckBits: CheckPattern, Allocated: BlockUsed}, true, false},
		{"free", Descriptor{CheckBits: CheckPattern, Allocated: BlockUnused}, false, true},
		{"bad check bits", Descriptor{CheckBits: 0x5A5B, Allocated: BlockUsed}, false, false},
		{"bad flag", Descriptor{CheckBits: CheckPattern, Allocated: 0x1234}, false, false},
		{"zeroed", Descriptor{}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.d.Trusted() != tt.trusted {
				t.Fatalf("Trusted() = %v, want %v", tt.d.Trusted(), tt.trusted)
			}
			if tt.d.Free() != tt.free {
				t.Fatalf("Free() = %v, want %v", tt.d.Free(), tt.free)
			}
		})
	}
}

func TestDecodeDescriptor_Truncated(t *testing.T) {
	if _, err := DecodeDescriptor(make([]byte, DescriptorSize-1)); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestAlign8(t *testing.T) {
	cases := map[uint32]uint32{0: 0, 1: 8, 8: 8, 9: 16, 17: 24}
	for in, want := range cases {
		if got := Align8(in); got != want {
			t.Errorf("Align8(%d) = %d, want %d", in, got, want)
		}
	}
	if !IsAligned(48, 32) || IsAligned(44, 32) || IsAligned(16, 32) {
		t.Errorf("IsAligned gave unexpected results")
	}
}
