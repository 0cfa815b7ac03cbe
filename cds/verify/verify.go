package verify

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/cdskit/cds/pool"
	"github.com/joshuapare/cdskit/cds/registry"
	"github.com/joshuapare/cdskit/internal/buf"
	"github.com/joshuapare/cdskit/internal/crc"
	"github.com/joshuapare/cdskit/internal/format"
)

// ValidationError describes a failed check.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func fail(typ string, off int, msg string, args ...any) *ValidationError {
	return &ValidationError{Type: typ, Message: fmt.Sprintf(msg, args...), Offset: off}
}

// AllInvariants runs every structural check and returns the first failure.
func AllInvariants(data []byte, cfg pool.SizeClassConfig) error {
	if err := Signatures(data); err != nil {
		return err
	}
	if err := Header(data); err != nil {
		return err
	}
	im, err := load(data, cfg)
	if err != nil {
		return err
	}
	if err := im.blocks(); err != nil {
		return err
	}
	if err := im.freeLists(); err != nil {
		return err
	}
	return im.registry()
}

// Signatures checks the begin and end markers.
func Signatures(data []byte) error {
	if len(data) < format.StoreHeaderSize+format.SignatureSize {
		return fail("Signatures", -1, "image too small: %d bytes", len(data))
	}
	if sig := data[:format.SignatureSize]; !bytes.Equal(sig, format.SignatureBegin) {
		return fail("Signatures", 0, "invalid begin signature: got %q, expected %q", sig, format.SignatureBegin)
	}
	endOff := len(data) - format.SignatureSize
	if sig := data[endOff:]; !bytes.Equal(sig, format.SignatureEnd) {
		return fail("Signatures", endOff, "invalid end signature: got %q, expected %q", sig, format.SignatureEnd)
	}
	return nil
}

// Header checks the layout version.
func Header(data []byte) error {
	if len(data) < format.StoreHeaderSize {
		return fail("Header", -1, "image too small: %d bytes", len(data))
	}
	if v := buf.U32LE(data[format.LayoutVersionOffset:]); v != format.LayoutVersion {
		return fail("Header", format.LayoutVersionOffset, "unsupported layout version %d (expected %d)", v, format.LayoutVersion)
	}
	return nil
}

// PoolHeader checks the pool header against the size class configuration.
func PoolHeader(data []byte, cfg pool.SizeClassConfig) error {
	_, err := load(data, cfg)
	return err
}

// Blocks walks the descriptor chain from the first block to the current offset.
func Blocks(data []byte, cfg pool.SizeClassConfig) error {
	im, err := load(data, cfg)
	if err != nil {
		return err
	}
	return im.blocks()
}

// FreeLists checks that every free list is acyclic, holds only unused blocks
// of its class, and that no unused block is missing from its list.
func FreeLists(data []byte, cfg pool.SizeClassConfig) error {
	im, err := load(data, cfg)
	if err != nil {
		return err
	}
	if err := im.blocks(); err != nil {
		return err
	}
	return im.freeLists()
}

// Registry checks the registry block and its entries.
func Registry(data []byte, cfg pool.SizeClassConfig) error {
	im, err := load(data, cfg)
	if err != nil {
		return err
	}
	if err := im.blocks(); err != nil {
		return err
	}
	return im.registry()
}

// Checksums checks the CRC of every used block.
func Checksums(data []byte, cfg pool.SizeClassConfig) error {
	im, err := load(data, cfg)
	if err != nil {
		return err
	}
	if err := im.blocks(); err != nil {
		return err
	}
	for _, off := range im.order {
		d := im.descs[off]
		if d.Allocated != format.BlockUsed {
			continue
		}
		payload := im.data[off+format.DescriptorSize : off+format.DescriptorSize+d.SizeUsed]
		if got := crc.Sum16(payload); got != d.CRC {
			return &ValidationError{
				Type:    "Checksums",
				Message: "block content does not match its CRC",
				Offset:  int(off),
				Details: map[string]any{"stored": d.CRC, "calculated": got},
			}
		}
	}
	return nil
}

// image is a decoded view of the pool area.
type image struct {
	data      []byte
	classes   []uint32
	dataStart uint32
	end       uint32
	hdr       format.PoolHeader

	descs map[uint32]format.Descriptor
	order []uint32
}

func load(data []byte, cfg pool.SizeClassConfig) (*image, error) {
	classes, err := cfg.Classes()
	if err != nil {
		return nil, fail("PoolHeader", -1, "size classes: %v", err)
	}
	dataStart := format.Align8(format.PoolBase + format.PoolHeaderSize(len(classes)))
	if uint64(len(data)) < uint64(dataStart)+format.SignatureSize {
		return nil, fail("PoolHeader", -1, "image too small: %d bytes", len(data))
	}
	end := uint32(len(data)) - format.SignatureSize

	hdr, err := format.DecodePoolHeader(data[format.PoolBase:end])
	if err != nil {
		return nil, fail("PoolHeader", format.PoolBase, "%v", err)
	}
	if len(hdr.Heads) != len(classes) {
		return nil, fail("PoolHeader", format.PoolBase+format.PoolClassCountOffset,
			"%d size classes (expected %d)", len(hdr.Heads), len(classes))
	}
	if sum := pool.TableSum(classes); hdr.TableSum != sum {
		return nil, &ValidationError{
			Type:    "PoolHeader",
			Message: "class table checksum mismatch",
			Offset:  format.PoolBase + format.PoolTableSumOffset,
			Details: map[string]any{"stored": hdr.TableSum, "calculated": sum},
		}
	}
	if hdr.Current < dataStart || hdr.Current > end || !format.IsAligned(hdr.Current, dataStart) {
		return nil, fail("PoolHeader", format.PoolBase+format.PoolCurrentOffset,
			"current offset 0x%X outside [0x%X, 0x%X] or misaligned", hdr.Current, dataStart, end)
	}
	for i, head := range hdr.Heads {
		if head != 0 && (head < dataStart || head >= hdr.Current || !format.IsAligned(head, dataStart)) {
			return nil, fail("PoolHeader", int(format.PoolBase+format.HeadOffset(i)),
				"free-list head 0x%X of class %d out of range", head, classes[i])
		}
	}
	return &image{data: data, classes: classes, dataStart: dataStart, end: end, hdr: hdr}, nil
}

func (im *image) descriptor(off uint32) format.Descriptor {
	d, _ := format.DecodeDescriptor(im.data[off:])
	return d
}

// blocks walks the chain by the rule a rebuild follows (pool.BlockAt). Runs
// of unusable bytes are accepted only when they are too short to hold the
// smallest block, and past the current offset the walk must meet no used
// block a rebuild would preserve.
func (im *image) blocks() error {
	im.descs = make(map[uint32]format.Descriptor)
	im.order = im.order[:0]

	pos, gapStart := im.dataStart, im.dataStart
	for pos < im.hdr.Current {
		d := im.descriptor(pos)
		size, _ := pool.BlockAt(d, pos, im.end, im.classes)
		if size == 0 {
			pos += format.Granularity
			continue
		}
		if pos+size > im.hdr.Current {
			return fail("Blocks", int(pos), "block of class %d runs past current offset 0x%X", size, im.hdr.Current)
		}
		if gap := pos - gapStart; gap >= im.classes[0] {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("unreclaimed gap of %d bytes", gap),
				Offset:  int(gapStart),
				Details: map[string]any{"start": gapStart, "end": pos},
			}
		}
		im.descs[pos] = d
		im.order = append(im.order, pos)
		pos += size
		gapStart = pos
	}
	if gap := pos - gapStart; gap >= im.classes[0] {
		return fail("Blocks", int(gapStart), "unreclaimed gap of %d bytes before current offset", gap)
	}
	return im.tail(pos)
}

func (im *image) tail(pos uint32) error {
	for uint64(pos)+format.DescriptorSize <= uint64(im.end) {
		size, used := pool.BlockAt(im.descriptor(pos), pos, im.end, im.classes)
		switch {
		case used:
			return fail("Blocks", int(pos), "used block of class %d past current offset 0x%X", size, im.hdr.Current)
		case size == 0:
			pos += format.Granularity
		default:
			pos += size
		}
	}
	return nil
}

func (im *image) freeLists() error {
	listed := make(map[uint32]bool)
	for i, head := range im.hdr.Heads {
		class := im.classes[i]
		for off := head; off != 0; {
			d, ok := im.descs[off]
			switch {
			case !ok:
				return fail("FreeLists", int(off), "class %d list points at 0x%X, not a block", class, off)
			case listed[off]:
				return fail("FreeLists", int(off), "class %d list revisits block 0x%X", class, off)
			case d.Allocated != format.BlockUnused:
				return fail("FreeLists", int(off), "class %d list holds a used block", class)
			case d.ActualSize != class:
				return fail("FreeLists", int(off), "class %d list holds a block of class %d", class, d.ActualSize)
			}
			listed[off] = true
			off = buf.U32LE(im.data[off+format.DescriptorSize:])
		}
	}
	for _, off := range im.order {
		if im.descs[off].Allocated == format.BlockUnused && !listed[off] {
			return fail("FreeLists", int(off), "unused block of class %d is on no free list", im.descs[off].ActualSize)
		}
	}
	return nil
}

func (im *image) registry() error {
	off := im.dataStart
	d, ok := im.descs[off]
	if !ok || d.Allocated != format.BlockUsed {
		return fail("Registry", int(off), "no used block at the registry handle")
	}
	payload := im.data[off+format.DescriptorSize : off+format.DescriptorSize+d.SizeUsed]
	if got := crc.Sum16(payload); got != d.CRC {
		return &ValidationError{
			Type:    "Registry",
			Message: "registry block CRC mismatch",
			Offset:  int(off),
			Details: map[string]any{"stored": d.CRC, "calculated": got},
		}
	}
	recs, err := format.DecodeRegistry(payload)
	if err != nil {
		return fail("Registry", int(off+format.DescriptorSize), "%v", err)
	}
	if want := format.RegistryPayloadSize(len(recs)); d.SizeUsed != want {
		return fail("Registry", int(off), "block holds %d bytes, %d entries need %d", d.SizeUsed, len(recs), want)
	}

	names := make(map[string]int)
	handles := map[uint32]int{off + format.DescriptorSize: -1}
	for i, r := range recs {
		if !r.Taken {
			continue
		}
		entryOff := int(off+format.DescriptorSize) + format.RegHeaderSize + i*format.RegEntrySize
		name := string(r.Name)
		if _, _, err := registry.SplitName(name); err != nil {
			return fail("Registry", entryOff, "entry %d: %v", i, err)
		}
		if j, dup := names[name]; dup {
			return fail("Registry", entryOff, "entry %d repeats the name of entry %d: %s", i, j, name)
		}
		names[name] = i
		if j, dup := handles[r.Handle]; dup {
			return fail("Registry", entryOff, "entry %d shares handle 0x%08X with entry %d", i, r.Handle, j)
		}
		handles[r.Handle] = i

		bd, ok := im.descs[r.Handle-format.DescriptorSize]
		if !ok || bd.Allocated != format.BlockUsed {
			return fail("Registry", entryOff, "entry %d (%s): handle 0x%08X is not a used block", i, name, r.Handle)
		}
		if bd.SizeUsed != r.Size {
			return fail("Registry", entryOff, "entry %d (%s): size %d, block holds %d", i, name, r.Size, bd.SizeUsed)
		}
	}
	return nil
}
