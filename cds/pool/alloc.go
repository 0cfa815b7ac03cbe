package pool

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/joshuapare/cdskit/internal/buf"
	"github.com/joshuapare/cdskit/internal/crc"
	"github.com/joshuapare/cdskit/internal/format"
)

// Alloc reserves a block for size payload bytes and returns its handle.
// The payload is zero-filled and the descriptor records size as the used size.
func (p *Pool) Alloc(size uint32) (Handle, error) {
	if size == 0 {
		return 0, fmt.Errorf("%w: zero-length block", ErrBadArgument)
	}
	ci := p.table.classFor(size)
	if ci < 0 {
		return 0, fmt.Errorf("%w: %d bytes (max %d)", ErrBlockTooLarge, size, p.table.maxPayload())
	}
	class := p.table.classes[ci]

	off, err := p.popFree(ci)
	if err != nil {
		return 0, err
	}
	carved := off == 0
	if carved {
		if uint64(p.current)+uint64(class) > uint64(p.end) {
			return 0, fmt.Errorf("%w: need %d bytes, %d left", ErrPoolUnavailable, class, p.end-p.current)
		}
		off = p.current
	}

	// Payload first, descriptor second: a crash in between leaves a block
	// that is not trusted and is reclaimed by the next rebuild.
	zero := make([]byte, size)
	if err := p.write(off+format.DescriptorSize, zero); err != nil {
		return 0, err
	}
	if err := p.writeDescriptor(off, format.NewUsedDescriptor(class, size, crc.Sum16(zero))); err != nil {
		return 0, err
	}

	if carved {
		p.current = off + class
		if err := p.writeCurrent(); err != nil {
			return 0, err
		}
	}

	p.stats.usedBlocks++
	p.stats.usedBytes += uint64(class)
	h := handleOf(off)
	p.log.Debug("Allocated block", zap.Stringer("handle", h), zap.Uint32("size", size), zap.Uint32("class", class), zap.Bool("carved", carved))
	return h, nil
}

// popFree unlinks the head of free list ci, returning its descriptor offset
// or 0 when the list is empty. A head that does not check out discards the
// whole list; the blocks come back at the next rebuild.
func (p *Pool) popFree(ci int) (uint32, error) {
	off := p.heads[ci]
	if off == 0 {
		return 0, nil
	}
	class := p.table.classes[ci]

	next, reason, err := p.checkFree(off, class)
	if err != nil {
		return 0, err
	}
	if reason != "" {
		p.log.Warn("Discarding corrupt free list",
			zap.Uint32("class", class),
			zap.Uint32("head", off),
			zap.String("reason", reason),
		)
		p.heads[ci] = 0
		p.stats.freeBlocks[ci] = 0
		p.stats.discarded++
		return 0, p.writeHead(ci)
	}

	p.heads[ci] = next
	if err := p.writeHead(ci); err != nil {
		return 0, err
	}
	if p.stats.freeBlocks[ci] > 0 {
		p.stats.freeBlocks[ci]--
	}
	return off, nil
}

// checkFree validates a free-list node and returns its successor. A non-empty
// reason means the node is not usable.
func (p *Pool) checkFree(off, class uint32) (next uint32, reason string, err error) {
	if !p.inData(off, class) {
		return 0, "head out of range", nil
	}
	d, err := p.readDescriptor(off)
	if err != nil {
		return 0, "", err
	}
	if !d.Free() || d.ActualSize != class {
		return 0, "head is not a free block of this class: " + d.String(), nil
	}
	next, err = p.readU32(off + format.DescriptorSize)
	if err != nil {
		return 0, "", err
	}
	if next != 0 && !p.inData(next, class) {
		return 0, fmt.Sprintf("successor 0x%X out of range", next), nil
	}
	return next, "", nil
}

// inData reports whether a block of the given size may start at off.
func (p *Pool) inData(off, size uint32) bool {
	end, ok := buf.AddU32(off, size)
	return ok && format.IsAligned(off, p.dataStart) && end <= p.current
}

// Free returns a block to its class free list.
// Freeing a block twice fails like any other invalid handle.
func (p *Pool) Free(h Handle) error {
	off, d, err := p.resolve(h)
	if err != nil {
		return err
	}
	ci := p.table.indexOf(d.ActualSize)

	// Unused marker first so a crash never leaves a listed block looking used.
	if err := p.writeDescriptor(off, format.NewFreeDescriptor(d.ActualSize)); err != nil {
		return err
	}
	// The old payload is wiped along with writing the link.
	payload := make([]byte, d.Capacity())
	buf.PutU32LE(payload, p.heads[ci])
	if err := p.write(uint32(h), payload); err != nil {
		return err
	}
	p.heads[ci] = off
	if err := p.writeHead(ci); err != nil {
		return err
	}

	p.stats.usedBlocks--
	p.stats.usedBytes -= uint64(d.ActualSize)
	p.stats.freeBlocks[ci]++
	p.log.Debug("Freed block", zap.Stringer("handle", h), zap.Uint32("class", d.ActualSize))
	return nil
}

// Write stores data in the block payload and refreshes its CRC. Data shorter
// than the block's used size is zero padded.
func (p *Pool) Write(h Handle, data []byte) error {
	off, d, err := p.resolve(h)
	if err != nil {
		return err
	}
	if uint64(len(data)) > uint64(d.SizeUsed) {
		return fmt.Errorf("%w: %d bytes into block of %d", ErrBlockTooLarge, len(data), d.SizeUsed)
	}

	payload := make([]byte, d.SizeUsed)
	copy(payload, data)
	if err := p.write(uint32(h), payload); err != nil {
		return err
	}
	d.CRC = crc.Sum16(payload)
	return p.writeDescriptor(off, d)
}

// Read returns the block payload (its used size). The data is withheld with
// ErrChecksumMismatch when it no longer matches the stored CRC.
func (p *Pool) Read(h Handle) ([]byte, error) {
	_, d, err := p.resolve(h)
	if err != nil {
		return nil, err
	}
	payload, err := p.read(uint32(h), d.SizeUsed)
	if err != nil {
		return nil, err
	}
	if got := crc.Sum16(payload); got != d.CRC {
		return nil, fmt.Errorf("%w: handle %s stored 0x%04X computed 0x%04X", ErrChecksumMismatch, h, d.CRC, got)
	}
	return payload, nil
}

// Describe returns the descriptor of an allocated block.
func (p *Pool) Describe(h Handle) (format.Descriptor, error) {
	_, d, err := p.resolve(h)
	return d, err
}

// resolve checks h and returns its descriptor offset and trusted descriptor.
func (p *Pool) resolve(h Handle) (uint32, format.Descriptor, error) {
	if uint32(h) < p.dataStart+format.DescriptorSize {
		return 0, format.Descriptor{}, fmt.Errorf("%w: %s below pool data", ErrInvalidHandle, h)
	}
	off := h.Descriptor()
	if !p.inData(off, p.table.smallest()) {
		return 0, format.Descriptor{}, fmt.Errorf("%w: %s out of range or misaligned", ErrInvalidHandle, h)
	}
	d, err := p.readDescriptor(off)
	if err != nil {
		return 0, format.Descriptor{}, err
	}
	switch {
	case !d.Trusted():
		return 0, format.Descriptor{}, fmt.Errorf("%w: %s descriptor %s", ErrInvalidHandle, h, d)
	case p.table.indexOf(d.ActualSize) < 0:
		return 0, format.Descriptor{}, fmt.Errorf("%w: %s unknown class %d", ErrInvalidHandle, h, d.ActualSize)
	case !p.inData(off, d.ActualSize):
		return 0, format.Descriptor{}, fmt.Errorf("%w: %s block overruns pool", ErrInvalidHandle, h)
	case d.SizeUsed > d.Capacity():
		return 0, format.Descriptor{}, fmt.Errorf("%w: %s used size %d above capacity %d", ErrInvalidHandle, h, d.SizeUsed, d.Capacity())
	}
	return off, d, nil
}
