package pool

import (
	"fmt"

	"github.com/joshuapare/cdskit/internal/format"
)

// Handle is the absolute store offset of a block payload.
// The zero Handle is never valid.
type Handle uint32

// Descriptor returns the offset of the block descriptor.
func (h Handle) Descriptor() uint32 {
	return uint32(h) - format.DescriptorSize
}

func (h Handle) String() string {
	return fmt.Sprintf("0x%08X", uint32(h))
}

// handleOf returns the handle of the block whose descriptor sits at off.
func handleOf(off uint32) Handle {
	return Handle(off + format.DescriptorSize)
}
