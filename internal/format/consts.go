// Package format houses the on-store layout of the Critical Data Store: the
// validity signatures, the block pool header, block descriptors and the
// registry table. Decoders here never trust their input; they report
// ErrTruncated or ErrSignatureMismatch and leave policy to the callers.
package format

var (
	// SignatureBegin is written at offset 0 of an initialized store.
	SignatureBegin = []byte{'_', 'C', 'D', 'S', 'B', 'e', 'g', '_'}

	// SignatureEnd is written in the last SignatureSize bytes of an initialized store.
	SignatureEnd = []byte{'_', 'C', 'D', 'S', 'E', 'n', 'd', '_'}

	// PoolMagic opens the block pool header.
	PoolMagic = []byte{'C', 'D', 'S', 'P'}

	// RegistryMagic opens the payload of the registry block.
	RegistryMagic = []byte{'C', 'D', 'S', 'R'}
)

// ============================================================================
// Store header
// ============================================================================
//
//	Offset  Size  Field
//	0x00    8     "_CDSBeg_"
//	0x08    16    Instance ID (regenerated on every full initialization)
//	0x18    4     Layout version
//	0x1C    4     Reserved
//	0x20    ...   Block pool header
const (
	SignatureSize = 8

	InstanceIDOffset = 0x08
	InstanceIDSize   = 16

	LayoutVersionOffset = 0x18
	LayoutVersion       = 1

	// StoreHeaderSize covers the begin signature, instance ID and version words.
	StoreHeaderSize = 0x20

	// PoolBase is the offset at which the block pool header starts.
	PoolBase = StoreHeaderSize
)

// ============================================================================
// Block pool header
// ============================================================================
//
//	Offset  Size        Field
//	0x00    4           "CDSP"
//	0x04    4           Current (next never-allocated absolute offset)
//	0x08    4           Number of size classes
//	0x0C    2           CRC-16 of the size-class table
//	0x0E    2           Padding
//	0x10    4*classes   Free-list heads (absolute descriptor offsets, 0 = empty)
const (
	PoolMagicOffset      = 0x00
	PoolCurrentOffset    = 0x04
	PoolClassCountOffset = 0x08
	PoolTableSumOffset   = 0x0C
	PoolHeadsOffset      = 0x10
	PoolHeadSize         = 4
)

// ============================================================================
// Block descriptor
// ============================================================================
//
//	Offset  Size  Field
//	0x00    2     Check bits (CheckPattern when meaningful)
//	0x02    2     Allocated flag (BlockUsed / BlockUnused)
//	0x04    4     Actual size (size class, descriptor included)
//	0x08    4     Size used (caller-requested payload size)
//	0x0C    2     CRC-16 of payload[:SizeUsed]
//	0x0E    2     Padding
const (
	DescCheckBitsOffset  = 0x00
	DescAllocatedOffset  = 0x02
	DescActualSizeOffset = 0x04
	DescSizeUsedOffset   = 0x08
	DescCRCOffset        = 0x0C

	// DescriptorSize is the fixed header preceding every block payload.
	DescriptorSize = 0x10

	// CheckPattern marks a descriptor as written by the pool.
	CheckPattern uint16 = 0x5A5A

	// BlockUsed and BlockUnused are the only meaningful allocated-flag values.
	BlockUsed   uint16 = 0xAAAA
	BlockUnused uint16 = 0xDDDD

	// Granularity is the block alignment and the recovery scan step.
	Granularity = 8

	// GranularityMask is Granularity - 1.
	GranularityMask = Granularity - 1

	// FreeLinkSize is the successor link a free block keeps in payload[0:4].
	FreeLinkSize = 4
)

// ============================================================================
// Registry block payload
// ============================================================================
//
//	Offset  Size        Field
//	0x00    4           "CDSR"
//	0x04    4           Number of entries
//	0x08    64*entries  Entries
//
// Entry layout:
//
//	0x00    1     Taken
//	0x01    1     Critical table flag
//	0x02    2     Padding
//	0x04    4     Handle
//	0x08    4     Size
//	0x0C    48    Name, zero padded
//	0x3C    4     Padding
const (
	RegMagicOffset = 0x00
	RegCountOffset = 0x04
	RegHeaderSize  = 0x08

	RegEntrySize         = 0x40
	RegEntryTakenOffset  = 0x00
	RegEntryTableOffset  = 0x01
	RegEntryHandleOffset = 0x04
	RegEntrySizeOffset   = 0x08
	RegEntryNameOffset   = 0x0C

	// MaxFullNameLen bounds "Owner.Resource" names, in bytes.
	MaxFullNameLen = 48

	// NameSeparator splits the owning application from the resource name.
	NameSeparator = '.'
)
