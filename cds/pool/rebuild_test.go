package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/internal/crc"
	"github.com/joshuapare/cdskit/internal/format"
)

func TestRebuild_EmptyPool(t *testing.T) {
	mem, p, total := newTestPool(t, 8192)

	r, err := Rebuild(mem, total, testBase)
	require.NoError(t, err)
	require.Equal(t, p.State(), r.State())
	require.Empty(t, r.Recovered())
	require.Zero(t, r.Stats().FreeBlocks)
}

func TestRebuild_RecoveryFidelity(t *testing.T) {
	mem, p, total := newTestPool(t, 64*1024)

	h1 := allocWrite(t, p, pattern(100, 1)) // class 128
	h2 := allocWrite(t, p, pattern(500, 2)) // class 1024
	h3 := allocWrite(t, p, pattern(20, 3))  // class 48
	h4 := allocWrite(t, p, pattern(20, 4))  // class 48
	require.NoError(t, p.Free(h3))
	mem.Corrupt(h2.Descriptor()+format.DescCheckBitsOffset, 0xFF)
	before := p.State().Current

	r, err := Rebuild(mem, total, testBase)
	require.NoError(t, err)

	require.Equal(t, []Handle{h1, h4}, r.Recovered())
	require.Equal(t, before, r.State().Current)

	got, err := r.Read(h1)
	require.NoError(t, err)
	require.Equal(t, pattern(100, 1), got)
	got, err = r.Read(h4)
	require.NoError(t, err)
	require.Equal(t, pattern(20, 4), got)

	_, err = r.Read(h2)
	require.ErrorIs(t, err, ErrInvalidHandle)

	// The corrupted block and the freed block form one gap, carved as
	// 1024 + 48 and handed out again.
	s := r.Stats()
	require.Equal(t, 2, s.UsedBlocks)
	require.Equal(t, 2, s.FreeBlocks)
	require.Zero(t, s.AbandonedBytes)

	n, err := r.Alloc(500)
	require.NoError(t, err)
	require.Equal(t, h2, n)
	n, err = r.Alloc(20)
	require.NoError(t, err)
	require.Equal(t, h3, n)
	require.Equal(t, before, r.State().Current)
}

func TestRebuild_PersistsDerivedHeader(t *testing.T) {
	mem, p, total := newTestPool(t, 8192)
	a := allocWrite(t, p, pattern(10, 1))
	allocWrite(t, p, pattern(10, 2))
	require.NoError(t, p.Free(a))

	r, err := Rebuild(mem, total, testBase)
	require.NoError(t, err)

	raw, err := mem.Read(testBase, format.PoolHeaderSize(17))
	require.NoError(t, err)
	hdr, err := format.DecodePoolHeader(raw)
	require.NoError(t, err)
	require.Equal(t, r.State().Current, hdr.Current)
	require.Equal(t, r.State().Heads, hdr.Heads)
	require.Equal(t, a.Descriptor(), hdr.Heads[0])
}

func TestRebuild_AbandonsSlivers(t *testing.T) {
	mem, p, total := newTestPool(t, 8192)

	// Hand-place a used block 40 bytes into the data area: the 40-byte gap
	// before it yields one 32-byte block and an 8-byte sliver.
	off := p.DataStart() + 40
	zero := make([]byte, 4)
	require.NoError(t, mem.Write(off, format.NewUsedDescriptor(32, 4, crc.Sum16(zero)).Bytes()))

	r, err := Rebuild(mem, total, testBase)
	require.NoError(t, err)
	require.Equal(t, []Handle{Handle(off + 16)}, r.Recovered())
	require.Equal(t, off+32, r.State().Current)

	s := r.Stats()
	require.Equal(t, 1, s.FreeBlocks)
	require.Equal(t, uint64(8), s.AbandonedBytes)

	h, err := r.Alloc(4)
	require.NoError(t, err)
	require.Equal(t, p.FirstHandle(), h)
}

func TestRebuild_IgnoresImplausibleDescriptors(t *testing.T) {
	mem, p, total := newTestPool(t, 8192)
	d := p.DataStart()

	// Unknown class, used size above capacity, block past the end.
	require.NoError(t, mem.Write(d, format.NewUsedDescriptor(40, 4, 0).Bytes()))
	require.NoError(t, mem.Write(d+64, format.NewUsedDescriptor(32, 17, 0).Bytes()))
	require.NoError(t, mem.Write(8192-32, format.NewUsedDescriptor(64, 4, 0).Bytes()))

	r, err := Rebuild(mem, total, testBase)
	require.NoError(t, err)
	require.Empty(t, r.Recovered())
	require.Equal(t, d, r.State().Current)
}

func TestRebuild_InterruptedAllocationIsRecovered(t *testing.T) {
	mem, p, total := newTestPool(t, 8192)

	// Payload and descriptor land, the high-water mark does not.
	mem.FailAfter(2)
	_, err := p.Alloc(10)
	require.ErrorIs(t, err, ErrAccess)
	mem.Heal()

	r, err := Rebuild(mem, total, testBase)
	require.NoError(t, err)
	require.Equal(t, []Handle{p.FirstHandle()}, r.Recovered())
	got, err := r.Read(p.FirstHandle())
	require.NoError(t, err)
	require.Equal(t, make([]byte, 10), got)
}

// stalePayload is block content that happens to hold a used 2K descriptor
// 8 bytes in.
func stalePayload(n int) []byte {
	b := make([]byte, n)
	copy(b[8:], format.NewUsedDescriptor(2048, 4, 0).Bytes())
	return b
}

func TestRebuild_FreedPayloadIsNotRecovered(t *testing.T) {
	mem, p, total := newTestPool(t, 64*1024)

	a := allocWrite(t, p, stalePayload(900)) // class 1024
	b := allocWrite(t, p, pattern(100, 5))
	require.NoError(t, p.Free(a))

	// Everything past the free-list link is wiped.
	raw, err := mem.Read(uint32(a)+format.FreeLinkSize, 1024-format.DescriptorSize-format.FreeLinkSize)
	require.NoError(t, err)
	require.Equal(t, make([]byte, len(raw)), raw)

	r, err := Rebuild(mem, total, testBase)
	require.NoError(t, err)
	require.Equal(t, []Handle{b}, r.Recovered())
	require.Equal(t, 1, r.Stats().FreeBlocks)
	got, err := r.Read(b)
	require.NoError(t, err)
	require.Equal(t, pattern(100, 5), got)
}

func TestRebuild_StepsOverFreeBlocks(t *testing.T) {
	mem, p, total := newTestPool(t, 64*1024)

	// A free marker over old content, as left by a reset inside Free.
	a := allocWrite(t, p, stalePayload(900))
	b := allocWrite(t, p, pattern(100, 5))
	require.NoError(t, mem.Write(a.Descriptor(), format.NewFreeDescriptor(1024).Bytes()))

	r, err := Rebuild(mem, total, testBase)
	require.NoError(t, err)
	require.Equal(t, []Handle{b}, r.Recovered())
	require.Equal(t, uint32(b)-format.DescriptorSize+128, r.State().Current)

	// The gap was carved back into one wiped 1K block.
	require.Equal(t, 1, r.Stats().FreeBlocks)
	raw, err := mem.Read(uint32(a), 1024-format.DescriptorSize)
	require.NoError(t, err)
	require.Equal(t, make([]byte, len(raw)), raw)

	h, err := r.Alloc(2000)
	require.NoError(t, err)
	require.Equal(t, r.State().Current-2048+format.DescriptorSize, uint32(h))
	got, err := r.Read(b)
	require.NoError(t, err)
	require.Equal(t, pattern(100, 5), got)
}

func TestRebuild_HeaderMismatch(t *testing.T) {
	mem, _, total := newTestPool(t, 8192)

	_, err := Rebuild(mem, total, testBase, WithSizeClasses(ConfigPow2))
	require.ErrorIs(t, err, ErrInvalid)

	mem.Corrupt(testBase+format.PoolTableSumOffset, 0x01)
	_, err = Rebuild(mem, total, testBase)
	require.ErrorIs(t, err, ErrInvalid)

	mem.Corrupt(testBase+format.PoolTableSumOffset, 0x01)
	mem.Corrupt(testBase+format.PoolMagicOffset, 0x01)
	_, err = Rebuild(mem, total, testBase)
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Rebuild(bsp.NewMemory(8192), total, testBase)
	require.ErrorIs(t, err, ErrInvalid, "never created")
}

func TestRebuild_AccessError(t *testing.T) {
	mem, _, total := newTestPool(t, 8192)

	mem.FailReads(true)
	_, err := Rebuild(mem, total, testBase)
	require.ErrorIs(t, err, ErrAccess)
	require.ErrorIs(t, err, bsp.ErrIO)

	mem.Heal()
	mem.FailWrites(true)
	_, err = Rebuild(mem, total, testBase)
	require.ErrorIs(t, err, ErrAccess)
}

func TestScan_ReadOnlyReport(t *testing.T) {
	mem, p, total := newTestPool(t, 8192)
	a := allocWrite(t, p, pattern(10, 1))
	b := allocWrite(t, p, pattern(60, 2))
	c := allocWrite(t, p, pattern(10, 3))
	require.NoError(t, p.Free(a))
	mem.Corrupt(uint32(b), 0x01)

	before := mem.Bytes()
	r, err := Scan(mem, total, testBase)
	require.NoError(t, err)
	require.Equal(t, before, mem.Bytes())

	require.Empty(t, r.HeaderError)
	require.Equal(t, p.State().Current, r.HeaderCurrent)
	require.Equal(t, p.State().Current, r.Current)
	require.Len(t, r.Blocks, 2)
	require.Equal(t, b, r.Blocks[0].Handle)
	require.False(t, r.Blocks[0].CRCValid)
	require.Equal(t, c, r.Blocks[1].Handle)
	require.True(t, r.Blocks[1].CRCValid)
	require.Equal(t, []ScanGap{{Start: a.Descriptor(), End: b.Descriptor()}}, r.Gaps)
}

func TestScan_ReportsBadHeader(t *testing.T) {
	mem, _, total := newTestPool(t, 8192)
	mem.Corrupt(testBase, 0xFF)

	r, err := Scan(mem, total, testBase)
	require.NoError(t, err)
	require.NotEmpty(t, r.HeaderError)
}
