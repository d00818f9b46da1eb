package process

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/mm"
)

func newTestProcess() *Process {
	pa := mm.NewPageAllocator(16)
	space := mm.NewAddressSpace(pa)
	return NewTable().New(space)
}

func assertNoOverlaps(t *testing.T, segs []Segment) {
	t.Helper()
	for i := 1; i < len(segs); i++ {
		a, b := segs[i-1], segs[i]
		require.True(t, a.Addr+a.Size <= b.Addr || b.Addr+b.Size <= a.Addr,
			"segments %+v and %+v overlap", a, b)
	}
}

// TestSegmentsStayNonOverlapping is property #2: after any add/remove
// sequence a process's segments stay non-overlapping and sorted.
func TestSegmentsStayNonOverlapping(t *testing.T) {
	p := newTestProcess()

	require.Equal(t, kernelerr.OK, p.AddSegment(Segment{Addr: 0x1000, Size: 0x1000, Prot: mm.ProtRead}))
	require.Equal(t, kernelerr.OK, p.AddSegment(Segment{Addr: 0x3000, Size: 0x1000, Prot: mm.ProtRead | mm.ProtWrite}))
	require.Equal(t, kernelerr.OK, p.AddSegment(Segment{Addr: 0x2000, Size: 0x1000, Prot: mm.ProtRead}))
	assertNoOverlaps(t, p.Segments())
	require.Len(t, p.Segments(), 3)

	p.RemoveSegment(0x2000)
	assertNoOverlaps(t, p.Segments())
	require.Len(t, p.Segments(), 2)

	require.Equal(t, kernelerr.OK, p.AddSegment(Segment{Addr: 0x2000, Size: 0x1000, Prot: mm.ProtRead}))
	assertNoOverlaps(t, p.Segments())
	require.Len(t, p.Segments(), 3)
}

func TestAddSegmentRejectsOverlap(t *testing.T) {
	p := newTestProcess()
	require.Equal(t, kernelerr.OK, p.AddSegment(Segment{Addr: 0x1000, Size: 0x2000, Prot: mm.ProtRead}))

	require.Equal(t, kernelerr.EINVAL, p.AddSegment(Segment{Addr: 0x1800, Size: 0x100, Prot: mm.ProtRead}), "fully contained overlap")
	require.Equal(t, kernelerr.EINVAL, p.AddSegment(Segment{Addr: 0x2500, Size: 0x1000, Prot: mm.ProtRead}), "straddling overlap")
	require.Equal(t, kernelerr.OK, p.AddSegment(Segment{Addr: 0x3000, Size: 0x1000, Prot: mm.ProtRead}), "abutting, not overlapping")

	assertNoOverlaps(t, p.Segments())
	require.Len(t, p.Segments(), 2)
}

func TestRemoveSegmentOfUnknownAddrIsNoop(t *testing.T) {
	p := newTestProcess()
	require.Equal(t, kernelerr.OK, p.AddSegment(Segment{Addr: 0x1000, Size: 0x1000}))
	p.RemoveSegment(0x9000)
	require.Len(t, p.Segments(), 1)
}
