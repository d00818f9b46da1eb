package process

import (
	"sort"

	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/mm"
)

// Segment is a (addr, size, prot) triple describing one non-overlapping
// virtual range of a process's address space, per spec.md §3.
type Segment struct {
	Addr uint64
	Size uint64
	Prot mm.Prot
}

func overlaps(a, b Segment) bool {
	return a.Addr+a.Size > b.Addr && b.Addr+b.Size > a.Addr
}

// insertSegmentLocked inserts seg into segs, kept sorted by address,
// rejecting it with EINVAL if it overlaps an existing segment — the
// invariant spec.md §3 states explicitly: "for any two segments,
// a.addr+a.size <= b.addr or b.addr+b.size <= a.addr".
func insertSegmentLocked(segs []Segment, seg Segment) ([]Segment, kernelerr.Errno) {
	i := sort.Search(len(segs), func(i int) bool { return segs[i].Addr >= seg.Addr })
	if i > 0 && overlaps(segs[i-1], seg) {
		return segs, kernelerr.EINVAL
	}
	if i < len(segs) && overlaps(segs[i], seg) {
		return segs, kernelerr.EINVAL
	}
	segs = append(segs, Segment{})
	copy(segs[i+1:], segs[i:])
	segs[i] = seg
	return segs, kernelerr.OK
}

// removeSegmentLocked removes the segment starting exactly at addr, if
// any.
func removeSegmentLocked(segs []Segment, addr uint64) []Segment {
	for i, s := range segs {
		if s.Addr == addr {
			return append(segs[:i], segs[i+1:]...)
		}
	}
	return segs
}
