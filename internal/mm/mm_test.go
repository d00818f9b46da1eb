package mm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

// TestPageAllocatorOutstandingNeverNegative covers property #1: across
// any sequence of Get/Put, outstanding never goes negative and the free
// count only drops while frames are actually held.
func TestPageAllocatorOutstandingNeverNegative(t *testing.T) {
	pa := NewPageAllocator(4)
	require.EqualValues(t, 0, pa.Outstanding())

	var held []Page
	for i := 0; i < 4; i++ {
		p, ok := pa.Get()
		require.True(t, ok)
		held = append(held, p)
		require.EqualValues(t, i+1, pa.Outstanding())
	}

	_, ok := pa.Get()
	require.False(t, ok, "allocator exhausted, Get must fail rather than go negative free count")

	for _, p := range held {
		pa.Put(p)
	}
	require.EqualValues(t, 0, pa.Outstanding())

	p, ok := pa.Get()
	require.True(t, ok)
	require.GreaterOrEqual(t, pa.Outstanding(), int64(0))
	pa.Put(p)
}

func TestAddressSpaceForkMarksCopyOnFork(t *testing.T) {
	pa := NewPageAllocator(4)
	as := NewAddressSpace(pa)
	p, ok := pa.Get()
	require.True(t, ok)
	require.Equal(t, kernelerr.OK, as.Map(0, p, ProtRead|ProtWrite))

	child := as.Fork()
	_, prot, ok := as.Lookup(0)
	require.True(t, ok)
	require.NotZero(t, prot&ProtFork, "parent mapping must be marked copy-on-fork after Fork")

	_, childProt, ok := child.Lookup(0)
	require.True(t, ok)
	require.NotZero(t, childProt&ProtFork)

	require.Equal(t, 1, as.Statistics().MappedPages)
	require.Equal(t, 1, child.Statistics().MappedPages)

	child.Destroy()
	require.EqualValues(t, 1, pa.Outstanding(), "ProtFork page returned to the allocator only once, still held by the parent")
}

func TestAddressSpaceMapRejectsDuplicateVPN(t *testing.T) {
	pa := NewPageAllocator(2)
	as := NewAddressSpace(pa)
	p1, _ := pa.Get()
	p2, _ := pa.Get()
	require.Equal(t, kernelerr.OK, as.Map(10, p1, ProtRead))
	require.Equal(t, kernelerr.EINVAL, as.Map(10, p2, ProtRead))
}

func TestKernelAddressAllocatorAuxIsLIFO(t *testing.T) {
	a := NewKernelAddressAllocator(0, 64*PageSize)

	first, errno := a.AllocateKernelAddress(PageSize, true)
	require.Equal(t, kernelerr.OK, errno)
	second, errno := a.AllocateKernelAddress(PageSize, true)
	require.Equal(t, kernelerr.OK, errno)
	require.NotEqual(t, first, second)
	require.EqualValues(t, 2*PageSize, a.AuxAllocated())

	// Freeing the non-top allocation is a documented no-op (leaked).
	a.FreeKernelAddress(first)
	require.EqualValues(t, 2*PageSize, a.AuxAllocated())

	// Freeing the LIFO top succeeds.
	a.FreeKernelAddress(second)
	require.EqualValues(t, PageSize, a.AuxAllocated())
}

func TestKernelAddressAllocatorHeapGrowsAndShrinksByPage(t *testing.T) {
	a := NewKernelAddressAllocator(0, 64*PageSize)
	_, errno := a.ExpandHeap(3 * PageSize)
	require.Equal(t, kernelerr.OK, errno)
	require.EqualValues(t, 3*PageSize, a.HeapAllocated())

	require.Equal(t, kernelerr.EINVAL, a.ShrinkHeap(PageSize/2), "shrink must be a page multiple")
	require.Equal(t, kernelerr.EINVAL, a.ShrinkHeap(10*PageSize), "shrink must not exceed current heap size")

	require.Equal(t, kernelerr.OK, a.ShrinkHeap(PageSize))
	require.EqualValues(t, 2*PageSize, a.HeapAllocated())
}

func TestKernelAddressAllocatorRejectsOverlap(t *testing.T) {
	a := NewKernelAddressAllocator(0, 2*PageSize)
	_, errno := a.AllocateKernelAddress(PageSize, false)
	require.Equal(t, kernelerr.OK, errno)
	_, errno = a.AllocateKernelAddress(2*PageSize, true)
	require.Equal(t, kernelerr.ENOMEM, errno, "heap_top must stay <= aux_bottom")
}
