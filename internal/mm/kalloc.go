package mm

import (
	"sync"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

// roundUpPage rounds size up to a multiple of PageSize.
func roundUpPage(size uint64) uint64 {
	return (size + PageSize - 1) &^ (PageSize - 1)
}

// auxAllocation records one outstanding aux-area reservation so
// FreeKernelAddress can tell whether a free is the LIFO-top one.
type auxAllocation struct {
	addr, size uint64
}

// KernelAddressAllocator splits the kernel's virtual address range into a
// heap that grows upward from kmemFrom and an aux area that grows
// downward from kmemTop, per spec.md §3/§4.1. A single mutex (alloc_lock)
// serializes every change to either region.
type KernelAddressAllocator struct {
	mu sync.Mutex

	kmemFrom, kmemTop uint64
	heapReached       uint64 // kmemFrom + heap_allocated
	auxReached        uint64 // kmemTop - aux_allocated
	auxStack          []auxAllocation
}

// NewKernelAddressAllocator creates an allocator over [kmemFrom, kmemTop).
func NewKernelAddressAllocator(kmemFrom, kmemTop uint64) *KernelAddressAllocator {
	return &KernelAddressAllocator{
		kmemFrom:   kmemFrom,
		kmemTop:    kmemTop,
		heapReached: kmemFrom,
		auxReached: kmemTop,
	}
}

// HeapAllocated returns the number of bytes currently used by the heap.
func (a *KernelAddressAllocator) HeapAllocated() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.heapReached - a.kmemFrom
}

// AuxAllocated returns the number of bytes currently used by the aux area.
func (a *KernelAddressAllocator) AuxAllocated() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.kmemTop - a.auxReached
}

// AllocateKernelAddress carves size bytes (rounded up to a page) out of
// the aux area (fromAux=true) or expands the heap (fromAux=false).
// Allocation only succeeds while heap_top <= aux_bottom.
func (a *KernelAddressAllocator) AllocateKernelAddress(size uint64, fromAux bool) (uint64, kernelerr.Errno) {
	if size == 0 {
		return 0, kernelerr.EINVAL
	}
	size = roundUpPage(size)
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.auxReached-a.heapReached < size {
		return 0, kernelerr.ENOMEM
	}
	if fromAux {
		addr := a.auxReached - size
		a.auxReached = addr
		a.auxStack = append(a.auxStack, auxAllocation{addr, size})
		return addr, kernelerr.OK
	}
	addr := a.heapReached
	a.heapReached += size
	return addr, kernelerr.OK
}

// FreeKernelAddress frees an aux allocation previously returned by
// AllocateKernelAddress(fromAux=true). Per the spec's preserved Open
// Question, this is only effective when addr is the most recent (LIFO
// top) aux allocation; any other address is silently leaked, exactly as
// the original kernel's comment acknowledges. Heap addresses are never
// freed individually (see ShrinkHeap).
func (a *KernelAddressAllocator) FreeKernelAddress(addr uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.auxStack)
	if n == 0 {
		return
	}
	top := a.auxStack[n-1]
	if top.addr != addr {
		// Leaked: not the LIFO top. Matches the known limitation.
		return
	}
	a.auxStack = a.auxStack[:n-1]
	a.auxReached += top.size
}

// ExpandHeap grows the heap by size bytes (rounded up to a page),
// returning the address of the newly available region's start.
func (a *KernelAddressAllocator) ExpandHeap(size uint64) (uint64, kernelerr.Errno) {
	return a.AllocateKernelAddress(size, false)
}

// ShrinkHeap shrinks the heap by size bytes, which must be a multiple of
// PageSize and must not exceed the heap's current size.
func (a *KernelAddressAllocator) ShrinkHeap(size uint64) kernelerr.Errno {
	if size%PageSize != 0 {
		return kernelerr.EINVAL
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if size > a.heapReached-a.kmemFrom {
		return kernelerr.EINVAL
	}
	a.heapReached -= size
	return kernelerr.OK
}
