package mm

import (
	"sync"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

// Prot is a page protection bitmask.
type Prot uint8

const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec
	// ProtFork marks a mapping as copy-on-fork: Fork must duplicate its
	// backing frame rather than share it, and Destroy returns such pages
	// to the physical allocator once the owning address space dies.
	ProtFork
)

type mapping struct {
	page Page
	prot Prot
}

// AddressSpace is a root page-table identifier together with the
// mappings installed under it. Mutating methods serialize on mu; the
// physical allocator has its own lock per spec.md's lock-ordering table
// (address allocator is acquired after the page allocator).
type AddressSpace struct {
	mu       sync.Mutex
	pages    *PageAllocator
	mappings map[uint64]mapping // virtual page number -> mapping
}

// Statistics summarizes an address space's resident set.
type Statistics struct {
	MappedPages int
}

// NewAddressSpace creates an empty address space backed by pages.
func NewAddressSpace(pages *PageAllocator) *AddressSpace {
	return &AddressSpace{pages: pages, mappings: make(map[uint64]mapping)}
}

// Map installs a single-page mapping at virtual page vpn.
func (as *AddressSpace) Map(vpn uint64, p Page, prot Prot) kernelerr.Errno {
	as.mu.Lock()
	defer as.mu.Unlock()
	if _, exists := as.mappings[vpn]; exists {
		return kernelerr.EINVAL
	}
	as.mappings[vpn] = mapping{page: p, prot: prot}
	return kernelerr.OK
}

// Unmap removes the mapping at vpn, if any, returning its physical page
// to the allocator.
func (as *AddressSpace) Unmap(vpn uint64) kernelerr.Errno {
	as.mu.Lock()
	defer as.mu.Unlock()
	m, ok := as.mappings[vpn]
	if !ok {
		return kernelerr.EINVAL
	}
	delete(as.mappings, vpn)
	as.pages.Put(m.page)
	return kernelerr.OK
}

// MapRange maps count consecutive virtual pages starting at vpn, pulling
// fresh physical frames from the allocator. On partial failure, pages
// already mapped by this call are unwound.
func (as *AddressSpace) MapRange(vpn uint64, count uint64, prot Prot) kernelerr.Errno {
	mapped := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		p, ok := as.pages.Get()
		if !ok {
			for _, v := range mapped {
				as.Unmap(v)
			}
			return kernelerr.ENOMEM
		}
		if errno := as.Map(vpn+i, p, prot); errno != kernelerr.OK {
			as.pages.Put(p)
			for _, v := range mapped {
				as.Unmap(v)
			}
			return errno
		}
		mapped = append(mapped, vpn+i)
	}
	return kernelerr.OK
}

// UnmapRange unmaps count consecutive virtual pages starting at vpn.
func (as *AddressSpace) UnmapRange(vpn uint64, count uint64) {
	for i := uint64(0); i < count; i++ {
		as.Unmap(vpn + i)
	}
}

// Fork copies the page-table hierarchy of as into a new address space.
// Every mapping not already shared (ProtFork unset) is marked
// copy-on-fork in both the parent and the child, matching
// Memory::Fork's semantics in spec.md §4.1. Each child mapping gets its
// own frame from the page allocator; when none is free, the child shares
// the parent's frame and its mapping has ProtFork cleared, so the
// child's Destroy leaves that frame alone.
func (as *AddressSpace) Fork() *AddressSpace {
	as.mu.Lock()
	defer as.mu.Unlock()
	child := NewAddressSpace(as.pages)
	for vpn, m := range as.mappings {
		cm := m
		if cm.prot&ProtFork == 0 {
			cm.prot |= ProtFork
			as.mappings[vpn] = cm
		}
		if p, ok := as.pages.Get(); ok {
			cm.page = p
		} else {
			cm.prot &^= ProtFork
		}
		child.mappings[vpn] = cm
	}
	return child
}

// Destroy tears down the address space, returning every mapping marked
// ProtFork to the physical page allocator.
func (as *AddressSpace) Destroy() {
	as.mu.Lock()
	defer as.mu.Unlock()
	for vpn, m := range as.mappings {
		if m.prot&ProtFork != 0 {
			as.pages.Put(m.page)
		}
		delete(as.mappings, vpn)
	}
}

// Statistics reports the current resident set of the address space.
func (as *AddressSpace) Statistics() Statistics {
	as.mu.Lock()
	defer as.mu.Unlock()
	return Statistics{MappedPages: len(as.mappings)}
}

// Lookup returns the mapping installed at vpn, if any.
func (as *AddressSpace) Lookup(vpn uint64) (Page, Prot, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	m, ok := as.mappings[vpn]
	return m.page, m.prot, ok
}

// currentSpace models SwitchAddressSpace: the single logical CPU's active
// address space. Guarded by its own mutex distinct from any AddressSpace's
// internal lock, consistent with the spec's lock-ordering table.
var (
	currentMu sync.Mutex
	current   *AddressSpace
)

// SwitchAddressSpace makes as the active address space for the single
// logical CPU, returning the previously active one.
func SwitchAddressSpace(as *AddressSpace) *AddressSpace {
	currentMu.Lock()
	defer currentMu.Unlock()
	prev := current
	current = as
	return prev
}

// CurrentAddressSpace returns the address space last installed by
// SwitchAddressSpace.
func CurrentAddressSpace() *AddressSpace {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}
