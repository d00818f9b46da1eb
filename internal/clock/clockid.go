package clock

import (
	"sync"
	"time"
)

// ID names one of the clocks a process/thread can address by number,
// per spec.md §4.6's CLOCK_REALTIME/MONOTONIC/BOOT/INIT aliasing.
type ID int

const (
	Realtime ID = iota
	Monotonic
	Boot
	Init
	ProcessCPUTime
	ThreadCPUTime
)

// Registry aliases the fixed system-wide clock IDs to concrete Clocks,
// and hands out fresh per-process/per-thread cputime/systime clocks on
// demand, per spec.md §4.6.
type Registry struct {
	mu       sync.Mutex
	system   map[ID]*Clock
	perProc  map[int32]*Clock
	perThread map[uint64]*Clock
}

// NewRegistry creates a registry with Realtime/Monotonic/Boot/Init
// pre-populated. Monotonic/Boot/Init all alias the same uptime clock:
// all three read the time since the kernel started, matching spec.md's
// aliasing note.
func NewRegistry(resolution ResolutionSet) *Registry {
	boot := NewClock(resolution.Boot, true)
	r := &Registry{
		system:    make(map[ID]*Clock),
		perProc:   make(map[int32]*Clock),
		perThread: make(map[uint64]*Clock),
	}
	r.system[Realtime] = NewClock(resolution.Realtime, false)
	r.system[Monotonic] = boot
	r.system[Boot] = boot
	r.system[Init] = boot
	return r
}

// ResolutionSet configures the tick resolution of each system clock at
// registry construction.
type ResolutionSet struct {
	Realtime, Monotonic, Boot time.Duration
}

// System returns one of the fixed system-wide clocks.
func (r *Registry) System(id ID) (*Clock, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.system[id]
	return c, ok
}

// AdvanceAll advances every distinct time-based system clock by d, per
// spec.md §4.3's timer-IRQ step "advances all time-based clocks by the
// tick period". Monotonic/Boot/Init share one *Clock (see NewRegistry),
// so this advances exactly two underlying clocks: Realtime and the
// shared uptime clock.
func (r *Registry) AdvanceAll(d time.Duration) {
	r.mu.Lock()
	realtime, boot := r.system[Realtime], r.system[Boot]
	r.mu.Unlock()
	if realtime != nil {
		realtime.Advance(d)
	}
	if boot != nil {
		boot.Advance(d)
	}
}

// ProcessClock returns (creating on first use) the cputime/systime
// clock for pid.
func (r *Registry) ProcessClock(pid int32) *Clock {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.perProc[pid]
	if !ok {
		c = NewClock(0, false)
		r.perProc[pid] = c
	}
	return c
}

// ThreadClock returns (creating on first use) the cputime clock for tid.
func (r *Registry) ThreadClock(tid uint64) *Clock {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.perThread[tid]
	if !ok {
		c = NewClock(0, false)
		r.perThread[tid] = c
	}
	return c
}
