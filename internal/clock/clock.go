// Package clock implements the kernel's clock and timer facility:
// monotonic/realtime/per-process/per-thread clocks, and one-shot or
// periodic timers with overrun accounting, per spec.md §4.6 and
// kernel/time.cpp / kernel/timer.cpp.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock holds the current time, resolution, and the sorted list of
// timers armed against it. CallableFromInterrupts clocks (e.g. the
// monotonic/boot clock, advanced directly from the timer IRQ) disable
// interrupts while mutating instead of yielding for a lock, per
// spec.md §5; this package models that by using a plain mutex since our
// "interrupt context" is itself just another goroutine, but documents
// the intent on the field.
type Clock struct {
	mu                     sync.Mutex
	current                time.Duration
	resolution             time.Duration
	CallableFromInterrupts bool

	// timers is kept sorted by expiry ascending (invariant #5), using a
	// slice with binary-search insertion rather than the original's
	// intrusive doubly-linked list — simpler and just as correct for a
	// structure whose expired prefix is popped on each Advance.
	timers []*Timer
}

// NewClock creates a clock with the given tick resolution.
func NewClock(resolution time.Duration, callableFromInterrupts bool) *Clock {
	return &Clock{resolution: resolution, CallableFromInterrupts: callableFromInterrupts}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set overwrites the clock's current time (clock_settime), valid for
// settable clocks such as CLOCK_REALTIME.
func (c *Clock) Set(t time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Resolution returns the clock's tick resolution.
func (c *Clock) Resolution() time.Duration {
	return c.resolution
}

// Advance moves the clock forward by dt, firing (and, for periodic
// timers, rearming) every timer whose expiry has elapsed. Timer queue
// invariant #5 is preserved: the list is sorted by expiration at every
// observable state, both before and after this call.
func (c *Clock) Advance(dt time.Duration) {
	c.mu.Lock()
	c.current += dt
	now := c.current

	var fired []*Timer
	i := 0
	for i < len(c.timers) && c.timers[i].expiry <= now {
		fired = append(fired, c.timers[i])
		i++
	}
	c.timers = c.timers[i:]
	c.mu.Unlock()

	for _, t := range fired {
		t.fire(now)
	}
}

// insert places t into the sorted timer list. Caller must not hold c.mu.
func (c *Clock) insert(t *Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := sort.Search(len(c.timers), func(i int) bool {
		return c.timers[i].expiry > t.expiry
	})
	c.timers = append(c.timers, nil)
	copy(c.timers[idx+1:], c.timers[idx:])
	c.timers[idx] = t
}

// remove deletes t from the sorted timer list, if present.
func (c *Clock) remove(t *Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, o := range c.timers {
		if o == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}
