package clock

import (
	"sync"
	"time"
)

// ItimerSpec mirrors POSIX's itimerspec: an initial value and, for
// periodic timers, a non-zero reload interval.
type ItimerSpec struct {
	Interval time.Duration
	Value    time.Duration
}

// Flags control how Value is interpreted.
type Flags uint8

const (
	// Absolute interprets Value as an absolute time on the owning
	// clock rather than an offset from "now".
	Absolute Flags = 1 << iota
	active
)

// Callback receives the number of whole intervals that elapsed without
// being executed (the overrun count) each time the timer fires.
type Callback func(overrun uint64)

// Timer is an itimerspec-style one-shot or periodic timer armed against
// a single Clock.
type Timer struct {
	clock *Clock
	cb    Callback
	user  interface{}

	mu       sync.Mutex
	value    ItimerSpec
	flags    Flags
	expiry   time.Duration
	overruns uint64
}

// NewTimer creates a disarmed timer on clock. cb is invoked (never from
// within a mutex the caller already holds) each time the timer fires.
func (c *Clock) NewTimer(cb Callback, user interface{}) *Timer {
	return &Timer{clock: c, cb: cb, user: user}
}

// User returns the opaque user pointer supplied at creation.
func (t *Timer) User() interface{} { return t.user }

// Set arms (or disarms, if value.Value == 0) the timer, returning the
// previously armed value. TIMER_ABSOLUTE in flags makes value.Value an
// absolute clock reading instead of a relative offset, per spec.md §4.6.
func (t *Timer) Set(value ItimerSpec, flags Flags) ItimerSpec {
	t.mu.Lock()
	old := t.value
	wasActive := t.flags&active != 0
	t.mu.Unlock()

	if wasActive {
		t.clock.remove(t)
	}

	if value.Value == 0 {
		t.mu.Lock()
		t.value = ItimerSpec{}
		t.flags &^= active
		t.mu.Unlock()
		return old
	}

	expiry := value.Value
	if flags&Absolute == 0 {
		expiry = t.clock.Now() + value.Value
	}

	t.mu.Lock()
	t.value = value
	t.flags = flags | active
	t.expiry = expiry
	t.mu.Unlock()

	t.clock.insert(t)
	return old
}

// Get returns the timer's currently armed value (timer_gettime); the
// returned Value field is the remaining time until next expiry rather
// than the original interval.
func (t *Timer) Get() ItimerSpec {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.flags&active == 0 {
		return ItimerSpec{}
	}
	remaining := t.expiry - t.clock.Now()
	if remaining < 0 {
		remaining = 0
	}
	return ItimerSpec{Interval: t.value.Interval, Value: remaining}
}

// Overrun returns the number of missed firings recorded at the most
// recent fire (timer_getoverrun).
func (t *Timer) Overrun() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overruns
}

// Cancel disarms the timer and removes it from its clock's queue. The
// caller must ensure no fire is logically still "in flight" before
// destroying the Timer value, matching the original's destructor
// assertion that the timer is inactive.
func (t *Timer) Cancel() {
	t.mu.Lock()
	wasActive := t.flags&active != 0
	t.flags &^= active
	t.mu.Unlock()
	if wasActive {
		t.clock.remove(t)
	}
}

// fire is invoked by Clock.Advance once this timer's expiry has
// elapsed. It computes the overrun count, invokes the callback, and
// rearms periodic timers at the next interval boundary strictly after
// "now".
func (t *Timer) fire(now time.Duration) {
	t.mu.Lock()
	interval := t.value.Interval
	expiry := t.expiry

	missed := uint64(0)
	for expiry <= now {
		missed++
		if interval <= 0 {
			break
		}
		expiry += interval
	}
	overrun := uint64(0)
	if missed > 0 {
		overrun = missed - 1
	}
	t.overruns = overrun

	periodic := interval > 0
	if periodic {
		t.expiry = expiry
	} else {
		t.flags &^= active
	}
	cb := t.cb
	t.mu.Unlock()

	if cb != nil {
		cb(overrun)
	}
	if periodic {
		t.clock.insert(t)
	}
}
