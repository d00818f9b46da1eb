// Package kthread provides the kernel's synchronization primitives:
// mutexes (normal/recursive/errorcheck), FIFO condition variables, and a
// scoped-lock guard, grounded on kernel/kthread.cpp and
// kernel/include/sortix/kernel/kthread.h.
//
// Go has no notion of "the current kernel thread" the way a
// single-logical-CPU kernel does, so every primitive here takes an
// explicit TID identifying the calling thread rather than consulting
// implicit per-OS-thread state.
package kthread

import "sync"

// TID identifies a kernel thread for ownership/recursion bookkeeping.
// Zero means "no owner".
type TID uint64

// Type selects a Mutex's recursion semantics.
type Type int

const (
	Normal Type = iota
	Recursive
	Errorcheck
)

// hooks let the scheduler plug in Yield and "is a signal pending for
// self" without kthread importing sched or signal (which would cycle
// back into kthread).
var hooks = struct {
	yield         func()
	signalPending func(TID) bool
}{
	yield:         func() {},
	signalPending: func(TID) bool { return false },
}

// SetHooks installs the scheduler's yield function and the signal
// package's pending-check. Called once during kernel bring-up.
func SetHooks(yield func(), signalPending func(TID) bool) {
	hooks.yield = yield
	hooks.signalPending = signalPending
}

// Mutex is a word plus a type tag, an owner, and a recursion count, per
// spec.md §3. recursion > 0 iff owner != 0; only Recursive may push
// recursion above 1.
type Mutex struct {
	kind Type
	mu   sync.Mutex // guards owner/recursion bookkeeping itself

	owner     TID
	recursion int
}

// NewMutex creates a Mutex of the given type, initially unlocked.
func NewMutex(kind Type) *Mutex {
	return &Mutex{kind: kind}
}

// TryLock attempts to acquire the mutex for self without blocking.
// Returns false on failure, matching the C contract (0 = failure).
func (m *Mutex) TryLock(self TID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner == 0 {
		m.owner = self
		m.recursion = 1
		return true
	}
	if m.owner == self && m.kind == Recursive {
		m.recursion++
		return true
	}
	return false
}

// Lock spins-yields until the mutex is acquired.
func (m *Mutex) Lock(self TID) {
	for !m.TryLock(self) {
		hooks.yield()
	}
}

// LockSignal spins-yields until either the mutex is acquired (returns
// true) or a signal becomes pending for self (returns false, mutex not
// held). This is the only mechanism callers have to break out of a
// contended lock; spec.md §4.2/§5.
func (m *Mutex) LockSignal(self TID) bool {
	if hooks.signalPending(self) {
		return false
	}
	for {
		if m.TryLock(self) {
			return true
		}
		if hooks.signalPending(self) {
			return false
		}
		hooks.yield()
	}
}

// Unlock releases one level of ownership. For an Errorcheck mutex,
// unlocking from a non-owner thread is an invariant violation and
// panics (the kernel-panic path, not a recoverable error).
func (m *Mutex) Unlock(self TID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != self {
		if m.kind == Errorcheck {
			panic("kthread: errorcheck mutex unlocked by non-owner")
		}
		return
	}
	if m.kind == Recursive && m.recursion > 1 {
		m.recursion--
		return
	}
	m.recursion = 0
	m.owner = 0
}

// Owner reports the current owner, or 0 if unlocked.
func (m *Mutex) Owner() TID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner
}

// Guard locks m for self and returns an unlock closure, mirroring
// go-fuse's Inode.LockTree() func() pattern (fuse/inode.go) adapted to
// kthread's explicit-owner mutexes.
func (m *Mutex) Guard(self TID) func() {
	m.Lock(self)
	return func() { m.Unlock(self) }
}
