// Package sched implements the preemptive, single-logical-CPU kernel
// thread scheduler from spec.md §4.2: an intrusive circular RUNNABLE
// list, explicit state transitions, and voluntary/timer-driven yields.
package sched

import (
	"sync"

	"github.com/sortix-go/kernel/internal/kthread"
	"github.com/sortix-go/kernel/internal/signal"
)

// State is a thread's scheduling state.
type State int

const (
	NONE State = iota
	RUNNABLE
	BLOCKING
	DEAD
)

// Thread holds everything the scheduler needs plus the signal and clock
// state that rides along with it, per spec.md §3 ("Thread").
type Thread struct {
	ID kthread.TID

	// Owner is the owning process. Left untyped (set by the process
	// package) to avoid an import cycle between sched and process.
	Owner interface{}

	mu    sync.Mutex
	state State

	PendingSignals signal.Set
	SignalMask     signal.Mask
	AltSignalStack []byte

	// PledgedDestruction marks a thread that has promised to exit and
	// must not be handed new work.
	PledgedDestruction bool

	// ExecuteTicks/SystemTicks track time spent in user vs. kernel mode
	// for this thread; the scheduler's tick handler advances SystemTicks.
	ExecuteTicks, SystemTicks uint64

	// run-list links, intrusive and circular while RUNNABLE.
	next, prev *Thread
}

// State returns the thread's current scheduling state.
func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Raise marks sig pending for t, for kill/signal-generation paths.
func (t *Thread) Raise(sig signal.Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.PendingSignals.Add(sig)
}

// SetMask replaces t's blocked-signal mask (sigprocmask), returning the
// previous mask.
func (t *Thread) SetMask(mask signal.Mask) signal.Mask {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.SignalMask
	t.SignalMask = mask
	return old
}

// Signals returns a snapshot of t's pending set and blocked mask.
func (t *Thread) Signals() (signal.Set, signal.Mask) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.PendingSignals, t.SignalMask
}

// TakeDeliverable pops and returns the next deliverable signal, if any,
// clearing it from the pending set (signal delivery at syscall return).
func (t *Thread) TakeDeliverable() (signal.Signal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sig, ok := signal.Next(t.PendingSignals, t.SignalMask)
	if ok {
		t.PendingSignals.Remove(sig)
	}
	return sig, ok
}

// AddSystemTicks and AddExecuteTicks accumulate kernel-mode and
// user-mode tick counts for t; Scheduler.Tick drives AddSystemTicks.
func (t *Thread) AddSystemTicks(n uint64) {
	t.mu.Lock()
	t.SystemTicks += n
	t.mu.Unlock()
}

func (t *Thread) AddExecuteTicks(n uint64) {
	t.mu.Lock()
	t.ExecuteTicks += n
	t.mu.Unlock()
}

// Ticks reports t's accumulated execute/system tick counts.
func (t *Thread) Ticks() (execute, system uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ExecuteTicks, t.SystemTicks
}
