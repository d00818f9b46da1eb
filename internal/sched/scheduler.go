package sched

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sortix-go/kernel/internal/clock"
	"github.com/sortix-go/kernel/internal/kthread"
	"github.com/sortix-go/kernel/internal/signal"
	"github.com/sortix-go/kernel/internal/worker"
)

// TickAccumulator lets Scheduler.Tick attribute tick time to the
// current thread's owning process without sched importing package
// process (Thread.Owner is left untyped for the same reason).
type TickAccumulator interface {
	AddSystemTicks(n uint64)
}

// Scheduler owns the intrusive circular RUNNABLE list and the global
// thread registry. It is single-logical-CPU and SMP-unaware, per
// spec.md §4.2: "current" always means the single CPU's current thread.
type Scheduler struct {
	mu      sync.Mutex
	cur     *Thread // the ring entry considered "current"
	idle    *Thread
	reclaim *worker.Pool
	nextID  uint64

	regMu sync.Mutex
	byTID map[kthread.TID]*Thread
}

// New creates a scheduler whose DEAD-thread stack reclamation is
// deferred onto reclaimPool, upholding "a thread cannot free its own
// stack" (spec.md §3). The signalPending hook installed into kthread
// looks up the live Thread by TID and asks signal.Deliverable, so a
// blocked kthread.Mutex/Cond wait can return EINTR the moment a signal
// becomes pending for that exact thread.
func New(reclaimPool *worker.Pool) *Scheduler {
	s := &Scheduler{reclaim: reclaimPool, byTID: make(map[kthread.TID]*Thread)}
	kthread.SetHooks(func() { s.Yield(nil) }, s.signalPending)
	return s
}

func (s *Scheduler) signalPending(tid kthread.TID) bool {
	s.regMu.Lock()
	t, ok := s.byTID[tid]
	s.regMu.Unlock()
	if !ok {
		return false
	}
	t.mu.Lock()
	pending, mask := t.PendingSignals, t.SignalMask
	t.mu.Unlock()
	return signal.Deliverable(pending, mask)
}

// CreateKernelThread allocates a Thread in state NONE, owned by owner,
// and registers it so signalPending can find it by TID.
func (s *Scheduler) CreateKernelThread(owner interface{}) *Thread {
	id := atomic.AddUint64(&s.nextID, 1)
	t := &Thread{ID: kthread.TID(id), Owner: owner, state: NONE}
	s.regMu.Lock()
	s.byTID[t.ID] = t
	s.regMu.Unlock()
	return t
}

// insertRunnable links t into the circular run list. Caller holds s.mu.
func (s *Scheduler) insertRunnable(t *Thread) {
	if s.cur == nil {
		t.next = t
		t.prev = t
		s.cur = t
		return
	}
	last := s.cur.prev
	last.next = t
	t.prev = last
	t.next = s.cur
	s.cur.prev = t
}

// removeRunnable unlinks t from the circular run list. Caller holds s.mu.
func (s *Scheduler) removeRunnable(t *Thread) {
	if t.next == nil {
		return // not linked
	}
	if t.next == t {
		s.cur = nil
	} else {
		t.prev.next = t.next
		t.next.prev = t.prev
		if s.cur == t {
			s.cur = t.next
		}
	}
	t.next = nil
	t.prev = nil
}

// SetThreadState is the only way a thread's state may change. Moving to
// RUNNABLE inserts into the run list; moving away from RUNNABLE removes
// it. DEAD is terminal.
func (s *Scheduler) SetThreadState(t *Thread, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == RUNNABLE && st != RUNNABLE {
		s.removeRunnable(t)
	}
	if t.state != RUNNABLE && st == RUNNABLE {
		s.insertRunnable(t)
	}
	t.state = st
}

// GetThreadState reports t's current scheduling state.
func (s *Scheduler) GetThreadState(t *Thread) State {
	return t.State()
}

// RunKernelThread marks t RUNNABLE and starts fn on a new goroutine
// standing in for the kernel thread's execution context. fn receives t
// as its "self" handle, since Go has no implicit current-thread state.
// On return, the thread transitions to DEAD and its bookkeeping is
// reclaimed by a different goroutine (the worker pool), never by fn
// itself.
func (s *Scheduler) RunKernelThread(t *Thread, fn func(self *Thread)) {
	s.SetThreadState(t, RUNNABLE)
	go func() {
		fn(t)
		s.ExitThread(t)
	}()
}

// Yield removes self from the CPU momentarily and lets the Go runtime
// schedule another runnable goroutine, simulating the timer-IRQ/int-129
// preemption point described in spec.md §4.2. self may be nil when
// called from a context with no associated Thread (e.g. kthread's
// package-level hook before any thread has registered).
func (s *Scheduler) Yield(self *Thread) {
	s.mu.Lock()
	if s.cur != nil {
		s.cur = s.cur.next
	}
	s.mu.Unlock()
	runtime.Gosched()
}

// Tick implements spec.md §4.3's timer-IRQ handler: it advances clocks'
// time-based clocks by period, attributes period to the current
// thread's system-mode tick count (and, via TickAccumulator, to its
// owning process's), then invokes the scheduler. Every thread here is
// a kernel thread — CreateKernelThread/RunKernelThread are the only
// constructors — so tick time always accrues as system time, never
// execute (user-mode) time. clocks may be nil (clock-less callers, e.g.
// tests exercising only scheduling) in which case only the
// thread/process accounting and the Yield happen.
func (s *Scheduler) Tick(clocks *clock.Registry, period time.Duration) {
	if clocks != nil {
		clocks.AdvanceAll(period)
	}

	s.mu.Lock()
	cur := s.cur
	s.mu.Unlock()

	if cur != nil {
		ticks := uint64(period)
		cur.AddSystemTicks(ticks)
		if acc, ok := cur.Owner.(TickAccumulator); ok {
			acc.AddSystemTicks(ticks)
		}
	}

	s.Yield(nil)
}

// ExitThread transitions t to DEAD and defers stack reclamation onto the
// worker pool, mirroring kthread_exit's use of Worker::Schedule plus
// Scheduler::ExitThread (software interrupt 132 in the original).
func (s *Scheduler) ExitThread(t *Thread) {
	s.SetThreadState(t, DEAD)
	s.regMu.Lock()
	delete(s.byTID, t.ID)
	s.regMu.Unlock()
	if s.reclaim != nil {
		s.reclaim.Schedule(func() {
			// Stand-in for FreeThread(thread): release any
			// kernel-stack-equivalent resources held by t. Nothing to
			// free explicitly in this simulation beyond GC-visible
			// state, but this runs on a worker goroutine, never on t's
			// own, preserving the "a thread cannot free its own stack"
			// invariant.
		})
	}
}

// SetIdleThread records t as the idle thread. Yield and Tick do not
// consult it: with an empty run list there is no current thread.
func (s *Scheduler) SetIdleThread(t *Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle = t
}
