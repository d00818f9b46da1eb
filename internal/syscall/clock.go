package syscall

import (
	"sync"
	"time"

	"github.com/sortix-go/kernel/internal/clock"
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/kthread"
)

// timerFireTID is the bookkeeping identity Nanosleep's timer callback
// locks under — it fires from Clock.Advance, not from any real calling
// thread, the same reasoning behind internal/pipe's bookkeepingTID and
// internal/process's waitTID.
const timerFireTID kthread.TID = ^kthread.TID(0)

// timerTable tracks the per-process handle -> *clock.Timer mapping
// timer_create/delete/settime/gettime/getoverrun need; the clock
// package itself only knows about bare *Timer values, not process
// ownership, so the gate keeps that bookkeeping the way
// internal/process keeps fd -> *vfs.Descriptor.
type timerTable struct {
	mu      sync.Mutex
	next    int32
	byProc  map[int32]map[int32]*clock.Timer
}

func newTimerTable() *timerTable {
	return &timerTable{byProc: make(map[int32]map[int32]*clock.Timer)}
}

func (tt *timerTable) create(pid int32, t *clock.Timer) int32 {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.next++
	id := tt.next
	m, ok := tt.byProc[pid]
	if !ok {
		m = make(map[int32]*clock.Timer)
		tt.byProc[pid] = m
	}
	m[id] = t
	return id
}

func (tt *timerTable) get(pid, id int32) (*clock.Timer, bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	t, ok := tt.byProc[pid][id]
	return t, ok
}

func (tt *timerTable) delete(pid, id int32) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	delete(tt.byProc[pid], id)
}

// lazyTimers lets Gate construct its timerTable on first use without
// widening NewGate's signature for an implementation detail.
func (g *Gate) lazyTimers() *timerTable {
	g.timerOnce.Do(func() { g.timers = newTimerTable() })
	return g.timers
}

func (g *Gate) clockByID(id clock.ID) (*clock.Clock, kernelerr.Errno) {
	c, ok := g.Clocks.System(id)
	if !ok {
		return nil, kernelerr.EINVAL
	}
	return c, kernelerr.OK
}

func (g *Gate) ClockGettime(id clock.ID) (time.Duration, kernelerr.Errno) {
	c, errno := g.clockByID(id)
	if errno != kernelerr.OK {
		return 0, errno
	}
	return c.Now(), kernelerr.OK
}

func (g *Gate) ClockSettime(id clock.ID, value time.Duration) kernelerr.Errno {
	c, errno := g.clockByID(id)
	if errno != kernelerr.OK {
		return errno
	}
	c.Set(value)
	return kernelerr.OK
}

// Nanosleep blocks self until clock id reaches now+duration, by arming
// a one-shot timer whose callback wakes a kthread.Cond — the same
// blocking-I/O shape internal/pipe and internal/tty use. It returns
// EINTR (with the remaining duration) if a signal interrupts the wait
// before the timer fires.
func (g *Gate) Nanosleep(pid int32, self kthread.TID, id clock.ID, duration time.Duration) (time.Duration, kernelerr.Errno) {
	c, errno := g.clockByID(id)
	if errno != kernelerr.OK {
		return 0, errno
	}
	mu := kthread.NewMutex(kthread.Normal)
	cond := kthread.NewCond()
	done := false
	start := c.Now()
	deadline := start + duration

	timer := c.NewTimer(func(overrun uint64) {
		unlock := mu.Guard(timerFireTID)
		done = true
		unlock()
		cond.Broadcast()
	}, nil)
	timer.Set(clock.ItimerSpec{Value: duration}, 0)

	mu.Lock(self)
	for !done {
		if !cond.WaitSignal(self, mu) {
			mu.Unlock(self)
			timer.Cancel()
			remaining := deadline - c.Now()
			if remaining < 0 {
				remaining = 0
			}
			return remaining, g.reportErrno(pid, kernelerr.EINTR)
		}
	}
	mu.Unlock(self)
	return 0, kernelerr.OK
}

func (g *Gate) TimerCreate(pid int32, id clock.ID, cb clock.Callback) (int32, kernelerr.Errno) {
	c, errno := g.clockByID(id)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	t := c.NewTimer(cb, nil)
	return g.lazyTimers().create(pid, t), kernelerr.OK
}

func (g *Gate) TimerDelete(pid, timerID int32) kernelerr.Errno {
	t, ok := g.lazyTimers().get(pid, timerID)
	if !ok {
		return g.reportErrno(pid, kernelerr.EINVAL)
	}
	t.Cancel()
	g.lazyTimers().delete(pid, timerID)
	return kernelerr.OK
}

func (g *Gate) TimerSettime(pid, timerID int32, value clock.ItimerSpec, flags clock.Flags) (clock.ItimerSpec, kernelerr.Errno) {
	t, ok := g.lazyTimers().get(pid, timerID)
	if !ok {
		return clock.ItimerSpec{}, g.reportErrno(pid, kernelerr.EINVAL)
	}
	return t.Set(value, flags), kernelerr.OK
}

func (g *Gate) TimerGettime(pid, timerID int32) (clock.ItimerSpec, kernelerr.Errno) {
	t, ok := g.lazyTimers().get(pid, timerID)
	if !ok {
		return clock.ItimerSpec{}, g.reportErrno(pid, kernelerr.EINVAL)
	}
	return t.Get(), kernelerr.OK
}

func (g *Gate) TimerGetoverrun(pid, timerID int32) (uint64, kernelerr.Errno) {
	t, ok := g.lazyTimers().get(pid, timerID)
	if !ok {
		return 0, g.reportErrno(pid, kernelerr.EINVAL)
	}
	return t.Overrun(), kernelerr.OK
}
