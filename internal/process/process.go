// Package process implements the process table, per-process identity
// and descriptor-table state, and fork/exec/wait/exit, per spec.md §3's
// "Process" and the L3 "Process table & identity" component.
package process

import (
	"sync"

	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/kthread"
	"github.com/sortix-go/kernel/internal/mm"
	"github.com/sortix-go/kernel/internal/sched"
	"github.com/sortix-go/kernel/internal/signal"
	"github.com/sortix-go/kernel/internal/vfs"
)

// fdEntry is one descriptor-table slot: a shared *vfs.Descriptor plus
// the table-entry-only flags (FD_CLOEXEC/FD_CLOFORK), which belong to
// the slot, not the underlying open file description.
type fdEntry struct {
	desc    *vfs.Descriptor
	cloexec bool
	clofork bool
}

// Process holds everything spec.md §3's "Process" entry lists: identity
// fields guarded by idlock, a descriptor table, a sorted segment array,
// and exit-wait bookkeeping.
type Process struct {
	PID int32

	parentMu sync.Mutex // guards Parent and Children
	Parent   *Process
	Children []*Process

	idlock               sync.Mutex
	pgid, sid            int32
	uid, gid, euid, egid uint32

	Cwd, Root *vfs.Descriptor

	fdMu sync.Mutex
	fds  map[int]*fdEntry

	segLock  sync.Mutex
	segments []Segment
	space    *mm.AddressSpace

	threadsMu sync.Mutex
	threads   []*sched.Thread

	clockMu                              sync.Mutex
	executeTicks, systemTicks            uint64
	childExecuteTicks, childSystemTicks  uint64

	actionsMu sync.Mutex
	actions   map[signal.Signal]signal.Disposition

	exitMu     *kthread.Mutex
	exitCond   *kthread.Cond
	exited     bool
	exitStatus int
}

// Table is the kernel-wide PID table, guarded by ptablelock.
type Table struct {
	mu      sync.Mutex // ptablelock
	procs   map[int32]*Process
	nextPID int32
}

// NewTable creates an empty process table.
func NewTable() *Table {
	return &Table{procs: make(map[int32]*Process)}
}

// New creates the first process (PID 1-style init) with no parent, an
// empty descriptor table, and the given address space.
func (t *Table) New(space *mm.AddressSpace) *Process {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextPID++
	p := &Process{
		PID:      t.nextPID,
		pgid:     t.nextPID,
		sid:      t.nextPID,
		fds:      make(map[int]*fdEntry),
		space:    space,
		exitMu:   kthread.NewMutex(kthread.Normal),
		exitCond: kthread.NewCond(),
	}
	t.procs[p.PID] = p
	return p
}

// Lookup finds a process by PID.
func (t *Table) Lookup(pid int32) (*Process, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.procs[pid]
	return p, ok
}

func (t *Table) remove(pid int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, pid)
}

// Ids returns uid/gid/euid/egid under idlock.
func (p *Process) Ids() (uid, gid, euid, egid uint32) {
	p.idlock.Lock()
	defer p.idlock.Unlock()
	return p.uid, p.gid, p.euid, p.egid
}

// SetIds replaces uid/gid/euid/egid under idlock.
func (p *Process) SetIds(uid, gid, euid, egid uint32) {
	p.idlock.Lock()
	defer p.idlock.Unlock()
	p.uid, p.gid, p.euid, p.egid = uid, gid, euid, egid
}

// GetParent returns the process's parent, or nil for the root process.
func (p *Process) GetParent() *Process {
	p.parentMu.Lock()
	defer p.parentMu.Unlock()
	return p.Parent
}

// Pgid and Sid report the process's group and session ids.
func (p *Process) Pgid() int32 {
	p.idlock.Lock()
	defer p.idlock.Unlock()
	return p.pgid
}

func (p *Process) Sid() int32 {
	p.idlock.Lock()
	defer p.idlock.Unlock()
	return p.sid
}

func (p *Process) SetPgid(pgid int32) {
	p.idlock.Lock()
	defer p.idlock.Unlock()
	p.pgid = pgid
}

// AddFd installs desc at the lowest free descriptor number >= 0.
func (p *Process) AddFd(desc *vfs.Descriptor, cloexec bool) int {
	p.fdMu.Lock()
	defer p.fdMu.Unlock()
	fd := 0
	for {
		if _, used := p.fds[fd]; !used {
			break
		}
		fd++
	}
	p.fds[fd] = &fdEntry{desc: desc, cloexec: cloexec}
	return fd
}

// SetFdAt installs desc at exactly fd (dup2 semantics), closing
// whatever was there first.
func (p *Process) SetFdAt(fd int, desc *vfs.Descriptor, cloexec bool) {
	p.fdMu.Lock()
	defer p.fdMu.Unlock()
	if old, ok := p.fds[fd]; ok {
		old.desc.Close()
	}
	p.fds[fd] = &fdEntry{desc: desc, cloexec: cloexec}
}

// Fd returns the descriptor installed at fd.
func (p *Process) Fd(fd int) (*vfs.Descriptor, kernelerr.Errno) {
	p.fdMu.Lock()
	defer p.fdMu.Unlock()
	e, ok := p.fds[fd]
	if !ok {
		return nil, kernelerr.EBADF
	}
	return e.desc, kernelerr.OK
}

// CloseFd drops fd from the descriptor table, closing the underlying
// descriptor if this was its last table reference.
func (p *Process) CloseFd(fd int) kernelerr.Errno {
	p.fdMu.Lock()
	defer p.fdMu.Unlock()
	e, ok := p.fds[fd]
	if !ok {
		return kernelerr.EBADF
	}
	delete(p.fds, fd)
	e.desc.Close()
	return kernelerr.OK
}

// Dup duplicates fd onto the lowest free descriptor number, sharing the
// same open file description (Descriptor.Acquire).
func (p *Process) Dup(fd int) (int, kernelerr.Errno) {
	p.fdMu.Lock()
	e, ok := p.fds[fd]
	p.fdMu.Unlock()
	if !ok {
		return -1, kernelerr.EBADF
	}
	return p.AddFd(e.desc.Acquire(), false), kernelerr.OK
}

// AddThread registers t as one of p's kernel threads.
func (p *Process) AddThread(t *sched.Thread) {
	p.threadsMu.Lock()
	defer p.threadsMu.Unlock()
	p.threads = append(p.threads, t)
}

// RemoveThread unregisters t, e.g. once it reaches sched.DEAD.
func (p *Process) RemoveThread(t *sched.Thread) {
	p.threadsMu.Lock()
	defer p.threadsMu.Unlock()
	for i, o := range p.threads {
		if o == t {
			p.threads = append(p.threads[:i], p.threads[i+1:]...)
			return
		}
	}
}

// Threads returns a snapshot of p's kernel threads.
func (p *Process) Threads() []*sched.Thread {
	p.threadsMu.Lock()
	defer p.threadsMu.Unlock()
	return append([]*sched.Thread(nil), p.threads...)
}

// SetAction installs disp as the process-wide disposition for sig
// (sigaction), returning the previous disposition.
func (p *Process) SetAction(sig signal.Signal, disp signal.Disposition) signal.Disposition {
	p.actionsMu.Lock()
	defer p.actionsMu.Unlock()
	old := p.actionLocked(sig)
	if p.actions == nil {
		p.actions = make(map[signal.Signal]signal.Disposition)
	}
	p.actions[sig] = disp
	return old
}

// Action reports sig's currently installed disposition, falling back
// to the signal's system default if sigaction was never called for it.
func (p *Process) Action(sig signal.Signal) signal.Disposition {
	p.actionsMu.Lock()
	defer p.actionsMu.Unlock()
	return p.actionLocked(sig)
}

func (p *Process) actionLocked(sig signal.Signal) signal.Disposition {
	if disp, ok := p.actions[sig]; ok {
		return disp
	}
	return signal.DefaultDisposition(sig)
}

// AddSystemTicks accumulates kernel-mode tick time for p, driven by
// sched.Scheduler.Tick via the sched.TickAccumulator interface against
// every thread this process owns.
func (p *Process) AddSystemTicks(n uint64) {
	p.clockMu.Lock()
	p.systemTicks += n
	p.clockMu.Unlock()
}

// AddExecuteTicks accumulates user-mode tick time for p. Kept symmetric
// with AddSystemTicks per spec.md §3's execute/system clock pair;
// unused until the kernel gains a usermode thread type, since every
// thread created today is a kernel thread.
func (p *Process) AddExecuteTicks(n uint64) {
	p.clockMu.Lock()
	p.executeTicks += n
	p.clockMu.Unlock()
}

// Clocks reports p's own and reaped-children's accumulated execute and
// system tick counts, matching spec.md §3's Process "execute/system/
// child-execute/child-system clocks" fields.
func (p *Process) Clocks() (execute, system, childExecute, childSystem uint64) {
	p.clockMu.Lock()
	defer p.clockMu.Unlock()
	return p.executeTicks, p.systemTicks, p.childExecuteTicks, p.childSystemTicks
}

// Space returns the process's address space, or nil for a kernel-only
// process with none.
func (p *Process) Space() *mm.AddressSpace {
	return p.space
}

// AddSegment inserts seg into the process's sorted segment array.
func (p *Process) AddSegment(seg Segment) kernelerr.Errno {
	p.segLock.Lock()
	defer p.segLock.Unlock()
	segs, errno := insertSegmentLocked(p.segments, seg)
	if errno != kernelerr.OK {
		return errno
	}
	p.segments = segs
	return kernelerr.OK
}

// RemoveSegment removes the segment starting at addr.
func (p *Process) RemoveSegment(addr uint64) {
	p.segLock.Lock()
	defer p.segLock.Unlock()
	p.segments = removeSegmentLocked(p.segments, addr)
}

// Segments returns a snapshot of the process's segment array.
func (p *Process) Segments() []Segment {
	p.segLock.Lock()
	defer p.segLock.Unlock()
	return append([]Segment(nil), p.segments...)
}
