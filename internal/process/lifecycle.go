package process

import (
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/kthread"
)

// waitTID is the bookkeeping identity exit/wait coordination locks run
// under, distinct from any real thread's TID the way pipe.bookkeepingTID
// is — exit/wait is process-table bookkeeping, not a specific thread's
// blocking I/O.
const waitTID kthread.TID = ^kthread.TID(0)

// Fork creates a child of parent: a new PID, a copy of parent's
// descriptor table (each entry's open file description shared via
// Descriptor.Acquire, per fork's "share the open file description"
// semantics), a forked address space (frames duplicated at fork time and
// marked ProtFork by mm's Fork),
// and the same process group/session.
func (t *Table) Fork(parent *Process) *Process {
	t.mu.Lock()
	t.nextPID++
	pid := t.nextPID
	t.mu.Unlock()

	parent.fdMu.Lock()
	childFds := make(map[int]*fdEntry, len(parent.fds))
	for fd, e := range parent.fds {
		if e.clofork {
			continue
		}
		childFds[fd] = &fdEntry{desc: e.desc.Acquire(), cloexec: e.cloexec}
	}
	parent.fdMu.Unlock()

	var childSpace = parent.space
	if parent.space != nil {
		childSpace = parent.space.Fork()
	}

	child := &Process{
		PID:      pid,
		Parent:   parent,
		pgid:     parent.Pgid(),
		sid:      parent.Sid(),
		fds:      childFds,
		space:    childSpace,
		segments: append([]Segment(nil), parent.Segments()...),
		exitMu:   kthread.NewMutex(kthread.Normal),
		exitCond: kthread.NewCond(),
	}
	uid, gid, euid, egid := parent.Ids()
	child.SetIds(uid, gid, euid, egid)
	if parent.Cwd != nil {
		child.Cwd = parent.Cwd.Acquire()
	}
	if parent.Root != nil {
		child.Root = parent.Root.Acquire()
	}

	t.mu.Lock()
	t.procs[pid] = child
	t.mu.Unlock()

	parent.parentMu.Lock()
	parent.Children = append(parent.Children, child)
	parent.parentMu.Unlock()

	return child
}

// RforkFlags selects which of a new child's resources are shared with
// the parent rather than copied, mirroring rfork(2)'s flag bits.
type RforkFlags int

const (
	RforkShareFDs   RforkFlags = 1 << iota // share the descriptor table itself, not just each open file description
	RforkShareSpace                        // share the address space instead of forking it
)

// Rfork is Fork generalized with rfork(2)'s sharing flags: with no
// flags set it is exactly Fork; RforkShareSpace makes the child a
// thread-like sibling sharing the parent's address space, and
// RforkShareFDs makes descriptor-table mutations (open/close/dup2)
// visible to both sides instead of only the shared open file
// descriptions Fork already provides.
func (t *Table) Rfork(parent *Process, flags RforkFlags) *Process {
	child := t.Fork(parent)
	if flags&RforkShareSpace != 0 {
		if parent.space != nil {
			child.space.Destroy()
		}
		child.space = parent.space
	}
	if flags&RforkShareFDs != 0 {
		child.fdMu.Lock()
		stale := child.fds
		child.fds = parent.fds
		child.fdMu.Unlock()
		for _, e := range stale {
			e.desc.Close()
		}
	}
	return child
}

// Exec replaces a process's running image. There is no ELF loader in
// scope (boot/bring-up glue is out of scope entirely), so Exec's
// observable effect is exactly what spec.md's syscall list promises at
// this layer: descriptor-table entries marked FD_CLOEXEC are closed,
// and segments are reset to the empty set for the caller to repopulate
// via AddSegment — the parts of exec that are this kernel's concern
// rather than a loader's.
func (p *Process) Exec() {
	p.fdMu.Lock()
	for fd, e := range p.fds {
		if e.cloexec {
			e.desc.Close()
			delete(p.fds, fd)
		}
	}
	p.fdMu.Unlock()

	p.segLock.Lock()
	p.segments = nil
	p.segLock.Unlock()
}

// Exit marks p exited with status and wakes any waiter blocked in Wait.
func (t *Table) Exit(p *Process, status int) {
	unlock := p.exitMu.Guard(waitTID)
	p.exited = true
	p.exitStatus = status
	unlock()
	p.exitCond.Broadcast()

	p.fdMu.Lock()
	for fd, e := range p.fds {
		e.desc.Close()
		delete(p.fds, fd)
	}
	p.fdMu.Unlock()
	if p.Cwd != nil {
		p.Cwd.Close()
	}
	if p.Root != nil {
		p.Root.Close()
	}
	if p.space != nil {
		p.space.Destroy()
	}

	if p.Parent != nil {
		p.Parent.exitCond.Broadcast()
	}
}

// Wait blocks until a child of p matching pid exits (pid < 0 matches
// any child), returning its PID and exit status, or ECHILD-equivalent
// ENOENT (spec.md's closed errno taxonomy has no ESRCH/ECHILD) if p has
// no matching child at all.
func (t *Table) Wait(p *Process, pid int32) (int32, int, kernelerr.Errno) {
	for {
		p.parentMu.Lock()
		var match *Process
		anyChildren := false
		for _, c := range p.Children {
			if pid >= 0 && c.PID != pid {
				continue
			}
			anyChildren = true
			c.exitMu.Lock(waitTID)
			exited := c.exited
			c.exitMu.Unlock(waitTID)
			if exited {
				match = c
				break
			}
		}
		p.parentMu.Unlock()

		if !anyChildren {
			return 0, 0, kernelerr.ENOENT
		}
		if match != nil {
			t.reap(p, match)
			return match.PID, match.exitStatus, kernelerr.OK
		}
		p.exitMu.Lock(waitTID)
		if !p.exitCond.WaitSignal(waitTID, p.exitMu) {
			p.exitMu.Unlock(waitTID)
			return 0, 0, kernelerr.EINTR
		}
		p.exitMu.Unlock(waitTID)
	}
}

func (t *Table) reap(parent, child *Process) {
	parent.parentMu.Lock()
	for i, c := range parent.Children {
		if c == child {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			break
		}
	}
	parent.parentMu.Unlock()

	// Roll child's own ticks plus whatever it had already inherited from
	// its own reaped children into parent's child-execute/child-system
	// clocks, per spec.md §3's child-clock fields.
	ce, cs, cce, ccs := child.Clocks()
	parent.clockMu.Lock()
	parent.childExecuteTicks += ce + cce
	parent.childSystemTicks += cs + ccs
	parent.clockMu.Unlock()

	t.remove(child.PID)
}
