package syscall

import (
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/kthread"
	"github.com/sortix-go/kernel/internal/process"
	"github.com/sortix-go/kernel/internal/sched"
	"github.com/sortix-go/kernel/internal/signal"
)

// Sigaction installs disp as sig's process-wide disposition and
// reports what was previously installed, per spec.md §4.3. STOP and
// KILL ignore any installed disposition at delivery time regardless of
// what is recorded here, matching signal.unmaskable.
func (g *Gate) Sigaction(pid int32, sig signal.Signal, disp signal.Disposition) (signal.Disposition, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	return p.SetAction(sig, disp), kernelerr.OK
}

// How values for Sigprocmask, mirroring SIG_BLOCK/SIG_UNBLOCK/SIG_SETMASK.
type How int

const (
	SigBlock How = iota
	SigUnblock
	SigSetmask
)

// findThread locates pid's thread with the given TID, or nil if it is
// gone (exited between the syscall being issued and dispatched).
func findThread(p *process.Process, self kthread.TID) *sched.Thread {
	for _, t := range p.Threads() {
		if t.ID == self {
			return t
		}
	}
	return nil
}

// Sigprocmask adjusts self's blocked-signal mask and returns the
// previous mask, dispatching on how exactly like sigprocmask(2).
func (g *Gate) Sigprocmask(pid int32, self kthread.TID, how How, set signal.Mask) (signal.Mask, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	t := findThread(p, self)
	if t == nil {
		return 0, g.reportErrno(pid, kernelerr.ENOENT)
	}
	_, old := t.Signals()
	switch how {
	case SigBlock:
		t.SetMask(old | set)
	case SigUnblock:
		t.SetMask(old &^ set)
	case SigSetmask:
		t.SetMask(set)
	default:
		return 0, g.reportErrno(pid, kernelerr.EINVAL)
	}
	return old, kernelerr.OK
}

// Kill raises sig against targetPid, honoring the process-wide
// disposition recorded via Sigaction (never for KILL or STOP): a
// default-ignored signal with no
// custom handler installed is dropped at generation time rather than
// queued, matching the optimization spec.md's default-disposition table
// implies is legal (an ignored signal can never become deliverable).
// The signal lands on whichever of the target's threads does not
// currently block it, or its first thread if all do (it then waits
// there until unblocked).
func (g *Gate) Kill(targetPid int32, sig signal.Signal) kernelerr.Errno {
	p, errno := g.process(targetPid)
	if errno != kernelerr.OK {
		return g.reportErrno(targetPid, errno)
	}
	if sig != signal.KILL && sig != signal.STOP && p.Action(sig) == signal.DispIgnore {
		return kernelerr.OK
	}
	threads := p.Threads()
	if len(threads) == 0 {
		return kernelerr.OK
	}
	for _, t := range threads {
		_, mask := t.Signals()
		if !mask.Blocked(sig) {
			t.Raise(sig)
			return kernelerr.OK
		}
	}
	threads[0].Raise(sig)
	return kernelerr.OK
}
