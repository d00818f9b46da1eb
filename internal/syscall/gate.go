package syscall

import (
	"sync"

	"github.com/sortix-go/kernel/internal/clock"
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/process"
	"github.com/sortix-go/kernel/internal/sched"
	"github.com/sortix-go/kernel/internal/tty"
	"github.com/sortix-go/kernel/internal/vfs"
)

// Gate is the syscall gate: it owns no state of its own beyond wiring
// to the real kernel components each syscall dispatches to, and the
// per-process errno-slot registrations spec.md §4 describes
// (sys_register_errno, single slot per process).
type Gate struct {
	Table     *process.Table
	Resolver  *vfs.Resolver
	Scheduler *sched.Scheduler
	Clocks    *clock.Registry
	Keyboard  *tty.Keyboard

	errnoMu   sync.Mutex
	errnoSlot map[int32]*kernelerr.Errno

	timerOnce sync.Once
	timers    *timerTable
}

// NewGate wires a syscall gate to the given kernel components.
func NewGate(table *process.Table, resolver *vfs.Resolver, scheduler *sched.Scheduler, clocks *clock.Registry, kb *tty.Keyboard) *Gate {
	return &Gate{
		Table:     table,
		Resolver:  resolver,
		Scheduler: scheduler,
		Clocks:    clocks,
		Keyboard:  kb,
		errnoSlot: make(map[int32]*kernelerr.Errno),
	}
}

// RegisterErrno installs slot as pid's single errno-writeback
// location (sys_register_errno): every syscall return for that
// process that fails stores its Errno through slot.
func (g *Gate) RegisterErrno(pid int32, slot *kernelerr.Errno) {
	g.errnoMu.Lock()
	defer g.errnoMu.Unlock()
	g.errnoSlot[pid] = slot
}

// reportErrno writes errno to pid's registered slot, if any, and
// returns errno unchanged for convenient chaining at a dispatch site.
func (g *Gate) reportErrno(pid int32, errno kernelerr.Errno) kernelerr.Errno {
	if errno == kernelerr.OK {
		return errno
	}
	g.errnoMu.Lock()
	slot := g.errnoSlot[pid]
	g.errnoMu.Unlock()
	if slot != nil {
		*slot = errno
	}
	return errno
}

// process looks up pid, returning ENOENT if it's gone (the caller
// reports it through the errno slot) — callers only reach this with already-live
// PIDs in practice, but a stale PID must still fail cleanly rather
// than panic.
func (g *Gate) process(pid int32) (*process.Process, kernelerr.Errno) {
	p, ok := g.Table.Lookup(pid)
	if !ok {
		return nil, kernelerr.ENOENT
	}
	return p, kernelerr.OK
}

// Getpid/Getppid/identity syscalls.

func (g *Gate) Getpid(pid int32) int32 {
	return pid
}

func (g *Gate) Getppid(pid int32) (int32, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	parent := p.GetParent()
	if parent == nil {
		return 0, kernelerr.OK
	}
	return parent.PID, kernelerr.OK
}

func (g *Gate) Getuid(pid int32) (uint32, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	uid, _, _, _ := p.Ids()
	return uid, kernelerr.OK
}

func (g *Gate) Getgid(pid int32) (uint32, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	_, gid, _, _ := p.Ids()
	return gid, kernelerr.OK
}

func (g *Gate) Geteuid(pid int32) (uint32, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	_, _, euid, _ := p.Ids()
	return euid, kernelerr.OK
}

func (g *Gate) Getegid(pid int32) (uint32, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	_, _, _, egid := p.Ids()
	return egid, kernelerr.OK
}

func (g *Gate) Setuid(pid int32, uid uint32) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	_, gid, euid, egid := p.Ids()
	p.SetIds(uid, gid, euid, egid)
	return kernelerr.OK
}

func (g *Gate) Setgid(pid int32, gid uint32) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	uid, _, euid, egid := p.Ids()
	p.SetIds(uid, gid, euid, egid)
	return kernelerr.OK
}

func (g *Gate) Seteuid(pid int32, euid uint32) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	uid, gid, _, egid := p.Ids()
	p.SetIds(uid, gid, euid, egid)
	return kernelerr.OK
}

func (g *Gate) Setegid(pid int32, egid uint32) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	uid, gid, euid, _ := p.Ids()
	p.SetIds(uid, gid, euid, egid)
	return kernelerr.OK
}

// Gethostname/Sethostname wrap internal/process's hostname singleton.

func (g *Gate) Gethostname() string {
	return process.Hostname()
}

func (g *Gate) Sethostname(name string) {
	process.SetHostname(name)
}

// Kernelinfo request kinds, per spec.md §6.
const (
	KernelinfoName      = "name"
	KernelinfoVersion   = "version"
	KernelinfoBuildDate = "builddate"
	KernelinfoBuildTime = "buildtime"
)

// Kernelinfo answers the fixed build-identity requests. BuildDate/Time
// are supplied by cmd/sortixkernel at link time (there is no real
// build step here, so the harness passes them in); Kernelinfo itself
// just dispatches on the request string.
func (g *Gate) Kernelinfo(request string, info BuildInfo) (string, kernelerr.Errno) {
	switch request {
	case KernelinfoName:
		return "sortix", kernelerr.OK
	case KernelinfoVersion:
		return info.Version, kernelerr.OK
	case KernelinfoBuildDate:
		return info.BuildDate, kernelerr.OK
	case KernelinfoBuildTime:
		return info.BuildTime, kernelerr.OK
	default:
		return "", kernelerr.EINVAL
	}
}

// BuildInfo carries the values cmd/sortixkernel stamps kernelinfo with.
type BuildInfo struct {
	Version, BuildDate, BuildTime string
}
