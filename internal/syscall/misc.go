package syscall

import (
	"github.com/sortix-go/kernel/internal/bcache"
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/process"
)

// Exit marks pid exited with status, releasing its descriptors, cwd/root,
// and address space and waking any parent blocked in Wait.
func (g *Gate) Exit(pid int32, status int) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	g.Table.Exit(p, status)
	return kernelerr.OK
}

// Fork creates a child of pid, returning the child's new PID.
func (g *Gate) Fork(pid int32) (int32, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	return g.Table.Fork(p).PID, kernelerr.OK
}

// Rfork creates a child of pid sharing the resources flags selects.
func (g *Gate) Rfork(pid int32, flags process.RforkFlags) (int32, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	return g.Table.Rfork(p, flags).PID, kernelerr.OK
}

// Exec resets pid's in-kernel exec-time state (FD_CLOEXEC descriptors,
// segment array); see process.Process.Exec's doc comment for why this
// is exec's entire observable effect here.
func (g *Gate) Exec(pid int32) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	p.Exec()
	return kernelerr.OK
}

// Wait blocks pid until a matching child exits, per process.Table.Wait.
func (g *Gate) Wait(pid int32, childPid int32) (int32, int, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, 0, g.reportErrno(pid, errno)
	}
	gotPid, status, errno := g.Table.Wait(p, childPid)
	return gotPid, status, g.reportErrno(pid, errno)
}

// MemStat reports pid's mapped-page count alongside the kernel-wide
// block cache pool statistics, the two halves memstat's single
// combined report draws from.
type MemStat struct {
	MappedPages         int
	CacheAreas, CacheUsed, CacheUnused int
}

func (g *Gate) Memstat(pid int32, pool *bcache.Pool) (MemStat, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return MemStat{}, g.reportErrno(pid, errno)
	}
	var stat MemStat
	if sp := p.Space(); sp != nil {
		stat.MappedPages = sp.Statistics().MappedPages
	}
	if pool != nil {
		s := pool.Stats()
		stat.CacheAreas, stat.CacheUsed, stat.CacheUnused = s.Areas, s.Used, s.Unused
	}
	return stat, kernelerr.OK
}

// Tcsetblob installs a named configuration blob; currently only the
// keyboard layout blob ("kblayout") is wired, per spec.md §6.
func (g *Gate) Tcsetblob(name string, bytes []byte) kernelerr.Errno {
	switch name {
	case "kblayout":
		g.Keyboard.SetLayout(bytes)
		return kernelerr.OK
	default:
		return kernelerr.EINVAL
	}
}
