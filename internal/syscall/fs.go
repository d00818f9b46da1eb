package syscall

import (
	"time"

	"github.com/sortix-go/kernel/internal/clock"
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/kthread"
	"github.com/sortix-go/kernel/internal/pipe"
	"github.com/sortix-go/kernel/internal/process"
	"github.com/sortix-go/kernel/internal/vfs"
)

// ioctx builds the per-call IOCtx for pid/self, carrying the identity a
// backend needs for permission checks and the calling thread a blocking
// backend (a pipe, a tty) waits on.
func (g *Gate) ioctx(p *process.Process, self kthread.TID) *vfs.IOCtx {
	uid, gid, euid, egid := p.Ids()
	return &vfs.IOCtx{Kind: vfs.UserCtx, Self: self, Uid: uid, Gid: gid, Euid: euid, Egid: egid}
}

// Open resolves path relative to p's cwd (or root, if absolute) and
// installs the resulting descriptor at the lowest free fd.
func (g *Gate) Open(pid int32, self kthread.TID, path string, flags int, mode uint32) (int, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return -1, g.reportErrno(pid, errno)
	}
	ctx := g.ioctx(p, self)
	v, errno := g.Resolver.Resolve(ctx, p.Root, p.Cwd, path, flags, mode)
	if errno != kernelerr.OK {
		return -1, g.reportErrno(pid, errno)
	}
	desc := vfs.NewDescriptor(v, flags)
	fd := p.AddFd(desc, flags&vfs.OCloexec != 0)
	return fd, kernelerr.OK
}

func (g *Gate) Close(pid int32, fd int) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	return g.reportErrno(pid, p.CloseFd(fd))
}

func (g *Gate) Read(pid int32, self kthread.TID, fd int, buf []byte) (int, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	d, errno := p.Fd(fd)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	n, errno := d.Read(g.ioctx(p, self), buf)
	return n, g.reportErrno(pid, errno)
}

func (g *Gate) Write(pid int32, self kthread.TID, fd int, buf []byte) (int, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	d, errno := p.Fd(fd)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	n, errno := d.Write(g.ioctx(p, self), buf)
	return n, g.reportErrno(pid, errno)
}

func (g *Gate) Pread(pid int32, self kthread.TID, fd int, buf []byte, off int64) (int, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	d, errno := p.Fd(fd)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	n, errno := d.Pread(g.ioctx(p, self), buf, off)
	return n, g.reportErrno(pid, errno)
}

func (g *Gate) Pwrite(pid int32, self kthread.TID, fd int, buf []byte, off int64) (int, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	d, errno := p.Fd(fd)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	n, errno := d.Pwrite(g.ioctx(p, self), buf, off)
	return n, g.reportErrno(pid, errno)
}

func (g *Gate) Lseek(pid int32, fd int, offset int64, whence int) (int64, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	d, errno := p.Fd(fd)
	if errno != kernelerr.OK {
		return 0, g.reportErrno(pid, errno)
	}
	off, errno := d.Lseek(offset, whence)
	return off, g.reportErrno(pid, errno)
}

func (g *Gate) Dup(pid int32, fd int) (int, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return -1, g.reportErrno(pid, errno)
	}
	newFd, errno := p.Dup(fd)
	return newFd, g.reportErrno(pid, errno)
}

func (g *Gate) Dup2(pid int32, oldFd, newFd int) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	if oldFd == newFd {
		if _, errno := p.Fd(oldFd); errno != kernelerr.OK {
			return g.reportErrno(pid, errno)
		}
		return kernelerr.OK
	}
	d, errno := p.Fd(oldFd)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	p.SetFdAt(newFd, d.Acquire(), false)
	return kernelerr.OK
}

func (g *Gate) Readdirents(pid int32, fd int, cookie int64, max int) ([]vfs.DirEntry, int64, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return nil, 0, g.reportErrno(pid, errno)
	}
	d, errno := p.Fd(fd)
	if errno != kernelerr.OK {
		return nil, 0, g.reportErrno(pid, errno)
	}
	entries, next, errno := d.Readdirents(cookie, max)
	return entries, next, g.reportErrno(pid, errno)
}

// Stat/Lstat resolve path and report its inode's StatInfo; Fstat does
// the same for an already-open descriptor.

func (g *Gate) Stat(pid int32, self kthread.TID, path string) (vfs.StatInfo, kernelerr.Errno) {
	return g.statPath(pid, self, path, 0)
}

func (g *Gate) Lstat(pid int32, self kthread.TID, path string) (vfs.StatInfo, kernelerr.Errno) {
	return g.statPath(pid, self, path, vfs.ONofollow)
}

func (g *Gate) statPath(pid int32, self kthread.TID, path string, extraFlags int) (vfs.StatInfo, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return vfs.StatInfo{}, g.reportErrno(pid, errno)
	}
	ctx := g.ioctx(p, self)
	v, errno := g.Resolver.Resolve(ctx, p.Root, p.Cwd, path, vfs.OSearch|extraFlags, 0)
	if errno != kernelerr.OK {
		return vfs.StatInfo{}, g.reportErrno(pid, errno)
	}
	return v.Inode.Stat(), kernelerr.OK
}

func (g *Gate) Fstat(pid int32, fd int) (vfs.StatInfo, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return vfs.StatInfo{}, g.reportErrno(pid, errno)
	}
	d, errno := p.Fd(fd)
	if errno != kernelerr.OK {
		return vfs.StatInfo{}, g.reportErrno(pid, errno)
	}
	return d.Vnode.Inode.Stat(), kernelerr.OK
}

// dirAndName opens path's containing directory as a descriptor, for the
// Mkdir/Unlink/Rmdir/Symlink/Link/Rename family, which all operate on a
// resolved directory plus a single trailing component.
func (g *Gate) dirAndName(p *process.Process, ctx *vfs.IOCtx, path string) (*vfs.Descriptor, string, kernelerr.Errno) {
	return g.Resolver.OpenDirContainingPath(ctx, p.Root, p.Cwd, path)
}

func (g *Gate) Mkdir(pid int32, self kthread.TID, path string, mode uint32) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	dir, name, errno := g.dirAndName(p, g.ioctx(p, self), path)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	defer dir.Close()
	return g.reportErrno(pid, g.Resolver.Mkdir(dir, name, mode))
}

func (g *Gate) Unlink(pid int32, self kthread.TID, path string) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	dir, name, errno := g.dirAndName(p, g.ioctx(p, self), path)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	defer dir.Close()
	return g.reportErrno(pid, g.Resolver.Unlink(dir, name))
}

func (g *Gate) Rmdir(pid int32, self kthread.TID, path string) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	dir, name, errno := g.dirAndName(p, g.ioctx(p, self), path)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	defer dir.Close()
	return g.reportErrno(pid, g.Resolver.Rmdir(dir, name))
}

func (g *Gate) Symlink(pid int32, self kthread.TID, target, path string) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	dir, name, errno := g.dirAndName(p, g.ioctx(p, self), path)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	defer dir.Close()
	return g.reportErrno(pid, g.Resolver.Symlink(dir, name, target))
}

func (g *Gate) Link(pid int32, self kthread.TID, oldPath, newPath string) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	ctx := g.ioctx(p, self)
	target, errno := g.Resolver.Resolve(ctx, p.Root, p.Cwd, oldPath, vfs.ONofollow, 0)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	dir, name, errno := g.dirAndName(p, ctx, newPath)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	defer dir.Close()
	return g.reportErrno(pid, g.Resolver.Link(dir, name, target.Inode))
}

func (g *Gate) Rename(pid int32, self kthread.TID, oldPath, newPath string) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	ctx := g.ioctx(p, self)
	oldDir, oldName, errno := g.dirAndName(p, ctx, oldPath)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	defer oldDir.Close()
	newDir, newName, errno := g.dirAndName(p, ctx, newPath)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	defer newDir.Close()
	return g.reportErrno(pid, g.Resolver.RenameHere(newDir, oldDir, oldName, newName))
}

func (g *Gate) Chmod(pid int32, fd int, mode uint32) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	d, errno := p.Fd(fd)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	c, ok := d.Vnode.Inode.Backend.(vfs.Chmoder)
	if !ok {
		return g.reportErrno(pid, kernelerr.ENOSYS)
	}
	return g.reportErrno(pid, c.Chmod(mode))
}

func (g *Gate) Chown(pid int32, fd int, uid, gid uint32) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	d, errno := p.Fd(fd)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	c, ok := d.Vnode.Inode.Backend.(vfs.Chowner)
	if !ok {
		return g.reportErrno(pid, kernelerr.ENOSYS)
	}
	return g.reportErrno(pid, c.Chown(uid, gid))
}

func (g *Gate) Utimens(pid int32, fd int, atime, mtime time.Time) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	d, errno := p.Fd(fd)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	u, ok := d.Vnode.Inode.Backend.(vfs.Utimenser)
	if !ok {
		return g.reportErrno(pid, kernelerr.ENOSYS)
	}
	return g.reportErrno(pid, u.Utimens(atime, mtime))
}

func (g *Gate) Truncate(pid int32, self kthread.TID, path string, length int64) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	v, errno := g.Resolver.Resolve(g.ioctx(p, self), p.Root, p.Cwd, path, 0, 0)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	d := vfs.NewDescriptor(v, vfs.ORdwr)
	defer d.Close()
	return g.reportErrno(pid, d.Truncate(length))
}

func (g *Gate) Ftruncate(pid int32, fd int, length int64) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	d, errno := p.Fd(fd)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	return g.reportErrno(pid, d.Truncate(length))
}

// Pipe creates a connected read/write descriptor pair and installs both
// at the lowest free fds, per spec.md §4.5's capacity-bounded pipe.
func (g *Gate) Pipe(pid int32, capacity int) ([2]int, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return [2]int{}, g.reportErrno(pid, errno)
	}
	pp := pipe.New(capacity)
	readInode := vfs.NewInode(0, 0, vfs.TypeFifo, pipe.ReadEnd{P: pp})
	writeInode := vfs.NewInode(0, 0, vfs.TypeFifo, pipe.WriteEnd{P: pp})
	readFd := p.AddFd(vfs.NewDescriptor(vfs.NewVnode(readInode), vfs.ORdonly), false)
	writeFd := p.AddFd(vfs.NewDescriptor(vfs.NewVnode(writeInode), vfs.OWronly), false)
	// The descriptors now hold the only references, so closing the last
	// one on an end flushes (retires) that end.
	readInode.Unref()
	writeInode.Unref()
	return [2]int{readFd, writeFd}, kernelerr.OK
}

// Poll reports the readiness bitmask for each of the given fds.
func (g *Gate) Poll(pid int32, fds []int) ([]uint32, kernelerr.Errno) {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return nil, g.reportErrno(pid, errno)
	}
	out := make([]uint32, len(fds))
	for i, fd := range fds {
		d, errno := p.Fd(fd)
		if errno != kernelerr.OK {
			return nil, g.reportErrno(pid, errno)
		}
		out[i] = d.Poll()
	}
	return out, kernelerr.OK
}

// pollStep is how long Ppoll sleeps between readiness checks while
// waiting for one of fds to satisfy its requested events; there is no
// interrupt-driven readiness callback wired from backends into the
// syscall gate, so Ppoll approximates blocking poll(2) by repeatedly
// re-checking Poll() against a nanosleep-paced clock wait, the same
// wait-then-recheck shape spec.md's blocking-I/O primitives use
// elsewhere.
const pollStep = time.Millisecond

// Ppoll blocks self until any fd in fds has one of its requested
// events set, or duration elapses (negative duration blocks forever,
// per poll(2)'s -1 timeout convention).
func (g *Gate) Ppoll(pid int32, self kthread.TID, fds []int, events []uint32, duration time.Duration) ([]uint32, kernelerr.Errno) {
	if len(fds) != len(events) {
		return nil, g.reportErrno(pid, kernelerr.EINVAL)
	}
	deadline := duration
	for {
		out, errno := g.Poll(pid, fds)
		if errno != kernelerr.OK {
			return nil, errno
		}
		for i, mask := range out {
			if mask&events[i] != 0 {
				return out, kernelerr.OK
			}
		}
		if duration >= 0 {
			if deadline <= 0 {
				return out, kernelerr.OK
			}
			deadline -= pollStep
		}
		if _, errno := g.Nanosleep(pid, self, clock.Monotonic, pollStep); errno != kernelerr.OK {
			return nil, errno
		}
	}
}

// Chroot replaces pid's root descriptor, closing the old one.
func (g *Gate) Chroot(pid int32, self kthread.TID, path string) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	v, errno := g.Resolver.Resolve(g.ioctx(p, self), p.Root, p.Cwd, path, vfs.OSearch|vfs.ODirectory, 0)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	old := p.Root
	p.Root = vfs.NewDescriptor(v, vfs.OSearch|vfs.ODirectory)
	if old != nil {
		old.Close()
	}
	return kernelerr.OK
}

// Mount and Unmount wire directly to the Tree's mount-graph operations;
// the filesystem driving rootDesc's backend is the caller's concern
// (a device-backed inode tree assembled by internal/device/fsprobe),
// this syscall only splices it into the namespace.
func (g *Gate) Mount(pid int32, self kthread.TID, pointPath string, rootVnode *vfs.Vnode, flags uint32) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	point, errno := g.Resolver.Resolve(g.ioctx(p, self), p.Root, p.Cwd, pointPath, vfs.OSearch|vfs.ODirectory, 0)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	return g.reportErrno(pid, g.Resolver.Tree.Mount(point, rootVnode, flags))
}

func (g *Gate) Unmount(pid int32, self kthread.TID, pointPath string, flags uint32) kernelerr.Errno {
	p, errno := g.process(pid)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	point, errno := g.Resolver.Resolve(g.ioctx(p, self), p.Root, p.Cwd, pointPath, vfs.OSearch|vfs.ODirectory, 0)
	if errno != kernelerr.OK {
		return g.reportErrno(pid, errno)
	}
	return g.reportErrno(pid, g.Resolver.Tree.Unmount(point, flags))
}
