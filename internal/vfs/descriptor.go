package vfs

import (
	"sync"
	"sync/atomic"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

// Descriptor is the per-opening kernel handle: a vnode plus open-time
// and table-entry flags plus, for seekable objects, a file offset
// guarded by its own lock. Matches spec.md §3's "Descriptor".
//
// A Descriptor is itself reference-counted, distinctly from its vnode's
// Inode: dup/dup2 and fork share one *Descriptor (and so one curoff)
// across multiple process descriptor-table slots, the way two file
// descriptors referring to the same open file description share an
// offset in POSIX.
type Descriptor struct {
	Vnode    *Vnode
	DFlags   int
	Seekable bool

	refcount int32

	curofflock sync.Mutex
	curoff     int64
}

// NewDescriptor opens a new descriptor over vnode with the given flags.
// The descriptor takes its own reference on the underlying inode.
func NewDescriptor(vnode *Vnode, flags int) *Descriptor {
	vnode.Inode.Ref()
	d := &Descriptor{Vnode: vnode, DFlags: flags, Seekable: vnode.Inode.seekable(), refcount: 1}
	if flags&OAppend != 0 && d.Seekable {
		d.curoff = vnode.Inode.Stat().Size
	}
	return d
}

// Acquire takes an additional reference on d, for a dup/dup2/fork that
// shares this open file description across another descriptor-table
// slot, and returns d for convenient assignment.
func (d *Descriptor) Acquire() *Descriptor {
	atomic.AddInt32(&d.refcount, 1)
	return d
}

// Close drops one reference; only the last reference closes the
// underlying inode.
func (d *Descriptor) Close() {
	if atomic.AddInt32(&d.refcount, -1) == 0 {
		d.Vnode.Inode.Unref()
	}
}

func accessAllows(flags int, write bool) bool {
	mode := flags & (ORdonly | OWronly | ORdwr)
	if write {
		return mode == OWronly || mode == ORdwr
	}
	return mode == ORdonly || mode == ORdwr
}

// Read reads into buf from the descriptor's current offset (seekable)
// or directly from the backend (streams), advancing curoff as needed.
func (d *Descriptor) Read(ctx *IOCtx, buf []byte) (int, kernelerr.Errno) {
	if !accessAllows(d.DFlags, false) {
		return 0, kernelerr.EBADF
	}
	b := d.Vnode.Inode.Backend
	if d.Seekable {
		pr, ok := b.(Preader)
		if !ok {
			return 0, kernelerr.EBADF
		}
		d.curofflock.Lock()
		off := d.curoff
		d.curofflock.Unlock()
		n, errno := pr.Pread(ctx, buf, off)
		if errno == kernelerr.OK {
			d.curofflock.Lock()
			d.curoff += int64(n)
			d.curofflock.Unlock()
		}
		return n, errno
	}
	r, ok := b.(Reader)
	if !ok {
		return 0, kernelerr.EBADF
	}
	ctx.Nonblock = d.DFlags&ONonblock != 0
	return r.Read(ctx, buf)
}

// Write writes buf, honoring O_APPEND by forcing a seek-to-end under
// curofflock before every write, per spec.md §4.4.
func (d *Descriptor) Write(ctx *IOCtx, buf []byte) (int, kernelerr.Errno) {
	if !accessAllows(d.DFlags, true) {
		return 0, kernelerr.EBADF
	}
	b := d.Vnode.Inode.Backend
	if d.Seekable {
		pw, ok := b.(Pwriter)
		if !ok {
			return 0, kernelerr.EBADF
		}
		d.curofflock.Lock()
		if d.DFlags&OAppend != 0 {
			d.curoff = d.Vnode.Inode.Stat().Size
		}
		off := d.curoff
		d.curofflock.Unlock()
		n, errno := pw.Pwrite(ctx, buf, off)
		if errno == kernelerr.OK {
			d.curofflock.Lock()
			d.curoff = off + int64(n)
			d.curofflock.Unlock()
		}
		return n, errno
	}
	w, ok := b.(Writer)
	if !ok {
		return 0, kernelerr.EBADF
	}
	ctx.Nonblock = d.DFlags&ONonblock != 0
	return w.Write(ctx, buf)
}

// Pread/Pwrite bypass curoff entirely; only seekable descriptors support
// them.
func (d *Descriptor) Pread(ctx *IOCtx, buf []byte, off int64) (int, kernelerr.Errno) {
	if !d.Seekable {
		return 0, kernelerr.ESPIPE
	}
	if !accessAllows(d.DFlags, false) {
		return 0, kernelerr.EBADF
	}
	pr, ok := d.Vnode.Inode.Backend.(Preader)
	if !ok {
		return 0, kernelerr.EBADF
	}
	return pr.Pread(ctx, buf, off)
}

func (d *Descriptor) Pwrite(ctx *IOCtx, buf []byte, off int64) (int, kernelerr.Errno) {
	if !d.Seekable {
		return 0, kernelerr.ESPIPE
	}
	if !accessAllows(d.DFlags, true) {
		return 0, kernelerr.EBADF
	}
	pw, ok := d.Vnode.Inode.Backend.(Pwriter)
	if !ok {
		return 0, kernelerr.EBADF
	}
	return pw.Pwrite(ctx, buf, off)
}

// Lseek repositions curoff. Only valid on seekable descriptors.
func (d *Descriptor) Lseek(offset int64, whence int) (int64, kernelerr.Errno) {
	if !d.Seekable {
		return 0, kernelerr.ESPIPE
	}
	d.curofflock.Lock()
	defer d.curofflock.Unlock()
	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = d.curoff
	case SeekEnd:
		base = d.Vnode.Inode.Stat().Size
	default:
		return 0, kernelerr.EINVAL
	}
	newOff := base + offset
	if newOff < 0 {
		return 0, kernelerr.EINVAL
	}
	d.curoff = newOff
	return newOff, kernelerr.OK
}

// Truncate implements ftruncate/truncate(length): EPERM if length !=
// current size for objects with no Truncater, otherwise delegates,
// which may itself extend with zeroes (regular files).
func (d *Descriptor) Truncate(length int64) kernelerr.Errno {
	t, ok := d.Vnode.Inode.Backend.(Truncater)
	if !ok {
		if length == d.Vnode.Inode.Stat().Size {
			return kernelerr.OK
		}
		return kernelerr.EPERM
	}
	return t.Truncate(length)
}

// Readdirents fills entries starting after cookie.
func (d *Descriptor) Readdirents(cookie int64, max int) ([]DirEntry, int64, kernelerr.Errno) {
	rd, ok := d.Vnode.Inode.Backend.(Readdirenter)
	if !ok {
		return nil, 0, kernelerr.ENOTDIR
	}
	return rd.Readdirents(cookie, max)
}

// Poll returns the backend's readiness bitmask, or 0 if unsupported.
func (d *Descriptor) Poll() uint32 {
	if p, ok := d.Vnode.Inode.Backend.(Poller); ok {
		return p.Poll()
	}
	return 0
}
