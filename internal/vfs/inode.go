package vfs

import "sync/atomic"

// Inode is a reference-counted filesystem object shared across the
// kernel, per spec.md §3. It is born on filesystem mount or explicit
// create, and dies when its last reference drops and the backend's
// flush succeeds.
type Inode struct {
	refcount int32

	dev, ino uint64
	typ      NodeType
	Backend  Backend
}

// NewInode creates an inode with one reference already held, matching
// the convention that a constructor returns an owned handle.
func NewInode(dev, ino uint64, typ NodeType, backend Backend) *Inode {
	return &Inode{refcount: 1, dev: dev, ino: ino, typ: typ, Backend: backend}
}

// Ref increments the reference count and returns the inode, so callers
// can write `child := parent.Ref()`.
func (i *Inode) Ref() *Inode {
	atomic.AddInt32(&i.refcount, 1)
	return i
}

// Unref drops one reference. On the last reference, the backend is
// given a chance to flush (if it implements Flusher) before the inode
// is considered dead.
func (i *Inode) Unref() {
	if atomic.AddInt32(&i.refcount, -1) == 0 {
		if f, ok := i.Backend.(Flusher); ok {
			f.Flush()
		}
	}
}

// RefCount reports the current reference count, mainly for tests
// (testable property #4 relies on a descriptor's refcount being
// positive).
func (i *Inode) RefCount() int32 {
	return atomic.LoadInt32(&i.refcount)
}

// Dev and Ino identify the inode for stat purposes.
func (i *Inode) Dev() uint64 { return i.dev }
func (i *Inode) Ino() uint64 { return i.ino }

// Type reports the inode's filesystem object kind.
func (i *Inode) Type() NodeType { return i.typ }

// Stat reports the inode's current metadata, filling in dev/ino from the
// inode's own identity (the backend only needs to track the rest).
func (i *Inode) Stat() StatInfo {
	s := i.Backend.Stat()
	s.Dev, s.Ino = i.dev, i.ino
	return s
}

// seekable reports whether descriptors on this inode support lseek.
func (i *Inode) seekable() bool {
	if s, ok := i.Backend.(Seekable); ok {
		return s.Seekable()
	}
	_, readable := i.Backend.(Preader)
	_, writable := i.Backend.(Pwriter)
	return readable || writable
}
