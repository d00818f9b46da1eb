package vfs

import "github.com/sortix-go/kernel/internal/kthread"

// Kind distinguishes a kernel-internal ioctx from one that crosses the
// user/kernel boundary. Go slices already carry their own bounds, so
// both kinds copy identically here. Backends use Kind to decide whether
// permission checks apply (memfs checks only UserCtx calls), and callers
// (and tests) can assert which path a given operation took, mirroring
// the copy_to_dest/copy_from_src split in spec.md's ioctx.
type Kind int

const (
	KernelCtx Kind = iota
	UserCtx
)

// IOCtx is the per-call context every descriptor operation takes,
// carrying the caller's identity, the calling thread (so a blocking
// backend such as a pipe can wait on its kthread.Cond with EINTR
// support), and the copy primitives spec.md requires
// (copy_to_dest/copy_from_src).
type IOCtx struct {
	Kind     Kind
	Self     kthread.TID
	Nonblock bool
	Uid      uint32
	Gid      uint32
	Euid     uint32
	Egid     uint32
}

// CopyToDest copies src into dest, as the kernel's copy_to_dest would
// when writing into caller-supplied memory, returning the number of
// bytes copied.
func (c *IOCtx) CopyToDest(dest, src []byte) int {
	return copy(dest, src)
}

// CopyFromSrc copies src into dest, as the kernel's copy_from_src would
// when reading caller-supplied memory.
func (c *IOCtx) CopyFromSrc(dest, src []byte) int {
	return copy(dest, src)
}

// KernelIOCtx returns a context for kernel-internal calls (no user
// memory crossing involved).
func KernelIOCtx() *IOCtx {
	return &IOCtx{Kind: KernelCtx}
}
