package vfs

import (
	"time"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

// Backend is the minimal virtual-method set every inode's filesystem
// object must implement. Every other operation is an optional capability
// interface; an Inode whose Backend does not implement one reacts with a
// fixed default, matching go-fuse's InodeEmbedder convention (fs/api.go).
type Backend interface {
	Stat() StatInfo
}

// Reader/Writer back unseekable streams (pipes, ttys); Preader/Pwriter
// back seekable regular files. A backend may implement either or both
// pairs.
type Reader interface {
	Read(ctx *IOCtx, buf []byte) (int, kernelerr.Errno)
}

type Writer interface {
	Write(ctx *IOCtx, buf []byte) (int, kernelerr.Errno)
}

type Preader interface {
	Pread(ctx *IOCtx, buf []byte, off int64) (int, kernelerr.Errno)
}

type Pwriter interface {
	Pwrite(ctx *IOCtx, buf []byte, off int64) (int, kernelerr.Errno)
}

type Truncater interface {
	Truncate(length int64) kernelerr.Errno
}

// DirOpener opens (and optionally creates) a named child of a directory
// backend, the Inode-level equivalent of dir.open(component, flags).
type DirOpener interface {
	OpenChild(ctx *IOCtx, name string, flags int, mode uint32) (*Inode, kernelerr.Errno)
}

type Mkdirer interface {
	Mkdir(name string, mode uint32) (*Inode, kernelerr.Errno)
}

type Linker interface {
	Link(name string, target *Inode) kernelerr.Errno
}

type Unlinker interface {
	Unlink(name string) kernelerr.Errno
}

type Rmdirer interface {
	Rmdir(name string) kernelerr.Errno
}

type Symlinker interface {
	Symlink(name, target string) (*Inode, kernelerr.Errno)
}

type Readlinker interface {
	Readlink() (string, kernelerr.Errno)
}

// Renamer implements rename_here: the receiver is the destination
// directory; oldDir is the source directory's backend.
type Renamer interface {
	RenameHere(oldDir Backend, oldName, newName string) kernelerr.Errno
}

type Readdirenter interface {
	// Readdirents fills entries starting after cookie, returning the
	// entries read and a cookie to resume from (0 at end).
	Readdirents(cookie int64, max int) (entries []DirEntry, next int64, errno kernelerr.Errno)
}

type Chmoder interface {
	Chmod(mode uint32) kernelerr.Errno
}

type Chowner interface {
	Chown(uid, gid uint32) kernelerr.Errno
}

type Utimenser interface {
	Utimens(atime, mtime time.Time) kernelerr.Errno
}

type Poller interface {
	Poll() uint32
}

// Flusher is invoked once, when an inode's last reference drops, to give
// the backend a chance to flush before the inode dies.
type Flusher interface {
	Flush() kernelerr.Errno
}

// Seekable reports whether a backend supports random access at all
// (regular files do; pipes/ttys/sockets do not). Backends implementing
// Preader/Pwriter are implicitly seekable; this interface lets a backend
// override that default (e.g. a Preader-shaped backend that still wants
// ESPIPE, which does not arise among the backends in this package but is
// kept open for device-style nodes).
type Seekable interface {
	Seekable() bool
}
