package memfs

import (
	"sync"
	"time"

	"github.com/sortix-go/kernel/internal/fcache"
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/vfs"
)

// file is a memfs regular file: its data lives entirely in its fcache,
// which in turn flushes to an in-memory blockStore.
type file struct {
	fc *fcache.FileCache

	mu                   sync.Mutex
	mode                 uint32
	uid, gid             uint32
	atime, mtime, ctime  time.Time
}

func (fs *FS) newFile(mode uint32) *file {
	store := newBlockStore()
	f := &file{mode: mode}
	f.fc = fcache.New(fs.pool, store, BlockSize, 0)
	now := time.Now()
	f.atime, f.mtime, f.ctime = now, now, now
	return f
}

var _ = (vfs.Preader)((*file)(nil))
var _ = (vfs.Pwriter)((*file)(nil))
var _ = (vfs.Truncater)((*file)(nil))
var _ = (vfs.Flusher)((*file)(nil))
var _ = (vfs.Seekable)((*file)(nil))
var _ = (vfs.Chmoder)((*file)(nil))
var _ = (vfs.Chowner)((*file)(nil))
var _ = (vfs.Utimenser)((*file)(nil))

func (f *file) Seekable() bool { return true }

func (f *file) Stat() vfs.StatInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return vfs.StatInfo{
		Mode: f.mode, Uid: f.uid, Gid: f.gid,
		Size:   f.fc.FileSize(),
		Atime:  f.atime, Mtime: f.mtime, Ctime: f.ctime,
		Blksize: BlockSize,
	}
}

func (f *file) Pread(ctx *vfs.IOCtx, buf []byte, off int64) (int, kernelerr.Errno) {
	if !f.checkAccess(ctx, vfs.AccessRead) {
		return 0, kernelerr.EACCES
	}
	return f.fc.Pread(buf, off)
}

// checkAccess enforces mask against f's owner/mode for calls that cross
// the user/kernel boundary; kernel-internal callers (KernelIOCtx) bypass
// it, matching vfs.IOCtx.Kind's own purpose.
func (f *file) checkAccess(ctx *vfs.IOCtx, mask uint32) bool {
	if ctx.Kind != vfs.UserCtx {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return vfs.HasAccess(ctx.Euid, ctx.Egid, f.uid, f.gid, f.mode, mask)
}

func (f *file) Pwrite(ctx *vfs.IOCtx, buf []byte, off int64) (int, kernelerr.Errno) {
	if !f.checkAccess(ctx, vfs.AccessWrite) {
		return 0, kernelerr.EACCES
	}
	n, errno := f.fc.Pwrite(buf, off)
	if errno == kernelerr.OK && n > 0 {
		f.mu.Lock()
		f.mtime = time.Now()
		f.mu.Unlock()
	}
	return n, errno
}

func (f *file) Truncate(length int64) kernelerr.Errno {
	return f.fc.Truncate(length)
}

func (f *file) Chmod(mode uint32) kernelerr.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = (f.mode &^ 0o7777) | (mode & 0o7777)
	f.ctime = time.Now()
	return kernelerr.OK
}

func (f *file) Chown(uid, gid uint32) kernelerr.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uid, f.gid = uid, gid
	f.ctime = time.Now()
	return kernelerr.OK
}

func (f *file) Utimens(atime, mtime time.Time) kernelerr.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.atime, f.mtime = atime, mtime
	return kernelerr.OK
}

func (f *file) Flush() kernelerr.Errno {
	return f.fc.Sync()
}
