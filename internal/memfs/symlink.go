package memfs

import (
	"sync"
	"time"

	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/vfs"
)

// symlink is a memfs symbolic link: an immutable target string plus the
// mutable metadata every inode carries, grounded on go-fuse's
// MemSymlink (fs/mem.go) which likewise just holds its target in memory.
type symlink struct {
	target string

	mu                  sync.Mutex
	uid, gid            uint32
	atime, mtime, ctime time.Time
}

func (fs *FS) newSymlink(target string) *symlink {
	now := time.Now()
	return &symlink{target: target, atime: now, mtime: now, ctime: now}
}

var _ = (vfs.Readlinker)((*symlink)(nil))
var _ = (vfs.Chowner)((*symlink)(nil))
var _ = (vfs.Utimenser)((*symlink)(nil))

func (s *symlink) Stat() vfs.StatInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return vfs.StatInfo{
		Mode: 0o120777, Uid: s.uid, Gid: s.gid,
		Size:  int64(len(s.target)),
		Atime: s.atime, Mtime: s.mtime, Ctime: s.ctime,
	}
}

func (s *symlink) Readlink() (string, kernelerr.Errno) {
	return s.target, kernelerr.OK
}

func (s *symlink) Chown(uid, gid uint32) kernelerr.Errno {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid, s.gid = uid, gid
	s.ctime = time.Now()
	return kernelerr.OK
}

func (s *symlink) Utimens(atime, mtime time.Time) kernelerr.Errno {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.atime, s.mtime = atime, mtime
	return kernelerr.OK
}
