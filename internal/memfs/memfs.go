// Package memfs is an in-memory filesystem backend for the VFS layer:
// directories, regular files, and symlinks held entirely in memory.
// Regular files still go through fcache/bcache rather than holding a
// flat []byte directly, the way go-fuse's fs.MemRegularFile holds one
// (fs/mem.go) — here the "disk" a file's fcache flushes to is itself
// just memory, grounded on the same idea a ramdisk block device would
// use.
package memfs

import (
	"sync"

	"github.com/sortix-go/kernel/internal/bcache"
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/vfs"
)

// BlockSize is the block granularity memfs files are cached at.
const BlockSize = 4096

// blockStore is the fcache.Backend for one memfs regular file: a sparse
// map of block-sized slices standing in for real disk blocks.
type blockStore struct {
	mu     sync.Mutex
	blocks map[int64][]byte
}

func newBlockStore() *blockStore {
	return &blockStore{blocks: make(map[int64][]byte)}
}

func (s *blockStore) Fetch(blockIndex int64, buf []byte) (int, kernelerr.Errno) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[blockIndex]
	if !ok {
		for i := range buf {
			buf[i] = 0
		}
		return len(buf), kernelerr.OK
	}
	n := copy(buf, b)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return len(buf), kernelerr.OK
}

func (s *blockStore) Flush(blockIndex int64, buf []byte) kernelerr.Errno {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	s.blocks[blockIndex] = cp
	return kernelerr.OK
}

// FS owns the shared block cache pool every memfs file's fcache draws
// from, and the dev number stamped on every inode it creates.
type FS struct {
	Dev  uint64
	pool *bcache.Pool

	inoLock sync.Mutex
	nextIno uint64
}

// New creates a memfs filesystem with its own block cache pool of
// blocksPerArea blocks, identified as dev for stat purposes.
func New(dev uint64, blocksPerArea int) *FS {
	return &FS{Dev: dev, pool: bcache.NewPool(BlockSize, blocksPerArea)}
}

func (fs *FS) allocIno() uint64 {
	fs.inoLock.Lock()
	defer fs.inoLock.Unlock()
	fs.nextIno++
	return fs.nextIno
}

// NewRoot creates the filesystem's root directory inode.
func (fs *FS) NewRoot(mode uint32) *vfs.Inode {
	d := fs.newDir(mode)
	ino := vfs.NewInode(fs.Dev, fs.allocIno(), vfs.TypeDir, d)
	d.self = ino
	d.parent = ino
	return ino
}
