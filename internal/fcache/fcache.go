// Package fcache implements the per-inode file cache: a sparse array of
// cached blocks backed by the shared block cache, per spec.md §3/§4.5.
package fcache

import (
	"sync"

	"github.com/sortix-go/kernel/internal/bcache"
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/numeric"
)

// Backend is the per-file backing store a FileCache fetches from and
// flushes to. It is intentionally minimal: block-granular read/write.
type Backend interface {
	// Fetch reads block blockIndex's content into buf, returning the
	// number of valid bytes (less than len(buf) at EOF).
	Fetch(blockIndex int64, buf []byte) (int, kernelerr.Errno)
	// Flush writes buf back as block blockIndex's content.
	Flush(blockIndex int64, buf []byte) kernelerr.Errno
}

// FileCache is a per-inode indexed array of cached blocks.
type FileCache struct {
	mu sync.Mutex // fcache_mutex

	pool      *bcache.Pool
	backend   Backend
	blockSize int64

	blocks       []*bcache.Block
	fileSize     int64
	fileWritten  int64 // highest byte actually populated by the backend
	modified     bool
	modifiedSize bool
}

// New creates a FileCache of the given initial size, backed by pool and
// backend.
func New(pool *bcache.Pool, backend Backend, blockSize int64, initialSize int64) *FileCache {
	fc := &FileCache{pool: pool, backend: backend, blockSize: blockSize, fileSize: initialSize, fileWritten: initialSize}
	fc.growBlocksLocked((initialSize+blockSize-1)/blockSize, true)
	return fc
}

// FlushBlock implements bcache.Owner: it is invoked by the block cache
// to write a dirty block back to this file's backend before reassigning
// the block elsewhere.
func (fc *FileCache) FlushBlock(blockIndex int64, data []byte) kernelerr.Errno {
	return fc.backend.Flush(blockIndex, data)
}

// FileSize returns the file's current logical size.
func (fc *FileCache) FileSize() int64 {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.fileSize
}

func (fc *FileCache) growBlocksLocked(want int64, exact bool) {
	if want <= int64(len(fc.blocks)) {
		return
	}
	newLen := want
	if !exact {
		doubled := int64(len(fc.blocks)) * 2
		if doubled > newLen {
			newLen = doubled
		}
	}
	grown := make([]*bcache.Block, newLen)
	copy(grown, fc.blocks)
	fc.blocks = grown
}

// blockAt returns the cached block for blockIndex, acquiring and
// populating it on miss. It never holds fc.mu while calling into the
// block cache, so that evicting a block belonging to a *different*
// FileCache (which calls that file's FlushBlock) never runs with this
// file's mu held — the forbidden ordering spec.md §4.5 calls out.
func (fc *FileCache) blockAt(idx int64) (*bcache.Block, kernelerr.Errno) {
	fc.mu.Lock()
	if idx < int64(len(fc.blocks)) && fc.blocks[idx] != nil {
		b := fc.blocks[idx]
		if b.BlockID() == idx {
			fc.mu.Unlock()
			fc.pool.MarkUsed(b)
			return b, kernelerr.OK
		}
		// The block cache reassigned this slot to a different index
		// under eviction pressure; our reference is stale and must be
		// treated as a miss, matching the invariant that blocks[i] != nil
		// implies blocks[i].BlockID() == i.
		fc.blocks[idx] = nil
	}
	haveData := idx*fc.blockSize < fc.fileWritten
	fc.mu.Unlock()

	b, errno := fc.pool.AcquireBlock(fc, idx)
	if errno != kernelerr.OK {
		return nil, errno
	}

	if haveData {
		n, errno2 := fc.backend.Fetch(idx, b.Data)
		if errno2 != kernelerr.OK {
			fc.pool.Release(b)
			return nil, errno2
		}
		for i := n; i < len(b.Data); i++ {
			b.Data[i] = 0
		}
	} else {
		for i := range b.Data {
			b.Data[i] = 0
		}
	}

	fc.mu.Lock()
	fc.growBlocksLocked(idx+1, false)
	if fc.blocks[idx] != nil {
		existing := fc.blocks[idx]
		fc.mu.Unlock()
		fc.pool.Release(b)
		fc.pool.MarkUsed(existing)
		return existing, kernelerr.OK
	}
	fc.blocks[idx] = b
	fc.mu.Unlock()
	fc.pool.MarkUsed(b)
	return b, kernelerr.OK
}

// Pread reads up to len(dst) bytes starting at off, returning the
// number of bytes copied (0 at EOF).
func (fc *FileCache) Pread(dst []byte, off int64) (int, kernelerr.Errno) {
	fc.mu.Lock()
	size := fc.fileSize
	fc.mu.Unlock()
	if off >= size {
		return 0, kernelerr.OK
	}
	if int64(len(dst)) > size-off {
		dst = dst[:size-off]
	}

	total := 0
	for total < len(dst) {
		pos := off + int64(total)
		idx := pos / fc.blockSize
		within := pos % fc.blockSize
		b, errno := fc.blockAt(idx)
		if errno != kernelerr.OK {
			if total > 0 {
				return total, kernelerr.OK
			}
			return 0, errno
		}
		n := copy(dst[total:], b.Data[within:])
		total += n
	}
	return total, kernelerr.OK
}

// Pwrite writes len(src) bytes starting at off, growing the file and
// zero-filling any gap as needed.
func (fc *FileCache) Pwrite(src []byte, off int64) (int, kernelerr.Errno) {
	if off < 0 {
		return 0, kernelerr.EINVAL
	}
	if numeric.AddOverflows(uint64(off), uint64(len(src))) {
		return 0, kernelerr.EOVERFLOW
	}

	total := 0
	for total < len(src) {
		pos := off + int64(total)
		idx := pos / fc.blockSize
		within := pos % fc.blockSize
		b, errno := fc.blockAt(idx)
		if errno != kernelerr.OK {
			if total > 0 {
				break
			}
			return 0, errno
		}
		n := copy(b.Data[within:], src[total:])
		fc.pool.MarkModified(b)
		total += n
	}

	end := off + int64(total)
	fc.mu.Lock()
	if end > fc.fileSize {
		fc.fileSize = end
	}
	if end > fc.fileWritten {
		fc.fileWritten = end
	}
	fc.modified = true
	fc.mu.Unlock()
	return total, kernelerr.OK
}

// ChangeSize resizes the cache's block array. exact disables the usual
// growth-by-doubling policy, used for an explicit truncate/ftruncate
// rather than organic append growth.
func (fc *FileCache) ChangeSize(newSize int64, exact bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	wantBlocks := (newSize + fc.blockSize - 1) / fc.blockSize
	if wantBlocks > int64(len(fc.blocks)) {
		fc.growBlocksLocked(wantBlocks, exact)
	}
}

// Truncate shrinks file_size, releases blocks past EOF back to the pool,
// and marks modified_size.
func (fc *FileCache) Truncate(newSize int64) kernelerr.Errno {
	if newSize < 0 {
		return kernelerr.EINVAL
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if newSize >= fc.fileSize {
		fc.fileSize = newSize
		if newSize > fc.fileWritten {
			fc.fileWritten = newSize
		}
		fc.modifiedSize = true
		return kernelerr.OK
	}
	keepBlocks := newSize / fc.blockSize
	if newSize%fc.blockSize != 0 {
		keepBlocks++
	}
	for i := keepBlocks; i < int64(len(fc.blocks)); i++ {
		if fc.blocks[i] != nil {
			fc.pool.Release(fc.blocks[i])
			fc.blocks[i] = nil
		}
	}
	fc.fileSize = newSize
	if fc.fileWritten > newSize {
		fc.fileWritten = newSize
	}
	fc.modifiedSize = true
	return kernelerr.OK
}

// Sync writes every dirty block back to the backend, succeeding only if
// every write succeeds.
func (fc *FileCache) Sync() kernelerr.Errno {
	fc.mu.Lock()
	blocks := append([]*bcache.Block(nil), fc.blocks...)
	fc.mu.Unlock()

	for i, b := range blocks {
		if b == nil || !b.Modified() {
			continue
		}
		if errno := fc.backend.Flush(int64(i), b.Data); errno != kernelerr.OK {
			return errno
		}
	}
	fc.mu.Lock()
	fc.modified = false
	fc.modifiedSize = false
	fc.mu.Unlock()
	return kernelerr.OK
}

// Destroy releases every block this cache owns back to the pool,
// unconditionally (on fcache destruction, all its blocks are forcibly
// released per the reference-counted-graph design note).
func (fc *FileCache) Destroy() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for i, b := range fc.blocks {
		if b != nil {
			fc.pool.Release(b)
			fc.blocks[i] = nil
		}
	}
}
