package fcache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sortix-go/kernel/internal/bcache"
	"github.com/sortix-go/kernel/internal/kernelerr"
)

// memBackend is a Backend over a flat in-memory byte slice, tracking how
// many times each block index was fetched from "disk".
type memBackend struct {
	blockSize int64
	data      []byte
	fetches   map[int64]int
}

func newMemBackend(blockSize int64, size int64) *memBackend {
	return &memBackend{blockSize: blockSize, data: make([]byte, size), fetches: make(map[int64]int)}
}

func (m *memBackend) Fetch(blockIndex int64, buf []byte) (int, kernelerr.Errno) {
	m.fetches[blockIndex]++
	off := blockIndex * m.blockSize
	if off >= int64(len(m.data)) {
		return 0, kernelerr.OK
	}
	n := copy(buf, m.data[off:])
	return n, kernelerr.OK
}

func (m *memBackend) Flush(blockIndex int64, buf []byte) kernelerr.Errno {
	off := blockIndex * m.blockSize
	for int64(len(m.data)) < off+int64(len(buf)) {
		m.data = append(m.data, 0)
	}
	copy(m.data[off:], buf)
	return kernelerr.OK
}

// TestPwritePreadRoundTrip is property #3: pwrite followed by pread at
// the same offset returns the data verbatim.
func TestPwritePreadRoundTrip(t *testing.T) {
	pool := bcache.NewPool(16, 8)
	backend := newMemBackend(16, 0)
	fc := New(pool, backend, 16, 0)

	want := []byte("hello, sortix kernel")
	n, errno := fc.Pwrite(want, 5)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, len(want), n)

	got := make([]byte, len(want))
	n, errno = fc.Pread(got, 5)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, len(want), n)
	require.True(t, bytes.Equal(want, got))
}

// TestBlockEvictionRefetches is scenario S5 at the FileCache level: with
// a 4-slot pool, reading blocks 0-4 in sequence evicts block 0's cache
// entry, so reading block 0 again must hit the backend a second time.
func TestBlockEvictionRefetches(t *testing.T) {
	const blockSize = 8
	pool := bcache.NewPool(blockSize, 4)
	backend := newMemBackend(blockSize, 5*blockSize)
	for i := range backend.data {
		backend.data[i] = byte(i)
	}
	fc := New(pool, backend, blockSize, int64(len(backend.data)))

	buf := make([]byte, blockSize)
	for i := int64(0); i < 5; i++ {
		_, errno := fc.Pread(buf, i*blockSize)
		require.Equal(t, kernelerr.OK, errno)
	}
	require.Equal(t, 1, backend.fetches[0], "first read of block 0 fetches once")

	_, errno := fc.Pread(buf, 0)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, 2, backend.fetches[0], "block 0 was evicted by the 5th read and must be refetched")
}

func TestTruncateShrinksFileSize(t *testing.T) {
	pool := bcache.NewPool(16, 4)
	backend := newMemBackend(16, 0)
	fc := New(pool, backend, 16, 0)

	_, errno := fc.Pwrite([]byte("0123456789"), 0)
	require.Equal(t, kernelerr.OK, errno)
	require.EqualValues(t, 10, fc.FileSize())

	require.Equal(t, kernelerr.OK, fc.Truncate(4))
	require.EqualValues(t, 4, fc.FileSize())
}
