// Package devrandom implements a /dev/random-equivalent pseudo-inode: a
// CSPRNG-backed read-only stream, guarded by a single mutex matching
// spec.md §5's "Random pool: random_mutex" shared-resource entry.
package devrandom

import (
	"crypto/rand"
	"sync"

	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/vfs"
)

// Device is the /dev/random backend: every read draws fresh bytes from
// crypto/rand, so there is no internal pool to exhaust or reseed.
type Device struct {
	mu sync.Mutex // random_mutex
}

// New creates a /dev/random device.
func New() *Device {
	return &Device{}
}

var _ = (vfs.Reader)((*Device)(nil))
var _ = (vfs.Seekable)((*Device)(nil))

func (d *Device) Stat() vfs.StatInfo {
	return vfs.StatInfo{Mode: 0o020444, Blksize: 1}
}

func (d *Device) Seekable() bool { return false }

// Read fills buf with CSPRNG output. random_mutex serializes concurrent
// readers the way the original's shared pool would, even though
// crypto/rand itself needs no external synchronization — kept so the
// device matches spec.md's documented shared-resource lock exactly.
func (d *Device) Read(ctx *vfs.IOCtx, buf []byte) (int, kernelerr.Errno) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := rand.Read(buf)
	if err != nil {
		return n, kernelerr.EIO
	}
	return n, kernelerr.OK
}
