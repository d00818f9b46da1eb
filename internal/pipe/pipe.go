// Package pipe implements anonymous pipes over a fixed-size ring buffer,
// using kthread's mutex/condvar primitives for blocking reads and
// writes, per spec.md §4.4's "Blocking. read on a pipe/tty with no data
// blocks unless O_NONBLOCK; same for write when full" and testable
// property S1.
package pipe

import (
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/kthread"
	"github.com/sortix-go/kernel/internal/vfs"
)

// DefaultCapacity is the ring buffer size used when none is requested,
// matching a typical pipe buffer.
const DefaultCapacity = 65536

// bookkeepingTID locks p.mu for end-of-life and poll accounting that has
// no calling thread of its own. TID zero means "unlocked" in kthread, so
// this must be a distinct, reserved nonzero value.
const bookkeepingTID kthread.TID = ^kthread.TID(0)

// Pipe is the shared ring buffer between a pipe's read and write ends.
type Pipe struct {
	mu                *kthread.Mutex
	notEmpty, notFull *kthread.Cond

	buf         []byte
	head, count int
	readers     int
	writers     int
}

// New creates a pipe with one reader and one writer reference already
// held (the two ends returned by the pipe() syscall); capacity <= 0
// selects DefaultCapacity.
func New(capacity int) *Pipe {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pipe{
		mu:        kthread.NewMutex(kthread.Normal),
		notEmpty:  kthread.NewCond(),
		notFull:   kthread.NewCond(),
		buf:       make([]byte, capacity),
		readers:   1,
		writers:   1,
	}
}

// ReadEnd is the Backend installed on a pipe's read-side Inode.
type ReadEnd struct{ P *Pipe }

// WriteEnd is the Backend installed on a pipe's write-side Inode.
type WriteEnd struct{ P *Pipe }

func (ReadEnd) Seekable() bool  { return false }
func (WriteEnd) Seekable() bool { return false }

func (r ReadEnd) Stat() vfs.StatInfo  { return vfs.StatInfo{Mode: 0600} }
func (w WriteEnd) Stat() vfs.StatInfo { return vfs.StatInfo{Mode: 0600} }

// Flush on the last reference drop retires this end, per Inode's
// "dies when last reference drops" lifecycle.
func (r ReadEnd) Flush() kernelerr.Errno {
	r.P.closeRead()
	return kernelerr.OK
}

func (w WriteEnd) Flush() kernelerr.Errno {
	w.P.closeWrite()
	return kernelerr.OK
}

func (r ReadEnd) Read(ctx *vfs.IOCtx, dst []byte) (int, kernelerr.Errno) {
	return r.P.read(ctx, dst)
}

func (w WriteEnd) Write(ctx *vfs.IOCtx, src []byte) (int, kernelerr.Errno) {
	return w.P.write(ctx, src)
}

func (r ReadEnd) Poll() uint32  { return r.P.pollReader() }
func (w WriteEnd) Poll() uint32 { return w.P.pollWriter() }

func (p *Pipe) closeRead() {
	self := bookkeepingTID
	unlock := p.mu.Guard(self)
	defer unlock()
	p.readers--
	if p.readers == 0 {
		p.notFull.Broadcast()
	}
}

func (p *Pipe) closeWrite() {
	self := bookkeepingTID
	unlock := p.mu.Guard(self)
	defer unlock()
	p.writers--
	if p.writers == 0 {
		p.notEmpty.Broadcast()
	}
}

func (p *Pipe) pollReader() uint32 {
	self := bookkeepingTID
	unlock := p.mu.Guard(self)
	defer unlock()
	var bits uint32
	if p.count > 0 || p.writers == 0 {
		bits |= vfs.PollIn
	}
	if p.writers == 0 {
		bits |= vfs.PollHup
	}
	return bits
}

func (p *Pipe) pollWriter() uint32 {
	self := bookkeepingTID
	unlock := p.mu.Guard(self)
	defer unlock()
	var bits uint32
	if p.count < len(p.buf) || p.readers == 0 {
		bits |= vfs.PollOut
	}
	if p.readers == 0 {
		bits |= vfs.PollErr
	}
	return bits
}

// read copies up to len(dst) already-available bytes, blocking until at
// least one byte is available or the write end is fully closed (EOF,
// returning 0), per S1: "close write end; next read ⇒ returns 0".
func (p *Pipe) read(ctx *vfs.IOCtx, dst []byte) (int, kernelerr.Errno) {
	self := ctx.Self
	p.mu.Lock(self)
	defer p.mu.Unlock(self)

	for p.count == 0 && p.writers > 0 {
		if ctx.Nonblock {
			return 0, kernelerr.EAGAIN
		}
		if !p.notEmpty.WaitSignal(self, p.mu) {
			return 0, kernelerr.EINTR
		}
	}
	if p.count == 0 {
		return 0, kernelerr.OK // writers == 0: EOF
	}

	n := copy(dst, p.peek())
	p.head = (p.head + n) % len(p.buf)
	p.count -= n
	p.notFull.Broadcast()
	return n, kernelerr.OK
}

// write appends up to len(src) bytes, blocking while the buffer is full
// and at least one reader remains; with no readers left it fails
// EPIPE, matching the PIPE signal's terminate-by-default disposition in
// spec.md's signal table (callers are expected to also raise SIGPIPE).
func (p *Pipe) write(ctx *vfs.IOCtx, src []byte) (int, kernelerr.Errno) {
	self := ctx.Self
	p.mu.Lock(self)
	defer p.mu.Unlock(self)

	if p.readers == 0 {
		return 0, kernelerr.EPIPE
	}

	total := 0
	for total < len(src) {
		for p.count == len(p.buf) && p.readers > 0 {
			if ctx.Nonblock {
				if total > 0 {
					return total, kernelerr.OK
				}
				return 0, kernelerr.EAGAIN
			}
			if !p.notFull.WaitSignal(self, p.mu) {
				if total > 0 {
					return total, kernelerr.OK
				}
				return 0, kernelerr.EINTR
			}
		}
		if p.readers == 0 {
			if total > 0 {
				return total, kernelerr.OK
			}
			return 0, kernelerr.EPIPE
		}
		n := p.push(src[total:])
		total += n
		p.notEmpty.Broadcast()
	}
	return total, kernelerr.OK
}

// peek returns a view of the readable bytes starting at head, without
// wrapping past the buffer's end (the caller's copy() naturally leaves
// any remaining wrapped bytes for the next read).
func (p *Pipe) peek() []byte {
	n := p.count
	if p.head+n > len(p.buf) {
		n = len(p.buf) - p.head
	}
	return p.buf[p.head : p.head+n]
}

// push writes as many bytes of src as fit before wrapping or filling,
// returning the count written.
func (p *Pipe) push(src []byte) int {
	tail := (p.head + p.count) % len(p.buf)
	space := len(p.buf) - p.count
	if space > len(src) {
		space = len(src)
	}
	first := len(p.buf) - tail
	if first > space {
		first = space
	}
	copy(p.buf[tail:tail+first], src[:first])
	copy(p.buf[:space-first], src[first:space])
	p.count += space
	return space
}

