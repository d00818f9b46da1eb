package tty

import (
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/kthread"
	"github.com/sortix-go/kernel/internal/vfs"
)

// ttyTID is the bookkeeping identity line-discipline-internal locking
// (scancode injection from the keyboard driver, which has no Thread of
// its own) runs under, mirroring internal/pipe's bookkeepingTID. Each
// kthread.Mutex tracks ownership only against its own instance, so
// reusing the same sentinel value across packages is not a collision.
const ttyTID kthread.TID = ^kthread.TID(0)

// Termios is a termios-style line-discipline configuration: canonical
// (line-buffered) mode and echo, the two knobs spec.md names.
type Termios struct {
	Canon bool
	Echo  bool
}

// TTY is a termios-style line discipline sitting over a TextBuffer
// Handle on the output side and a Keyboard on the input side. Reads
// block (kthread.Mutex/Cond, the same blocking primitives
// internal/pipe uses) until a full line is available in canonical
// mode, or until any byte is available in raw mode.
type TTY struct {
	mu       *kthread.Mutex
	notEmpty *kthread.Cond

	termios Termios
	line    []rune // in-progress canonical-mode line, not yet pushed to ready
	ready   []rune // completed lines (canon) or raw bytes (non-canon), pending Read

	kb  *Keyboard
	buf *Handle
	pos Pos
}

var _ = (vfs.Reader)((*TTY)(nil))
var _ = (vfs.Writer)((*TTY)(nil))
var _ = (vfs.Seekable)((*TTY)(nil))

func New(buf *Handle, kb *Keyboard) *TTY {
	return &TTY{
		mu:       kthread.NewMutex(kthread.Normal),
		notEmpty: kthread.NewCond(),
		termios:  Termios{Canon: true, Echo: true},
		kb:       kb,
		buf:      buf,
	}
}

// SetTermios replaces the line-discipline configuration.
func (t *TTY) SetTermios(cfg Termios) {
	t.mu.Lock(ttyTID)
	defer t.mu.Unlock(ttyTID)
	t.termios = cfg
}

// InjectScancode feeds one keyboard scancode through the line
// discipline: translated via the Keyboard layout, buffered per Canon,
// echoed to the TextBuffer if Echo is set.
func (t *TTY) InjectScancode(scancode byte) {
	r := t.kb.Translate(scancode)
	t.mu.Lock(ttyTID)
	defer t.mu.Unlock(ttyTID)

	if t.termios.Echo {
		t.echoLocked(r)
	}

	if !t.termios.Canon {
		t.ready = append(t.ready, r)
		t.notEmpty.Broadcast()
		return
	}

	switch r {
	case '\b', 0x7f:
		if len(t.line) > 0 {
			t.line = t.line[:len(t.line)-1]
		}
	case '\n', '\r':
		t.line = append(t.line, '\n')
		t.ready = append(t.ready, t.line...)
		t.line = nil
		t.notEmpty.Broadcast()
	default:
		t.line = append(t.line, r)
	}
}

func (t *TTY) echoLocked(r rune) {
	handle := t.buf
	buf := handle.Acquire(ttyTID)
	defer handle.Release(ttyTID)

	switch r {
	case '\n', '\r':
		t.pos = Pos{X: 0, Y: t.pos.Y + 1}
	case '\b', 0x7f:
		if t.pos.X > 0 {
			t.pos.X--
			buf.SetChar(t.pos, TextChar{Codepoint: ' '})
		}
	default:
		buf.SetChar(t.pos, TextChar{Codepoint: r})
		t.pos.X++
	}
	if t.pos.X >= buf.Width() {
		t.pos = Pos{X: 0, Y: t.pos.Y + 1}
	}
	if t.pos.Y >= buf.Height() {
		buf.Scroll(1, TextChar{})
		t.pos.Y = buf.Height() - 1
	}
	buf.SetCursorPos(t.pos)
}

// Read blocks (honoring ctx.Nonblock / a pending signal) until input is
// available, then drains up to len(p) runes as bytes, one byte per
// rune's low 8 bits, matching a simple ASCII-oriented console.
func (t *TTY) Read(ctx *vfs.IOCtx, p []byte) (int, kernelerr.Errno) {
	t.mu.Lock(ctx.Self)
	defer t.mu.Unlock(ctx.Self)

	for len(t.ready) == 0 {
		if ctx.Nonblock {
			return 0, kernelerr.EAGAIN
		}
		if !t.notEmpty.WaitSignal(ctx.Self, t.mu) {
			return 0, kernelerr.EINTR
		}
	}

	n := copy(p, runesToBytes(t.ready))
	t.ready = t.ready[n:]
	return n, kernelerr.OK
}

// Write sends bytes straight to the backing TextBuffer, bypassing line
// discipline (output is never echo-gated).
func (t *TTY) Write(ctx *vfs.IOCtx, p []byte) (int, kernelerr.Errno) {
	t.mu.Lock(ctx.Self)
	defer t.mu.Unlock(ctx.Self)
	for _, b := range p {
		t.echoLocked(rune(b))
	}
	return len(p), kernelerr.OK
}

func (t *TTY) Stat() vfs.StatInfo {
	return vfs.StatInfo{Mode: 0o020600}
}

func (t *TTY) Seekable() bool { return false }

func runesToBytes(rs []rune) []byte {
	b := make([]byte, len(rs))
	for i, r := range rs {
		b[i] = byte(r)
	}
	return b
}
