package tty

import (
	"github.com/sortix-go/kernel/internal/kthread"
)

// Handle indirects to a TextBuffer so graphic-mode switches or
// resolution changes can Replace() the backing buffer while blocking
// new acquires until every current user has Released, per spec.md
// §4.8's TextBufferHandle description.
type Handle struct {
	mu       *kthread.Mutex
	drained  *kthread.Cond // signaled when users drops to 0
	released *kthread.Cond // broadcast when Replace finishes, for blocked Acquires to recheck
	current  TextBuffer
	users    int
	swapping bool
}

func NewHandle(initial TextBuffer) *Handle {
	return &Handle{
		mu:       kthread.NewMutex(kthread.Normal),
		drained:  kthread.NewCond(),
		released: kthread.NewCond(),
		current:  initial,
	}
}

// Acquire returns the current backing buffer and registers self as a
// user of it. Acquire blocks while a Replace is in progress so callers
// never observe a buffer mid-swap.
func (h *Handle) Acquire(self kthread.TID) TextBuffer {
	h.mu.Lock(self)
	for h.swapping {
		h.released.Wait(self, h.mu)
	}
	h.users++
	buf := h.current
	h.mu.Unlock(self)
	return buf
}

// Release drops self's use of the buffer last returned by Acquire.
func (h *Handle) Release(self kthread.TID) {
	h.mu.Lock(self)
	h.users--
	if h.users == 0 {
		h.drained.Broadcast()
	}
	h.mu.Unlock(self)
}

// Replace blocks until every current user has Released, then installs
// next as the backing buffer. New Acquires that arrive while Replace is
// waiting are blocked until the swap completes, preventing a racing
// Acquire from extending the drain indefinitely.
func (h *Handle) Replace(self kthread.TID, next TextBuffer) {
	h.mu.Lock(self)
	h.swapping = true
	for h.users > 0 {
		h.drained.Wait(self, h.mu)
	}
	h.current = next
	h.swapping = false
	h.mu.Unlock(self)
	h.released.Broadcast()
}
