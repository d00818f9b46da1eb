// Package interrupt implements the kernel's interrupt router: at most one
// handler per vector, run with interrupts conceptually disabled (handlers
// must not block), plus the ScheduleWork bottom-half mechanism that
// defers longer work onto a dedicated worker thread. Grounded on
// kernel/include/sortix/kernel/interrupt.h and spec.md §4.3.
package interrupt

import (
	"sync"

	"github.com/sortix-go/kernel/internal/worker"
)

// Handler is a top-half interrupt handler. It must not block.
type Handler func(vector int, user interface{})

// Router dispatches CPU exceptions and IRQs to registered handlers and
// defers bottom-half work onto a dedicated worker pool so handlers
// themselves never call anything that may suspend.
type Router struct {
	mu       sync.Mutex
	handlers map[int]registration
	bottom   *worker.Pool
}

type registration struct {
	fn   Handler
	user interface{}
}

// NewRouter creates a router whose bottom-half jobs are drained by a
// ring-buffered worker pool of the given capacity and worker count.
func NewRouter(ringCapacity, numWorkers int) *Router {
	return &Router{
		handlers: make(map[int]registration),
		bottom:   worker.NewPool(ringCapacity, numWorkers),
	}
}

// RegisterHandler installs fn as the sole handler for vector index. A
// second registration for the same index replaces the first, matching
// "at most one handler per vector".
func (r *Router) RegisterHandler(index int, fn Handler, user interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[index] = registration{fn: fn, user: user}
}

// Dispatch invokes the handler registered for vector, if any. Dispatch
// itself never blocks; that obligation is on the handler.
func (r *Router) Dispatch(vector int) {
	r.mu.Lock()
	reg, ok := r.handlers[vector]
	r.mu.Unlock()
	if ok {
		reg.fn(vector, reg.user)
	}
}

// ScheduleWork defers payload to run on the bottom-half worker thread.
// It must never block the calling interrupt handler: it fails (returns
// false) if the ring is full rather than waiting for space.
func (r *Router) ScheduleWork(handler func(payload interface{}), payload interface{}) bool {
	return r.bottom.TryScheduleWork(func() { handler(payload) })
}

// Shutdown stops the bottom-half worker pool.
func (r *Router) Shutdown() {
	r.bottom.Shutdown()
}
