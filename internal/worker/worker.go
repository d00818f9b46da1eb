// Package worker implements the kernel's single deferred-job queue,
// consumed by a small pool of kernel threads, grounded on
// kernel/worker.cpp and the ScheduleWork bottom-half mechanism described
// in spec.md §4.3.
package worker

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is a unit of deferred work. Bottom halves built from interrupt
// context must not block; jobs run on an ordinary kernel-thread
// goroutine and may.
type Job func()

// Pool is a fixed-capacity ring buffer of jobs guarded by a mutex/cond
// pair, drained by numWorkers goroutines standing in for kernel
// WorkerThreads.
type Pool struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	ring     []Job
	head     int
	size     int

	group   errgroup.Group
	closing bool
}

// NewPool creates a pool with the given ring capacity and worker count.
func NewPool(capacity, numWorkers int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	p := &Pool{ring: make([]Job, capacity)}
	p.notEmpty = sync.NewCond(&p.mu)
	p.notFull = sync.NewCond(&p.mu)
	for i := 0; i < numWorkers; i++ {
		p.group.Go(func() error {
			p.runWorker()
			return nil
		})
	}
	return p
}

func (p *Pool) runWorker() {
	for {
		p.mu.Lock()
		for p.size == 0 && !p.closing {
			p.notEmpty.Wait()
		}
		if p.size == 0 && p.closing {
			p.mu.Unlock()
			return
		}
		job := p.ring[p.head]
		p.ring[p.head] = nil
		p.head = (p.head + 1) % len(p.ring)
		p.size--
		p.notFull.Signal()
		p.mu.Unlock()

		job()
	}
}

// Schedule enqueues job, blocking while the ring is full; after
// Shutdown the job is dropped. This is
// Worker::Schedule, the interrupt-bottom-half-safe blocking variant used
// from ordinary (non-interrupt) kernel code.
func (p *Pool) Schedule(job Job) {
	p.mu.Lock()
	for p.size == len(p.ring) && !p.closing {
		p.notFull.Wait()
	}
	if !p.closing {
		p.enqueueLocked(job)
	}
	p.mu.Unlock()
}

// TryScheduleWork is the non-blocking variant used from interrupt
// context (Interrupt::ScheduleWork): it must never suspend the caller.
// Returns false if the ring is full.
func (p *Pool) TryScheduleWork(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.size == len(p.ring) || p.closing {
		return false
	}
	p.enqueueLocked(job)
	return true
}

func (p *Pool) enqueueLocked(job Job) {
	tail := (p.head + p.size) % len(p.ring)
	p.ring[tail] = job
	p.size++
	p.notEmpty.Signal()
}

// Shutdown stops accepting new jobs and waits for all workers to drain
// and exit, using errgroup to join them.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closing = true
	p.notEmpty.Broadcast()
	p.notFull.Broadcast()
	p.mu.Unlock()
	p.group.Wait()
}

// Pending reports how many jobs are currently queued.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}
