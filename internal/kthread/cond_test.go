package kthread

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCondSignalWakesInFIFOOrder is property #7: N threads waiting on
// one Cond are woken in enqueue order by N Signal calls.
func TestCondSignalWakesInFIFOOrder(t *testing.T) {
	const n = 5
	mutex := NewMutex(Normal)
	cond := NewCond()
	done := make(chan TID, n)

	for i := 0; i < n; i++ {
		tid := TID(i + 1)
		mutex.Lock(tid)
		go func(tid TID) {
			cond.Wait(tid, mutex)
			done <- tid
			mutex.Unlock(tid)
		}(tid)
		// mutex.Lock for the next tid cannot succeed until this
		// goroutine's Wait call has enqueued and released the mutex,
		// which guarantees enqueue order matches loop order i.
	}

	var woken []TID
	for i := 0; i < n; i++ {
		cond.Signal()
		woken = append(woken, <-done)
	}

	want := []TID{1, 2, 3, 4, 5}
	require.Equal(t, want, woken, "Signal must wake waiters in the order they enqueued")
}

func TestCondBroadcastWakesEveryWaiter(t *testing.T) {
	const n = 4
	mutex := NewMutex(Normal)
	cond := NewCond()
	done := make(chan TID, n)

	for i := 0; i < n; i++ {
		tid := TID(i + 1)
		mutex.Lock(tid)
		go func(tid TID) {
			cond.Wait(tid, mutex)
			done <- tid
			mutex.Unlock(tid)
		}(tid)
	}

	cond.Broadcast()
	seen := make(map[TID]bool)
	for i := 0; i < n; i++ {
		seen[<-done] = true
	}
	require.Len(t, seen, n)
}
