package kthread

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sortix-go/kernel/internal/signal"
)

// TestLockSignalInterruptedBySignalLeavesMutexUnheld is scenario S3:
// thread A holds mutex M; thread B's LockSignal is interrupted by a
// pending, unmasked signal and returns false, B does not hold M, and
// the pending bit is untouched (delivering/clearing it is someone
// else's job, not the lock's).
func TestLockSignalInterruptedBySignalLeavesMutexUnheld(t *testing.T) {
	t.Cleanup(func() { SetHooks(func() {}, func(TID) bool { return false }) })

	const threadA TID = 1
	const threadB TID = 2

	m := NewMutex(Normal)
	m.Lock(threadA)

	var pendingB signal.Set
	pendingB.Add(signal.INT)
	var maskB signal.Mask

	SetHooks(func() {}, func(tid TID) bool {
		if tid != threadB {
			return false
		}
		return signal.Deliverable(pendingB, maskB)
	})

	ok := m.LockSignal(threadB)
	require.False(t, ok, "LockSignal must fail when a signal becomes pending for the caller")
	require.Equal(t, threadA, m.Owner(), "B must not hold M after an EINTR")
	require.True(t, pendingB.Has(signal.INT), "the pending bit is left for the caller to handle, not cleared by the lock")
}

func TestLockSignalSucceedsWhenNoSignalPending(t *testing.T) {
	t.Cleanup(func() { SetHooks(func() {}, func(TID) bool { return false }) })

	const threadB TID = 2
	m := NewMutex(Normal)
	ok := m.LockSignal(threadB)
	require.True(t, ok)
	require.Equal(t, threadB, m.Owner())
}

func TestTryLockRecursiveAllowsReentry(t *testing.T) {
	const tid TID = 1
	m := NewMutex(Recursive)
	require.True(t, m.TryLock(tid))
	require.True(t, m.TryLock(tid), "recursive mutex must allow the owner to relock")
	m.Unlock(tid)
	require.Equal(t, tid, m.Owner(), "still held after one unlock of two")
	m.Unlock(tid)
	require.EqualValues(t, 0, m.Owner())
}
