package syscall

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sortix-go/kernel/internal/clock"
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/kthread"
	"github.com/sortix-go/kernel/internal/memfs"
	"github.com/sortix-go/kernel/internal/mm"
	"github.com/sortix-go/kernel/internal/process"
	"github.com/sortix-go/kernel/internal/sched"
	"github.com/sortix-go/kernel/internal/signal"
	"github.com/sortix-go/kernel/internal/tty"
	"github.com/sortix-go/kernel/internal/vfs"
	"github.com/sortix-go/kernel/internal/worker"
)

// newTestGate wires a Gate to a fresh set of kernel components, the same
// shape cmd/sortixkernel assembles at boot, and returns it along with an
// already-running init process and its kernel thread's TID.
func newTestGate(t *testing.T) (*Gate, *process.Process, kthread.TID) {
	t.Helper()

	pool := worker.NewPool(16, 1)
	t.Cleanup(pool.Shutdown)
	scheduler := sched.New(pool)

	clocks := clock.NewRegistry(clock.ResolutionSet{
		Realtime:  time.Millisecond,
		Monotonic: time.Microsecond,
		Boot:      time.Microsecond,
	})

	kb := tty.NewKeyboard()

	rootFS := memfs.New(1, 8)
	rootInode := rootFS.NewRoot(0755)
	tree := vfs.NewTree(vfs.NewVnode(rootInode))
	resolver := vfs.NewResolver(tree)

	table := process.NewTable()
	space := mm.NewAddressSpace(mm.NewPageAllocator(1024))

	gate := NewGate(table, resolver, scheduler, clocks, kb)

	proc := table.New(space)
	thread := scheduler.CreateKernelThread(proc)
	proc.AddThread(thread)

	rootDesc := vfs.NewDescriptor(vfs.NewVnode(rootInode), vfs.ORdonly)
	proc.Root = rootDesc
	proc.Cwd = rootDesc.Acquire()

	return gate, proc, thread.ID
}

// newTestGateWithScheduler is newTestGate plus the scheduler and clock
// registry it wired up, for tests that drive Scheduler.Tick directly.
func newTestGateWithScheduler(t *testing.T) (*Gate, *process.Process, kthread.TID, *sched.Scheduler, *clock.Registry) {
	t.Helper()

	pool := worker.NewPool(16, 1)
	t.Cleanup(pool.Shutdown)
	scheduler := sched.New(pool)

	clocks := clock.NewRegistry(clock.ResolutionSet{
		Realtime:  time.Millisecond,
		Monotonic: time.Microsecond,
		Boot:      time.Microsecond,
	})

	kb := tty.NewKeyboard()

	rootFS := memfs.New(1, 8)
	rootInode := rootFS.NewRoot(0755)
	tree := vfs.NewTree(vfs.NewVnode(rootInode))
	resolver := vfs.NewResolver(tree)

	table := process.NewTable()
	space := mm.NewAddressSpace(mm.NewPageAllocator(1024))

	gate := NewGate(table, resolver, scheduler, clocks, kb)

	proc := table.New(space)
	thread := scheduler.CreateKernelThread(proc)
	proc.AddThread(thread)

	rootDesc := vfs.NewDescriptor(vfs.NewVnode(rootInode), vfs.ORdonly)
	proc.Root = rootDesc
	proc.Cwd = rootDesc.Acquire()

	return gate, proc, thread.ID, scheduler, clocks
}

func TestGateOpenWriteReadRoundTrip(t *testing.T) {
	gate, proc, self := newTestGate(t)

	require.Equal(t, kernelerr.OK, gate.Mkdir(proc.PID, self, "/d", 0755))

	fd, errno := gate.Open(proc.PID, self, "/d/f", vfs.OCreat|vfs.ORdwr, 0644)
	require.Equal(t, kernelerr.OK, errno)

	n, errno := gate.Write(proc.PID, self, fd, []byte("hello"))
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, 5, n)

	_, errno = gate.Lseek(proc.PID, fd, 0, 0)
	require.Equal(t, kernelerr.OK, errno)

	buf := make([]byte, 5)
	n, errno = gate.Read(proc.PID, self, fd, buf)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))

	require.Equal(t, kernelerr.OK, gate.Close(proc.PID, fd))
	_, errno = gate.Read(proc.PID, self, fd, buf)
	require.Equal(t, kernelerr.EBADF, errno)
}

func TestGateForkExitWait(t *testing.T) {
	gate, proc, _ := newTestGate(t)

	childPID, errno := gate.Fork(proc.PID)
	require.Equal(t, kernelerr.OK, errno)
	require.NotEqual(t, proc.PID, childPID)

	require.Equal(t, kernelerr.OK, gate.Exit(childPID, 7))

	gotPID, status, errno := gate.Wait(proc.PID, childPID)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, childPID, gotPID)
	require.Equal(t, 7, status)
}

func TestGateRegisterErrnoWritesBackOnFailure(t *testing.T) {
	gate, proc, self := newTestGate(t)

	var slot kernelerr.Errno
	gate.RegisterErrno(proc.PID, &slot)

	_, errno := gate.Read(proc.PID, self, 99, make([]byte, 1))
	require.Equal(t, kernelerr.EBADF, errno)
	require.Equal(t, kernelerr.EBADF, slot)

	_, errno = gate.Open(proc.PID, self, "/missing", 0, 0)
	require.Equal(t, kernelerr.ENOENT, errno)
	require.Equal(t, kernelerr.ENOENT, slot)
}

// TestSchedulerTickDrivesNanosleepToCompletion proves the periodic tick
// driver (Scheduler.Tick, wired into cmd/sortixkernel as a time.Ticker
// loop) is what actually makes a Nanosleep's armed timer fire: nothing
// else in non-test code ever calls clock.Registry.AdvanceAll.
func TestSchedulerTickDrivesNanosleepToCompletion(t *testing.T) {
	gate, proc, self, scheduler, clocks := newTestGateWithScheduler(t)

	const sleep = 5 * time.Millisecond

	result := make(chan kernelerr.Errno, 1)
	go func() {
		_, errno := gate.Nanosleep(proc.PID, self, clock.Monotonic, sleep)
		result <- errno
	}()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		scheduler.Tick(clocks, sleep)
		select {
		case errno := <-result:
			require.Equal(t, kernelerr.OK, errno)
			return
		default:
		}
	}
	t.Fatal("Nanosleep never unblocked despite repeated Scheduler.Tick calls")
}

// TestSchedulerTickAccumulatesThreadAndProcessTicks proves Tick feeds
// spec.md §3's per-thread and per-process execute/system clock fields,
// not just the registry's system clocks.
func TestSchedulerTickAccumulatesThreadAndProcessTicks(t *testing.T) {
	_, proc, self, scheduler, clocks := newTestGateWithScheduler(t)

	scheduler.SetThreadState(findThread(proc, self), sched.RUNNABLE)
	scheduler.Tick(clocks, 10*time.Millisecond)
	scheduler.Tick(clocks, 10*time.Millisecond)

	_, system := findThread(proc, self).Ticks()
	require.Equal(t, uint64(20*time.Millisecond), system)

	_, procSystem, _, _ := proc.Clocks()
	require.Equal(t, uint64(20*time.Millisecond), procSystem)
}

func TestGateKillDeliversToThreadNotBlockingSignal(t *testing.T) {
	gate, proc, self := newTestGate(t)

	require.Equal(t, kernelerr.OK, gate.Kill(proc.PID, signal.INT))

	th := findThread(proc, self)
	require.NotNil(t, th)
	pending, _ := th.Signals()
	require.True(t, pending.Has(signal.INT))
}
