package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isSorted(timers []*Timer) bool {
	for i := 1; i < len(timers); i++ {
		if timers[i-1].expiry > timers[i].expiry {
			return false
		}
	}
	return true
}

// TestTimerOverrun is scenario S6: a periodic 10ms timer advanced 35ms
// in one step fires once with overrun=2, and rearms for the next 10ms
// boundary strictly after "now".
func TestTimerOverrun(t *testing.T) {
	c := NewClock(time.Microsecond, true)

	var mu sync.Mutex
	calls := 0
	var lastOverrun uint64
	timer := c.NewTimer(func(overrun uint64) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		lastOverrun = overrun
	}, nil)
	timer.Set(ItimerSpec{Value: 10 * time.Millisecond, Interval: 10 * time.Millisecond}, 0)

	c.Advance(35 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls, "callback invoked exactly once even though 3 firings were due")
	require.EqualValues(t, 2, lastOverrun, "3 firings due, 1 executed => 2 overrun")
	require.EqualValues(t, 2, timer.Overrun())

	got := timer.Get()
	require.EqualValues(t, 5*time.Millisecond, got.Value, "rearmed for the next 10ms boundary after 35ms, i.e. 40ms - 35ms elapsed")
}

// TestTimerQueueStaysSorted is property #5: the armed-timer list of a
// clock is sorted by expiration at every observable state.
func TestTimerQueueStaysSorted(t *testing.T) {
	c := NewClock(time.Microsecond, false)
	durations := []time.Duration{30 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond, 5 * time.Millisecond}
	for _, d := range durations {
		timer := c.NewTimer(func(uint64) {}, nil)
		timer.Set(ItimerSpec{Value: d}, 0)
	}

	c.mu.Lock()
	sorted := isSorted(c.timers)
	c.mu.Unlock()
	require.True(t, sorted, "timer list must stay sorted by expiry after every insert")

	c.Advance(7 * time.Millisecond)
	c.mu.Lock()
	sorted = isSorted(c.timers)
	remaining := len(c.timers)
	c.mu.Unlock()
	require.True(t, sorted)
	require.Equal(t, 3, remaining, "only the 5ms timer should have fired")
}

func TestClockSettime(t *testing.T) {
	c := NewClock(time.Millisecond, false)
	c.Set(100 * time.Second)
	require.Equal(t, 100*time.Second, c.Now())
}

func TestOneShotTimerDisarmsAfterFiring(t *testing.T) {
	c := NewClock(time.Microsecond, false)
	fired := 0
	timer := c.NewTimer(func(uint64) { fired++ }, nil)
	timer.Set(ItimerSpec{Value: 5 * time.Millisecond}, 0)

	c.Advance(10 * time.Millisecond)
	require.Equal(t, 1, fired)

	got := timer.Get()
	require.Zero(t, got.Value, "a one-shot timer reports disarmed after firing")
}
