package signal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNextOrdersByPriorityClass is property #6: between two unmasked
// pending signals, the lower-priority one is never delivered first.
func TestNextOrdersByPriorityClass(t *testing.T) {
	var pending Set
	pending.Add(TERM) // classHigh
	pending.Add(SEGV) // classCore, higher priority than classHigh

	s, ok := Next(pending, 0)
	require.True(t, ok)
	require.Equal(t, SEGV, s, "classCore must be delivered before classHigh")

	pending.Add(KILL) // classKill, unmaskable and highest
	s, ok = Next(pending, 0)
	require.True(t, ok)
	require.Equal(t, KILL, s)
}

func TestNextTiesBreakOnLowestSignalNumber(t *testing.T) {
	var pending Set
	pending.Add(BUS)  // classCore
	pending.Add(SEGV) // classCore, numerically higher than BUS

	s, ok := Next(pending, 0)
	require.True(t, ok)
	require.Equal(t, BUS, s)
}

func TestNextSkipsMaskedSignals(t *testing.T) {
	var pending Set
	pending.Add(SEGV)
	pending.Add(TERM)

	var mask Mask
	mask.Block(SEGV)

	s, ok := Next(pending, mask)
	require.True(t, ok)
	require.Equal(t, TERM, s, "the masked higher-priority signal must be skipped")
}

func TestStopAndKillCannotBeMasked(t *testing.T) {
	var mask Mask
	mask.Block(STOP)
	mask.Block(KILL)
	require.False(t, mask.Blocked(STOP))
	require.False(t, mask.Blocked(KILL))
}

func TestDeliverableFalseWhenAllMasked(t *testing.T) {
	var pending Set
	pending.Add(HUP)
	var mask Mask
	mask.Block(HUP)
	require.False(t, Deliverable(pending, mask))
}

func TestDefaultDispositions(t *testing.T) {
	require.Equal(t, DispTerminate, DefaultDisposition(INT))
	require.Equal(t, DispCore, DefaultDisposition(SEGV))
	require.Equal(t, DispIgnore, DefaultDisposition(CHLD))
	require.Equal(t, DispStop, DefaultDisposition(STOP))
}
