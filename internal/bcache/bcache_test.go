package bcache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

type countingOwner struct {
	flushed []int64
}

func (o *countingOwner) FlushBlock(blockIndex int64, data []byte) kernelerr.Errno {
	o.flushed = append(o.flushed, blockIndex)
	return kernelerr.OK
}

// TestPoolEvictsLRU is scenario S5 at the bare Pool level: with a
// 4-slot pool, acquiring a 5th block must reuse the least-recently-used
// slot (block 0, never touched again after its initial use).
func TestPoolEvictsLRU(t *testing.T) {
	p := NewPool(16, 4)
	owner := &countingOwner{}

	var acquired []*Block
	for i := int64(0); i < 4; i++ {
		b, errno := p.AcquireBlock(owner, i)
		require.Equal(t, kernelerr.OK, errno)
		p.MarkUsed(b)
		acquired = append(acquired, b)
	}
	require.Equal(t, Stats{Areas: 1, Unused: 0, Used: 4}, p.Stats())

	fifth, errno := p.AcquireBlock(owner, 4)
	require.Equal(t, kernelerr.OK, errno)
	p.MarkUsed(fifth)

	require.Same(t, acquired[0], fifth, "the LRU block (index 0) must be the one reused for index 4")
	require.EqualValues(t, 4, fifth.BlockID())
	require.Equal(t, Stats{Areas: 1, Unused: 0, Used: 4}, p.Stats())
}

func TestPoolFlushesDirtyVictimBeforeReuse(t *testing.T) {
	p := NewPool(16, 1)
	owner := &countingOwner{}

	b0, errno := p.AcquireBlock(owner, 0)
	require.Equal(t, kernelerr.OK, errno)
	p.MarkModified(b0)

	_, errno = p.AcquireBlock(owner, 1)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, []int64{0}, owner.flushed, "dirty LRU victim must be flushed before its slot is reused")
}

func TestReleaseReturnsBlockToUnused(t *testing.T) {
	p := NewPool(16, 2)
	owner := &countingOwner{}
	b, errno := p.AcquireBlock(owner, 0)
	require.Equal(t, kernelerr.OK, errno)
	p.MarkUsed(b)
	require.Equal(t, 1, p.Stats().Used)

	p.Release(b)
	stats := p.Stats()
	require.Equal(t, 0, stats.Used)
	require.Equal(t, 2, stats.Unused)
}
