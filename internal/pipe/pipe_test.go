package pipe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/vfs"
)

// TestPipeReadWriteEOF is scenario S1: write "hello", read 5 bytes gets
// "hello", close the write end, and the next read returns 0 (EOF).
func TestPipeReadWriteEOF(t *testing.T) {
	p := New(0)
	read := ReadEnd{P: p}
	write := WriteEnd{P: p}
	ctx := vfs.KernelIOCtx()

	n, errno := write.Write(ctx, []byte("hello"))
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, errno = read.Read(ctx, buf)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))

	require.Equal(t, kernelerr.OK, write.Flush())

	n, errno = read.Read(ctx, buf)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, 0, n, "read after the write end closes must report EOF")
}

func TestPipeWriteAfterReaderGoneIsEPIPE(t *testing.T) {
	p := New(0)
	read := ReadEnd{P: p}
	write := WriteEnd{P: p}
	ctx := vfs.KernelIOCtx()

	require.Equal(t, kernelerr.OK, read.Flush())

	_, errno := write.Write(ctx, []byte("x"))
	require.Equal(t, kernelerr.EPIPE, errno)
}

func TestPipeNonblockReadOnEmptyIsEAGAIN(t *testing.T) {
	p := New(0)
	read := ReadEnd{P: p}
	ctx := &vfs.IOCtx{Kind: vfs.KernelCtx, Nonblock: true}

	buf := make([]byte, 1)
	_, errno := read.Read(ctx, buf)
	require.Equal(t, kernelerr.EAGAIN, errno)
}

func TestPipePollBits(t *testing.T) {
	p := New(4)
	read := ReadEnd{P: p}
	write := WriteEnd{P: p}
	ctx := vfs.KernelIOCtx()

	require.Zero(t, read.Poll()&vfs.PollIn, "nothing written yet")
	require.NotZero(t, write.Poll()&vfs.PollOut, "room available")

	_, errno := write.Write(ctx, []byte("a"))
	require.Equal(t, kernelerr.OK, errno)
	require.NotZero(t, read.Poll()&vfs.PollIn)
}
