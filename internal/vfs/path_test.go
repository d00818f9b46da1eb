package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/memfs"
)

func TestSplitPathCollapsesDotAndDoubleSlash(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitPath("/a/./b"))
	require.Equal(t, []string{"a"}, splitPath("//a"))
	require.Equal(t, []string{"a", "b", "..", "c"}, splitPath("/a/b/../c"))
}

func newTestResolver(t *testing.T) (*Resolver, *Descriptor) {
	t.Helper()
	root := memfs.New(1, 4).NewRoot(0755)
	tree := NewTree(NewVnode(root))
	rootDesc := NewDescriptor(NewVnode(root), OSearch|ODirectory)
	return NewResolver(tree), rootDesc
}

// TestPathCanonicalizationRoundTrip is property #8: "/a/b/../b",
// "/a/./b" and "//a/b" all resolve to the same inode as "/a/b".
func TestPathCanonicalizationRoundTrip(t *testing.T) {
	ctx := KernelIOCtx()
	r, rootDesc := newTestResolver(t)

	require.Equal(t, kernelerr.OK, r.Mkdir(rootDesc, "a", 0755))
	aVnode, errno := r.Resolve(ctx, rootDesc, rootDesc, "/a", OSearch|ODirectory, 0)
	require.Equal(t, kernelerr.OK, errno)
	aDesc := NewDescriptor(aVnode, OSearch|ODirectory)
	require.Equal(t, kernelerr.OK, r.Mkdir(aDesc, "b", 0755))

	_, errno = r.Resolve(ctx, rootDesc, aDesc, "b", OCreat, 0644)
	require.Equal(t, kernelerr.OK, errno)

	want, errno := r.Resolve(ctx, rootDesc, rootDesc, "/a/b", OCreat, 0644)
	require.Equal(t, kernelerr.OK, errno)

	viaDotDot, errno := r.Resolve(ctx, rootDesc, rootDesc, "/a/b/../b", 0, 0)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, want.Inode.Ino(), viaDotDot.Inode.Ino())

	viaDot, errno := r.Resolve(ctx, rootDesc, rootDesc, "/a/./b", 0, 0)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, want.Inode.Ino(), viaDot.Inode.Ino())

	viaDoubleSlash, errno := r.Resolve(ctx, rootDesc, rootDesc, "//a/b", 0, 0)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, want.Inode.Ino(), viaDoubleSlash.Inode.Ino())
}

// TestStatMatchesOpenWhileDescriptorHeld is property #4: a descriptor
// with positive refcount stat()s to the same (st_ino, st_dev) open
// produced.
func TestStatMatchesOpenWhileDescriptorHeld(t *testing.T) {
	ctx := KernelIOCtx()
	r, rootDesc := newTestResolver(t)

	v, errno := r.Resolve(ctx, rootDesc, rootDesc, "/file", OCreat, 0644)
	require.Equal(t, kernelerr.OK, errno)
	desc := NewDescriptor(v, ORdwr)
	require.Greater(t, v.Inode.RefCount(), int32(0))

	wantIno, wantDev := v.Inode.Ino(), v.Inode.Dev()
	st := desc.Vnode.Inode.Stat()
	require.Equal(t, wantIno, st.Ino)
	require.Equal(t, wantDev, st.Dev)

	reopened, errno := r.Resolve(ctx, rootDesc, rootDesc, "/file", 0, 0)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, wantIno, reopened.Inode.Ino())
	require.Equal(t, wantDev, reopened.Inode.Dev())
}
