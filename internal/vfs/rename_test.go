package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

// TestRenameThenStatAndRead is scenario S2: rename d/a -> d/b; stat d/a
// is ENOENT; stat d/b reports size 3; read d/b returns "foo".
func TestRenameThenStatAndRead(t *testing.T) {
	ctx := KernelIOCtx()
	r, rootDesc := newTestResolver(t)

	require.Equal(t, kernelerr.OK, r.Mkdir(rootDesc, "d", 0755))
	dVnode, errno := r.Resolve(ctx, rootDesc, rootDesc, "/d", OSearch|ODirectory, 0)
	require.Equal(t, kernelerr.OK, errno)
	dDesc := NewDescriptor(dVnode, OSearch|ODirectory)

	aVnode, errno := r.Resolve(ctx, rootDesc, rootDesc, "/d/a", OCreat|ORdwr, 0644)
	require.Equal(t, kernelerr.OK, errno)
	aDesc := NewDescriptor(aVnode, ORdwr)
	n, errno := aDesc.Pwrite(ctx, []byte("foo"), 0)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, 3, n)

	require.Equal(t, kernelerr.OK, r.RenameHere(dDesc, dDesc, "a", "b"))

	_, errno = r.Resolve(ctx, rootDesc, rootDesc, "/d/a", 0, 0)
	require.Equal(t, kernelerr.ENOENT, errno)

	bVnode, errno := r.Resolve(ctx, rootDesc, rootDesc, "/d/b", 0, 0)
	require.Equal(t, kernelerr.OK, errno)
	st := bVnode.Inode.Stat()
	require.EqualValues(t, 3, st.Size)

	bDesc := NewDescriptor(bVnode, ORdonly)
	buf := make([]byte, 3)
	n, errno = bDesc.Pread(ctx, buf, 0)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, 3, n)
	require.Equal(t, "foo", string(buf))
}

func TestRenameAcrossDevicesIsEXDEV(t *testing.T) {
	ctx := KernelIOCtx()
	r, rootDesc := newTestResolver(t)
	require.Equal(t, kernelerr.OK, r.Mkdir(rootDesc, "d", 0755))
	dVnode, errno := r.Resolve(ctx, rootDesc, rootDesc, "/d", OSearch|ODirectory, 0)
	require.Equal(t, kernelerr.OK, errno)
	dDesc := NewDescriptor(dVnode, OSearch|ODirectory)

	otherRoot := NewInode(99, 1, TypeDir, dVnode.Inode.Backend)
	otherDesc := NewDescriptor(NewVnode(otherRoot), OSearch|ODirectory)

	require.Equal(t, kernelerr.EXDEV, r.RenameHere(otherDesc, dDesc, "a", "b"))
}
