package vfs

import (
	"sync"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

// Vnode is a view of an Inode within a mount graph: it lets the VFS
// cross mount boundaries correctly without mutating the underlying
// Inode, per spec.md §3's "Vnode" entry and the design note on weak
// cross-backend links.
type Vnode struct {
	Inode *Inode

	// Covers is a non-owning back-reference to the vnode this one
	// covers — set only when this vnode is the root of a mount,
	// pointing at the mount-point directory in the parent filesystem.
	// It never cycles: Covers always points strictly toward the global
	// root.
	Covers *Vnode

	RootIno, RootDev uint64
}

// NewVnode wraps inode as a plain (non-mount-root) vnode.
func NewVnode(inode *Inode) *Vnode {
	return &Vnode{Inode: inode}
}

// Mount records that rootVnode is mounted at pointVnode.
type Mount struct {
	Root  *Vnode
	Flags uint32
}

// Tree is the kernel's single mount graph: a map from covered directory
// inode to the vnode that should be seen instead when traversal reaches
// that inode.
type Tree struct {
	mu     sync.Mutex
	root   *Vnode
	mounts map[*Inode]*Vnode
}

// NewTree creates a mount graph rooted at rootVnode.
func NewTree(rootVnode *Vnode) *Tree {
	return &Tree{root: rootVnode, mounts: make(map[*Inode]*Vnode)}
}

// Root returns the filesystem's global root vnode.
func (t *Tree) Root() *Vnode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

// Mount installs rootVnode as the filesystem mounted at pointVnode.
// Mounting the same point twice, or mounting where something is already
// mounted, returns EBUSY.
func (t *Tree) Mount(pointVnode, rootVnode *Vnode, flags uint32) kernelerr.Errno {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.mounts[pointVnode.Inode]; exists {
		return kernelerr.EBUSY
	}
	entry := &Vnode{Inode: rootVnode.Inode, Covers: pointVnode, RootIno: rootVnode.RootIno, RootDev: rootVnode.RootDev}
	t.mounts[pointVnode.Inode] = entry
	return kernelerr.OK
}

// Unmount removes the mount installed at pointVnode. Without
// UnmountForce/UnmountDetach set, callers are expected to have already
// verified the filesystem is not busy; this package does not itself
// track open-descriptor counts per mount. UnmountForce only makes a
// mount missing from the graph not an error; UnmountDetach has no effect.
func (t *Tree) Unmount(pointVnode *Vnode, flags uint32) kernelerr.Errno {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.mounts[pointVnode.Inode]; !exists {
		if flags&UnmountForce != 0 {
			return kernelerr.OK
		}
		return kernelerr.EINVAL
	}
	delete(t.mounts, pointVnode.Inode)
	return kernelerr.OK
}

// Traverse returns the vnode that should actually be used in place of v:
// if v covers a mount, the mounted filesystem's root vnode is returned
// instead (with Covers pointing back at v); otherwise v itself.
func (t *Tree) Traverse(v *Vnode) *Vnode {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.mounts[v.Inode]; ok {
		return entry
	}
	return v
}

// IsMountRoot reports whether v is the root vnode of some mount (i.e.
// ".." from v should cross back via v.Covers).
func (v *Vnode) IsMountRoot() bool {
	return v.Covers != nil
}
