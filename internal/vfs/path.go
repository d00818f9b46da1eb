package vfs

import (
	"strings"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

// maxSymlinks bounds how many symlinks a single resolution may follow
// before failing with ELOOP, per spec.md §4.4 ("an implementation-
// defined limit (e.g. 40)").
const maxSymlinks = 40

// Resolver walks paths against a single mount Tree.
type Resolver struct {
	Tree *Tree
}

// NewResolver creates a Resolver over tree.
func NewResolver(tree *Tree) *Resolver {
	return &Resolver{Tree: tree}
}

// splitPath breaks path into non-empty, non-"." components, collapsing
// "//" the way spec.md's path-canonicalization property expects
// ("//a ≡ /a"). ".." is kept as a literal component and handled by the
// caller, since its meaning depends on mount-graph position.
func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if c == "" || c == "." {
			continue
		}
		out = append(out, c)
	}
	return out
}

// stepComponent advances from cur into its child named name, crossing a
// mount boundary via the Tree if the result covers one. ".." at the root
// of a mount crosses back out via Covers instead of asking the backend.
func (r *Resolver) stepComponent(ctx *IOCtx, cur *Vnode, name string) (*Vnode, kernelerr.Errno) {
	if name == ".." && cur.IsMountRoot() {
		return cur.Covers, kernelerr.OK
	}
	opener, ok := cur.Inode.Backend.(DirOpener)
	if !ok {
		return nil, kernelerr.ENOTDIR
	}
	child, errno := opener.OpenChild(ctx, name, OSearch|ODirectory, 0)
	if errno != kernelerr.OK {
		return nil, errno
	}
	return r.Tree.Traverse(NewVnode(child)), kernelerr.OK
}

// OpenDirContainingPath walks path, calling OpenChild at each
// intermediate component, and returns the descriptor for the containing
// directory plus the final path component's name — exactly
// spec.md §4.4's contract. Absolute paths start from rootDesc; symlinks
// on non-final components are always followed.
func (r *Resolver) OpenDirContainingPath(ctx *IOCtx, rootDesc, fromDesc *Descriptor, path string) (*Descriptor, string, kernelerr.Errno) {
	if path == "" {
		return nil, "", kernelerr.ENOENT
	}
	cur := fromDesc.Vnode
	if path[0] == '/' {
		cur = rootDesc.Vnode
	}
	queue := splitPath(path)
	if len(queue) == 0 {
		return nil, "", kernelerr.EINVAL
	}

	symlinkCount := 0
	for len(queue) > 1 {
		name := queue[0]
		queue = queue[1:]

		next, errno := r.stepComponent(ctx, cur, name)
		if errno != kernelerr.OK {
			return nil, "", errno
		}
		if next.Inode.Type() == TypeSymlink {
			symlinkCount++
			if symlinkCount > maxSymlinks {
				return nil, "", kernelerr.ELOOP
			}
			rl, ok := next.Inode.Backend.(Readlinker)
			if !ok {
				return nil, "", kernelerr.EINVAL
			}
			target, errno2 := rl.Readlink()
			if errno2 != kernelerr.OK {
				return nil, "", errno2
			}
			if len(target) > 0 && target[0] == '/' {
				cur = rootDesc.Vnode
			}
			queue = append(splitPath(target), queue...)
			continue
		}
		cur = next
	}
	return NewDescriptor(cur, OSearch|ODirectory), queue[0], kernelerr.OK
}

// Resolve fully resolves path to a vnode, opening (and, with OCreat,
// creating) the final component. On the final component, ONofollow and
// OSymlinkNofollow suppress symlink following; otherwise a final
// symlink is followed exactly like an intermediate one.
func (r *Resolver) Resolve(ctx *IOCtx, rootDesc, fromDesc *Descriptor, path string, flags int, mode uint32) (*Vnode, kernelerr.Errno) {
	dirDesc, final, errno := r.OpenDirContainingPath(ctx, rootDesc, fromDesc, path)
	if errno != kernelerr.OK {
		return nil, errno
	}
	defer dirDesc.Close()

	opener, ok := dirDesc.Vnode.Inode.Backend.(DirOpener)
	if !ok {
		return nil, kernelerr.ENOTDIR
	}
	child, errno2 := opener.OpenChild(ctx, final, flags, mode)
	if errno2 != kernelerr.OK {
		return nil, errno2
	}
	v := r.Tree.Traverse(NewVnode(child))

	noFollow := flags&ONofollow != 0 || flags&OSymlinkNofollow != 0
	if noFollow || v.Inode.Type() != TypeSymlink {
		return v, kernelerr.OK
	}

	symlinkCount := 0
	for v.Inode.Type() == TypeSymlink {
		symlinkCount++
		if symlinkCount > maxSymlinks {
			return nil, kernelerr.ELOOP
		}
		rl, ok := v.Inode.Backend.(Readlinker)
		if !ok {
			return nil, kernelerr.EINVAL
		}
		target, errno3 := rl.Readlink()
		if errno3 != kernelerr.OK {
			return nil, errno3
		}
		nv, errno4 := r.Resolve(ctx, rootDesc, dirDesc, target, flags&^(ONofollow|OSymlinkNofollow), mode)
		if errno4 != kernelerr.OK {
			return nil, errno4
		}
		v = nv
	}
	return v, kernelerr.OK
}

// Link, Unlink, Rmdir, Symlink, and RenameHere operate on a resolved
// containing directory and a single-component name, per spec.md §4.4.

func (r *Resolver) Mkdir(dir *Descriptor, name string, mode uint32) kernelerr.Errno {
	m, ok := dir.Vnode.Inode.Backend.(Mkdirer)
	if !ok {
		return kernelerr.ENOTDIR
	}
	_, errno := m.Mkdir(name, mode)
	return errno
}

func (r *Resolver) Link(dir *Descriptor, name string, target *Inode) kernelerr.Errno {
	l, ok := dir.Vnode.Inode.Backend.(Linker)
	if !ok {
		return kernelerr.ENOTDIR
	}
	return l.Link(name, target)
}

func (r *Resolver) Unlink(dir *Descriptor, name string) kernelerr.Errno {
	u, ok := dir.Vnode.Inode.Backend.(Unlinker)
	if !ok {
		return kernelerr.ENOTDIR
	}
	return u.Unlink(name)
}

func (r *Resolver) Rmdir(dir *Descriptor, name string) kernelerr.Errno {
	rd, ok := dir.Vnode.Inode.Backend.(Rmdirer)
	if !ok {
		return kernelerr.ENOTDIR
	}
	return rd.Rmdir(name)
}

func (r *Resolver) Symlink(dir *Descriptor, name, target string) kernelerr.Errno {
	s, ok := dir.Vnode.Inode.Backend.(Symlinker)
	if !ok {
		return kernelerr.ENOTDIR
	}
	_, errno := s.Symlink(name, target)
	return errno
}

// RenameHere renames oldName (in oldDir) to newName in newDir (the
// receiver). Renaming across mounts (different Dev) returns EXDEV, per
// the Open Question in spec.md §9.
func (r *Resolver) RenameHere(newDir, oldDir *Descriptor, oldName, newName string) kernelerr.Errno {
	if newDir.Vnode.Inode.Dev() != oldDir.Vnode.Inode.Dev() {
		return kernelerr.EXDEV
	}
	ren, ok := newDir.Vnode.Inode.Backend.(Renamer)
	if !ok {
		return kernelerr.ENOTDIR
	}
	return ren.RenameHere(oldDir.Vnode.Inode.Backend, oldName, newName)
}
