package memfs

import (
	"sort"
	"sync"
	"time"
	"unsafe"

	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/vfs"
)

type dirent struct {
	name  string
	inode *vfs.Inode
}

// dir is a memfs directory: an ordered set of name->Inode entries plus
// "." (self) and ".." (parent), resolved without needing a special case
// in vfs.Resolver's stepComponent.
type dir struct {
	fs *FS

	self, parent *vfs.Inode

	mu               sync.Mutex
	mode             uint32
	uid, gid         uint32
	entries          map[string]*dirent
	order            []string
	atime, mtime, ctime time.Time
}

func (fs *FS) newDir(mode uint32) *dir {
	now := time.Now()
	return &dir{
		fs:      fs,
		mode:    mode,
		entries: make(map[string]*dirent),
		atime:   now, mtime: now, ctime: now,
	}
}

var _ = (vfs.DirOpener)((*dir)(nil))
var _ = (vfs.Mkdirer)((*dir)(nil))
var _ = (vfs.Linker)((*dir)(nil))
var _ = (vfs.Unlinker)((*dir)(nil))
var _ = (vfs.Rmdirer)((*dir)(nil))
var _ = (vfs.Symlinker)((*dir)(nil))
var _ = (vfs.Readdirenter)((*dir)(nil))
var _ = (vfs.Renamer)((*dir)(nil))
var _ = (vfs.Chmoder)((*dir)(nil))
var _ = (vfs.Chowner)((*dir)(nil))
var _ = (vfs.Utimenser)((*dir)(nil))

func (d *dir) Stat() vfs.StatInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return vfs.StatInfo{
		Mode: d.mode, Uid: d.uid, Gid: d.gid,
		Atime: d.atime, Mtime: d.mtime, Ctime: d.ctime,
		Blksize: BlockSize,
	}
}

func (d *dir) Chmod(mode uint32) kernelerr.Errno {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = (d.mode &^ 0o7777) | (mode & 0o7777)
	d.ctime = time.Now()
	return kernelerr.OK
}

func (d *dir) Chown(uid, gid uint32) kernelerr.Errno {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uid, d.gid = uid, gid
	d.ctime = time.Now()
	return kernelerr.OK
}

func (d *dir) Utimens(atime, mtime time.Time) kernelerr.Errno {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.atime, d.mtime = atime, mtime
	return kernelerr.OK
}

// OpenChild implements vfs.DirOpener: it resolves "." and ".." directly,
// looks up an existing child, or — with O_CREAT — creates a new regular
// file (directories and symlinks are created via Mkdir/Symlink, not
// OpenChild, per spec.md §4.4's separate operations).
func (d *dir) OpenChild(ctx *vfs.IOCtx, name string, flags int, mode uint32) (*vfs.Inode, kernelerr.Errno) {
	if name == "." {
		return d.self, kernelerr.OK
	}
	if name == ".." {
		return d.parent, kernelerr.OK
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if ctx.Kind == vfs.UserCtx && !vfs.HasAccess(ctx.Euid, ctx.Egid, d.uid, d.gid, d.mode, vfs.AccessExec) {
		return nil, kernelerr.EACCES
	}

	existing, ok := d.entries[name]
	if ok {
		if flags&(vfs.OCreat|vfs.OExcl) == vfs.OCreat|vfs.OExcl {
			return nil, kernelerr.EEXIST
		}
		if flags&vfs.ODirectory != 0 && existing.inode.Type() != vfs.TypeDir && existing.inode.Type() != vfs.TypeSymlink {
			return nil, kernelerr.ENOTDIR
		}
		return existing.inode, kernelerr.OK
	}
	if flags&vfs.OCreat == 0 {
		return nil, kernelerr.ENOENT
	}

	f := d.fs.newFile(mode &^ 0o170000 | 0o100000)
	ino := vfs.NewInode(d.fs.Dev, d.fs.allocIno(), vfs.TypeFile, f)
	d.insertLocked(name, ino)
	return ino, kernelerr.OK
}

func (d *dir) insertLocked(name string, ino *vfs.Inode) {
	d.entries[name] = &dirent{name: name, inode: ino}
	d.order = append(d.order, name)
	d.mtime = time.Now()
}

func (d *dir) removeLocked(name string) {
	delete(d.entries, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.mtime = time.Now()
}

func (d *dir) Mkdir(name string, mode uint32) (*vfs.Inode, kernelerr.Errno) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[name]; ok {
		return nil, kernelerr.EEXIST
	}
	child := d.fs.newDir(mode &^ 0o170000 | 0o040000)
	ino := vfs.NewInode(d.fs.Dev, d.fs.allocIno(), vfs.TypeDir, child)
	child.self = ino
	child.parent = d.self
	d.insertLocked(name, ino)
	return ino, kernelerr.OK
}

// Link hard-links target at name. memfs only links regular files:
// directories may not be hard-linked, matching the common POSIX
// restriction spec.md leaves to the implementation.
func (d *dir) Link(name string, target *vfs.Inode) kernelerr.Errno {
	if target.Type() == vfs.TypeDir {
		return kernelerr.EPERM
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[name]; ok {
		return kernelerr.EEXIST
	}
	d.insertLocked(name, target.Ref())
	return kernelerr.OK
}

func (d *dir) Unlink(name string) kernelerr.Errno {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[name]
	if !ok {
		return kernelerr.ENOENT
	}
	if e.inode.Type() == vfs.TypeDir {
		return kernelerr.EISDIR
	}
	d.removeLocked(name)
	e.inode.Unref()
	return kernelerr.OK
}

func (d *dir) Rmdir(name string) kernelerr.Errno {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[name]
	if !ok {
		return kernelerr.ENOENT
	}
	if e.inode.Type() != vfs.TypeDir {
		return kernelerr.ENOTDIR
	}
	child := e.inode.Backend.(*dir)
	child.mu.Lock()
	empty := len(child.entries) == 0
	child.mu.Unlock()
	if !empty {
		return kernelerr.ENOTEMPTY
	}
	d.removeLocked(name)
	e.inode.Unref()
	return kernelerr.OK
}

func (d *dir) Symlink(name, target string) (*vfs.Inode, kernelerr.Errno) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[name]; ok {
		return nil, kernelerr.EEXIST
	}
	s := d.fs.newSymlink(target)
	ino := vfs.NewInode(d.fs.Dev, d.fs.allocIno(), vfs.TypeSymlink, s)
	d.insertLocked(name, ino)
	return ino, kernelerr.OK
}

// RenameHere implements rename_here: the receiver is the destination
// directory; oldDir is the source directory's backend (asserted to be
// *dir since vfs.Resolver.RenameHere already checked both sides share a
// Dev, and memfs is the only backend on its own Dev).
func (d *dir) RenameHere(oldDirBackend vfs.Backend, oldName, newName string) kernelerr.Errno {
	oldDir := oldDirBackend.(*dir)

	if oldDir == d {
		d.mu.Lock()
		defer d.mu.Unlock()
		e, ok := d.entries[oldName]
		if !ok {
			return kernelerr.ENOENT
		}
		if existing, clash := d.entries[newName]; clash && existing != e {
			if existing.inode.Type() == vfs.TypeDir {
				return kernelerr.EISDIR
			}
			existing.inode.Unref()
			d.removeLocked(newName)
		}
		d.removeLocked(oldName)
		e.name = newName
		d.entries[newName] = e
		d.order = append(d.order, newName)
		return kernelerr.OK
	}

	// Lock in a fixed order (by pointer identity) to avoid deadlocking
	// against a concurrent rename the other way.
	first, second := oldDir, d
	if uintptr(unsafe.Pointer(d)) < uintptr(unsafe.Pointer(oldDir)) {
		first, second = d, oldDir
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	e, ok := oldDir.entries[oldName]
	if !ok {
		return kernelerr.ENOENT
	}
	if existing, clash := d.entries[newName]; clash {
		if existing.inode.Type() == vfs.TypeDir {
			return kernelerr.EISDIR
		}
		existing.inode.Unref()
		d.removeLocked(newName)
	}
	oldDir.removeLocked(oldName)
	e.name = newName
	d.insertLocked(newName, e.inode)
	return kernelerr.OK
}

func (d *dir) Readdirents(cookie int64, max int) ([]vfs.DirEntry, int64, kernelerr.Errno) {
	d.mu.Lock()
	names := append([]string(nil), d.order...)
	entries := d.entries
	d.mu.Unlock()

	sort.Strings(names)
	if cookie < 0 || cookie > int64(len(names)) {
		return nil, 0, kernelerr.EINVAL
	}
	out := make([]vfs.DirEntry, 0, max)
	i := cookie
	for i < int64(len(names)) && len(out) < max {
		e := entries[names[i]]
		out = append(out, vfs.DirEntry{Ino: e.inode.Ino(), Name: e.name, Type: e.inode.Type()})
		i++
	}
	next := i
	if next >= int64(len(names)) {
		next = 0
	}
	return out, next, kernelerr.OK
}
