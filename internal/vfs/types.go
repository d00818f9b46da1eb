// Package vfs implements the kernel's Inode/Vnode/Descriptor trichotomy,
// the mount graph, and path resolution, per spec.md §4.4 and §3's data
// model. Capability interfaces follow go-fuse's fs package convention
// (fs/api.go): a backend only implements the operations it supports, and
// anything it omits falls back to a fixed default (EBADF/ENOSYS/EINVAL).
package vfs

import (
	"time"
)

// NodeType classifies what kind of filesystem object an Inode is.
type NodeType int

const (
	TypeFile NodeType = iota
	TypeDir
	TypeSymlink
	TypeStream
	TypeFifo
	TypeSocket
	TypeTTY
)

// StatInfo is the subset of POSIX struct stat the kernel tracks.
type StatInfo struct {
	Dev, Ino         uint64
	Mode             uint32
	Uid, Gid         uint32
	Size             int64
	Atime, Mtime, Ctime time.Time
	Blksize          int32
}

// DirEntry is one entry returned by Readdirents.
type DirEntry struct {
	Ino  uint64
	Name string
	Type NodeType
}

// Open-time flags, carried in a Descriptor's DFlags.
const (
	ORdonly = 0
	OWronly = 1 << iota
	ORdwr
	OAppend
	OCreat
	OExcl
	OTrunc
	ONonblock
	ODirectory
	ONofollow
	OSymlinkNofollow
	OSearch
	OCloexec
	OClofork
)

// Seek whence values for lseek.
const (
	SeekSet = iota
	SeekCur
	SeekEnd
)

// Unmount flags.
const (
	UnmountForce = 1 << iota
	UnmountDetach
)

// Poll() readiness bits, returned by the Poller capability interface.
const (
	PollIn = 1 << iota
	PollOut
	PollErr
	PollHup
)
