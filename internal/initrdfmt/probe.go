package initrdfmt

import (
	"bytes"

	"github.com/sortix-go/kernel/internal/device/blockdev"
	"github.com/sortix-go/kernel/internal/kernelerr"
)

// Handler adapts initrd v2 recognition to fsprobe.Handler. Only the
// probe/dispatch interface is in scope (spec.md's Non-goals exclude
// real filesystem format implementations beyond this), so Inspect
// returns the decoded Superblock/inode table rather than a mountable
// filesystem.
type Handler struct{}

func (Handler) Name() string       { return "initrd-v2" }
func (Handler) ProbeAmount() int   { return superblockSize }
func (Handler) Probe(lead []byte) bool {
	return len(lead) >= 16 && bytes.Equal(lead[:16], []byte(padMagic()))
}

// Image is the decoded result fsprobe.Registry.InspectFilesystem
// returns via Inspect's interface{} for a recognized initrd image.
type Image struct {
	Superblock Superblock
	Inodes     []Inode
	raw        []byte
}

// Dirents decodes the directory entries of inode index i, which must
// have a directory mode bit set by the caller's own convention (initrd
// v2 carries no separate file-type field beyond st_mode).
func (img Image) Dirents(i uint32) ([]Dirent, kernelerr.Errno) {
	if int(i) >= len(img.Inodes) {
		return nil, kernelerr.EINVAL
	}
	return DecodeDirents(img.raw, img.Inodes[i])
}

func (Handler) Inspect(disk blockdev.Device, lead []byte) (interface{}, kernelerr.Errno) {
	full := make([]byte, disk.Size())
	if errno := blockdev.PreadAll(disk, full, 0); errno != kernelerr.OK {
		return nil, errno
	}
	sb, inodes, errno := Decode(full)
	if errno != kernelerr.OK {
		return nil, errno
	}
	return Image{Superblock: sb, Inodes: inodes, raw: full}, kernelerr.OK
}
