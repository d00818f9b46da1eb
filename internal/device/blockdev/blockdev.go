// Package blockdev models spec.md's `blockdevice`: either a backing
// hard-disk-file handle, or a partition referring to a parent
// blockdevice by (start, length). Nested partitions unwrap iteratively
// down to the hard disk, with every read bounded to the window.
package blockdev

import (
	"io"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

// Device is a logical block device: a sequence of LogicalBlockSize()-
// sized blocks addressable by byte offset.
type Device interface {
	ReadAt(buf []byte, off int64) (int, kernelerr.Errno)
	LogicalBlockSize() int
	Size() int64
}

// Disk is a flat backing store (an in-memory image or a real file),
// the base case of spec.md's blockdevice union.
type Disk struct {
	r             io.ReaderAt
	size          int64
	logicalBlock  int
}

// NewDisk wraps r as a Device with the given logical block size.
func NewDisk(r io.ReaderAt, size int64, logicalBlockSize int) *Disk {
	return &Disk{r: r, size: size, logicalBlock: logicalBlockSize}
}

func (d *Disk) ReadAt(buf []byte, off int64) (int, kernelerr.Errno) {
	if off < 0 || off >= d.size {
		return 0, kernelerr.EINVAL
	}
	n, err := d.r.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return n, kernelerr.EIO
	}
	return n, kernelerr.OK
}

func (d *Disk) LogicalBlockSize() int { return d.logicalBlock }
func (d *Disk) Size() int64           { return d.size }

// Partition is a blockdevice nested inside a parent blockdevice,
// covering [start, start+length) bytes of the parent's address space.
// Reads are bounded to that window, per blockdevice_preadall's
// iterative unwrap-to-hard-disk behavior.
type Partition struct {
	Parent Device
	Start  int64
	Length int64
	Name   string // GPT partition name, empty for MBR
}

func NewPartition(parent Device, start, length int64, name string) *Partition {
	return &Partition{Parent: parent, Start: start, Length: length, Name: name}
}

func (p *Partition) ReadAt(buf []byte, off int64) (int, kernelerr.Errno) {
	if off < 0 || off+int64(len(buf)) > p.Length {
		return 0, kernelerr.EINVAL
	}
	return p.Parent.ReadAt(buf, p.Start+off)
}

func (p *Partition) LogicalBlockSize() int { return p.Parent.LogicalBlockSize() }
func (p *Partition) Size() int64           { return p.Length }

// PreadAll reads exactly len(buf) bytes starting at off, unwrapping any
// nesting of partitions transparently, mirroring blockdevice_preadall.
func PreadAll(d Device, buf []byte, off int64) kernelerr.Errno {
	total := 0
	for total < len(buf) {
		n, errno := d.ReadAt(buf[total:], off+int64(total))
		if errno != kernelerr.OK {
			return errno
		}
		if n == 0 {
			return kernelerr.EIO
		}
		total += n
	}
	return kernelerr.OK
}
