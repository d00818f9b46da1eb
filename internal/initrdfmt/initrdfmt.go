// Package initrdfmt decodes the initrd v2 wire format: a superblock,
// an inode table, file data regions, and a trailing checksum, per
// spec.md §6. Only the probe/dispatch interface is in scope — this is
// a decoder, not a mountable filesystem driver.
package initrdfmt

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"golang.org/x/crypto/blake2b"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

// Magic is the fixed 16-byte superblock signature.
const Magic = "sortix-initrd-2"

const superblockSize = 16 + 4*8
const inodeRecordSize = 4*4 + 8*2 + 4*2

// Checksum algorithm identifiers. 0 is spec.md's baseline; 1 is the
// documented extension point SPEC_FULL adds, exercised end to end here.
const (
	SumCRC32    uint32 = 0
	SumBLAKE2b256 uint32 = 1
)

// Superblock mirrors struct initrd_superblock.
type Superblock struct {
	FSSize       uint32
	Revision     uint32
	InodeSize    uint32
	InodeCount   uint32
	InodeOffset  uint32
	Root         uint32
	SumAlgorithm uint32
	SumSize      uint32
}

// Inode mirrors struct initrd_inode.
type Inode struct {
	Mode, Uid, Gid, Nlink uint32
	Ctime, Mtime          uint64
	DataOffset, Size      uint32
}

// Dirent mirrors struct initrd_dirent: a variable-length directory
// entry with a reclen stride, terminated by reaching the directory
// inode's declared size.
type Dirent struct {
	Inode uint32
	Name  string
}

// Decode parses a full initrd v2 image.
func Decode(image []byte) (Superblock, []Inode, kernelerr.Errno) {
	if len(image) < superblockSize {
		return Superblock{}, nil, kernelerr.EINVAL
	}
	if string(image[0:16]) != padMagic() {
		return Superblock{}, nil, kernelerr.EINVAL
	}
	r := bytes.NewReader(image[16:superblockSize])
	var sb Superblock
	fields := []*uint32{&sb.FSSize, &sb.Revision, &sb.InodeSize, &sb.InodeCount,
		&sb.InodeOffset, &sb.Root, &sb.SumAlgorithm, &sb.SumSize}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return Superblock{}, nil, kernelerr.EINVAL
		}
	}

	if errno := VerifyChecksum(image, sb); errno != kernelerr.OK {
		return sb, nil, errno
	}

	inodes := make([]Inode, sb.InodeCount)
	off := int(sb.InodeOffset)
	for i := range inodes {
		if off+inodeRecordSize > len(image) {
			return sb, nil, kernelerr.EINVAL
		}
		rec := image[off : off+inodeRecordSize]
		ir := bytes.NewReader(rec)
		fields := []interface{}{&inodes[i].Mode, &inodes[i].Uid, &inodes[i].Gid,
			&inodes[i].Nlink, &inodes[i].Ctime, &inodes[i].Mtime,
			&inodes[i].DataOffset, &inodes[i].Size}
		for _, f := range fields {
			if err := binary.Read(ir, binary.LittleEndian, f); err != nil {
				return sb, nil, kernelerr.EINVAL
			}
		}
		off += inodeRecordSize
	}
	return sb, inodes, kernelerr.OK
}

func padMagic() string {
	b := make([]byte, 16)
	copy(b, Magic)
	return string(b)
}

// DecodeDirents parses a directory inode's data region into a sequence
// of Dirents, each carrying its own reclen stride, up to the inode's
// declared size.
func DecodeDirents(image []byte, ino Inode) ([]Dirent, kernelerr.Errno) {
	start := int(ino.DataOffset)
	end := start + int(ino.Size)
	if end > len(image) || start < 0 {
		return nil, kernelerr.EINVAL
	}
	data := image[start:end]

	var ents []Dirent
	pos := 0
	for pos+8 <= len(data) {
		inodeNum := binary.LittleEndian.Uint32(data[pos : pos+4])
		reclen := binary.LittleEndian.Uint16(data[pos+4 : pos+6])
		namelen := binary.LittleEndian.Uint16(data[pos+6 : pos+8])
		if reclen == 0 || pos+int(reclen) > len(data) || int(8+namelen) > int(reclen) {
			return nil, kernelerr.EINVAL
		}
		name := string(data[pos+8 : pos+8+int(namelen)])
		ents = append(ents, Dirent{Inode: inodeNum, Name: name})
		pos += int(reclen)
	}
	return ents, kernelerr.OK
}

// VerifyChecksum validates the sumsize-byte trailing checksum under
// sb.SumAlgorithm against image[:fssize-sumsize].
func VerifyChecksum(image []byte, sb Superblock) kernelerr.Errno {
	if sb.SumSize == 0 {
		return kernelerr.OK
	}
	if uint32(len(image)) < sb.FSSize || sb.FSSize < sb.SumSize {
		return kernelerr.EINVAL
	}
	payload := image[:sb.FSSize-sb.SumSize]
	trailer := image[sb.FSSize-sb.SumSize : sb.FSSize]

	switch sb.SumAlgorithm {
	case SumCRC32:
		if len(trailer) < 4 {
			return kernelerr.EINVAL
		}
		want := binary.LittleEndian.Uint32(trailer[:4])
		if crc32.ChecksumIEEE(payload) != want {
			return kernelerr.EIO
		}
		return kernelerr.OK
	case SumBLAKE2b256:
		if len(trailer) < blake2b.Size256 {
			return kernelerr.EINVAL
		}
		sum := blake2b.Sum256(payload)
		if !bytes.Equal(sum[:], trailer[:blake2b.Size256]) {
			return kernelerr.EIO
		}
		return kernelerr.OK
	default:
		return kernelerr.EINVAL
	}
}
