// Package partition decodes MBR and GPT partition tables and probes
// which kind a disk carries, per spec.md §4.7 and scenario S4.
package partition

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/sortix-go/kernel/internal/device/blockdev"
	"github.com/sortix-go/kernel/internal/kernelerr"
)

// TableType classifies what a disk's first sector describes.
type TableType int

const (
	TableNone TableType = iota
	TableUnknown
	TableMBR
	TableGPT
)

// Partition is one decoded partition: its byte offset/length within
// the parent blockdevice, and (GPT only) the partition name and GUIDs.
type Partition struct {
	Start, Length      int64
	Name               string
	UniquePartitionGUID uuid.UUID
	PartitionTypeGUID  uuid.UUID
}

const sectorSize = 512

// ProbeTableType reads the first sector (and, for GPT, LBA 1) of disk
// and classifies its partition table, per
// blockdevice_probe_partition_table_type: signature 0x55AA plus a valid
// MBR -> MBR; if the first partition entry has type 0xEE -> examine LBA
// 1 for a GPT header signature "EFI PART" with a valid CRC -> GPT.
func ProbeTableType(disk blockdev.Device) (TableType, kernelerr.Errno) {
	sector := make([]byte, sectorSize)
	if errno := blockdev.PreadAll(disk, sector, 0); errno != kernelerr.OK {
		return TableNone, errno
	}
	if binary.LittleEndian.Uint16(sector[510:512]) != 0x55AA {
		return TableNone, kernelerr.OK
	}
	if sector[446+4] == 0xEE {
		ok, errno := probeGPTHeader(disk)
		if errno != kernelerr.OK {
			return TableNone, errno
		}
		if ok {
			return TableGPT, kernelerr.OK
		}
	}
	return TableMBR, kernelerr.OK
}

func probeGPTHeader(disk blockdev.Device) (bool, kernelerr.Errno) {
	hdr := make([]byte, sectorSize)
	if errno := blockdev.PreadAll(disk, hdr, sectorSize); errno != kernelerr.OK {
		return false, errno
	}
	if string(hdr[0:8]) != "EFI PART" {
		return false, kernelerr.OK
	}
	return verifyHeaderCRC(hdr), kernelerr.OK
}

func verifyHeaderCRC(hdr []byte) bool {
	want := binary.LittleEndian.Uint32(hdr[16:20])
	headerSize := binary.LittleEndian.Uint32(hdr[12:16])
	if int(headerSize) > len(hdr) {
		return false
	}
	buf := make([]byte, headerSize)
	copy(buf, hdr[:headerSize])
	// header_crc32 field is zeroed before recomputation.
	binary.LittleEndian.PutUint32(buf[16:20], 0)
	return crc32.ChecksumIEEE(buf) == want
}

// GetPartitionTable decodes disk's partition table into a list of
// Partitions, per ProbeTableType's classification.
func GetPartitionTable(disk blockdev.Device) (TableType, []Partition, kernelerr.Errno) {
	tt, errno := ProbeTableType(disk)
	if errno != kernelerr.OK || tt == TableNone || tt == TableUnknown {
		return tt, nil, errno
	}
	if tt == TableGPT {
		parts, errno := decodeGPT(disk)
		return tt, parts, errno
	}
	parts, errno := decodeMBR(disk)
	return tt, parts, errno
}
