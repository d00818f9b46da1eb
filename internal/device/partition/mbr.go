package partition

import (
	"encoding/binary"

	"github.com/sortix-go/kernel/internal/device/blockdev"
	"github.com/sortix-go/kernel/internal/kernelerr"
)

// mbrEntry is one of the four 16-byte primary entries at offset 446.
type mbrEntry struct {
	typ        uint8
	startLBA   uint32
	numSectors uint32
}

func parseMBREntry(raw []byte) mbrEntry {
	return mbrEntry{
		typ:        raw[4],
		startLBA:   binary.LittleEndian.Uint32(raw[8:12]),
		numSectors: binary.LittleEndian.Uint32(raw[12:16]),
	}
}

// decodeMBR decodes the classic 512-byte table's four primary entries.
// Extended partitions (type 0x05/0x0F) are walked as a chain of logical
// partitions, per spec.md's "standard chain" note.
func decodeMBR(disk blockdev.Device) ([]Partition, kernelerr.Errno) {
	sector := make([]byte, sectorSize)
	if errno := blockdev.PreadAll(disk, sector, 0); errno != kernelerr.OK {
		return nil, errno
	}

	var parts []Partition
	for i := 0; i < 4; i++ {
		raw := sector[446+i*16 : 446+(i+1)*16]
		e := parseMBREntry(raw)
		if e.typ == 0 {
			continue
		}
		start := int64(e.startLBA) * sectorSize
		length := int64(e.numSectors) * sectorSize
		if e.typ == 0x05 || e.typ == 0x0F {
			logical, errno := decodeExtendedChain(disk, e.startLBA, e.startLBA)
			if errno != kernelerr.OK {
				return nil, errno
			}
			parts = append(parts, logical...)
			continue
		}
		parts = append(parts, Partition{Start: start, Length: length})
	}
	return parts, kernelerr.OK
}

// decodeExtendedChain walks the linked list of extended-partition
// boot records, each pointing at the next relative to extendedStart.
func decodeExtendedChain(disk blockdev.Device, lba, extendedStart uint32) ([]Partition, kernelerr.Errno) {
	var parts []Partition
	for lba != 0 {
		sector := make([]byte, sectorSize)
		if errno := blockdev.PreadAll(disk, sector, int64(lba)*sectorSize); errno != kernelerr.OK {
			return nil, errno
		}
		if binary.LittleEndian.Uint16(sector[510:512]) != 0x55AA {
			break
		}
		first := parseMBREntry(sector[446:462])
		second := parseMBREntry(sector[462:478])
		if first.typ != 0 {
			parts = append(parts, Partition{
				Start:  int64(lba+first.startLBA) * sectorSize,
				Length: int64(first.numSectors) * sectorSize,
			})
		}
		if second.typ == 0x05 || second.typ == 0x0F {
			lba = extendedStart + second.startLBA
			continue
		}
		break
	}
	return parts, kernelerr.OK
}
