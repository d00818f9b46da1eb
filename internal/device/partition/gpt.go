package partition

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/sortix-go/kernel/internal/device/blockdev"
	"github.com/sortix-go/kernel/internal/kernelerr"
)

// decodeGPT reads the header at LBA 1 and the partition array starting
// at partition_entry_lba, per spec.md §4.7: "array starting at
// partition_entry_lba with number_of_partition_entries entries of
// size_of_partition_entry bytes (>=128)". Entries whose
// partition_type_guid is all-zero are empty slots and are skipped.
func decodeGPT(disk blockdev.Device) ([]Partition, kernelerr.Errno) {
	hdr := make([]byte, sectorSize)
	if errno := blockdev.PreadAll(disk, hdr, sectorSize); errno != kernelerr.OK {
		return nil, errno
	}

	entryLBA := binary.LittleEndian.Uint64(hdr[72:80])
	numEntries := binary.LittleEndian.Uint32(hdr[80:84])
	entrySize := binary.LittleEndian.Uint32(hdr[84:88])
	if entrySize < 128 {
		return nil, kernelerr.EINVAL
	}
	arrayCRC := binary.LittleEndian.Uint32(hdr[88:92])

	arrayBytes := make([]byte, uint64(numEntries)*uint64(entrySize))
	if errno := blockdev.PreadAll(disk, arrayBytes, int64(entryLBA)*sectorSize); errno != kernelerr.OK {
		return nil, errno
	}
	if crc32.ChecksumIEEE(arrayBytes) != arrayCRC {
		return nil, kernelerr.EINVAL
	}

	var parts []Partition
	for i := uint32(0); i < numEntries; i++ {
		raw := arrayBytes[uint64(i)*uint64(entrySize) : uint64(i)*uint64(entrySize)+uint64(entrySize)]
		typeGUID := parseGUID(raw[0:16])
		if typeGUID == uuid.Nil {
			continue
		}
		uniqueGUID := parseGUID(raw[16:32])
		firstLBA := binary.LittleEndian.Uint64(raw[32:40])
		lastLBA := binary.LittleEndian.Uint64(raw[40:48])
		name := decodeUTF16Name(raw[56:128])

		parts = append(parts, Partition{
			Start:               int64(firstLBA) * sectorSize,
			Length:              int64(lastLBA-firstLBA+1) * sectorSize,
			Name:                name,
			PartitionTypeGUID:   typeGUID,
			UniquePartitionGUID: uniqueGUID,
		})
	}
	return parts, kernelerr.OK
}

// parseGUID reads a 16-byte mixed-endian GPT GUID into a uuid.UUID. GPT
// stores the first three fields little-endian and the last two
// big-endian; uuid.UUID is always big-endian, so the first three
// fields are byte-swapped on the way in.
func parseGUID(b []byte) uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:16], b[8:16])
	return u
}

func decodeUTF16Name(b []byte) string {
	var runes []rune
	for i := 0; i+1 < len(b); i += 2 {
		r := rune(binary.LittleEndian.Uint16(b[i : i+2]))
		if r == 0 {
			break
		}
		runes = append(runes, r)
	}
	return string(runes)
}
