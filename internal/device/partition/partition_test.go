package partition

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sortix-go/kernel/internal/device/blockdev"
	"github.com/sortix-go/kernel/internal/kernelerr"
)

const testSectorSize = 512

// buildGPTImage assembles a minimal but valid protective-MBR + GPT disk
// image: one partition entry, name "TEST", covering LBA [2048, 4095]
// (2048 sectors), per scenario S4.
func buildGPTImage(t *testing.T) []byte {
	t.Helper()
	const diskSectors = 4200
	img := make([]byte, diskSectors*testSectorSize)

	// LBA0: protective MBR. First entry type 0xEE, signature 0x55AA.
	mbr := img[0:testSectorSize]
	mbr[446+4] = 0xEE
	binary.LittleEndian.PutUint16(mbr[510:512], 0x55AA)

	// Partition entry array at LBA2, one 128-byte entry.
	const entryLBA = 2
	const entrySize = 128
	entry := make([]byte, entrySize)
	for i := 0; i < 16; i++ {
		entry[i] = 0x01 // non-zero partition_type_guid marks the slot in-use
	}
	for i := 16; i < 32; i++ {
		entry[i] = 0x02 // unique_partition_guid, arbitrary
	}
	binary.LittleEndian.PutUint64(entry[32:40], 2048) // first LBA
	binary.LittleEndian.PutUint64(entry[40:48], 4095) // last LBA (2048 sectors inclusive)
	name := []byte("TEST")
	for i, r := range name {
		binary.LittleEndian.PutUint16(entry[56+i*2:58+i*2], uint16(r))
	}
	copy(img[entryLBA*testSectorSize:], entry)
	arrayCRC := crc32.ChecksumIEEE(entry)

	// LBA1: GPT header.
	hdr := img[testSectorSize : 2*testSectorSize]
	copy(hdr[0:8], "EFI PART")
	const headerSize = 92
	binary.LittleEndian.PutUint32(hdr[12:16], headerSize)
	binary.LittleEndian.PutUint64(hdr[72:80], entryLBA)
	binary.LittleEndian.PutUint32(hdr[80:84], 1) // number_of_partition_entries
	binary.LittleEndian.PutUint32(hdr[84:88], entrySize)
	binary.LittleEndian.PutUint32(hdr[88:92], arrayCRC)

	headerCRC := crc32.ChecksumIEEE(hdr[:headerSize]) // header_crc32 field still zero here
	binary.LittleEndian.PutUint32(hdr[16:20], headerCRC)

	return img
}

// TestProbeAndDecodeGPT is scenario S4: ProbeTableType classifies the
// image as GPT, and GetPartitionTable decodes exactly one partition
// {start: 2048*lbs, length: 2048*lbs, name: "TEST"}.
func TestProbeAndDecodeGPT(t *testing.T) {
	img := buildGPTImage(t)
	disk := blockdev.NewDisk(bytes.NewReader(img), int64(len(img)), testSectorSize)

	tt, errno := ProbeTableType(disk)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, TableGPT, tt)

	gotType, parts, errno := GetPartitionTable(disk)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, TableGPT, gotType)
	require.Len(t, parts, 1)
	require.EqualValues(t, 2048*testSectorSize, parts[0].Start)
	require.EqualValues(t, 2048*testSectorSize, parts[0].Length)
	require.Equal(t, "TEST", parts[0].Name)
}

func TestProbeMBROnlyDisk(t *testing.T) {
	img := make([]byte, 4*testSectorSize)
	binary.LittleEndian.PutUint16(img[510:512], 0x55AA)
	// one primary entry: type 0x83, start LBA 1, 2 sectors.
	img[446+4] = 0x83
	binary.LittleEndian.PutUint32(img[446+8:446+12], 1)
	binary.LittleEndian.PutUint32(img[446+12:446+16], 2)
	disk := blockdev.NewDisk(bytes.NewReader(img), int64(len(img)), testSectorSize)

	tt, errno := ProbeTableType(disk)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, TableMBR, tt)

	_, parts, errno := GetPartitionTable(disk)
	require.Equal(t, kernelerr.OK, errno)
	require.Len(t, parts, 1)
	require.EqualValues(t, testSectorSize, parts[0].Start)
	require.EqualValues(t, 2*testSectorSize, parts[0].Length)
}

func TestProbeNoSignatureIsTableNone(t *testing.T) {
	img := make([]byte, testSectorSize)
	disk := blockdev.NewDisk(bytes.NewReader(img), int64(len(img)), testSectorSize)
	tt, errno := ProbeTableType(disk)
	require.Equal(t, kernelerr.OK, errno)
	require.Equal(t, TableNone, tt)
}
