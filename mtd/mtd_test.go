package mtd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeName(t *testing.T) {
	assert.Equal(t, "MTD_NORFLASH", TypeName(TypeNOR))
	assert.Equal(t, "MTD_NANDFLASH", TypeName(TypeNAND))
	assert.Equal(t, "MTD_ABSENT", TypeName(TypeAbsent))
	assert.Equal(t, "MTD_UBIVOLUME", TypeName(TypeUBIVolume))
	assert.Contains(t, TypeName(99), "unknown")
}

func TestFlagNames(t *testing.T) {
	testCases := []struct {
		flags uint32
		want  string
	}{
		{CapROM, "MTD_CAP_ROM"},
		{CapRAM, "MTD_CAP_RAM"},
		{CapNORFlash, "MTD_CAP_NORFLASH"},
		{CapNANDFlash, "MTD_CAP_NANDFLASH"},
		{FlagWriteable | FlagPowerupLock, "MTD_WRITEABLE | MTD_POWERUP_LOCK"},
		{FlagNoErase, "MTD_NO_ERASE"},
		{0x1, "0x1"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, FlagNames(tc.flags))
	}
}

func TestFormatSize(t *testing.T) {
	testCases := []struct {
		n    uint64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{512, "512"},
		{1024, "1024 (1K)"},
		{65536, "65536 (64K)"},
		{1 << 20, "1048576 (1M)"},
		{1 << 30, "1073741824 (1G)"},
		{1000, "1000"},
		{1536, "1536"}, // 1.5K does not divide evenly
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, FormatSize(tc.n))
	}
}

func TestGeometryFromRegions(t *testing.T) {
	info := Info{Size: 0x120000, EraseSize: 0x20000}
	regions := []EraseRegion{
		{Offset: 0, EraseSize: 0x20000, NumBlocks: 8, RegionIndex: 0},
		{Offset: 0x100000, EraseSize: 0x8000, NumBlocks: 4, RegionIndex: 1},
	}

	geom, err := Geometry(info, regions)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x120000), geom.Size())
	assert.Equal(t, 2, geom.NumRegions())
	assert.Equal(t, 12, geom.BlockCount())

	start, size, err := geom.BlockAt(0x110000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x110000), start)
	assert.Equal(t, uint64(0x8000), size)
}

func TestGeometryUniformFallback(t *testing.T) {
	info := Info{Size: 1 << 20, EraseSize: 64 * 1024}
	geom, err := Geometry(info, nil)
	require.NoError(t, err)
	assert.Equal(t, 16, geom.BlockCount())
}

func TestGeometryInconsistent(t *testing.T) {
	info := Info{Size: 0x40000, EraseSize: 0x20000}

	// Gap between regions.
	_, err := Geometry(info, []EraseRegion{
		{Offset: 0x20000, EraseSize: 0x20000, NumBlocks: 1, RegionIndex: 0},
	})
	assert.Error(t, err)

	// Regions do not cover the reported size.
	_, err = Geometry(info, []EraseRegion{
		{Offset: 0, EraseSize: 0x20000, NumBlocks: 1, RegionIndex: 0},
	})
	assert.Error(t, err)
}
