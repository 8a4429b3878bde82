package mtd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blankImage creates a temp image file of the given size filled with the
// erased-state value and opens it read-write.
func blankImage(t *testing.T, size int, eraseSize uint32) *ImageDevice {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flash.img")
	buf := bytes.Repeat([]byte{0xFF}, size)
	require.NoError(t, os.WriteFile(path, buf, 0644))

	dev, err := OpenImage(path, false, eraseSize)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestImageWriteReadBack(t *testing.T) {
	dev := blankImage(t, 4096, 1024)

	want := []byte("boot code goes here")
	n, err := dev.WriteAt(want, 0x100)
	require.NoError(t, err)
	require.Equal(t, len(want), n)

	got := make([]byte, len(want))
	_, err = dev.ReadAt(got, 0x100)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Bytes around the write are untouched.
	around := make([]byte, 1)
	_, err = dev.ReadAt(around, 0x100+int64(len(want)))
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), around[0])
}

func TestImageEraseFillsWithOnes(t *testing.T) {
	dev := blankImage(t, 4096, 1024)

	_, err := dev.WriteAt(bytes.Repeat([]byte{0xAB}, 2048), 1024)
	require.NoError(t, err)

	require.NoError(t, dev.Erase(1024, 1024))

	buf := make([]byte, 3072)
	_, err = dev.ReadAt(buf, 1024)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 1024), buf[:1024], "erased block")
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 1024), buf[1024:2048], "neighboring block untouched")
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 1024), buf[2048:], "never-written block")
}

func TestImageEraseAlignment(t *testing.T) {
	dev := blankImage(t, 4096, 1024)

	assert.Error(t, dev.Erase(512, 1024), "misaligned start")
	assert.Error(t, dev.Erase(0, 512), "misaligned length")
	assert.Error(t, dev.Erase(4096, 1024), "past the end")
	assert.NoError(t, dev.Erase(0, 4096), "whole device")
}

func TestImageBounds(t *testing.T) {
	dev := blankImage(t, 1024, 1024)

	buf := make([]byte, 16)
	_, err := dev.ReadAt(buf, 1020)
	assert.Error(t, err, "read past the end")

	_, err = dev.WriteAt(buf, 1020)
	assert.Error(t, err, "write past the end")

	_, err = dev.ReadAt(buf, -1)
	assert.Error(t, err, "negative offset")
}

func TestImageInfoAndRegions(t *testing.T) {
	dev := blankImage(t, 1<<20, 64*1024)

	info, err := dev.Info()
	require.NoError(t, err)
	assert.Equal(t, uint8(TypeNOR), info.Type)
	assert.Equal(t, uint32(CapNORFlash), info.Flags)
	assert.Equal(t, uint32(1<<20), info.Size)
	assert.Equal(t, uint32(64*1024), info.EraseSize)
	assert.Equal(t, uint32(1), info.WriteSize)

	regions, err := dev.Regions()
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, uint32(16), regions[0].NumBlocks)

	geom, err := Geometry(info, regions)
	require.NoError(t, err)
	assert.Equal(t, uint64(info.Size), geom.Size())
}

func TestImageReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xFF}, 2048), 0644))

	dev, err := OpenImage(path, true, 1024)
	require.NoError(t, err)
	defer dev.Close()

	info, err := dev.Info()
	require.NoError(t, err)
	assert.Equal(t, uint32(CapROM), info.Flags)

	_, err = dev.WriteAt([]byte{0}, 0)
	assert.Error(t, err)
	assert.Error(t, dev.Erase(0, 1024))
}

func TestImageSizeMustMatchGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.img")
	require.NoError(t, os.WriteFile(path, make([]byte, 1000), 0644))

	_, err := OpenImage(path, true, 1024)
	assert.Error(t, err)
}
