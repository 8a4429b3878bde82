package mtd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanBlocks(t *testing.T) {
	dev := blankImage(t, 8*1024, 1024)

	// Program one full block and one single byte in another.
	_, err := dev.WriteAt(make([]byte, 1024), 2*1024)
	require.NoError(t, err)
	_, err = dev.WriteAt([]byte{0x00}, 5*1024+17)
	require.NoError(t, err)

	states, geom, err := ScanBlocks(dev)
	require.NoError(t, err)
	require.Equal(t, geom.BlockCount(), len(states))

	want := []BlockState{
		BlockBlank, BlockBlank, BlockProgrammed, BlockBlank,
		BlockBlank, BlockProgrammed, BlockBlank, BlockBlank,
	}
	assert.Equal(t, want, states)
}

func TestScanBlocksAllBlank(t *testing.T) {
	dev := blankImage(t, 4*1024, 1024)

	states, _, err := ScanBlocks(dev)
	require.NoError(t, err)
	for i, st := range states {
		assert.Equal(t, BlockBlank, st, "block %d", i)
	}
}
