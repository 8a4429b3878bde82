package mtd

import (
	"fmt"

	"mtdtool/blockmap"
)

// BlockState classifies one erase block's contents.
type BlockState uint8

const (
	// BlockBlank means every byte in the block reads as 0xFF.
	BlockBlank BlockState = iota
	// BlockProgrammed means at least one byte differs from 0xFF.
	BlockProgrammed
)

// ScanBlocks reads every erase block of the device and classifies it as
// blank or programmed. The returned slice is ordered by block offset and
// matches the returned geometry's BlockCount.
func ScanBlocks(dev Device) ([]BlockState, *blockmap.Map, error) {
	info, err := dev.Info()
	if err != nil {
		return nil, nil, err
	}
	regions, err := dev.Regions()
	if err != nil {
		return nil, nil, err
	}
	geom, err := Geometry(info, regions)
	if err != nil {
		return nil, nil, err
	}

	states := make([]BlockState, 0, geom.BlockCount())
	var buf []byte
	for _, r := range geom.Regions() {
		if uint64(len(buf)) < r.BlockSize {
			buf = make([]byte, r.BlockSize)
		}
		for i := 0; i < r.BlockCount; i++ {
			off := r.Offset + uint64(i)*r.BlockSize
			if _, err := dev.ReadAt(buf[:r.BlockSize], int64(off)); err != nil {
				return nil, nil, fmt.Errorf("read block at 0x%x: %w", off, err)
			}
			states = append(states, classify(buf[:r.BlockSize]))
		}
	}
	return states, geom, nil
}

func classify(block []byte) BlockState {
	for _, b := range block {
		if b != erasedByte {
			return BlockProgrammed
		}
	}
	return BlockBlank
}
