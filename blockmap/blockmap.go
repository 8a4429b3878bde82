// Package blockmap models the erase geometry of a flash device: one or more
// regions, each a run of equally sized erase blocks. Offsets are relative to
// the start of the device.
package blockmap

import "fmt"

// Region is a contiguous run of erase blocks of one size.
type Region struct {
	Offset     uint64
	BlockSize  uint64
	BlockCount int
}

// End returns the first offset past the region.
func (r Region) End() uint64 {
	return r.Offset + r.BlockSize*uint64(r.BlockCount)
}

// Map describes the full erase geometry of a device.
type Map struct {
	regions []Region
	size    uint64
}

// New returns an empty map; populate it with AddRegion.
func New() *Map {
	return &Map{}
}

// Uniform builds a single-region map for a chip with one erase size.
func Uniform(size, blockSize uint64) (*Map, error) {
	if blockSize == 0 {
		return nil, fmt.Errorf("erase block size must not be zero")
	}
	if size%blockSize != 0 {
		return nil, fmt.Errorf("size 0x%x is not a multiple of erase block size 0x%x", size, blockSize)
	}
	m := New()
	m.AddRegion(blockSize, int(size/blockSize))
	return m, nil
}

// AddRegion appends a run of blockCount blocks of blockSize bytes each,
// starting right after the last region.
func (m *Map) AddRegion(blockSize uint64, blockCount int) {
	m.regions = append(m.regions, Region{
		Offset:     m.size,
		BlockSize:  blockSize,
		BlockCount: blockCount,
	})
	m.size += blockSize * uint64(blockCount)
}

// Size returns the total size covered by the map in bytes.
func (m *Map) Size() uint64 {
	return m.size
}

// NumRegions returns the number of erase regions.
func (m *Map) NumRegions() int {
	return len(m.regions)
}

// Regions returns a copy of the region table.
func (m *Map) Regions() []Region {
	out := make([]Region, len(m.regions))
	copy(out, m.regions)
	return out
}

// BlockCount returns the total number of erase blocks across all regions.
func (m *Map) BlockCount() int {
	n := 0
	for _, r := range m.regions {
		n += r.BlockCount
	}
	return n
}

// BlockAt returns the start offset and size of the erase block containing off.
func (m *Map) BlockAt(off uint64) (start, size uint64, err error) {
	if off >= m.size {
		return 0, 0, fmt.Errorf("offset 0x%x is out of bounds [0x0, 0x%x)", off, m.size)
	}
	for _, r := range m.regions {
		if off < r.Offset || off >= r.End() {
			continue
		}
		n := (off - r.Offset) / r.BlockSize
		return r.Offset + n*r.BlockSize, r.BlockSize, nil
	}
	return 0, 0, fmt.Errorf("no erase block found for offset 0x%x", off)
}

// AlignedRange reports whether [off, off+length) starts and ends on erase
// block boundaries. A non-nil error names the misaligned edge.
func (m *Map) AlignedRange(off, length uint64) error {
	if length == 0 {
		return fmt.Errorf("length must not be zero")
	}
	if off+length > m.size {
		return fmt.Errorf("range [0x%x, 0x%x) is out of bounds (device size 0x%x)", off, off+length, m.size)
	}
	start, _, err := m.BlockAt(off)
	if err != nil {
		return err
	}
	if start != off {
		return fmt.Errorf("offset 0x%x is not on an erase block boundary (block starts at 0x%x)", off, start)
	}
	end := off + length
	if end != m.size {
		start, _, err = m.BlockAt(end)
		if err != nil {
			return err
		}
		if start != end {
			return fmt.Errorf("end 0x%x is not on an erase block boundary (block starts at 0x%x)", end, start)
		}
	}
	return nil
}

// String implements Stringer.
func (m *Map) String() string {
	info := fmt.Sprintf("%d regions, %d blocks, total size 0x%08x\n", len(m.regions), m.BlockCount(), m.size)
	for i, r := range m.regions {
		info += fmt.Sprintf("  region #%d: [%08x, %08x) %d blocks of 0x%x\n", i, r.Offset, r.End(), r.BlockCount, r.BlockSize)
	}
	return info
}
