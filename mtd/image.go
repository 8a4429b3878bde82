package mtd

import (
	"fmt"
	"os"

	"mtdtool/blockmap"
)

// DefaultImageEraseSize is the erase geometry assumed for image files when
// the user does not specify one.
const DefaultImageEraseSize = 64 * 1024

// ImageDevice is a flash image file on disk behaving like a NOR chip:
// byte-addressable reads and writes, erase fills whole blocks with 0xFF.
type ImageDevice struct {
	f        *os.File
	path     string
	size     uint64
	geom     *blockmap.Map
	readOnly bool
}

// OpenImage opens path as a flash image with a uniform erase geometry.
// The file size must be a multiple of eraseSize.
func OpenImage(path string, readOnly bool, eraseSize uint32) (*ImageDevice, error) {
	if eraseSize == 0 {
		eraseSize = DefaultImageEraseSize
	}
	flags := os.O_RDWR
	if readOnly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	geom, err := blockmap.Uniform(uint64(st.Size()), uint64(eraseSize))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("image %s: %w", path, err)
	}
	return &ImageDevice{
		f:        f,
		path:     path,
		size:     uint64(st.Size()),
		geom:     geom,
		readOnly: readOnly,
	}, nil
}

// Size returns the image size in bytes.
func (d *ImageDevice) Size() uint64 {
	return d.size
}

func (d *ImageDevice) Info() (Info, error) {
	flags := uint32(CapNORFlash)
	if d.readOnly {
		flags = CapROM
	}
	regions := d.geom.Regions()
	return Info{
		Type:      TypeNOR,
		Flags:     flags,
		Size:      uint32(d.size),
		EraseSize: uint32(regions[0].BlockSize),
		WriteSize: 1,
		OOBSize:   0,
	}, nil
}

func (d *ImageDevice) Regions() ([]EraseRegion, error) {
	var out []EraseRegion
	for i, r := range d.geom.Regions() {
		out = append(out, EraseRegion{
			Offset:      uint32(r.Offset),
			EraseSize:   uint32(r.BlockSize),
			NumBlocks:   uint32(r.BlockCount),
			RegionIndex: uint32(i),
		})
	}
	return out, nil
}

func (d *ImageDevice) ReadAt(p []byte, off int64) (int, error) {
	if err := d.checkBounds(off, len(p)); err != nil {
		return 0, err
	}
	return d.f.ReadAt(p, off)
}

func (d *ImageDevice) WriteAt(p []byte, off int64) (int, error) {
	if d.readOnly {
		return 0, fmt.Errorf("%s is open read-only", d.path)
	}
	if err := d.checkBounds(off, len(p)); err != nil {
		return 0, err
	}
	return d.f.WriteAt(p, off)
}

func (d *ImageDevice) checkBounds(off int64, n int) error {
	if off < 0 || uint64(off)+uint64(n) > d.size {
		return fmt.Errorf("range [0x%x, 0x%x) out of bounds (image size 0x%x)", off, uint64(off)+uint64(n), d.size)
	}
	return nil
}

func (d *ImageDevice) Erase(offset, length uint32) error {
	if d.readOnly {
		return fmt.Errorf("%s is open read-only", d.path)
	}
	if err := d.geom.AlignedRange(uint64(offset), uint64(length)); err != nil {
		return err
	}
	fill := make([]byte, 64*1024)
	for i := range fill {
		fill[i] = erasedByte
	}
	remaining := uint64(length)
	pos := int64(offset)
	for remaining > 0 {
		n := uint64(len(fill))
		if n > remaining {
			n = remaining
		}
		if _, err := d.f.WriteAt(fill[:n], pos); err != nil {
			return fmt.Errorf("erase fill at 0x%x: %w", pos, err)
		}
		pos += int64(n)
		remaining -= n
	}
	return nil
}

func (d *ImageDevice) Close() error {
	return d.f.Close()
}
