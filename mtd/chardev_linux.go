//go:build linux

package mtd

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// charDevice wraps an open /dev/mtdN node. Reads and writes go through the
// file descriptor; geometry and erase go through the MTD ioctls.
type charDevice struct {
	f *os.File
}

func openChar(node string, readOnly bool) (*charDevice, error) {
	flags := os.O_RDWR
	if readOnly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(node, flags|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", node, err)
	}
	return &charDevice{f: f}, nil
}

func (d *charDevice) Info() (Info, error) {
	var u infoUser
	if err := ioctl(d.f.Fd(), memGetInfo, unsafe.Pointer(&u)); err != nil {
		return Info{}, fmt.Errorf("MEMGETINFO: %w", err)
	}
	return Info{
		Type:      u.Kind,
		Flags:     u.Flags,
		Size:      u.Size,
		EraseSize: u.EraseSize,
		WriteSize: u.WriteSize,
		OOBSize:   u.OOBSize,
	}, nil
}

func (d *charDevice) Regions() ([]EraseRegion, error) {
	var count int32
	if err := ioctl(d.f.Fd(), memGetRegionCount, unsafe.Pointer(&count)); err != nil {
		return nil, fmt.Errorf("MEMGETREGIONCOUNT: %w", err)
	}
	regions := make([]EraseRegion, 0, count)
	for i := int32(0); i < count; i++ {
		u := regionInfoUser{RegionIndex: uint32(i)}
		if err := ioctl(d.f.Fd(), memGetRegionInfo, unsafe.Pointer(&u)); err != nil {
			return nil, fmt.Errorf("MEMGETREGIONINFO region %d: %w", i, err)
		}
		regions = append(regions, EraseRegion{
			Offset:      u.Offset,
			EraseSize:   u.EraseSize,
			NumBlocks:   u.NumBlocks,
			RegionIndex: u.RegionIndex,
		})
	}
	return regions, nil
}

func (d *charDevice) Erase(offset, length uint32) error {
	u := eraseInfoUser{Start: offset, Length: length}
	if err := ioctl(d.f.Fd(), memErase, unsafe.Pointer(&u)); err != nil {
		return fmt.Errorf("MEMERASE [0x%x, 0x%x): %w", offset, offset+length, err)
	}
	return nil
}

func (d *charDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

func (d *charDevice) WriteAt(p []byte, off int64) (int, error) {
	return d.f.WriteAt(p, off)
}

func (d *charDevice) Close() error {
	return d.f.Close()
}
