//go:build linux

package mtd

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mirrors of the <mtd/mtd-abi.h> ioctl argument structs. Field order and
// padding must match the kernel exactly; the request numbers encode the
// struct sizes.
type infoUser struct {
	Kind      uint8
	_         [3]byte
	Flags     uint32
	Size      uint32
	EraseSize uint32
	WriteSize uint32
	OOBSize   uint32
	_         uint64
}

type eraseInfoUser struct {
	Start  uint32
	Length uint32
}

type regionInfoUser struct {
	Offset      uint32
	EraseSize   uint32
	NumBlocks   uint32
	RegionIndex uint32
}

// ioctl direction bits, as in the kernel's _IOC macros.
const (
	iocWrite = 1
	iocRead  = 2

	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | size<<iocSizeShift | typ<<iocTypeShift | nr<<iocNrShift
}

// MTD ioctl requests ('M' is the MTD ioctl type).
var (
	memGetInfo        = ioc(iocRead, 'M', 1, unsafe.Sizeof(infoUser{}))
	memErase          = ioc(iocWrite, 'M', 2, unsafe.Sizeof(eraseInfoUser{}))
	memGetRegionCount = ioc(iocRead, 'M', 7, unsafe.Sizeof(int32(0)))
	memGetRegionInfo  = ioc(iocRead|iocWrite, 'M', 8, unsafe.Sizeof(regionInfoUser{}))
)

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
