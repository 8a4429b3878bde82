// Package mtd talks to raw flash devices exposed by the Linux MTD subsystem
// (/dev/mtdN character nodes) and to flash image files on disk, behind one
// Device interface.
package mtd

import (
	"fmt"
	"io"
	"strings"

	"mtdtool/blockmap"
)

// Device type codes, as reported by MEMGETINFO.
const (
	TypeAbsent    = 0
	TypeRAM       = 1
	TypeROM       = 2
	TypeNOR       = 3
	TypeNAND      = 4
	TypeDataflash = 6
	TypeUBIVolume = 7
	TypeMLCNAND   = 8
)

// Device flag bits.
const (
	FlagWriteable    = 0x400
	FlagBitWriteable = 0x800
	FlagNoErase      = 0x1000
	FlagPowerupLock  = 0x2000
)

// Capability combinations the kernel reports for whole device classes.
const (
	CapROM       = 0
	CapRAM       = FlagWriteable | FlagBitWriteable | FlagNoErase
	CapNORFlash  = FlagWriteable | FlagBitWriteable
	CapNANDFlash = FlagWriteable
)

// Erased flash reads back as all-ones.
const erasedByte = 0xFF

// Info is the device descriptor returned by MEMGETINFO. Sizes are in bytes;
// the legacy ioctl ABI caps them at 32 bits.
type Info struct {
	Type      uint8
	Flags     uint32
	Size      uint32
	EraseSize uint32
	WriteSize uint32
	OOBSize   uint32
}

// EraseRegion describes one run of equally sized erase blocks, as returned
// by MEMGETREGIONINFO.
type EraseRegion struct {
	Offset      uint32
	EraseSize   uint32
	NumBlocks   uint32
	RegionIndex uint32
}

// Device is one open flash target: a character device node or an image file.
type Device interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Info returns the device descriptor.
	Info() (Info, error)
	// Regions returns the erase region table. An empty table means the
	// whole device uses Info().EraseSize.
	Regions() ([]EraseRegion, error)
	// Erase erases [offset, offset+length). Both edges must sit on erase
	// block boundaries.
	Erase(offset, length uint32) error
}

// TypeName returns the kernel's name for a device type code.
func TypeName(t uint8) string {
	switch t {
	case TypeAbsent:
		return "MTD_ABSENT"
	case TypeRAM:
		return "MTD_RAM"
	case TypeROM:
		return "MTD_ROM"
	case TypeNOR:
		return "MTD_NORFLASH"
	case TypeNAND:
		return "MTD_NANDFLASH"
	case TypeDataflash:
		return "MTD_DATAFLASH"
	case TypeUBIVolume:
		return "MTD_UBIVOLUME"
	case TypeMLCNAND:
		return "MTD_MLCNANDFLASH"
	}
	return fmt.Sprintf("unknown type %d", t)
}

// FlagNames renders the flag word the way the kernel headers spell it:
// a capability name when the word matches one exactly, otherwise the
// individual bits joined with " | ".
func FlagNames(flags uint32) string {
	switch flags {
	case CapROM:
		return "MTD_CAP_ROM"
	case CapRAM:
		return "MTD_CAP_RAM"
	case CapNORFlash:
		return "MTD_CAP_NORFLASH"
	case CapNANDFlash:
		return "MTD_CAP_NANDFLASH"
	}
	known := []struct {
		name string
		bit  uint32
	}{
		{"MTD_WRITEABLE", FlagWriteable},
		{"MTD_BIT_WRITEABLE", FlagBitWriteable},
		{"MTD_NO_ERASE", FlagNoErase},
		{"MTD_POWERUP_LOCK", FlagPowerupLock},
	}
	var names []string
	for _, f := range known {
		if flags&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("0x%x", flags)
	}
	return strings.Join(names, " | ")
}

// FormatSize renders a byte count with a K/M/G/T shorthand when it divides
// evenly, e.g. "65536 (64K)".
func FormatSize(n uint64) string {
	suffixes := "KMGT"
	v := n
	shift := -1
	for v >= 1024 && v%1024 == 0 && shift < len(suffixes)-1 {
		v /= 1024
		shift++
	}
	if shift < 0 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d (%d%c)", n, v, suffixes[shift])
}

// Geometry builds an erase block map from a descriptor and its region table.
func Geometry(info Info, regions []EraseRegion) (*blockmap.Map, error) {
	if len(regions) == 0 {
		return blockmap.Uniform(uint64(info.Size), uint64(info.EraseSize))
	}
	m := blockmap.New()
	for _, r := range regions {
		if uint64(r.Offset) != m.Size() {
			return nil, fmt.Errorf("region %d starts at 0x%x, expected 0x%x", r.RegionIndex, r.Offset, m.Size())
		}
		m.AddRegion(uint64(r.EraseSize), int(r.NumBlocks))
	}
	if m.Size() != uint64(info.Size) {
		return nil, fmt.Errorf("regions cover 0x%x bytes, device reports 0x%x", m.Size(), info.Size)
	}
	return m, nil
}
