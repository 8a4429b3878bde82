// mtdtool
// Inspect and manipulate raw flash devices exposed by the Linux MTD
// subsystem, or flash image files on disk.
//
// Build:
//
//	go build -o mtdtool .
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mtdtool/blockview"
	"mtdtool/mtd"
)

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

/* ===================== Argument parsing ===================== */

// parseOffset parses a byte offset or length, decimal or 0x-prefixed hex.
func parseOffset(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}

// parseBlockSize parses an erase block size with an optional k/m suffix.
func parseBlockSize(s string) (uint32, error) {
	ss := strings.TrimSpace(strings.ToLower(s))
	if ss == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := uint64(1)
	switch {
	case strings.HasSuffix(ss, "k"):
		mult = 1024
		ss = strings.TrimSuffix(ss, "k")
	case strings.HasSuffix(ss, "m"):
		mult = 1024 * 1024
		ss = strings.TrimSuffix(ss, "m")
	case strings.HasSuffix(ss, "b"):
		ss = strings.TrimSuffix(ss, "b")
	}
	v, err := strconv.ParseUint(ss, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad size %q", s)
	}
	v *= mult
	if v == 0 || v > 1<<31 {
		return 0, fmt.Errorf("size %q out of range", s)
	}
	return uint32(v), nil
}

// range32 validates that an offset/length pair fits the 32-bit MTD ioctl ABI.
func range32(offset, length uint64) error {
	if length == 0 {
		return fmt.Errorf("length must not be zero")
	}
	if offset > 0xFFFFFFFF || length > 0xFFFFFFFF || offset+length > 0xFFFFFFFF+uint64(1) {
		return fmt.Errorf("range [0x%x, 0x%x) exceeds the 32-bit MTD address space", offset, offset+length)
	}
	return nil
}

/* ===================== Commands ===================== */

func main() {
	root := &cobra.Command{
		Use:   "mtdtool",
		Short: "MTD flash inspection and manipulation utility",
		Long: "Report geometry of MTD flash devices, copy flash to files, program\n" +
			"files into flash, and erase ranges. Targets are /dev/mtdN nodes,\n" +
			"mtdN or partition names from /proc/mtd, or plain image files.",
		SilenceUsage: true,
	}

	var eraseSizeStr string
	root.PersistentFlags().StringVar(&eraseSizeStr, "erasesize", "64k",
		"erase block size assumed when the target is an image file")

	imageEraseSize := func() (uint32, error) {
		return parseBlockSize(eraseSizeStr)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List MTD devices from /proc/mtd",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			entries, err := mtd.ListDevices()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no MTD devices")
				return nil
			}
			fmt.Printf("%-6s %-16s %-16s %s\n", "dev", "size", "erasesize", "name")
			for _, e := range entries {
				fmt.Printf("%-6s %-16s %-16s %q\n",
					e.Dev(), mtd.FormatSize(uint64(e.Size)), mtd.FormatSize(uint64(e.EraseSize)), e.Name)
			}
			return nil
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info <device>",
		Short: "Show device type, flags, sizes and erase regions",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			es, err := imageEraseSize()
			if err != nil {
				return err
			}
			dev, err := mtd.Open(args[0], true, es)
			if err != nil {
				return err
			}
			defer dev.Close()

			info, err := dev.Info()
			if err != nil {
				return err
			}
			regions, err := dev.Regions()
			if err != nil {
				return err
			}

			fmt.Printf("type:      %s\n", mtd.TypeName(info.Type))
			fmt.Printf("flags:     %s\n", mtd.FlagNames(info.Flags))
			fmt.Printf("size:      %s\n", mtd.FormatSize(uint64(info.Size)))
			fmt.Printf("erasesize: %s\n", mtd.FormatSize(uint64(info.EraseSize)))
			fmt.Printf("writesize: %s\n", mtd.FormatSize(uint64(info.WriteSize)))
			fmt.Printf("oobsize:   %s\n", mtd.FormatSize(uint64(info.OOBSize)))
			fmt.Printf("regions:   %d\n", len(regions))
			for _, r := range regions {
				fmt.Printf("\nregion[%d]: offset 0x%08x erasesize %s numblocks %d\n",
					r.RegionIndex, r.Offset, mtd.FormatSize(uint64(r.EraseSize)), r.NumBlocks)
			}
			return nil
		},
	}

	readCmd := &cobra.Command{
		Use:   "read <device> <offset> <len> <dest-file>",
		Short: "Copy a flash range into a file",
		Args:  cobra.ExactArgs(4),
		RunE: func(_ *cobra.Command, args []string) error {
			offset, err := parseOffset(args[1])
			if err != nil {
				return err
			}
			length, err := parseOffset(args[2])
			if err != nil {
				return err
			}
			if err := range32(offset, length); err != nil {
				return err
			}
			es, err := imageEraseSize()
			if err != nil {
				return err
			}
			dev, err := mtd.Open(args[0], true, es)
			if err != nil {
				return err
			}
			defer dev.Close()
			return mtd.ReadToFile(dev, offset, length, args[3], os.Stdout)
		},
	}

	var verify bool
	writeCmd := &cobra.Command{
		Use:   "write <device> <offset> <len> <src-file>",
		Short: "Program a file into a flash range",
		Args:  cobra.ExactArgs(4),
		RunE: func(_ *cobra.Command, args []string) error {
			offset, err := parseOffset(args[1])
			if err != nil {
				return err
			}
			length, err := parseOffset(args[2])
			if err != nil {
				return err
			}
			if err := range32(offset, length); err != nil {
				return err
			}
			es, err := imageEraseSize()
			if err != nil {
				return err
			}
			dev, err := mtd.Open(args[0], false, es)
			if err != nil {
				return err
			}
			defer dev.Close()
			return mtd.WriteFromFile(dev, offset, length, args[3], verify, os.Stdout)
		},
	}
	writeCmd.Flags().BoolVar(&verify, "verify", false, "read the written range back and compare")

	eraseCmd := &cobra.Command{
		Use:   "erase <device> <offset> <len>",
		Short: "Erase a flash range (block-aligned)",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			offset, err := parseOffset(args[1])
			if err != nil {
				return err
			}
			length, err := parseOffset(args[2])
			if err != nil {
				return err
			}
			if err := range32(offset, length); err != nil {
				return err
			}
			es, err := imageEraseSize()
			if err != nil {
				return err
			}
			dev, err := mtd.Open(args[0], false, es)
			if err != nil {
				return err
			}
			defer dev.Close()

			info, err := dev.Info()
			if err != nil {
				return err
			}
			regions, err := dev.Regions()
			if err != nil {
				return err
			}
			geom, err := mtd.Geometry(info, regions)
			if err != nil {
				return err
			}
			if err := geom.AlignedRange(offset, length); err != nil {
				return err
			}
			if err := dev.Erase(uint32(offset), uint32(length)); err != nil {
				return err
			}
			fmt.Printf("Erased %d bytes from address 0x%08x in flash\n", length, offset)
			return nil
		},
	}

	var textMap bool
	var textWidth int
	mapCmd := &cobra.Command{
		Use:   "map <device>",
		Short: "Show which erase blocks are blank and which are programmed",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			es, err := imageEraseSize()
			if err != nil {
				return err
			}
			dev, err := mtd.Open(args[0], true, es)
			if err != nil {
				return err
			}
			defer dev.Close()

			states, geom, err := mtd.ScanBlocks(dev)
			if err != nil {
				return err
			}

			cells := make([]rune, len(states))
			blank, programmed := 0, 0
			for i, st := range states {
				if st == mtd.BlockBlank {
					cells[i] = '░'
					blank++
				} else {
					cells[i] = '█'
					programmed++
				}
			}
			summary := fmt.Sprintf("Size: %s   Blocks: %d   Blank: %d   Programmed: %d",
				mtd.FormatSize(geom.Size()), len(states), blank, programmed)

			if textMap {
				fmt.Println(summary)
				for _, row := range blockview.RenderRows(cells, textWidth) {
					fmt.Println(row)
				}
				return nil
			}

			v, err := blockview.NewViewer(blockview.Model{
				Title:   fmt.Sprintf("BLOCK MAP – %s", args[0]),
				Summary: []string{summary},
				Legend:  []string{"Legend:  ░ blank (0xFF)   █ programmed"},
				Cells:   cells,
			})
			if err != nil {
				return fmt.Errorf("ui init: %w", err)
			}
			defer v.Close()
			return v.Run()
		},
	}
	mapCmd.Flags().BoolVar(&textMap, "text", false, "print the map to stdout instead of the full-screen viewer")
	mapCmd.Flags().IntVar(&textWidth, "width", 64, "blocks per row with --text")

	root.AddCommand(listCmd, infoCmd, readCmd, writeCmd, eraseCmd, mapCmd)
	must(root.Execute())
}
