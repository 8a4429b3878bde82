package mtd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

const procMTD = "/proc/mtd"

// ProcEntry is one line of /proc/mtd.
type ProcEntry struct {
	Index     int
	Size      uint32
	EraseSize uint32
	Name      string
}

// Dev returns the short device name, e.g. "mtd3".
func (e ProcEntry) Dev() string {
	return fmt.Sprintf("mtd%d", e.Index)
}

// Node returns the character device path, e.g. "/dev/mtd3".
func (e ProcEntry) Node() string {
	return "/dev/" + e.Dev()
}

var procMTDLine = regexp.MustCompile(`^mtd(\d+):\s+([0-9a-fA-F]+)\s+([0-9a-fA-F]+)\s+"(.*)"$`)

// parseProcMTD parses /proc/mtd content:
//
//	dev:    size   erasesize  name
//	mtd0: 00100000 00020000 "boot"
func parseProcMTD(r io.Reader) ([]ProcEntry, error) {
	var entries []ProcEntry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "dev:") {
			continue
		}
		m := procMTDLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("malformed /proc/mtd line %q", line)
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("malformed /proc/mtd line %q: %w", line, err)
		}
		size, err := strconv.ParseUint(m[2], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed /proc/mtd line %q: %w", line, err)
		}
		erase, err := strconv.ParseUint(m[3], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed /proc/mtd line %q: %w", line, err)
		}
		entries = append(entries, ProcEntry{
			Index:     idx,
			Size:      uint32(size),
			EraseSize: uint32(erase),
			Name:      m[4],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListDevices returns the MTD devices the kernel knows about.
func ListDevices() ([]ProcEntry, error) {
	f, err := os.Open(procMTD)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", procMTD, err)
	}
	defer f.Close()
	return parseProcMTD(f)
}

// nodeForTarget maps a user-supplied target to a device node using the
// /proc/mtd catalog: "mtdN" and partition names resolve to "/dev/mtdN".
func nodeForTarget(target string, entries []ProcEntry) (string, bool) {
	for _, e := range entries {
		if target == e.Dev() || target == e.Name {
			return e.Node(), true
		}
	}
	return "", false
}

// ResolveNode turns a target (path, "mtdN", or partition name) into an
// openable device node path. Paths that already exist resolve to themselves.
func ResolveNode(target string) (string, error) {
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}
	entries, err := ListDevices()
	if err != nil {
		return "", fmt.Errorf("no such file %q and cannot consult %s: %w", target, procMTD, err)
	}
	if node, ok := nodeForTarget(target, entries); ok {
		return node, nil
	}
	return "", fmt.Errorf("no MTD device %q", target)
}
