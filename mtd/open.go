package mtd

import (
	"fmt"
	"os"
)

// Open resolves target (a device node, "mtdN", a partition name from
// /proc/mtd, or a regular image file) and opens it. Image files get a
// uniform erase geometry of imageEraseSize bytes.
func Open(target string, readOnly bool, imageEraseSize uint32) (Device, error) {
	node, err := ResolveNode(target)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(node)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", node, err)
	}
	if st.Mode().IsRegular() {
		return OpenImage(node, readOnly, imageEraseSize)
	}
	if st.Mode()&os.ModeCharDevice == 0 {
		return nil, fmt.Errorf("%s is neither a character device nor a regular file", node)
	}
	d, err := openChar(node, readOnly)
	if err != nil {
		return nil, err
	}
	return d, nil
}
