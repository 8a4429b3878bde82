//go:build !linux

package mtd

import "fmt"

func openChar(node string, readOnly bool) (Device, error) {
	return nil, fmt.Errorf("MTD character devices are only available on Linux (cannot open %s); use an image file", node)
}
