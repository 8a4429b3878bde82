package mtd

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// copyBufSize bounds the transfer buffer. The whole range is moved in
// chunks of at most this size.
const copyBufSize = 64 * 1024

// ReadToFile copies length bytes starting at offset from the device into a
// freshly created file at path. Progress and the final summary go to out.
func ReadToFile(dev io.ReaderAt, offset, length uint64, path string, out io.Writer) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer dst.Close()

	buf := make([]byte, min(length, copyBufSize))
	var copied uint64
	for copied < length {
		n := min(length-copied, uint64(len(buf)))
		if _, err := dev.ReadAt(buf[:n], int64(offset+copied)); err != nil {
			return fmt.Errorf("read device at 0x%x: %w", offset+copied, err)
		}
		if _, err := dst.Write(buf[:n]); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		copied += n
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	fmt.Fprintf(out, "Copied %d bytes from address 0x%08x in flash to %s\n", copied, offset, path)
	return nil
}

// WriteFromFile copies length bytes from the file at path into the device
// starting at offset. With verify set, the written range is read back and
// compared against the source.
func WriteFromFile(dev Device, offset, length uint64, path string, verify bool, out io.Writer) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	st, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if uint64(st.Size()) < length {
		return fmt.Errorf("%s is %d bytes, need %d", path, st.Size(), length)
	}

	buf := make([]byte, min(length, copyBufSize))
	var copied uint64
	for copied < length {
		n := min(length-copied, uint64(len(buf)))
		if _, err := io.ReadFull(src, buf[:n]); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := dev.WriteAt(buf[:n], int64(offset+copied)); err != nil {
			return fmt.Errorf("write device at 0x%x: %w", offset+copied, err)
		}
		copied += n
	}
	fmt.Fprintf(out, "Copied %d bytes from %s to address 0x%08x in flash\n", copied, path, offset)

	if verify {
		if err := verifyRange(dev, offset, length, src); err != nil {
			return err
		}
		fmt.Fprintf(out, "Verified %d bytes at address 0x%08x\n", length, offset)
	}
	return nil
}

// verifyRange reads [offset, offset+length) back from the device and
// compares it with the first length bytes of src.
func verifyRange(dev io.ReaderAt, offset, length uint64, src *os.File) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind source: %w", err)
	}
	want := make([]byte, min(length, copyBufSize))
	got := make([]byte, len(want))
	var checked uint64
	for checked < length {
		n := min(length-checked, uint64(len(want)))
		if _, err := io.ReadFull(src, want[:n]); err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		if _, err := dev.ReadAt(got[:n], int64(offset+checked)); err != nil {
			return fmt.Errorf("read back at 0x%x: %w", offset+checked, err)
		}
		if !bytes.Equal(got[:n], want[:n]) {
			for i := uint64(0); i < n; i++ {
				if got[i] != want[i] {
					return fmt.Errorf("verify mismatch at 0x%x: wrote 0x%02x, read 0x%02x",
						offset+checked+i, want[i], got[i])
				}
			}
		}
		checked += n
	}
	return nil
}
