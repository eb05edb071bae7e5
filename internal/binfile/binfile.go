// Package binfile loads and stores binary data images.
package binfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrTooLarge is returned for files that cannot be addressed as a byte slice.
var ErrTooLarge = errors.New("binfile: file too large")

// Image is a read-only view of a binary file.
type Image struct {
	Data    []byte
	mmapped bool
}

// Open maps a file read-only. If mmap is unavailable it falls back to
// ReadAt-based loading. The returned image must be closed to release any
// mapping; decoders copy what they keep.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < 0 || size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, path)
	}
	size := int(size64)
	if size == 0 {
		return &Image{Data: []byte{}}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return &Image{Data: data, mmapped: true}, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return &Image{Data: data}, nil
}

// Load returns a private copy of the file contents.
func Load(path string) ([]byte, error) {
	img, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = img.Close() }()
	out := make([]byte, len(img.Data))
	copy(out, img.Data)
	return out, nil
}

// FromReaderAt loads an image from a random-access reader without mmap.
func FromReaderAt(r io.ReaderAt, size int64) (*Image, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, ErrTooLarge
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return &Image{Data: data}, nil
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

// Close releases the mapping, if any.
func (img *Image) Close() error {
	if img == nil || img.Data == nil {
		return nil
	}
	var err error
	if img.mmapped {
		err = unix.Munmap(img.Data)
	}
	img.Data = nil
	img.mmapped = false
	return err
}

// WriteFile writes data to a temporary file in the same directory and
// renames it over path.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
