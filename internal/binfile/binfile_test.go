package binfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenAndClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stan.bin")
	want := []byte{0, 0, 0, 0x14, 0xde, 0xad}
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	img, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(img.Data, want) {
		t.Fatalf("data: got %x want %x", img.Data, want)
	}
	if err := img.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if img.Data != nil {
		t.Fatalf("data kept after close")
	}
	if err := img.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestOpenEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d bytes", len(got))
	}
}

func TestFromReaderAt(t *testing.T) {
	t.Parallel()

	want := bytes.Repeat([]byte{1, 2, 3}, 100)
	img, err := FromReaderAt(bytes.NewReader(want), int64(len(want)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(img.Data, want) {
		t.Fatalf("data mismatch")
	}
	if _, err := FromReaderAt(bytes.NewReader(want), int64(len(want)+1)); err == nil {
		t.Fatalf("expected short read error")
	}
}

func TestWriteFileReplaces(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "setup.bin")
	if err := os.WriteFile(path, []byte("old contents"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFile(path, []byte{1, 2}); err != nil {
		t.Fatalf("write file: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2}) {
		t.Fatalf("got %x", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}
