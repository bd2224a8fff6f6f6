package bufpool

import (
	"path/filepath"
	"testing"
)

func openTempPagedFile(t *testing.T) *PagedFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	f, err := OpenPagedFile(path, true)
	if err != nil {
		t.Fatalf("OpenPagedFile: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestPagedFileWriteReadExact(t *testing.T) {
	f := openTempPagedFile(t)

	if err := f.Truncate(PageSize); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	want := []byte("the quick brown fox")
	if err := f.WriteExact(0, want); err != nil {
		t.Fatalf("WriteExact: %v", err)
	}

	got := make([]byte, len(want))
	if err := f.ReadExact(0, got); err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPagedFileReadExactPastEOF(t *testing.T) {
	f := openTempPagedFile(t)

	buf := make([]byte, 16)
	err := f.ReadExact(0, buf)
	if err == nil {
		t.Fatal("expected error reading past EOF on empty file")
	}
	if kind, ok := KindOf(err); !ok || kind != KindUnexpectedEOF {
		t.Fatalf("expected KindUnexpectedEOF, got %v", err)
	}
}

func TestPagedFileSizeAndTruncate(t *testing.T) {
	f := openTempPagedFile(t)

	size, err := f.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 0 {
		t.Fatalf("expected fresh file to be empty, got size %d", size)
	}

	if err := f.Truncate(PageSize * 3); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	size, err = f.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != PageSize*3 {
		t.Fatalf("expected size %d, got %d", PageSize*3, size)
	}
}
