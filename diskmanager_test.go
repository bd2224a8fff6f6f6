package bufpool

import (
	"path/filepath"
	"testing"
)

func openTempDiskManager(t *testing.T) (*DiskManager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	dm, err := OpenDiskManager(path)
	if err != nil {
		t.Fatalf("OpenDiskManager: %v", err)
	}
	t.Cleanup(dm.Close)
	return dm, path
}

func TestDiskManagerReadPageRejectsUnallocated(t *testing.T) {
	dm, _ := openTempDiskManager(t)

	buf := make([]byte, PageSize)
	err := dm.ReadPage(HeaderPageID, buf)
	if err == nil {
		t.Fatal("expected error reading an unallocated page")
	}
	if kind, ok := KindOf(err); !ok || kind != KindInvalidInput {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}

// TestDiskManagerRoundTrip mirrors the spec's write_page/read_page
// round-trip law.
func TestDiskManagerRoundTrip(t *testing.T) {
	dm, _ := openTempDiskManager(t)

	id := dm.AllocatePage()

	src := make([]byte, PageSize)
	copy(src[ChecksumSize:], []byte("round trip payload"))
	if err := dm.WritePage(id, src); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	dst := make([]byte, PageSize)
	if err := dm.ReadPage(id, dst); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}

	if string(dst[ChecksumSize:ChecksumSize+18]) != "round trip payload" {
		t.Fatalf("payload mismatch: got %q", dst[ChecksumSize:ChecksumSize+18])
	}
}

// TestDiskManagerExtendOnFirstRead checks the "offset == file length"
// boundary behavior: the file is extended and zeros are returned with
// a zero checksum accepted as valid.
func TestDiskManagerExtendOnFirstRead(t *testing.T) {
	dm, _ := openTempDiskManager(t)

	id := dm.AllocatePage()

	dst := make([]byte, PageSize)
	if err := dm.ReadPage(id, dst); err != nil {
		t.Fatalf("ReadPage on never-written allocated page: %v", err)
	}
	for i, b := range dst {
		if b != 0 {
			t.Fatalf("expected all-zero page, byte %d was %d", i, b)
		}
	}
}

func TestDiskManagerDeallocateThenRead(t *testing.T) {
	dm, _ := openTempDiskManager(t)

	id := dm.AllocatePage()
	dm.DeallocatePage(id)

	buf := make([]byte, PageSize)
	err := dm.ReadPage(id, buf)
	if err == nil {
		t.Fatal("expected error reading a deallocated page")
	}
}

func TestDiskManagerPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	dm, err := OpenDiskManager(path)
	if err != nil {
		t.Fatalf("OpenDiskManager: %v", err)
	}

	id := dm.AllocatePage()
	src := make([]byte, PageSize)
	copy(src[ChecksumSize:], []byte("persisted"))
	if err := dm.WritePage(id, src); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	dm.Close()

	reopened, err := OpenDiskManager(path)
	if err != nil {
		t.Fatalf("reopen OpenDiskManager: %v", err)
	}
	defer reopened.Close()

	if !reopened.IsAllocated(id) {
		t.Fatalf("expected %v to remain allocated after reopen", id)
	}

	dst := make([]byte, PageSize)
	if err := reopened.ReadPage(id, dst); err != nil {
		t.Fatalf("ReadPage after reopen: %v", err)
	}
	if string(dst[ChecksumSize:ChecksumSize+9]) != "persisted" {
		t.Fatalf("payload mismatch after reopen: got %q", dst[ChecksumSize:ChecksumSize+9])
	}
}
