package bufpool

import (
	"path/filepath"
	"testing"
)

func openTempBitmap(t *testing.T) *Bitmap {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bitmap")
	b, err := OpenBitmap(path)
	if err != nil {
		t.Fatalf("OpenBitmap: %v", err)
	}
	t.Cleanup(b.Close)
	return b
}

// TestBitmapFindFirstClear mirrors the spec's S4 scenario.
func TestBitmapFindFirstClear(t *testing.T) {
	b := openTempBitmap(t)

	if got := b.firstClear(); got != 0 {
		t.Fatalf("fresh bitmap: want 0, got %d", got)
	}

	for i := uint32(0); i < 128; i++ {
		b.Set(i, true)
		if got := b.firstClear(); got != i+1 {
			t.Fatalf("after setting %d: want %d, got %d", i, i+1, got)
		}
	}

	b.Set(80, false)
	if got := b.firstClear(); got != 80 {
		t.Fatalf("after clearing 80: want 80, got %d", got)
	}

	b.Set(80, true)
	if got := b.firstClear(); got != 128 {
		t.Fatalf("after resetting 80: want 128, got %d", got)
	}

	for i := uint32(64); i < 128; i++ {
		b.Set(i, false)
		got := b.firstClear()
		if got < 64 || got > i {
			t.Fatalf("after clearing %d: want value in [64, %d], got %d", i, i, got)
		}
	}

	b.Compact()
	if b.Len() != 8 {
		t.Fatalf("after compact: want len 8, got %d", b.Len())
	}
}

func TestBitmapGetBeyondPayload(t *testing.T) {
	b := openTempBitmap(t)
	if b.Get(1000) {
		t.Fatal("expected bit beyond payload to read false")
	}
}

func TestBitmapSyncAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bitmap")
	b, err := OpenBitmap(path)
	if err != nil {
		t.Fatalf("OpenBitmap: %v", err)
	}

	for _, i := range []uint32{3, 10, 64, 65, 200} {
		b.Set(i, true)
	}
	if err := b.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	b.Close()

	reloaded, err := OpenBitmap(path)
	if err != nil {
		t.Fatalf("reopen OpenBitmap: %v", err)
	}
	defer reloaded.Close()

	for _, i := range []uint32{3, 10, 64, 65, 200} {
		if !reloaded.Get(i) {
			t.Fatalf("expected bit %d to survive reload", i)
		}
	}
	if reloaded.Get(4) {
		t.Fatal("expected untouched bit 4 to remain clear")
	}
}
