package headerpage

import (
	"path/filepath"
	"testing"

	"bufpool"
)

func openTempPool(t *testing.T, size int) *bufpool.Pool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	p, err := bufpool.OpenPool(size, path)
	if err != nil {
		t.Fatalf("OpenPool: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestRegisterAndLookup(t *testing.T) {
	pool := openTempPool(t, 8)

	dir, err := Open(pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := dir.Register("users", 5); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := dir.Register("orders", 9); err != nil {
		t.Fatalf("Register: %v", err)
	}

	id, ok := dir.Lookup("users")
	if !ok || id != 5 {
		t.Fatalf("Lookup(users): want (5, true), got (%v, %v)", id, ok)
	}

	if err := dir.Register("users", 11); err == nil {
		t.Fatal("expected AlreadyExists registering a duplicate name")
	} else if kind, ok := bufpool.KindOf(err); !ok || kind != bufpool.KindAlreadyExists {
		t.Fatalf("expected KindAlreadyExists, got %v", err)
	}
}

func TestDirectoryPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	pool, err := bufpool.OpenPool(8, path)
	if err != nil {
		t.Fatalf("OpenPool: %v", err)
	}

	dir, err := Open(pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := dir.Register("users", 5); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pool.Close()

	reopened, err := bufpool.OpenPool(8, path)
	if err != nil {
		t.Fatalf("reopen OpenPool: %v", err)
	}
	defer reopened.Close()

	reloaded, err := Open(reopened)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}

	id, ok := reloaded.Lookup("users")
	if !ok || id != 5 {
		t.Fatalf("Lookup(users) after reload: want (5, true), got (%v, %v)", id, ok)
	}
}

func TestRemove(t *testing.T) {
	pool := openTempPool(t, 8)
	dir, err := Open(pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := dir.Register("users", 5); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := dir.Remove("users"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := dir.Lookup("users"); ok {
		t.Fatal("expected users to be gone after Remove")
	}
	if err := dir.Remove("users"); err != nil {
		t.Fatalf("Remove of already-absent name should be a no-op, got: %v", err)
	}
}
