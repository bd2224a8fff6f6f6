package tablepage

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

func testSchema() Schema {
	return NewSchema([]Field{
		{Name: "id", Type: TypeInt, Len: 4},
		{Name: "name", Type: TypeVarchar, Len: 16},
	})
}

func TestSchemaRoundTrip(t *testing.T) {
	s := testSchema()
	row := Row{{Type: TypeInt, Int: 42}, {Type: TypeVarchar, Str: "alice"}}

	buf := make([]byte, s.RowBytes)
	if err := s.WriteRow(buf, row); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}

	got, err := s.ReadRow(buf)
	if err != nil {
		t.Fatalf("ReadRow: %v", err)
	}
	if got[0].Int != 42 {
		t.Fatalf("want id 42, got %d", got[0].Int)
	}
	if got[1].Str != "alice" {
		t.Fatalf("want name alice, got %q", got[1].Str)
	}
}

func TestSchemaTypecheckRejectsWrongType(t *testing.T) {
	s := testSchema()
	row := Row{{Type: TypeVarchar, Str: "oops"}, {Type: TypeVarchar, Str: "alice"}}
	if err := s.Typecheck(row); err == nil {
		t.Fatal("expected a type mismatch error")
	}
}

func TestSlotInsertCommitAndReopen(t *testing.T) {
	pool := openTempPool(t, 4)
	schema := testSchema()

	frame, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	id := frame.PageID()
	if err := pool.UnpinPage(id, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	slot, err := Open(pool, id, &schema)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ok, err := slot.TryInsert(Row{{Type: TypeInt, Int: 1}, {Type: TypeVarchar, Str: "bob"}})
	if err != nil || !ok {
		t.Fatalf("TryInsert: ok=%v err=%v", ok, err)
	}
	if err := slot.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	reopened, err := Open(pool, id, &schema)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	if reopened.NumRows() != 1 {
		t.Fatalf("want 1 row, got %d", reopened.NumRows())
	}
	row, err := reopened.ReadRow(0)
	if err != nil {
		t.Fatalf("ReadRow: %v", err)
	}
	if row[1].Str != "bob" {
		t.Fatalf("want bob, got %q", row[1].Str)
	}
	if err := reopened.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
}

func TestSlotRollbackDiscardsInserts(t *testing.T) {
	pool := openTempPool(t, 4)
	schema := testSchema()

	frame, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	id := frame.PageID()
	if err := pool.UnpinPage(id, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	slot, err := Open(pool, id, &schema)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := slot.TryInsert(Row{{Type: TypeInt, Int: 1}, {Type: TypeVarchar, Str: "carol"}}); err != nil {
		t.Fatalf("TryInsert: %v", err)
	}
	if err := slot.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	reopened, err := Open(pool, id, &schema)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	if reopened.NumRows() != 0 {
		t.Fatalf("want 0 rows after rollback, got %d", reopened.NumRows())
	}
	reopened.Rollback()
}
