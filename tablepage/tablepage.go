package tablepage

import (
	"encoding/binary"

	"bufpool"
)

// rowCountOffset is where the row count lives, right after the frame's
// checksum prefix.
const rowCountOffset = bufpool.ChecksumSize
const rowsStart = rowCountOffset + 2

// Slot is a slotted, fixed-width tuple page layered over a
// bufpool.Frame: bytes [8:10) hold a row count, rows follow
// back-to-back at schema.RowBytes each. It speaks to the core only
// through Frame.Data() and Pool's public methods.
//
// Grounded on the teacher's table.go LockedPage (TryInsert/Commit/
// Rollback, the nRows-at-offset-0 layout) and
// original_source/src/page/table_page.rs for the "table page" concept;
// adapted to address bytes [8:...) instead of [0:...) since the first
// 8 bytes of every frame are the buffer pool's checksum prefix, and to
// talk to a bufpool.Pool instead of owning a private *os.File/Pager.
type Slot struct {
	pool   *bufpool.Pool
	id     bufpool.PageID
	schema *Schema
	frame  *bufpool.Frame

	initialRows uint16
	nRows       uint16
}

// Open fetches the frame for id and wraps it as a Slot governed by
// schema. The caller must eventually call Commit or Rollback, which
// release the frame.
func Open(pool *bufpool.Pool, id bufpool.PageID, schema *Schema) (*Slot, error) {
	frame, err := pool.FetchPage(id)
	if err != nil {
		return nil, err
	}
	nRows := binary.LittleEndian.Uint16(frame.Data()[rowCountOffset : rowCountOffset+2])
	return &Slot{
		pool:        pool,
		id:          id,
		schema:      schema,
		frame:       frame,
		initialRows: nRows,
		nRows:       nRows,
	}, nil
}

// NumRows returns the number of rows currently recorded in the slot.
func (s *Slot) NumRows() int { return int(s.nRows) }

// ReadRow decodes the i'th row.
func (s *Slot) ReadRow(i int) (Row, error) {
	offset := rowsStart + i*s.schema.RowBytes
	return s.schema.ReadRow(s.frame.Data()[offset:])
}

// TryInsert appends row at the next free slot if there is room,
// reporting whether it fit. Inserts are held in memory until Commit.
func (s *Slot) TryInsert(row Row) (bool, error) {
	if err := s.schema.Typecheck(row); err != nil {
		return false, err
	}
	offset := rowsStart + int(s.nRows)*s.schema.RowBytes
	if offset+s.schema.RowBytes > len(s.frame.Data()) {
		return false, nil
	}
	if err := s.schema.WriteRow(s.frame.Data()[offset:], row); err != nil {
		return false, err
	}
	s.nRows++
	return true, nil
}

// Commit persists the new row count into the frame and unpins it,
// marking it dirty if anything changed.
func (s *Slot) Commit() error {
	dirty := s.nRows != s.initialRows
	if dirty {
		binary.LittleEndian.PutUint16(s.frame.Data()[rowCountOffset:rowCountOffset+2], s.nRows)
	}
	return s.pool.UnpinPage(s.id, dirty)
}

// Rollback discards any pending inserts and unpins the frame without
// marking it dirty.
func (s *Slot) Rollback() error {
	s.nRows = s.initialRows
	return s.pool.UnpinPage(s.id, false)
}
