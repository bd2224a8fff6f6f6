package bufpool

import "fmt"

// PageID identifies a page on disk. Values strictly below HeaderPageID
// never name a real page.
type PageID int32

// HeaderPageID is the smallest legal page identifier.
const HeaderPageID PageID = 1

// PageSize is the fixed size, in bytes, of every on-disk page.
const PageSize = 4096

// ChecksumSize is the width, in bytes, of the checksum prefix carried by
// every page and by the bitmap file.
const ChecksumSize = 8

func (id PageID) String() string {
	if id < HeaderPageID {
		return fmt.Sprintf("PageID(invalid:%d)", int32(id))
	}
	return fmt.Sprintf("PageID(%d)", int32(id))
}

// Valid reports whether id could possibly name a real page, independent
// of whether it has actually been allocated.
func (id PageID) Valid() bool {
	return id >= HeaderPageID
}

// Frame is one slot in the buffer pool. It holds at most one resident
// page plus the bookkeeping the pool needs to decide whether the frame
// may be evicted. The core is single-threaded (spec.md §5): Frame has no
// locks of its own, and it is the caller's job to release a frame (via
// Pool.UnpinPage) before issuing another pool operation that might
// repurpose it.
type Frame struct {
	pageID   PageID
	data     [PageSize]byte
	pinCount int32
	dirty    bool
}

// PageID returns the identifier of the page currently resident in the
// frame. It is meaningless on a frame that isn't in the page table.
func (f *Frame) PageID() PageID { return f.pageID }

// Data returns a mutable view of the frame's page bytes. Callers that
// write through this slice are responsible for marking the frame dirty
// via UnpinPage(id, true).
func (f *Frame) Data() []byte { return f.data[:] }

// PinCount returns the number of outstanding borrows of this frame.
func (f *Frame) PinCount() int32 { return f.pinCount }

// IsDirty reports whether the in-memory copy diverges from disk.
func (f *Frame) IsDirty() bool { return f.dirty }

func (f *Frame) pin()   { f.pinCount++ }
func (f *Frame) unpin() { f.pinCount-- }

// reset reassigns the frame to a new identifier with a clean dirty
// flag. It does not touch the byte contents: the caller is always
// about to either overwrite them wholesale (a fresh load from disk) or
// zero them explicitly (a brand new page), so zeroing here would just
// be redundant work on the fetch path.
func (f *Frame) reset(id PageID) {
	f.pageID = id
	f.dirty = false
}
