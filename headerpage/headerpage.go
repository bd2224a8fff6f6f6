// Package headerpage implements a name-to-root-page directory stored in
// a single buffer pool frame. It is a client of bufpool.Pool in the
// sense spec.md §1(ii) describes: it touches the core only through
// Frame.Data() and the public Pool API, never reaching into the pool's
// internals.
package headerpage

import (
	"encoding/binary"

	"bufpool"
)

// entryHeaderSize is the per-entry overhead: a 2-byte name length and a
// 4-byte PageID.
const entryHeaderSize = 2 + 4

// Directory is a name -> PageId map persisted in the frame at
// bufpool.HeaderPageID. Layout, starting right after the frame's
// checksum prefix:
//
//	[8:10)   uint16 entry count
//	then, repeated per entry:
//	  [0:2)  uint16 name length n
//	  [2:2+n)  name bytes
//	  [2+n:6+n) int32 little-endian PageID
//
// Grounded on original_source/src/page/header_page.rs for the concept
// (a dedicated page mapping names to root page ids); the binary layout
// follows the teacher's own encoding/binary little-endian convention
// used throughout schema.go.
type Directory struct {
	pool    *bufpool.Pool
	entries map[string]bufpool.PageID
	order   []string
}

// Open loads the directory from bufpool.HeaderPageID, creating an empty
// one if the page has never been written.
func Open(pool *bufpool.Pool) (*Directory, error) {
	frame, err := pool.FetchPage(bufpool.HeaderPageID)
	created := false
	if kind, ok := bufpool.KindOf(err); ok && kind == bufpool.KindInvalidInput {
		// HeaderPageID is not allocated yet: claim it as a fresh, zeroed
		// page (an empty directory).
		frame, err = pool.NewPage()
		if err == nil && frame.PageID() != bufpool.HeaderPageID {
			pool.UnpinPage(frame.PageID(), false)
			pool.DeletePage(frame.PageID())
			return nil, &bufpool.Error{Op: "Open", Kind: bufpool.KindNotFound}
		}
		created = true
	}
	if err != nil {
		return nil, err
	}
	defer pool.UnpinPage(bufpool.HeaderPageID, created)

	d := &Directory{
		pool:    pool,
		entries: make(map[string]bufpool.PageID),
	}

	data := frame.Data()
	count := binary.LittleEndian.Uint16(data[bufpool.ChecksumSize : bufpool.ChecksumSize+2])
	offset := bufpool.ChecksumSize + 2
	for i := uint16(0); i < count; i++ {
		nameLen := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
		offset += 2
		name := string(data[offset : offset+nameLen])
		offset += nameLen
		id := bufpool.PageID(int32(binary.LittleEndian.Uint32(data[offset : offset+4])))
		offset += 4

		d.entries[name] = id
		d.order = append(d.order, name)
	}
	return d, nil
}

// Lookup returns the root PageId registered for name.
func (d *Directory) Lookup(name string) (bufpool.PageID, bool) {
	id, ok := d.entries[name]
	return id, ok
}

// Names returns every registered name, in insertion order.
func (d *Directory) Names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Register binds name to id and persists the directory immediately.
// It fails bufpool.KindAlreadyExists if name is already registered.
func (d *Directory) Register(name string, id bufpool.PageID) error {
	if _, ok := d.entries[name]; ok {
		return &bufpool.Error{Op: "Register", Kind: bufpool.KindAlreadyExists}
	}
	d.entries[name] = id
	d.order = append(d.order, name)
	return d.flush()
}

// Remove unregisters name, if present, and persists the directory.
func (d *Directory) Remove(name string) error {
	if _, ok := d.entries[name]; !ok {
		return nil
	}
	delete(d.entries, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return d.flush()
}

func (d *Directory) flush() error {
	frame, err := d.pool.FetchPage(bufpool.HeaderPageID)
	if err != nil {
		return err
	}

	data := frame.Data()
	binary.LittleEndian.PutUint16(data[bufpool.ChecksumSize:bufpool.ChecksumSize+2], uint16(len(d.order)))
	offset := bufpool.ChecksumSize + 2
	for _, name := range d.order {
		binary.LittleEndian.PutUint16(data[offset:offset+2], uint16(len(name)))
		offset += 2
		copy(data[offset:], name)
		offset += len(name)
		binary.LittleEndian.PutUint32(data[offset:offset+4], uint32(int32(d.entries[name])))
		offset += 4
	}

	return d.pool.UnpinPage(bufpool.HeaderPageID, true)
}
