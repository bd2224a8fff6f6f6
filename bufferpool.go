package bufpool

import (
	"github.com/sirupsen/logrus"
)

// victimSource tags where a frame being repurposed in prepareFrame came
// from, so a failed flush can be rolled back to the right place
// (spec.md §9 "enum-tagged victim source" — a plain boolean is enough,
// what matters is that the rollback branch exists).
type victimSource bool

const (
	sourceFreeList victimSource = false
	sourceReplacer victimSource = true
)

// pageStore is the slice of DiskManager the pool actually depends on.
// Kept as an interface, rather than a concrete *DiskManager field, so
// tests can inject I/O failures the way the teacher's btree_test.go
// MemoryStorage injects partial reads/writes against the Storage
// interface.
type pageStore interface {
	AllocatePage() PageID
	DeallocatePage(id PageID)
	IsAllocated(id PageID) bool
	ReadPage(id PageID, dst []byte) error
	WritePage(id PageID, src []byte) error
	Close()
}

// Pool is the buffer pool manager: the orchestrator tying together the
// frame table, page table, free list, replacer, and disk manager
// (spec.md §4.7). Like every other core type it is not internally
// synchronized (spec.md §5).
//
// Grounded on the teacher's Pager (pager.go: FetchPage/AllocatePage/
// SyncPage/SyncAll) for the method surface, and its LRUCache.Put
// evict-and-flush dance, generalized into the explicit
// free-list-vs-replacer source dispatch and rollback-on-flush-failure
// rule spec.md requires.
type Pool struct {
	frames    []Frame
	pageTable map[PageID]int
	freeList  []int
	replacer  *Replacer
	disk      pageStore
}

// OpenPool creates a buffer pool of size frames backed by the database
// at path. Every frame starts empty and on the free list.
func OpenPool(size int, path string) (*Pool, error) {
	disk, err := OpenDiskManager(path)
	if err != nil {
		return nil, err
	}
	reserveBelowHeaderID(disk)
	return newPool(size, disk), nil
}

// reserveBelowHeaderID consumes allocator slots below HeaderPageID so
// that the first call to NewPage on a fresh database returns
// HeaderPageID rather than 0. The allocator itself starts at 0 and
// knows nothing about HeaderPageID (selector.go); this is the "one
// layer up" enforcement spec.md §4.4 assigns to the pool. A no-op on
// reopen, since the reserved ids are already marked allocated in the
// persisted bitmap.
func reserveBelowHeaderID(disk pageStore) {
	for id := PageID(0); id < HeaderPageID; id++ {
		if !disk.IsAllocated(id) {
			disk.AllocatePage()
		}
	}
}

func newPool(size int, disk pageStore) *Pool {
	p := &Pool{
		frames:    make([]Frame, size),
		pageTable: make(map[PageID]int, size),
		freeList:  make([]int, size),
		replacer:  NewReplacer(),
		disk:      disk,
	}
	for i := 0; i < size; i++ {
		p.freeList[i] = size - 1 - i // index 0 popped first
	}
	return p
}

// FetchPage pins and returns the frame holding id, loading it from
// disk if it is not already resident.
func (p *Pool) FetchPage(id PageID) (*Frame, error) {
	if !id.Valid() {
		return nil, newError("FetchPage", KindInvalidInput, nil)
	}

	if idx, ok := p.pageTable[id]; ok {
		f := &p.frames[idx]
		f.pin()
		p.replacer.Erase(idx)
		return f, nil
	}

	idx, err := p.prepareFrame(&id, false)
	if err != nil {
		return nil, err
	}
	f := &p.frames[idx]
	if err := p.disk.ReadPage(id, f.Data()); err != nil {
		p.releaseFrame(idx, id)
		return nil, err
	}
	return f, nil
}

// NewPage allocates a fresh page identifier, acquires a frame for it,
// zeroes the frame's bytes, pins it, and returns it. The on-disk page
// is not materialized until a later FlushPage/FlushAllPages call.
func (p *Pool) NewPage() (*Frame, error) {
	idx, err := p.prepareFrame(nil, true)
	if err != nil {
		return nil, err
	}
	return &p.frames[idx], nil
}

// UnpinPage decrements id's pin count and ORs dirty into its dirty
// flag. When the pin count reaches zero the frame becomes a replacer
// candidate.
func (p *Pool) UnpinPage(id PageID, dirty bool) error {
	idx, ok := p.pageTable[id]
	if !ok {
		return newError("UnpinPage", KindNotFound, nil)
	}
	f := &p.frames[idx]
	if f.pinCount == 0 {
		return newError("UnpinPage", KindInvalidData, nil)
	}
	f.unpin()
	if dirty {
		f.dirty = true
	}
	if f.pinCount == 0 {
		p.replacer.Insert(idx)
	}
	return nil
}

// FlushPage writes id's frame to disk if dirty, then clears the dirty
// flag.
func (p *Pool) FlushPage(id PageID) error {
	if !id.Valid() {
		return newError("FlushPage", KindInvalidInput, nil)
	}
	idx, ok := p.pageTable[id]
	if !ok {
		return newError("FlushPage", KindNotFound, nil)
	}
	return p.flushFrame(idx)
}

// FlushAllPages flushes every resident frame. It continues past any
// individual flush error and returns the first one encountered.
func (p *Pool) FlushAllPages() error {
	var first error
	for id, idx := range p.pageTable {
		_ = id
		if err := p.flushFrame(idx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// DeletePage removes id from the pool. If resident and pinned, fails
// InvalidData. If resident and unpinned, the frame is dropped without
// flushing and returned to the free list. The identifier is always
// handed back to the disk manager's allocator, whether or not it was
// resident.
func (p *Pool) DeletePage(id PageID) error {
	if idx, ok := p.pageTable[id]; ok {
		f := &p.frames[idx]
		if f.pinCount > 0 {
			return newError("DeletePage", KindInvalidData, nil)
		}
		p.replacer.Erase(idx)
		delete(p.pageTable, id)
		f.dirty = false
		p.freeList = append(p.freeList, idx)
	}
	p.disk.DeallocatePage(id)
	return nil
}

// Close flushes every dirty frame and closes the disk manager.
// Best-effort: errors are logged and swallowed, since destruction
// cannot fail (spec.md §4.7, §9).
func (p *Pool) Close() {
	if err := p.FlushAllPages(); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "bufferpool",
		}).WithError(err).Error("failed to flush all pages on close")
	}
	p.disk.Close()
}

// prepareFrame implements spec.md §4.7's frame-acquisition algorithm:
// pick a source (free list, else replacer victim), flush it if dirty,
// commit or roll back depending on flush outcome, assign the new
// identifier, optionally zero the bytes, and pin.
func (p *Pool) prepareFrame(requestedID *PageID, needReset bool) (int, error) {
	var idx int
	var source victimSource
	var evictedID PageID
	var hadEvicted bool

	if len(p.freeList) > 0 {
		idx = p.freeList[len(p.freeList)-1]
		source = sourceFreeList
	} else {
		victim, ok := p.replacer.Victim()
		if !ok {
			return 0, newError("prepareFrame", KindNotFound, nil)
		}
		idx = victim
		source = sourceReplacer
		evictedID = p.frames[idx].PageID()
		hadEvicted = true
	}

	f := &p.frames[idx]
	if f.dirty {
		if err := p.disk.WritePage(f.PageID(), f.Data()); err != nil {
			switch source {
			case sourceFreeList:
				// left untouched, still on the free list, still dirty
			case sourceReplacer:
				p.replacer.Insert(idx)
			}
			return 0, err
		}
		f.dirty = false
	}

	switch source {
	case sourceFreeList:
		p.freeList = p.freeList[:len(p.freeList)-1]
	case sourceReplacer:
		if hadEvicted {
			delete(p.pageTable, evictedID)
		}
	}

	var newID PageID
	if requestedID != nil {
		newID = *requestedID
	} else {
		newID = p.disk.AllocatePage()
	}

	f.reset(newID)
	p.pageTable[newID] = idx
	if needReset {
		for i := range f.data {
			f.data[i] = 0
		}
	}
	f.pin()
	return idx, nil
}

// flushFrame writes the frame at idx to disk iff dirty and clears its
// dirty flag on success.
func (p *Pool) flushFrame(idx int) error {
	f := &p.frames[idx]
	if !f.dirty {
		return nil
	}
	if err := p.disk.WritePage(f.PageID(), f.Data()); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// releaseFrame undoes a prepareFrame acquisition when a subsequent
// step (e.g. FetchPage's disk read) fails: the page-table entry is
// removed and the frame returned to the free list, since it never
// successfully became resident.
func (p *Pool) releaseFrame(idx int, id PageID) {
	delete(p.pageTable, id)
	f := &p.frames[idx]
	f.pinCount = 0
	f.dirty = false
	p.freeList = append(p.freeList, idx)
}
