package bufpool

import (
	"github.com/google/btree"
	"github.com/sirupsen/logrus"
)

// Bitmap is a persistent, checksummed bit array. Bit i lives in byte
// i/8 at bit i%8, big-endian within the byte (bit k of byte w is the
// mask 1<<(7-k)), matching spec.md §3/§6's on-disk layout. The whole
// payload is loaded eagerly at construction and held in memory; Sync
// writes it back.
//
// freeWords is an auxiliary ordered set of payload byte indices whose
// value is not 0xFF (i.e. contains at least one clear bit), giving
// Selector.Allocate an O(log n) path to the first clear bit instead of
// a linear scan over the whole payload — grounded on the teacher's
// AllocationIndex byte/bit arithmetic (pager.go), generalized with a
// skip structure the way gopher-os's bitmap_allocator.go keeps a
// free-count per pool to avoid scanning fully-allocated regions.
type Bitmap struct {
	path      string
	file      *PagedFile
	payload   []byte
	freeWords *btree.BTreeG[uint32]
}

func lessUint32(a, b uint32) bool { return a < b }

// OpenBitmap loads (or creates) the bitmap file at path.
func OpenBitmap(path string) (*Bitmap, error) {
	file, err := OpenPagedFile(path, true)
	if err != nil {
		return nil, err
	}

	size, err := file.Size()
	if err != nil {
		file.Close()
		return nil, err
	}

	b := &Bitmap{
		path:      path,
		file:      file,
		freeWords: btree.NewG(32, lessUint32),
	}

	if size == 0 {
		return b, nil
	}

	raw := make([]byte, size)
	if err := file.ReadExact(0, raw); err != nil {
		file.Close()
		return nil, err
	}
	if err := VerifyChecksum(raw); err != nil {
		file.Close()
		return nil, err
	}

	b.payload = raw[ChecksumSize:]
	for i, w := range b.payload {
		if w != 0xFF {
			b.freeWords.ReplaceOrInsert(uint32(i))
		}
	}
	return b, nil
}

// Len returns the number of payload bytes currently cached (not bits).
func (b *Bitmap) Len() int { return len(b.payload) }

// Get returns the bit at logical position i, or false if i lies beyond
// the current payload.
func (b *Bitmap) Get(i uint32) bool {
	byteIdx := i / 8
	if int(byteIdx) >= len(b.payload) {
		return false
	}
	mask := byte(1) << (7 - (i % 8))
	return b.payload[byteIdx]&mask != 0
}

// Set stores v at bit position i, extending the payload with zero bytes
// if i lies beyond it.
func (b *Bitmap) Set(i uint32, v bool) {
	byteIdx := i / 8
	b.growTo(int(byteIdx) + 1)

	mask := byte(1) << (7 - (i % 8))
	if v {
		b.payload[byteIdx] |= mask
	} else {
		b.payload[byteIdx] &^= mask
	}
	b.updateFreeWord(byteIdx)
}

// Word returns the raw byte value at byte index w, or 0 if w lies
// beyond the current payload.
func (b *Bitmap) Word(w uint32) byte {
	if int(w) >= len(b.payload) {
		return 0
	}
	return b.payload[w]
}

// Compact drops trailing zero bytes from the payload and prunes the
// free-word index accordingly.
func (b *Bitmap) Compact() {
	newLen := len(b.payload)
	for newLen > 0 && b.payload[newLen-1] == 0 {
		newLen--
	}
	if newLen == len(b.payload) {
		return
	}
	b.payload = b.payload[:newLen]
	b.pruneFreeWordsPast(uint32(newLen))
}

// Sync compacts the payload, writes the checksum-prefixed file, and
// truncates the file to the current cache length before fsyncing.
func (b *Bitmap) Sync() error {
	b.Compact()

	out := make([]byte, ChecksumSize+len(b.payload))
	copy(out[ChecksumSize:], b.payload)
	if err := UpdateChecksum(out); err != nil {
		return err
	}

	if err := b.file.WriteExact(0, out); err != nil {
		return err
	}
	if err := b.file.Truncate(int64(len(out))); err != nil {
		return err
	}
	return b.file.Sync()
}

// Close syncs the bitmap and releases the underlying file. Any I/O
// error is logged and discarded — destruction cannot fail (spec.md
// §4.3, §9).
func (b *Bitmap) Close() {
	if err := b.Sync(); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "bitmap",
			"path":      b.path,
		}).WithError(err).Error("failed to sync bitmap on close")
	}
	if err := b.file.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "bitmap",
			"path":      b.path,
		}).WithError(err).Error("failed to close bitmap file")
	}
}

// firstClear returns the smallest bit index that is currently clear,
// searching O(log n) via the free-word index and O(1) within the
// selected byte. If every cached byte is full, it returns the bit index
// one past the current payload (the caller grows the payload by
// setting that bit).
func (b *Bitmap) firstClear() uint32 {
	var found uint32
	has := false
	b.freeWords.Ascend(func(w uint32) bool {
		found = w
		has = true
		return false
	})
	if !has {
		return uint32(len(b.payload)) * 8
	}

	byteVal := b.payload[found]
	for bit := 0; bit < 8; bit++ {
		mask := byte(1) << (7 - bit)
		if byteVal&mask == 0 {
			return found*8 + uint32(bit)
		}
	}
	// unreachable: freeWords only tracks bytes with a clear bit
	panic("bitmap: free word index out of sync")
}

func (b *Bitmap) growTo(nBytes int) {
	if nBytes <= len(b.payload) {
		return
	}
	grown := make([]byte, nBytes)
	copy(grown, b.payload)
	b.payload = grown
}

func (b *Bitmap) updateFreeWord(byteIdx uint32) {
	if b.payload[byteIdx] == 0xFF {
		b.freeWords.Delete(byteIdx)
	} else {
		b.freeWords.ReplaceOrInsert(byteIdx)
	}
}

func (b *Bitmap) pruneFreeWordsPast(limit uint32) {
	var stale []uint32
	b.freeWords.Ascend(func(w uint32) bool {
		if w >= limit {
			stale = append(stale, w)
		}
		return true
	})
	for _, w := range stale {
		b.freeWords.Delete(w)
	}
}
