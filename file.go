package bufpool

import (
	"os"
)

// PagedFile wraps an *os.File with the exact-transfer, absolute-offset
// semantics spec.md §4.2 requires: reads and writes loop until the full
// buffer has moved, and zero bytes of progress on a partial transfer is
// reported as a distinct error kind rather than silently returned as a
// short count (mirrors the teacher's MemoryStorage test double, which
// enforces the same all-or-nothing contract over an in-memory buffer).
type PagedFile struct {
	f *os.File
}

// OpenPagedFile opens path, creating it if createIfMissing is set and it
// doesn't already exist.
func OpenPagedFile(path string, createIfMissing bool) (*PagedFile, error) {
	flags := os.O_RDWR
	if createIfMissing {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, newError("OpenPagedFile", KindInvalidInput, err)
	}
	return &PagedFile{f: f}, nil
}

// ReadExact reads len(buf) bytes starting at offset, looping across
// short reads. It fails with KindUnexpectedEOF if a read returns zero
// bytes before buf is full.
func (pf *PagedFile) ReadExact(offset int64, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := pf.f.ReadAt(buf[read:], offset+int64(read))
		if n == 0 {
			if err != nil {
				return newError("ReadExact", KindUnexpectedEOF, err)
			}
			return newError("ReadExact", KindUnexpectedEOF, nil)
		}
		read += n
		if err != nil && read < len(buf) {
			return newError("ReadExact", KindUnexpectedEOF, err)
		}
	}
	return nil
}

// WriteExact writes all of buf starting at offset, looping across short
// writes. It fails with KindWriteZero if a write returns zero bytes
// before buf is fully written.
func (pf *PagedFile) WriteExact(offset int64, buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := pf.f.WriteAt(buf[written:], offset+int64(written))
		if n == 0 {
			if err != nil {
				return newError("WriteExact", KindWriteZero, err)
			}
			return newError("WriteExact", KindWriteZero, nil)
		}
		written += n
		if err != nil && written < len(buf) {
			return newError("WriteExact", KindWriteZero, err)
		}
	}
	return nil
}

// Sync flushes the file's in-kernel buffers to stable storage.
func (pf *PagedFile) Sync() error {
	if err := pf.f.Sync(); err != nil {
		return newError("Sync", KindInvalidData, err)
	}
	return nil
}

// Size returns the current length of the file in bytes.
func (pf *PagedFile) Size() (int64, error) {
	info, err := pf.f.Stat()
	if err != nil {
		return 0, newError("Size", KindInvalidData, err)
	}
	return info.Size(), nil
}

// Truncate resizes the file to newLength, zero-extending if it grows.
func (pf *PagedFile) Truncate(newLength int64) error {
	if err := pf.f.Truncate(newLength); err != nil {
		return newError("Truncate", KindInvalidData, err)
	}
	return nil
}

// Close releases the underlying file descriptor.
func (pf *PagedFile) Close() error {
	return pf.f.Close()
}
