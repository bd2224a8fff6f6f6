package bufpool

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// UpdateChecksum computes a 64-bit hash of buf[ChecksumSize:] and writes
// it little-endian into buf[:ChecksumSize]. It fails if buf is shorter
// than ChecksumSize; the hash function's identity is not part of the
// external contract (spec.md §4.1), only that it is deterministic.
func UpdateChecksum(buf []byte) error {
	if len(buf) < ChecksumSize {
		return newError("UpdateChecksum", KindInvalidInput, nil)
	}
	sum := xxhash.Sum64(buf[ChecksumSize:])
	binary.LittleEndian.PutUint64(buf[:ChecksumSize], sum)
	return nil
}

// VerifyChecksum reports whether the checksum prefix of buf matches its
// payload. A stored checksum of zero is accepted as "uninitialized" and
// is never treated as corruption — this lets a freshly extended, never
// written page round-trip without tripping the integrity check.
func VerifyChecksum(buf []byte) error {
	if len(buf) < ChecksumSize {
		return newError("VerifyChecksum", KindInvalidInput, nil)
	}
	stored := binary.LittleEndian.Uint64(buf[:ChecksumSize])
	if stored == 0 {
		return nil
	}
	if stored != xxhash.Sum64(buf[ChecksumSize:]) {
		return newError("VerifyChecksum", KindInvalidData, nil)
	}
	return nil
}
