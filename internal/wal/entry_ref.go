package wal

import "fmt"

// EntryRef is an opaque position reference to a single record frame on disk. It is returned by every append and is a
// plain value: copyable, comparable for equality and printable for diagnostics.
//
// An EntryRef is only valid while the referenced segment still exists on disk. After compaction it may dangle, in
// which case reads fail with ErrEntryNotFound.
type EntryRef struct {
	// KeyHash selects the partition the record was appended to.
	KeyHash uint64

	// SequenceNumber identifies the segment within the partition.
	SequenceNumber uint64

	// Offset is the byte offset of the record frame within the segment file, pointing at the first byte of the frame
	// signature.
	Offset uint64
}

// String returns a compact printable form for diagnostics.
func (r EntryRef) String() string {
	return fmt.Sprintf("%016x/%d@%d", r.KeyHash, r.SequenceNumber, r.Offset)
}
