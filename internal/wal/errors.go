package wal

import (
	"errors"
	"io"

	"github.com/backbone81/nano-wal/internal/encoding"
)

var (
	// ErrInvalidConfig indicates that the options supplied to New do not describe a usable write-ahead log.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEntryNotFound indicates that an EntryRef references a key hash or sequence number which no longer exists,
	// typically because the segment was removed by compaction.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrCorruptedData indicates a signature mismatch or a short read at a position where a complete frame or header
	// was expected.
	ErrCorruptedData = errors.New("corrupted data")

	// ErrHeaderTooLarge indicates that the record header supplied to an append exceeds the maximum possible size.
	ErrHeaderTooLarge = encoding.ErrRecordHeaderTooLarge

	// ErrKeyHashCollision indicates that two different keys hash to the same 64 bit value. Every key hash owns
	// exactly one segment set, so the colliding key is rejected instead of silently sharing a record stream.
	ErrKeyHashCollision = errors.New("key hash collision")
)

// asCorrupted classifies a read failure. Decoding failures are reported as corrupted data, everything else is an I/O
// error which is surfaced verbatim.
func asCorrupted(err error) error {
	switch {
	case errors.Is(err, encoding.ErrFrameInvalidMagicBytes),
		errors.Is(err, encoding.ErrFrameExceedsFile),
		errors.Is(err, encoding.ErrHeaderInvalidMagicBytes),
		errors.Is(err, encoding.ErrHeaderKeyTooLarge),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return errors.Join(ErrCorruptedData, err)
	default:
		return err
	}
}
