package wal

import (
	"errors"
	"io"

	"github.com/backbone81/nano-wal/internal/encoding"
	"github.com/backbone81/nano-wal/internal/segment"
)

// RecordIterator yields the content of every record frame of one key in ascending (sequence, offset) order. Record
// headers are not yielded.
//
// The iterator is finite, single-pass and not restartable. It holds one file descriptor open while iterating, so it
// needs to be closed by calling Close when iteration is done or abandoned.
//
// A partial tail frame left behind by a crash terminates the iteration cleanly: Next returns false and Err returns
// nil. Err only reports failures to open or read segment files.
type RecordIterator struct {
	// The remaining segment files to iterate, in ascending sequence order.
	filePaths []string

	// The reader for the segment file currently being iterated. nil before the first and after the last segment.
	reader *segment.Reader

	// The content of the frame read by the last successful call to Next.
	value []byte

	// The error which terminated the iteration, if it was not a clean end.
	err error
}

func newRecordIterator(filePaths []string) *RecordIterator {
	return &RecordIterator{
		filePaths: filePaths,
	}
}

// Next reports if a record has been successfully read. When it returns true, Value() contains the record content.
// When it returns false, the iteration is over and Err() reports whether it ended cleanly.
func (it *RecordIterator) Next() bool {
	if it.err != nil {
		return false
	}

	for {
		if it.reader == nil {
			if len(it.filePaths) == 0 {
				return false
			}
			reader, err := segment.OpenReader(it.filePaths[0])
			it.filePaths = it.filePaths[1:]
			if err != nil {
				it.err = err
				return false
			}
			it.reader = reader
		}

		if it.reader.Next() {
			it.value = it.reader.Value()
			return true
		}

		// The current segment is exhausted. Reaching the end of the body and hitting an undecodable tail frame both
		// end this segment cleanly, we move on to the next one.
		readErr := it.reader.Err()
		if closeErr := it.reader.Close(); closeErr != nil {
			it.err = closeErr
			return false
		}
		it.reader = nil
		if !errors.Is(readErr, io.EOF) &&
			!errors.Is(readErr, io.ErrUnexpectedEOF) &&
			!errors.Is(readErr, encoding.ErrFrameExceedsFile) &&
			!errors.Is(readErr, encoding.ErrFrameInvalidMagicBytes) {
			it.err = readErr
			return false
		}
	}
}

// Value returns the content of the last record read. The value is only valid after a call to Next which returned
// true.
func (it *RecordIterator) Value() []byte {
	return it.value
}

// Err returns the error which terminated the iteration, or nil if it ended cleanly.
func (it *RecordIterator) Err() error {
	return it.err
}

// Close releases the file descriptor held by the iterator. It is safe to call Close multiple times.
func (it *RecordIterator) Close() error {
	if it.reader == nil {
		return nil
	}
	err := it.reader.Close()
	it.reader = nil
	return err
}
