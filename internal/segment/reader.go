package segment

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/backbone81/nano-wal/internal/encoding"
)

// ErrRecordNone indicates that no further record frame could be read from a segment. It wraps the underlying cause,
// which is io.EOF at a clean end of the segment body.
var ErrRecordNone = errors.New("this is no record frame")

// Reader provides functionality for reading the record frames of a single segment file in order. It holds its own
// read-only file handle which is released by calling Close.
//
// Instances of Reader are NOT safe to use concurrently. You need to provide external synchronization.
type Reader struct {
	// The segment file to read from.
	file *os.File

	// The header of the segment file.
	header encoding.FileHeader

	// The offset in bytes of the frame which will be read next.
	offset int64

	// The total size of the file in bytes. This is used together with offset to bound the data available until the
	// end of the file. This helps with avoiding large memory allocations on malformed files.
	fileSize int64

	// The content of the frame read by the last successful call to Next.
	value []byte

	// The error for the last operation. If this is nil, the content of value can be used.
	err error

	// This is a temporary buffer for converting slices of bytes into integers.
	scratchBuffer [encoding.FileHeaderFixedSize]byte
}

// OpenReader opens the given segment file for sequential reading of its record frames. The reader is positioned at
// the first frame behind the file header.
//
// To avoid resources leaking, the returned Reader needs to be closed by calling Close.
func OpenReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath) //nolint:gosec // We can not validate paths in a library.
	if err != nil {
		return nil, fmt.Errorf("opening the segment file %q: %w", filePath, err)
	}

	var scratch [encoding.FileHeaderFixedSize]byte
	header, err := encoding.ReadFileHeader(file, scratch[:])
	if err != nil {
		return nil, errors.Join(fmt.Errorf("the segment file %q: %w", filePath, err), file.Close())
	}

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("reading the size of the segment file %q: %w", filePath, err), file.Close())
	}

	return &Reader{
		file:     file,
		header:   header,
		offset:   header.Size(),
		fileSize: fileInfo.Size(),
	}, nil
}

// Header returns the segment file header.
func (r *Reader) Header() encoding.FileHeader {
	return r.header
}

// Offset returns the offset in bytes of the frame which will be read next. After Next returned false this is the
// offset of the first byte which could not be decoded into a complete frame.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next reports if a record frame has been successfully read. When it returns true, Err() returns nil and Value()
// contains valid data. When it returns false, Err() contains the error wrapped in ErrRecordNone. Reaching the end of
// the segment body and hitting a partial tail frame both terminate the iteration, the former with io.EOF as the
// wrapped cause.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}

	if r.offset >= r.fileSize {
		r.err = errors.Join(ErrRecordNone, io.EOF)
		return false
	}

	content, frameLen, err := encoding.ReadFrameContent(r.file, r.scratchBuffer[:], r.fileSize-r.offset)
	if err != nil {
		r.err = errors.Join(ErrRecordNone, err)
		return false
	}
	r.value = content
	r.offset += frameLen
	return true
}

// Value returns the content of the last frame read from the segment file. The value is only valid after a call to
// Next which returned true.
func (r *Reader) Value() []byte {
	return r.value
}

// Err returns the error for the last call to Next.
// Returns ErrRecordNone when no frame could be read. This indicates either the end of the segment body, a partial
// tail frame left behind by a crash, or a corrupt frame.
func (r *Reader) Err() error {
	return r.err
}

// Close closes the file the Reader is reading from.
func (r *Reader) Close() error {
	return r.file.Close()
}
