package encoding

import (
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	ErrFrameInvalidMagicBytes = errors.New("invalid record frame magic bytes")
	ErrRecordHeaderTooLarge   = errors.New("record header exceeds the maximum possible size")
	ErrFrameExceedsFile       = errors.New("record frame exceeds the remaining file size")
)

// RecordMagic holds the magic bytes expected at the start of every record frame.
var RecordMagic = [6]byte{'N', 'A', 'N', 'O', 'R', 'C'}

// MaxRecordHeaderSize is the maximum size in bytes of a record header. The header length is encoded as two bytes,
// which caps it at 64 KiB - 1.
const MaxRecordHeaderSize = math.MaxUint16

// FrameFixedOverhead provides the size in bytes a frame occupies in addition to its header and content: magic bytes,
// header length and content length.
const FrameFixedOverhead = 6 + 2 + 8

// FrameSize returns the total size in bytes of the encoded frame for the given header and content lengths.
func FrameSize(headerLen int, contentLen int) int64 {
	return FrameFixedOverhead + int64(headerLen) + int64(contentLen)
}

// WriteFrame writes one record frame to the writer. A nil or empty header is encoded with a header length of zero.
// The buffer is required to avoid allocations and should be big enough to hold the fixed parts of the frame
// temporarily.
// Returns the number of bytes written.
// An error is returned when the header exceeds the maximum possible size.
func WriteFrame(writer io.Writer, buffer []byte, header []byte, content []byte) (int64, error) {
	if len(header) > MaxRecordHeaderSize {
		return 0, ErrRecordHeaderTooLarge
	}

	copy(buffer[:6], RecordMagic[:])
	Endian.PutUint16(buffer[6:8], uint16(len(header)))
	if _, err := writer.Write(buffer[:8]); err != nil {
		return 0, frameWriteError(err)
	}
	if len(header) > 0 {
		if _, err := writer.Write(header); err != nil {
			return 0, frameWriteError(err)
		}
	}

	Endian.PutUint64(buffer[:8], uint64(len(content)))
	if _, err := writer.Write(buffer[:8]); err != nil {
		return 0, frameWriteError(err)
	}
	if len(content) > 0 {
		if _, err := writer.Write(content); err != nil {
			return 0, frameWriteError(err)
		}
	}
	return FrameSize(len(header), len(content)), nil
}

// ReadFrameContent reads one record frame from the reader and returns its content together with the total number of
// bytes the frame occupies on disk. The record header is skipped over and not returned.
// The buffer is required to avoid allocations and should be big enough to hold the fixed parts of the frame
// temporarily.
// remaining is the number of bytes available from the start of the frame to the end of the file. It bounds the
// declared header and content lengths so that a malformed length field cannot cause huge memory allocations.
func ReadFrameContent(reader io.Reader, buffer []byte, remaining int64) ([]byte, int64, error) {
	if remaining < FrameFixedOverhead {
		return nil, 0, ErrFrameExceedsFile
	}

	if _, err := io.ReadFull(reader, buffer[:8]); err != nil {
		return nil, 0, frameReadError(err)
	}
	if [6]byte(buffer[:6]) != RecordMagic {
		return nil, 0, ErrFrameInvalidMagicBytes
	}
	headerLength := int64(Endian.Uint16(buffer[6:8]))

	if remaining < FrameFixedOverhead+headerLength {
		return nil, 0, ErrFrameExceedsFile
	}
	if _, err := io.CopyN(io.Discard, reader, headerLength); err != nil {
		return nil, 0, frameReadError(err)
	}

	if _, err := io.ReadFull(reader, buffer[:8]); err != nil {
		return nil, 0, frameReadError(err)
	}
	contentLength := Endian.Uint64(buffer[:8])
	if contentLength > uint64(remaining) { //nolint:gosec // remaining was checked to be positive above
		return nil, 0, ErrFrameExceedsFile
	}

	frameLength := FrameFixedOverhead + headerLength + int64(contentLength)
	if remaining < frameLength {
		return nil, 0, ErrFrameExceedsFile
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(reader, content); err != nil {
		return nil, 0, frameReadError(err)
	}
	return content, frameLength, nil
}

func frameWriteError(err error) error {
	return fmt.Errorf("writing record frame: %w", err)
}

func frameReadError(err error) error {
	return fmt.Errorf("reading record frame: %w", err)
}
