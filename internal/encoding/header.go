package encoding

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrHeaderInvalidMagicBytes = errors.New("invalid segment header magic bytes")
	ErrHeaderKeyTooLarge       = errors.New("segment header key exceeds the maximum possible size")
)

// FileMagic holds the magic bytes expected at the start of every segment file.
var FileMagic = [8]byte{'N', 'A', 'N', 'O', '-', 'L', 'O', 'G'}

// FileHeaderFixedSize provides the size in bytes of the fixed part of the file header: magic bytes, sequence number,
// expiration timestamp and key length. The key itself follows with a variable length.
const FileHeaderFixedSize = 8 + 8 + 8 + 8

// MaxKeySize bounds the key length accepted when reading a file header. It protects against allocating huge buffers
// when reading a corrupt header.
const MaxKeySize = 1 << 20

// FileHeader describes the segment file header which is located at the start of every segment file.
type FileHeader struct {
	// The sequence number of this segment within its key. The file name and this header value should always match.
	// Having the sequence number in the header makes it possible to detect accidental file renames. Encoded as
	// eight bytes.
	Sequence uint64

	// The Unix timestamp in seconds at which this segment expires and becomes eligible for compaction. Encoded as
	// eight bytes.
	Expiration uint64

	// The key this segment belongs to. The header stores the raw key bytes, the file name only carries a sanitized
	// form. Encoded as eight bytes of length followed by the key bytes.
	Key []byte
}

// Size returns the total size in bytes of the encoded header.
func (h FileHeader) Size() int64 {
	return FileHeaderFixedSize + int64(len(h.Key))
}

// WriteFileHeader writes the segment header to the writer.
// The buffer is required to avoid allocations and should be big enough to hold the fixed part of the header
// temporarily.
func WriteFileHeader(writer io.Writer, buffer []byte, header FileHeader) error {
	copy(buffer[:8], FileMagic[:])
	Endian.PutUint64(buffer[8:16], header.Sequence)
	Endian.PutUint64(buffer[16:24], header.Expiration)
	Endian.PutUint64(buffer[24:32], uint64(len(header.Key)))
	if _, err := writer.Write(buffer[:FileHeaderFixedSize]); err != nil {
		return headerWriteError(err)
	}
	if len(header.Key) > 0 {
		if _, err := writer.Write(header.Key); err != nil {
			return headerWriteError(err)
		}
	}
	return nil
}

// ReadFileHeader reads the segment header from the reader.
// The buffer is required to avoid allocations and should be big enough to hold the fixed part of the header
// temporarily.
// An error is returned when the header does not match expectations (magic bytes, key length bound, short read).
func ReadFileHeader(reader io.Reader, buffer []byte) (FileHeader, error) {
	if _, err := io.ReadFull(reader, buffer[:FileHeaderFixedSize]); err != nil {
		return FileHeader{}, headerReadError(err)
	}

	if [8]byte(buffer[:8]) != FileMagic {
		return FileHeader{}, ErrHeaderInvalidMagicBytes
	}

	var result FileHeader
	result.Sequence = Endian.Uint64(buffer[8:16])
	result.Expiration = Endian.Uint64(buffer[16:24])

	keyLength := Endian.Uint64(buffer[24:32])
	if keyLength > MaxKeySize {
		return FileHeader{}, ErrHeaderKeyTooLarge
	}
	result.Key = make([]byte, keyLength)
	if _, err := io.ReadFull(reader, result.Key); err != nil {
		return FileHeader{}, headerReadError(err)
	}
	return result, nil
}

func headerWriteError(err error) error {
	return fmt.Errorf("writing segment header: %w", err)
}

func headerReadError(err error) error {
	return fmt.Errorf("reading segment header: %w", err)
}
