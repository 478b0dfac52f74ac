package segment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/backbone81/nano-wal/internal/encoding"
)

// Segment represents a single append-only segment file belonging to one key. A segment is either active, in which
// case it holds an open file handle and accepts appends, or sealed, in which case only its metadata is kept in memory
// and the file is opened on demand for reads.
//
// Instances of Segment are NOT safe to use concurrently. You need to provide external synchronization.
type Segment struct {
	// The path to the segment file.
	filePath string

	// The file header as written to or read from disk.
	header encoding.FileHeader

	// The open file handle while the segment is active. This is nil for sealed segments.
	file *os.File

	// The offset in bytes at which the next frame will be written. For sealed segments this is the file length.
	writePos int64

	// This buffer is used to combine the individual parts of a frame into a single file write.
	writeBuffer *bytes.Buffer

	// This is a temporary buffer for converting integers into slices of bytes. This helps us with reducing the amount
	// of memory allocations.
	scratchBuffer [encoding.FileHeaderFixedSize]byte
}

// Create creates a new active segment file in the given directory. The file header is written and flushed to stable
// storage together with the parent directory before Create returns, so a crash cannot leave a segment file without a
// valid header visible in the directory.
func Create(directory string, keyName string, keyHash uint64, header encoding.FileHeader) (*Segment, error) {
	filePath := path.Join(directory, FileName(keyName, keyHash, header.Sequence))

	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o664) //nolint:gosec // We can not validate paths in a library.
	if err != nil {
		return nil, fmt.Errorf("creating the segment file %q: %w", filePath, err)
	}

	result := &Segment{
		filePath:    filePath,
		header:      header,
		file:        file,
		writePos:    header.Size(),
		writeBuffer: bytes.NewBuffer(make([]byte, 0, 4*1024)),
	}

	if err := encoding.WriteFileHeader(file, result.scratchBuffer[:], header); err != nil {
		return nil, errors.Join(fmt.Errorf("the segment file %q: %w", filePath, err), file.Close())
	}
	if err := file.Sync(); err != nil {
		return nil, errors.Join(fmt.Errorf("flushing the segment file %q: %w", filePath, err), file.Close())
	}
	if err := syncDir(directory); err != nil {
		return nil, errors.Join(err, file.Close())
	}
	return result, nil
}

// OpenRead opens an existing segment file, validates its header and returns it as a sealed segment. The file handle
// is closed again before returning, sealed segments are opened on demand for reads.
func OpenRead(filePath string) (*Segment, error) {
	file, err := os.Open(filePath) //nolint:gosec // We can not validate paths in a library.
	if err != nil {
		return nil, fmt.Errorf("opening the segment file %q: %w", filePath, err)
	}

	result, err := readSegmentInfo(file, filePath)
	if closeErr := file.Close(); closeErr != nil {
		return nil, errors.Join(err, closeErr)
	}
	return result, err
}

// OpenAppend re-opens an existing segment file as the active segment of its key. The body of the segment is scanned
// so that the write position ends up directly behind the last complete frame. A partial frame left behind by a crash
// is overwritten by the next append.
func OpenAppend(filePath string) (*Segment, error) {
	file, err := os.OpenFile(filePath, os.O_RDWR, 0) //nolint:gosec // We can not validate paths in a library.
	if err != nil {
		return nil, fmt.Errorf("opening the segment file %q: %w", filePath, err)
	}

	result, err := readSegmentInfo(file, filePath)
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}
	fileSize := result.writePos

	// Walk the frames to find the end of the last complete frame. Everything behind that point is a partial tail
	// from an interrupted write and will be overwritten by future appends.
	offset := result.header.Size()
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, errors.Join(fmt.Errorf("seeking in the segment file %q: %w", filePath, err), file.Close())
	}
	var scratch [encoding.FileHeaderFixedSize]byte
	for {
		_, frameLen, err := encoding.ReadFrameContent(file, scratch[:], fileSize-offset)
		if err != nil {
			break
		}
		offset += frameLen
	}

	// Cut off the partial tail so that the file length matches the write position again.
	if offset < fileSize {
		if err := file.Truncate(offset); err != nil {
			return nil, errors.Join(fmt.Errorf("truncating the segment file %q: %w", filePath, err), file.Close())
		}
	}

	result.file = file
	result.writePos = offset
	result.writeBuffer = bytes.NewBuffer(make([]byte, 0, 4*1024))
	return result, nil
}

func readSegmentInfo(file *os.File, filePath string) (*Segment, error) {
	var scratch [encoding.FileHeaderFixedSize]byte
	header, err := encoding.ReadFileHeader(file, scratch[:])
	if err != nil {
		return nil, fmt.Errorf("the segment file %q: %w", filePath, err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("reading the size of the segment file %q: %w", filePath, err)
	}

	return &Segment{
		filePath: filePath,
		header:   header,
		writePos: fileInfo.Size(),
	}, nil
}

// FilePath returns the path of the segment file.
func (s *Segment) FilePath() string {
	return s.filePath
}

// Header returns the segment file header.
func (s *Segment) Header() encoding.FileHeader {
	return s.header
}

// Sequence returns the sequence number of this segment within its key.
func (s *Segment) Sequence() uint64 {
	return s.header.Sequence
}

// Expiration returns the Unix timestamp in seconds at which this segment expires.
func (s *Segment) Expiration() uint64 {
	return s.header.Expiration
}

// Key returns the raw key bytes this segment belongs to.
func (s *Segment) Key() []byte {
	return s.header.Key
}

// WritePos returns the offset in bytes at which the next frame will be written.
func (s *Segment) WritePos() int64 {
	return s.writePos
}

// IsActive reports if this segment holds an open file handle and accepts appends.
func (s *Segment) IsActive() bool {
	return s.file != nil
}

// IsExpired reports if this segment is expired at the given Unix timestamp.
func (s *Segment) IsExpired(now uint64) bool {
	return s.header.Expiration <= now
}

// AppendFrame appends one record frame to the segment and returns the offset in bytes at which the frame starts.
// The frame is assembled in memory and written with a single positioned write, the write position only advances when
// the write succeeded. A failed append therefore leaves the segment state unchanged, any partial tail bytes on disk
// are tolerated and overwritten by the next append.
// When durable is true, the file data is flushed to stable storage before returning.
func (s *Segment) AppendFrame(header []byte, content []byte, durable bool) (int64, error) {
	if s.file == nil {
		return 0, fmt.Errorf("the segment file %q is sealed and does not accept appends", s.filePath)
	}

	s.writeBuffer.Reset()
	if _, err := encoding.WriteFrame(s.writeBuffer, s.scratchBuffer[:], header, content); err != nil {
		return 0, err
	}

	if _, err := s.file.WriteAt(s.writeBuffer.Bytes(), s.writePos); err != nil {
		return 0, fmt.Errorf("writing record frame to segment file %q: %w", s.filePath, err)
	}
	offset := s.writePos
	s.writePos += int64(s.writeBuffer.Len())

	if durable {
		if err := s.Sync(); err != nil {
			s.writePos = offset
			return 0, err
		}
	}
	return offset, nil
}

// ReadFrameAt reads the content of the record frame starting at the given offset in bytes from the start of the
// file. The file is opened on demand and closed again, so sealed segments do not hold file handles between reads.
// No tail recovery is applied here, a frame which cannot be decoded at the given offset is an error.
func (s *Segment) ReadFrameAt(offset int64) ([]byte, error) {
	file, err := os.Open(s.filePath) //nolint:gosec // We can not validate paths in a library.
	if err != nil {
		return nil, fmt.Errorf("opening the segment file %q: %w", s.filePath, err)
	}
	defer file.Close() //nolint:errcheck // The file is only read from.

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("reading the size of the segment file %q: %w", s.filePath, err)
	}
	if offset < s.header.Size() || offset >= fileInfo.Size() {
		return nil, fmt.Errorf("offset %d is outside the body of the segment file %q: %w", offset, s.filePath, encoding.ErrFrameExceedsFile)
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking in the segment file %q: %w", s.filePath, err)
	}

	var scratch [encoding.FileHeaderFixedSize]byte
	content, _, err := encoding.ReadFrameContent(file, scratch[:], fileInfo.Size()-offset)
	if err != nil {
		return nil, fmt.Errorf("the segment file %q: %w", s.filePath, err)
	}
	return content, nil
}

// Sync flushes the file data of the active segment to stable storage.
func (s *Segment) Sync() error {
	if s.file == nil {
		return nil
	}
	if err := datasync(s.file); err != nil {
		return fmt.Errorf("synching the segment file %q: %w", s.filePath, err)
	}
	return nil
}

// Seal closes the file handle of the active segment. The segment stays available for reads.
func (s *Segment) Seal() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.writeBuffer = nil
	if err != nil {
		return fmt.Errorf("closing the segment file %q: %w", s.filePath, err)
	}
	return nil
}

// Remove deletes the segment file from disk. The segment must be sealed first.
func (s *Segment) Remove() error {
	if s.file != nil {
		return fmt.Errorf("the active segment file %q can not be removed", s.filePath)
	}
	if err := os.Remove(s.filePath); err != nil {
		return fmt.Errorf("removing the segment file %q: %w", s.filePath, err)
	}
	return nil
}

// syncDir flushes the directory so that a freshly created segment file is durable in the directory itself.
func syncDir(directory string) error {
	dir, err := os.Open(directory) //nolint:gosec // We can not validate paths in a library.
	if err != nil {
		return fmt.Errorf("opening the directory %q: %w", directory, err)
	}
	syncErr := dir.Sync()
	closeErr := dir.Close()
	if syncErr != nil {
		return fmt.Errorf("flushing the directory %q: %w", directory, syncErr)
	}
	return closeErr
}
