package wal

import (
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/backbone81/nano-wal/internal/encoding"
	"github.com/backbone81/nano-wal/internal/segment"
)

// SegmentSet owns the ordered sequence of segments for a single key. At most one segment is active and accepts
// appends, the rest are sealed and read-only. The set decides which segment a write lands in and rotates into a new
// segment when the active one has expired.
//
// Instances of SegmentSet are NOT safe to use concurrently. You need to provide external synchronization.
type SegmentSet struct {
	// The directory all segment files are located in.
	directory string

	// The raw key bytes as stored in every segment header of this set.
	key []byte

	// The printable form of the key, used for file names and diagnostics.
	keyName string

	// The 64 bit hash of the key bytes.
	keyHash uint64

	// The options of the owning write-ahead log.
	options Options

	// The segments of this key in ascending sequence order. While the last one holds an open file handle it is the
	// active segment.
	segments []*segment.Segment
}

func newSegmentSet(directory string, key []byte, keyName string, keyHash uint64, options Options) *SegmentSet {
	return &SegmentSet{
		directory: directory,
		key:       key,
		keyName:   keyName,
		keyHash:   keyHash,
		options:   options,
	}
}

// KeyName returns the printable form of the key this set belongs to.
func (s *SegmentSet) KeyName() string {
	return s.keyName
}

// KeyHash returns the 64 bit hash of the key this set belongs to.
func (s *SegmentSet) KeyHash() uint64 {
	return s.keyHash
}

// SegmentCount returns the number of segments currently in the set.
func (s *SegmentSet) SegmentCount() int {
	return len(s.segments)
}

// Append appends one record to the active segment of this key, rotating into a new segment first when there is no
// active segment yet or the active one has expired.
func (s *SegmentSet) Append(header []byte, content []byte, durable bool) (EntryRef, error) {
	now := uint64(time.Now().Unix()) //nolint:gosec // Unix timestamps are positive.

	active := s.activeSegment()
	if active == nil || active.IsExpired(now) {
		if err := s.rotate(now); err != nil {
			return EntryRef{}, err
		}
		active = s.activeSegment()
	}

	offset, err := active.AppendFrame(header, content, durable)
	if err != nil {
		return EntryRef{}, err
	}
	return EntryRef{
		KeyHash:        s.keyHash,
		SequenceNumber: active.Sequence(),
		Offset:         uint64(offset), //nolint:gosec // offsets are positive
	}, nil
}

// ReadAt reads the content of the record frame at the given offset within the segment with the given sequence
// number.
func (s *SegmentSet) ReadAt(sequenceNumber uint64, offset uint64) ([]byte, error) {
	seg := s.segmentBySequence(sequenceNumber)
	if seg == nil {
		return nil, fmt.Errorf("no segment with sequence number %d for key %q: %w", sequenceNumber, s.keyName, ErrEntryNotFound)
	}

	content, err := seg.ReadFrameAt(int64(offset)) //nolint:gosec // offsets fit into int64
	if err != nil {
		return nil, asCorrupted(err)
	}
	return content, nil
}

// Records returns an iterator over the contents of every record frame across every segment of this key in ascending
// (sequence, offset) order.
func (s *SegmentSet) Records() *RecordIterator {
	filePaths := make([]string, 0, len(s.segments))
	for _, seg := range s.segments {
		filePaths = append(filePaths, seg.FilePath())
	}
	return newRecordIterator(filePaths)
}

// Compact removes every sealed segment which is expired at the given Unix timestamp and returns the number of files
// removed. The active segment is never removed, even when expired. It is sealed by the rotation on the next append
// and picked up by a later compaction.
func (s *SegmentSet) Compact(now uint64) (int, error) {
	removed := 0
	kept := make([]*segment.Segment, 0, len(s.segments))
	var firstErr error
	for _, seg := range s.segments {
		if seg.IsActive() || !seg.IsExpired(now) {
			kept = append(kept, seg)
			continue
		}
		if err := seg.Remove(); err != nil {
			// Keep the segment in the set so a later compaction can retry the removal.
			kept = append(kept, seg)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	s.segments = kept
	CompactionRemovedTotal.Add(float64(removed))
	return removed, firstErr
}

// Sync flushes the active segment of this key to stable storage.
func (s *SegmentSet) Sync() error {
	if active := s.activeSegment(); active != nil {
		return active.Sync()
	}
	return nil
}

// Close seals the active segment of this key.
func (s *SegmentSet) Close() error {
	if active := s.activeSegment(); active != nil {
		if err := active.Sync(); err != nil {
			return err
		}
		return active.Seal()
	}
	return nil
}

// activeSegment returns the active segment or nil if this set has none.
func (s *SegmentSet) activeSegment() *segment.Segment {
	if len(s.segments) == 0 {
		return nil
	}
	last := s.segments[len(s.segments)-1]
	if !last.IsActive() {
		return nil
	}
	return last
}

// segmentBySequence returns the segment with the given sequence number or nil.
func (s *SegmentSet) segmentBySequence(sequenceNumber uint64) *segment.Segment {
	index, exact := slices.BinarySearchFunc(s.segments, sequenceNumber, func(seg *segment.Segment, target uint64) int {
		switch {
		case seg.Sequence() < target:
			return -1
		case seg.Sequence() > target:
			return 1
		default:
			return 0
		}
	})
	if !exact {
		return nil
	}
	return s.segments[index]
}

// rotate seals the current active segment and creates the next one. The new segment continues the sequence run with
// the greatest sequence plus one and expires one segment lifetime from now.
func (s *SegmentSet) rotate(now uint64) error {
	RotationTotal.Inc()
	start := time.Now()

	var sequence uint64
	if len(s.segments) > 0 {
		last := s.segments[len(s.segments)-1]
		if err := last.Sync(); err != nil {
			return err
		}
		if err := last.Seal(); err != nil {
			return err
		}
		sequence = last.Sequence() + 1
	}

	newSegment, err := segment.Create(s.directory, s.keyName, s.keyHash, encoding.FileHeader{
		Sequence:   sequence,
		Expiration: now + s.options.segmentLifetime(),
		Key:        s.key,
	})
	if err != nil {
		return err
	}
	s.segments = append(s.segments, newSegment)

	duration := time.Since(start).Seconds()
	if duration > 1.0 {
		log.Printf("WARNING: Segment rotation needed %f seconds which is too slow.\n", duration)
	}
	RotationDuration.Observe(duration)
	return nil
}

// addExisting inserts a segment found by the directory scan. The catalog sorts the set after the scan.
func (s *SegmentSet) addExisting(seg *segment.Segment) {
	s.segments = append(s.segments, seg)
}

// sortSegments brings the segments into ascending sequence order.
func (s *SegmentSet) sortSegments() {
	slices.SortFunc(s.segments, func(a *segment.Segment, b *segment.Segment) int {
		switch {
		case a.Sequence() < b.Sequence():
			return -1
		case a.Sequence() > b.Sequence():
			return 1
		default:
			return 0
		}
	})
}

// reopenActive replaces the greatest-sequence segment with one opened in append mode, recovering its write position.
func (s *SegmentSet) reopenActive() error {
	if len(s.segments) == 0 {
		return nil
	}
	last := s.segments[len(s.segments)-1]
	active, err := segment.OpenAppend(last.FilePath())
	if err != nil {
		return err
	}
	s.segments[len(s.segments)-1] = active
	return nil
}
