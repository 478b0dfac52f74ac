package wal

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/backbone81/nano-wal/internal/encoding"
)

// WAL provides the main functionality of the write-ahead log. It owns the catalog and the options and routes every
// operation to the segment set of the affected key.
//
// Instances of WAL are NOT safe to use concurrently. All operations mutate through the one engine value, callers
// wanting concurrency need to provide their own external synchronization. The engine performs no internal locking
// and spawns no background tasks, every operation which touches disk is a blocking synchronous call.
type WAL struct {
	// The directory all segment files are located in.
	directory string

	// The options fixed at construction.
	options Options

	// The index over the on-disk directory.
	catalog *Catalog
}

// BatchEntry is one record of a batch append.
type BatchEntry struct {
	// The key selecting the record stream.
	Key Key

	// The optional record header. A nil header is encoded with a header length of zero.
	Header []byte

	// The record content.
	Content []byte
}

// New opens the write-ahead log in the given directory, creating the directory if necessary. The on-disk state is
// scanned into the catalog, so records written by an earlier process are available immediately.
func New(directory string, options ...Option) (*WAL, error) {
	newOptions := DefaultOptions()
	for _, option := range options {
		option(&newOptions)
	}
	if err := newOptions.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(directory, 0o775); err != nil {
		return nil, fmt.Errorf("creating directory %q: %w", directory, err)
	}

	catalog, err := OpenCatalog(directory, newOptions)
	if err != nil {
		return nil, err
	}

	return &WAL{
		directory: directory,
		options:   newOptions,
		catalog:   catalog,
	}, nil
}

// Directory returns the directory the write-ahead log is located in.
func (w *WAL) Directory() string {
	return w.directory
}

// AppendEntry appends one record under the given key and returns its position reference. The optional header is
// stored in the record frame but not returned by reads, it is write-once metadata for the caller's own decoding
// scheme. When durable is true, the record is flushed to stable storage before AppendEntry returns, which
// establishes the crash guarantee for the returned EntryRef.
//
// A header exceeding the maximum possible size fails with ErrHeaderTooLarge before anything is written to disk.
func (w *WAL) AppendEntry(key Key, header []byte, content []byte, durable bool) (EntryRef, error) {
	if len(header) > encoding.MaxRecordHeaderSize {
		return EntryRef{}, fmt.Errorf("record header of %d bytes exceeds the maximum of %d bytes: %w", len(header), encoding.MaxRecordHeaderSize, ErrHeaderTooLarge)
	}

	set, err := w.catalog.GetOrCreate(key)
	if err != nil {
		return EntryRef{}, err
	}

	ref, err := set.Append(header, content, durable)
	if err != nil {
		return EntryRef{}, err
	}

	AppendTotal.Inc()
	AppendBytes.Add(float64(len(content)))
	return ref, nil
}

// LogEntry appends one record with the durability guarantee. It is equivalent to AppendEntry with durable set to
// true.
func (w *WAL) LogEntry(key Key, header []byte, content []byte) (EntryRef, error) {
	return w.AppendEntry(key, header, content, true)
}

// AppendBatch appends the given records in order and returns their position references. The durable flag is
// interpreted once at the end of the batch: every record is written without an individual flush, and after the final
// record every segment which received at least one write is flushed exactly once. This amortizes the flush cost over
// the whole batch.
//
// The first error aborts the batch, records appended before the error remain written but carry no durability
// guarantee.
func (w *WAL) AppendBatch(entries []BatchEntry, durable bool) ([]EntryRef, error) {
	refs := make([]EntryRef, 0, len(entries))
	touched := make(map[uint64]*SegmentSet)

	for _, entry := range entries {
		ref, err := w.AppendEntry(entry.Key, entry.Header, entry.Content, false)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)

		if _, ok := touched[ref.KeyHash]; !ok {
			set, _ := w.catalog.ByHash(ref.KeyHash)
			touched[ref.KeyHash] = set
		}
	}

	if durable {
		for _, set := range touched {
			if err := set.Sync(); err != nil {
				return nil, err
			}
		}
	}
	return refs, nil
}

// ReadEntryAt reads the content of the record the given EntryRef points at. The record header is not returned.
// Fails with ErrEntryNotFound when the key hash or the sequence number is unknown, which is the usual fate of a
// reference whose segment was removed by compaction. Fails with ErrCorruptedData when the bytes at the referenced
// offset do not decode into a complete record frame.
func (w *WAL) ReadEntryAt(ref EntryRef) ([]byte, error) {
	set, ok := w.catalog.ByHash(ref.KeyHash)
	if !ok {
		return nil, fmt.Errorf("no key with hash %d: %w", ref.KeyHash, ErrEntryNotFound)
	}

	content, err := set.ReadAt(ref.SequenceNumber, ref.Offset)
	if err != nil {
		return nil, err
	}

	ReadTotal.Inc()
	return content, nil
}

// EnumerateRecords returns an iterator over the contents of every record of the given key in append order. An
// unknown key yields an empty iteration, not an error.
func (w *WAL) EnumerateRecords(key Key) *RecordIterator {
	set, ok := w.catalog.ByKey(key)
	if !ok {
		return newRecordIterator(nil)
	}
	return set.Records()
}

// EnumerateKeys returns the printable form of every key with at least one segment on disk or one append in this
// process, each exactly once.
func (w *WAL) EnumerateKeys() []string {
	return w.catalog.Keys()
}

// Compact removes every sealed segment whose expiration has passed and returns the total number of files removed.
// The active segment of a key is never removed, even when expired.
func (w *WAL) Compact() (int, error) {
	now := uint64(time.Now().Unix()) //nolint:gosec // Unix timestamps are positive.

	removed := 0
	var errs []error
	for _, set := range w.catalog.Sets() {
		setRemoved, err := set.Compact(now)
		removed += setRemoved
		if err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// Sync flushes every active segment to stable storage. Records appended without the durable flag are covered by the
// crash guarantee once Sync returned.
func (w *WAL) Sync() error {
	var errs []error
	for _, set := range w.catalog.Sets() {
		if err := set.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ActiveSegmentCount returns the number of keys which currently hold an open active segment.
func (w *WAL) ActiveSegmentCount() int {
	result := 0
	for _, set := range w.catalog.Sets() {
		if set.activeSegment() != nil {
			result++
		}
	}
	return result
}

// Close flushes and closes all open segment files. The directory and its contents stay on disk and can be opened
// again with New.
func (w *WAL) Close() error {
	var errs []error
	for _, set := range w.catalog.Sets() {
		if err := set.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown closes all open segment files and removes the directory tree of the write-ahead log. This is destructive
// and irreversible, use Close to keep the data.
func (w *WAL) Shutdown() error {
	if err := w.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(w.directory); err != nil {
		return fmt.Errorf("removing directory %q: %w", w.directory, err)
	}
	return nil
}
