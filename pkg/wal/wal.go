package wal

import (
	intwal "github.com/backbone81/nano-wal/internal/wal"
)

type (
	// WAL provides the main functionality of the write-ahead log.
	WAL = intwal.WAL

	// Key identifies an independent record stream within the write-ahead log.
	Key = intwal.Key

	// StringKey is the Key implementation for plain string keys.
	StringKey = intwal.StringKey

	// BytesKey is the Key implementation for raw byte keys.
	BytesKey = intwal.BytesKey

	// EntryRef is an opaque position reference to a single record frame on disk.
	EntryRef = intwal.EntryRef

	// BatchEntry is one record of a batch append.
	BatchEntry = intwal.BatchEntry

	// Option describes the function signature which all options need to implement.
	Option = intwal.Option

	// RecordIterator yields the contents of every record of one key in append order.
	RecordIterator = intwal.RecordIterator
)

// New opens the write-ahead log in the given directory, creating the directory if necessary.
var New = intwal.New

// WithEntryRetention overwrites the default retention window.
var WithEntryRetention = intwal.WithEntryRetention

// WithSegmentsPerRetentionPeriod overwrites the default number of segments per retention window.
var WithSegmentsPerRetentionPeriod = intwal.WithSegmentsPerRetentionPeriod

const (
	// DefaultEntryRetention is the retention window used when no option overwrites it.
	DefaultEntryRetention = intwal.DefaultEntryRetention

	// DefaultSegmentsPerRetentionPeriod is the number of segments per retention window used when no option
	// overwrites it.
	DefaultSegmentsPerRetentionPeriod = intwal.DefaultSegmentsPerRetentionPeriod
)

var (
	// ErrInvalidConfig indicates that the options supplied to New do not describe a usable write-ahead log.
	ErrInvalidConfig = intwal.ErrInvalidConfig

	// ErrEntryNotFound indicates that an EntryRef references a key hash or sequence number which no longer exists.
	ErrEntryNotFound = intwal.ErrEntryNotFound

	// ErrCorruptedData indicates a signature mismatch or a short read where a complete frame or header was expected.
	ErrCorruptedData = intwal.ErrCorruptedData

	// ErrHeaderTooLarge indicates that the record header supplied to an append exceeds the maximum possible size.
	ErrHeaderTooLarge = intwal.ErrHeaderTooLarge

	// ErrKeyHashCollision indicates that two different keys hash to the same 64 bit value.
	ErrKeyHashCollision = intwal.ErrKeyHashCollision
)
