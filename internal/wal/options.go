package wal

import (
	"fmt"
	"time"
)

const (
	// DefaultEntryRetention is the retention window used when no option overwrites it.
	DefaultEntryRetention = 7 * 24 * time.Hour

	// DefaultSegmentsPerRetentionPeriod is the number of segments per retention window used when no option
	// overwrites it.
	DefaultSegmentsPerRetentionPeriod uint32 = 10
)

// Options describes the configuration of a write-ahead log. Options are fixed at construction.
type Options struct {
	// The total retention window. Records older than this are eligible for removal by compaction.
	entryRetention time.Duration

	// The number of segments the retention window is divided into. It determines the per-segment lifetime as
	// entryRetention / segmentsPerRetentionPeriod.
	segmentsPerRetentionPeriod uint32
}

// Option describes the function signature which all options need to implement.
type Option func(o *Options)

// WithEntryRetention overwrites the default retention window.
func WithEntryRetention(entryRetention time.Duration) Option {
	return func(o *Options) {
		o.entryRetention = entryRetention
	}
}

// WithSegmentsPerRetentionPeriod overwrites the default number of segments per retention window.
func WithSegmentsPerRetentionPeriod(segments uint32) Option {
	return func(o *Options) {
		o.segmentsPerRetentionPeriod = segments
	}
}

// DefaultOptions returns the options used when no Option overwrites them.
func DefaultOptions() Options {
	return Options{
		entryRetention:             DefaultEntryRetention,
		segmentsPerRetentionPeriod: DefaultSegmentsPerRetentionPeriod,
	}
}

// Validate checks the options for consistency. The expiration timestamps in segment headers have a resolution of one
// second, so the retention window must be at least one second long.
func (o Options) Validate() error {
	if o.entryRetention < time.Second {
		return fmt.Errorf("entry retention must be at least one second: %w", ErrInvalidConfig)
	}
	if o.segmentsPerRetentionPeriod == 0 {
		return fmt.Errorf("segments per retention period must be greater than zero: %w", ErrInvalidConfig)
	}
	return nil
}

// segmentLifetime returns the time window in seconds one segment covers before it is rotated.
func (o Options) segmentLifetime() uint64 {
	return uint64(o.entryRetention/time.Second) / uint64(o.segmentsPerRetentionPeriod)
}
