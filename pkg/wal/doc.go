// Package wal provides a compact, append-only, key-partitioned write-ahead log for embedding in single-process
// applications: event sourcing stores, message broker partitions, audit logs and similar systems.
//
//   - Records are opaque byte payloads with an optional opaque header, appended under application supplied keys.
//     Every append returns a stable EntryRef for random access reads.
//   - Each key owns its own set of segment files covering consecutive time windows. Segments are rotated when their
//     window has passed and removed by compaction once the retention window is over.
//   - Appends are durable on request: with the durable flag set, the record is flushed to stable storage before the
//     call returns. Batch appends flush every touched segment exactly once at the end of the batch.
//   - After a crash the log re-opens on the same directory, loses at most one partial record per active segment and
//     overwrites the partial tail with the next append.
//
// The engine is single-owner and performs no internal locking. Wrap it behind your own mutual exclusion primitive
// when using it from multiple Go routines.
package wal
