// Package wal provides the implementation of a compact, append-only, key-partitioned write-ahead log.
//
//   - Records are opaque byte payloads with an optional opaque header, appended under application supplied keys.
//     Every append returns an EntryRef which allows reading the record back at any time while its segment exists.
//   - Each key owns an ordered set of segment files. Exactly one segment per key is active and accepts appends, the
//     older ones are sealed and read-only. Segments cover a time window derived from the retention options and are
//     rotated when that window has passed.
//   - Expired sealed segments are removed by compaction, which is the only way records are ever deleted. There is no
//     in-place update or per-record deletion.
//   - The engine is single-owner. None of its operations are safe for concurrent use, callers wanting concurrency
//     wrap the engine behind their own mutual exclusion primitive.
package wal
