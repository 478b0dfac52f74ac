package wal

import "github.com/cespare/xxhash/v2"

// Key identifies an independent record stream within the write-ahead log. The engine needs three capabilities from a
// key: a stable 64 bit hash for partitioning segment files on disk, a byte view for storing the key in segment
// headers, and a printable form for file names and diagnostics. Keys are compared by their byte view.
type Key interface {
	// Sum64 returns a stable 64 bit hash of the key bytes.
	Sum64() uint64

	// Bytes returns the raw key bytes.
	Bytes() []byte

	// String returns the printable form of the key.
	String() string
}

// StringKey is the Key implementation for plain string keys.
type StringKey string

// StringKey implements Key.
var _ Key = StringKey("")

func (k StringKey) Sum64() uint64 {
	return xxhash.Sum64String(string(k))
}

func (k StringKey) Bytes() []byte {
	return []byte(k)
}

func (k StringKey) String() string {
	return string(k)
}

// BytesKey is the Key implementation for raw byte keys.
type BytesKey []byte

// BytesKey implements Key.
var _ Key = BytesKey(nil)

func (k BytesKey) Sum64() uint64 {
	return xxhash.Sum64(k)
}

func (k BytesKey) Bytes() []byte {
	return k
}

func (k BytesKey) String() string {
	return string(k)
}
