package wal

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/backbone81/nano-wal/internal/segment"
)

// Catalog is the in-memory index over the on-disk directory. It maps every key hash to the segment set of that key
// and is rebuilt from a directory scan when the write-ahead log is opened.
//
// Instances of Catalog are NOT safe to use concurrently. You need to provide external synchronization.
type Catalog struct {
	// The directory all segment files are located in.
	directory string

	// The options of the owning write-ahead log.
	options Options

	// The segment sets by key hash. Every hash owns exactly one set, a different key colliding on the hash is
	// rejected.
	sets map[uint64]*SegmentSet
}

// OpenCatalog scans the given directory and assembles the segment sets of all keys found on disk. Segment files with
// an unreadable header are skipped with a diagnostic instead of failing the whole open. For every set the segment
// with the greatest sequence number becomes the active segment and is re-opened in append mode, which recovers its
// write position behind the last complete frame.
func OpenCatalog(directory string, options Options) (*Catalog, error) {
	result := &Catalog{
		directory: directory,
		options:   options,
		sets:      make(map[uint64]*SegmentSet),
	}

	dirEntries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("reading directory %q: %w", directory, err)
	}

	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			// We are not interested in directories.
			continue
		}
		if !segment.IsSegmentFileName(dirEntry.Name()) {
			// We are not interested in files not matching our naming pattern.
			continue
		}

		filePath := path.Join(directory, dirEntry.Name())
		seg, err := segment.OpenRead(filePath)
		if err != nil {
			log.Printf("WARNING: Skipping segment file %q: %s\n", filePath, err)
			continue
		}

		keyHash := xxhash.Sum64(seg.Key())
		set, ok := result.sets[keyHash]
		if !ok {
			set = newSegmentSet(directory, seg.Key(), string(seg.Key()), keyHash, options)
			result.sets[keyHash] = set
		} else if !bytes.Equal(set.key, seg.Key()) {
			log.Printf("WARNING: Skipping segment file %q: key %q collides with key %q on hash %d\n", filePath, seg.Key(), set.key, keyHash)
			continue
		}
		set.addExisting(seg)
	}

	for _, set := range result.sets {
		set.sortSegments()
		if err := set.reopenActive(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// GetOrCreate returns the segment set of the given key, creating an empty one on first use. A key whose hash is
// already taken by a different key is rejected with ErrKeyHashCollision.
func (c *Catalog) GetOrCreate(key Key) (*SegmentSet, error) {
	keyHash := key.Sum64()
	set, ok := c.sets[keyHash]
	if ok {
		if !bytes.Equal(set.key, key.Bytes()) {
			return nil, fmt.Errorf("key %q collides with key %q on hash %d: %w", key.String(), set.key, keyHash, ErrKeyHashCollision)
		}
		return set, nil
	}

	set = newSegmentSet(c.directory, key.Bytes(), key.String(), keyHash, c.options)
	c.sets[keyHash] = set
	return set, nil
}

// ByHash returns the segment set owning the given key hash. Random reads carry only the hash in their EntryRef.
func (c *Catalog) ByHash(keyHash uint64) (*SegmentSet, bool) {
	set, ok := c.sets[keyHash]
	return set, ok
}

// ByKey returns the segment set of the given key if it exists and its byte view matches.
func (c *Catalog) ByKey(key Key) (*SegmentSet, bool) {
	set, ok := c.sets[key.Sum64()]
	if !ok || !bytes.Equal(set.key, key.Bytes()) {
		return nil, false
	}
	return set, true
}

// Keys returns the printable form of every known key exactly once, sorted for deterministic output.
func (c *Catalog) Keys() []string {
	result := make([]string, 0, len(c.sets))
	for _, set := range c.sets {
		result = append(result, set.keyName)
	}
	slices.Sort(result)
	return result
}

// Sets returns all segment sets of the catalog.
func (c *Catalog) Sets() []*SegmentSet {
	result := make([]*SegmentSet, 0, len(c.sets))
	for _, set := range c.sets {
		result = append(result, set)
	}
	return result
}
