// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Package lrucache provides a thread-safe, fixed-capacity least-recently-used
(LRU) cache. Keys are strings. The cache evicts the least recently used
entry when it reaches capacity.

Two consumers share it: the admission controller's credential registry
(compression disabled, values are live limiter handles) and the reuse
engine's per-job candidate cache (compression enabled, values are marshalled
candidate sets). When created with compression enabled via [New], string and
[]byte values may be stored in compressed form and are transparently
decompressed by [Cache.Get].
*/
package lrucache

import (
	"container/list"
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var ErrInvalidSize = errors.New("must provide a positive size")

// Cache is a fixed-capacity, least-recently-used cache that is safe for
// concurrent use. Instances must be constructed with [New]; the zero value
// is not ready for use.
type Cache struct {
	size            int
	evictList       *list.List
	items           map[string]*list.Element
	lock            sync.RWMutex
	compressEnabled bool
	zstdEnc         *zstd.Encoder
	zstdDec         *zstd.Decoder
}

type cacheEntry struct {
	key        string
	value      any
	compressed bool
	wasString  bool
}

// New creates a cache with the given maximum size.
//
// If compress is true, string and []byte values are stored compressed when
// that reduces space and are transparently decompressed by [Cache.Get].
// Values of other types are stored as-is.
func New(size int, compress bool) (*Cache, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	c := &Cache{
		size:            size,
		evictList:       list.New(),
		items:           make(map[string]*list.Element),
		compressEnabled: compress,
	}

	if compress {
		// Reusable encoder/decoder for block (stateless) operations; the
		// nil writer/reader enables EncodeAll/DecodeAll without streams.
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}

		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, err
		}

		c.zstdEnc = enc
		c.zstdDec = dec
	}

	return c, nil
}

// Add adds or updates the value for key, making it the most recently used.
// At capacity the least recently used entry is evicted. Add reports whether
// an eviction occurred.
func (c *Cache) Add(key string, value any) bool {
	stored, compressed, wasString := c.prepareValue(value)

	c.lock.Lock()
	defer c.lock.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)

		if entry, ok := ent.Value.(*cacheEntry); ok {
			entry.value = stored
			entry.compressed = compressed
			entry.wasString = wasString
		}

		return false
	}

	c.items[key] = c.evictList.PushFront(&cacheEntry{
		key:        key,
		value:      stored,
		compressed: compressed,
		wasString:  wasString,
	})

	evicted := c.evictList.Len() > c.size
	if evicted {
		c.removeOldest()
	}

	return evicted
}

// Get retrieves the value for key and marks it as most recently used. The
// second result reports whether the key was found.
func (c *Cache) Get(key string) (any, bool) {
	c.lock.Lock()

	ent, ok := c.items[key]
	if !ok {
		c.lock.Unlock()

		return nil, false
	}

	c.evictList.MoveToFront(ent)

	entry, ok := ent.Value.(*cacheEntry)
	if !ok {
		c.lock.Unlock()

		return nil, false
	}

	stored := entry.value
	compressed := entry.compressed
	wasString := entry.wasString

	c.lock.Unlock()

	return c.decompressValue(stored, compressed, wasString)
}

// Remove deletes the entry for key, reporting whether it was present.
func (c *Cache) Remove(key string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)

		return true
	}

	return false
}

// Range calls fn for every entry, most recently used first, until fn
// returns false. Values are passed as stored; Range is intended for
// uncompressed caches holding live handles (e.g. the limiter registry).
func (c *Cache) Range(fn func(key string, value any) bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	for ent := c.evictList.Front(); ent != nil; ent = ent.Next() {
		entry, ok := ent.Value.(*cacheEntry)
		if !ok {
			continue
		}

		if !fn(entry.key, entry.value) {
			return
		}
	}
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.evictList.Len()
}

func (c *Cache) removeOldest() {
	if ent := c.evictList.Back(); ent != nil {
		c.removeElement(ent)
	}
}

func (c *Cache) removeElement(e *list.Element) {
	c.evictList.Remove(e)

	if entry, ok := e.Value.(*cacheEntry); ok {
		delete(c.items, entry.key)
	}
}

// prepareValue compresses string/[]byte values when enabled and profitable.
// Uncompressed byte slices are copied so callers cannot mutate the cache.
func (c *Cache) prepareValue(value any) (stored any, compressed, wasString bool) {
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return v, false, false
		}

		if c.compressEnabled {
			packed := c.zstdEnc.EncodeAll(v, nil)
			if len(packed) < len(v) {
				return packed, true, false
			}
		}

		copied := make([]byte, len(v))
		copy(copied, v)

		return copied, false, false

	case string:
		if c.compressEnabled && len(v) > 0 {
			orig := []byte(v)

			packed := c.zstdEnc.EncodeAll(orig, nil)
			if len(packed) < len(orig) {
				return packed, true, true
			}
		}

		return v, false, true

	default:
		return value, false, false
	}
}

func (c *Cache) decompressValue(stored any, compressed, wasString bool) (any, bool) {
	if !compressed {
		if b, ok := stored.([]byte); ok && b != nil {
			copied := make([]byte, len(b))
			copy(copied, b)

			return copied, true
		}

		return stored, true
	}

	packed, ok := stored.([]byte)
	if !ok || c.zstdDec == nil {
		return nil, false
	}

	decoded, err := c.zstdDec.DecodeAll(packed, nil)
	if err != nil {
		return nil, false
	}

	if wasString {
		return string(decoded), true
	}

	return decoded, true
}
