// Package lfu implements an exact Least-Frequently-Used cache with O(1)
// operations, using per-frequency buckets. It is a single-threaded
// reference implementation: the sharded cache types approximate LFU via
// TinyLFU admission instead, and benchmark drivers use this package as
// the exact baseline to compare against. Wrap it in a mutex if you must
// share it across goroutines.
package lfu

import (
	"container/list"

	goerrors "github.com/agilira/go-errors"
)

// ErrCodeInvalidCapacity — capacity < 1 at construction.
const ErrCodeInvalidCapacity goerrors.ErrorCode = "PREDCACHE_INVALID_CAPACITY"

// entry is the per-key record: the value, its current frequency, and the
// key's element within that frequency's bucket list.
type entry[K comparable, V any] struct {
	val  V
	freq int
	el   *list.Element // element in buckets[freq]; Value is K
}

// Cache is an exact LFU cache. Eviction removes the least-recently-used
// key among those with the minimal frequency.
type Cache[K comparable, V any] struct {
	capacity int
	minFreq  int
	items    map[K]*entry[K, V]
	buckets  map[int]*list.List // freq -> keys, MRU at Front
}

// New constructs an LFU cache. Capacity must be > 0.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity < 1 {
		return nil, goerrors.NewWithField(ErrCodeInvalidCapacity,
			"lfu: capacity must be > 0", "capacity", capacity)
	}
	return &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*entry[K, V], capacity),
		buckets:  make(map[int]*list.List),
	}, nil
}

// MustNew is like New but panics on an invalid capacity.
func MustNew[K comparable, V any](capacity int) *Cache[K, V] {
	c, err := New[K, V](capacity)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the value for k, bumping its frequency on a hit.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	e, ok := c.items[k]
	if !ok {
		var zero V
		return zero, false
	}
	c.touch(k, e)
	return e.val, true
}

// Set inserts or updates k→v. An update bumps the frequency; an insert
// starts at frequency 1, evicting from the minimal-frequency bucket if
// the cache is full.
func (c *Cache[K, V]) Set(k K, v V) {
	if e, ok := c.items[k]; ok {
		e.val = v
		c.touch(k, e)
		return
	}

	if len(c.items) >= c.capacity {
		c.evict()
	}

	b := c.bucket(1)
	c.items[k] = &entry[K, V]{val: v, freq: 1, el: b.PushFront(k)}
	c.minFreq = 1
}

// Remove deletes k if present and returns true on success.
func (c *Cache[K, V]) Remove(k K) bool {
	e, ok := c.items[k]
	if !ok {
		return false
	}
	c.unlink(e)
	delete(c.items, k)
	return true
}

// Contains reports whether k is resident without bumping its frequency.
func (c *Cache[K, V]) Contains(k K) bool {
	_, ok := c.items[k]
	return ok
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int { return len(c.items) }

// Capacity returns the configured entry limit.
func (c *Cache[K, V]) Capacity() int { return c.capacity }

// ---- internals ----

// bucket returns the list for freq, creating it on first use.
func (c *Cache[K, V]) bucket(freq int) *list.List {
	b := c.buckets[freq]
	if b == nil {
		b = list.New()
		c.buckets[freq] = b
	}
	return b
}

// touch moves k from its current frequency bucket to the next one,
// advancing minFreq past buckets it empties.
func (c *Cache[K, V]) touch(k K, e *entry[K, V]) {
	c.unlink(e)
	e.freq++
	e.el = c.bucket(e.freq).PushFront(k)
}

// unlink removes e's element from its frequency bucket, dropping the
// bucket when emptied and advancing minFreq when needed.
func (c *Cache[K, V]) unlink(e *entry[K, V]) {
	b := c.buckets[e.freq]
	b.Remove(e.el)
	if b.Len() == 0 {
		delete(c.buckets, e.freq)
		if c.minFreq == e.freq {
			c.minFreq++
		}
	}
}

// evict removes the LRU key of the minimal-frequency bucket.
func (c *Cache[K, V]) evict() {
	b := c.buckets[c.minFreq]
	if b == nil {
		// minFreq can point past a bucket drained by Remove; rescan.
		// Resident entries guarantee some bucket exists.
		for f := 1; ; f++ {
			if bb, ok := c.buckets[f]; ok {
				c.minFreq, b = f, bb
				break
			}
		}
	}
	tail := b.Back()
	if tail == nil {
		return
	}
	k := tail.Value.(K)
	e := c.items[k]
	c.unlink(e)
	delete(c.items, k)
}
