package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"

	"github.com/IvanBrykalov/predcache/internal/singleflight"
	"github.com/IvanBrykalov/predcache/internal/util"
	"github.com/IvanBrykalov/predcache/policy/lru"
)

// cache is a sharded in-memory KV store with a pluggable eviction policy.
// All methods are safe for concurrent use by multiple goroutines.
type cache[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	opt Options[K, V]

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New constructs a cache with the provided Options.
// Defaults:
//   - nil Metrics  -> NoopMetrics
//   - nil Policy   -> LRU
//   - Shards == 0  -> auto (ReasonableShardCount, halved until <= Capacity)
//
// Configuration errors (Capacity < 1, negative Shards) are returned as
// coded errors; see errors.go.
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	if opt.Capacity < 1 {
		return nil, errInvalidCapacity(opt.Capacity)
	}
	if opt.Shards < 0 {
		return nil, errInvalidShards(opt.Shards)
	}
	// default Metrics
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	// default Policy: LRU
	if opt.Policy == nil {
		opt.Policy = lru.New[K, V]()
	}

	sh := opt.Shards
	if sh == 0 {
		sh = util.ReasonableShardCount()
		// Keep the automatic count at or below Capacity so the floor split
		// gives every shard at least one entry (halving keeps a power of two).
		for sh > 1 && sh > opt.Capacity {
			sh /= 2
		}
	}
	opt.Shards = sh

	// Split the capacity deterministically: shards 0..N-2 get Capacity/N,
	// the last shard also absorbs the remainder. Per-shard capacities sum
	// to exactly Capacity.
	caps := util.SplitCapacity(opt.Capacity, sh)
	cs := make([]*shard[K, V], sh)
	for i := range cs {
		cs[i] = newShard[K, V](caps[i], opt.Policy, opt)
	}

	// return pointer-to-impl as the interface (avoids unexported-return lint)
	return &cache[K, V]{
		shards: cs,
		hash:   util.Fnv64a[K], // fast non-crypto hash for sharding
		opt:    opt,
	}, nil
}

// MustNew is like New but panics on configuration errors.
func MustNew[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	c, err := New(opt)
	if err != nil {
		panic(err)
	}
	return c
}

// ---- Cache[K,V] implementation ----

// Add inserts k→v only if absent, using DefaultTTL if set.
// Returns false if the key already exists or admission declined the insert.
func (c *cache[K, V]) Add(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(k).Add(k, v, c.defaultDeadline())
}

// Set inserts or updates k→v, using DefaultTTL if set,
// and promotes the entry according to the active policy.
func (c *cache[K, V]) Set(k K, v V) {
	if c.closed.Load() {
		return
	}
	c.getShard(k).Set(k, v, c.defaultDeadline())
}

// SetWithTTL inserts or updates k→v with a per-key TTL (relative duration).
// A non-positive ttl disables expiration for this entry.
func (c *cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if c.closed.Load() {
		return
	}
	c.getShard(k).Set(k, v, c.deadline(ttl))
}

// Get returns the value for k and a presence flag.
// On hit, the entry is promoted according to the active policy.
func (c *cache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.getShard(k).Get(k)
}

// Contains reports whether k is resident without promoting it.
func (c *cache[K, V]) Contains(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(k).Contains(k)
}

// Remove deletes k if present and returns true on success.
func (c *cache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(k).Remove(k)
}

// Len returns the total number of resident entries across all shards.
// Shard locks are taken sequentially — one at a time, never two — so the
// result is a consistent-per-shard snapshot, not a global instant.
func (c *cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// NumShards returns the configured number of partitions.
func (c *cache[K, V]) NumShards() int { return len(c.shards) }

// Decay halves the admission frequency state of every shard, taking one
// shard lock at a time. Policies without admission state are unaffected.
func (c *cache[K, V]) Decay() {
	for _, s := range c.shards {
		s.Decay()
	}
}

// Close marks the cache as closed. Future operations are ignored.
func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// If no Loader is configured, returns ErrNoLoader.
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}

	// singleflight: exactly one real load for the key
	return c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err == nil {
			c.Set(k, v)
		}
		return v, err
	})
}

// ---- helpers ----

// getShard picks a shard by hashing the key. The index is a pure function
// of the key: the same key always routes to the same shard.
func (c *cache[K, V]) getShard(k K) *shard[K, V] {
	return c.shards[util.ShardIndex(c.hash(k), len(c.shards))]
}

// defaultDeadline returns an absolute deadline based on DefaultTTL.
func (c *cache[K, V]) defaultDeadline() int64 {
	if c.opt.DefaultTTL <= 0 {
		return 0
	}
	return c.deadline(c.opt.DefaultTTL)
}

// deadline converts a relative TTL into an absolute UnixNano deadline.
// A non-positive ttl returns 0 (no expiration).
func (c *cache[K, V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	now := timecache.CachedTimeNano()
	if c.opt.Clock != nil {
		now = c.opt.Clock.NowUnixNano()
	}
	return now + int64(ttl)
}
