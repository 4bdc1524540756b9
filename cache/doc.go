// Package cache provides a fast, generic, sharded in-memory cache with
// pluggable eviction and admission policies (LRU by default, TinyLFU and
// 2Q provided), per-entry TTL, optional singleflight loading, and
// lightweight metrics hooks.
//
// Design
//
//   - Concurrency: the cache is split into shards, each protected by an
//     RWMutex. The default shard count is chosen by a heuristic
//     (ReasonableShardCount) and is a power of two. An operation takes at
//     most one shard lock; aggregate observers (Len, Decay) take shard
//     locks one at a time.
//
//   - Storage: each shard keeps a map[K]*node for lookups and an intrusive
//     MRU↔LRU doubly linked list for ordering. All operations are O(1) expected.
//
//   - Sharding: shard index = fnv64a(key) mod shards (mask when the count
//     is a power of two). Capacity splits deterministically: shards 0..N-2
//     each get Capacity/N; the last shard also absorbs Capacity%N, so the
//     per-shard capacities always sum to the configured total.
//
//   - Policies: eviction policy is pluggable via the policy package.
//     LRU is the default. 2Q resists scan pollution. TinyLFU adds a
//     frequency-based admission filter: on a full shard, a newcomer
//     replaces the LRU victim only if its estimated frequency (per-shard
//     Count-Min Sketch) is at least the victim's; ties admit the
//     newcomer. Declined inserts leave the shard unchanged and surface
//     only through Metrics.RejectAdmission. Call Decay periodically to
//     age frequency state.
//
//   - TTL: entries can have per-item deadlines (UnixNano). Expiration is lazy
//     on read; capacity trimming evicts from the LRU tail without checking
//     deadlines.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using singleflight.
//     If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/RejectAdmission/Size
//     signals. By default NoopMetrics is used; plug the Prometheus adapter
//     (metrics/prom) to export metrics.
//
//   - Callbacks: Options.OnEvict(k, v, reason) is called for every eviction
//     (reason is one of EvictPolicy, EvictTTL, EvictCapacity).
//
// Basic usage
//
//	// Create an LRU cache with capacity for 10k entries.
//	c := cache.MustNew[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// With TinyLFU admission
//
//	c := cache.MustNew[string, string](cache.Options[string, string]{
//	    Capacity: 50_000,
//	    Policy:   tinylfu.Default[string, string](),
//	})
//	// ... periodically:
//	c.Decay()
//
// With GetOrLoad (singleflight)
//
//	c := cache.MustNew[string, string](cache.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        // e.g. fetch from DB
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), "key")
//
// Using an alternative policy (2Q)
//
//	// 2Q sizes are per shard: 4 shards of 12_500 entries each.
//	c := cache.MustNew[string, string](cache.Options[string, string]{
//	    Capacity: 50_000,
//	    Shards:   4,
//	    Policy:   twoq.New[string, string](3_125 /* A1in ≈ 25% */, 6_250 /* ghosts */),
//	})
//
// Thread-safety & complexity
//
// All methods on Cache are safe for concurrent use. Typical operation cost is
// O(1) expected time: one map access and a constant amount of pointer fixes.
// Eviction work is also O(1) per removed item. Per-key operations on the same
// shard are linearizable in lock-acquisition order; there is no cross-shard
// ordering, and Len returns a snapshot that may lag concurrent mutations.
//
// See options.go for all available Options fields and package policy for
// the Policy/Hooks/Admission interfaces used to implement custom strategies.
package cache
