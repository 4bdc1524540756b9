package cache

import (
	"context"
	"time"

	"github.com/IvanBrykalov/predcache/policy"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictPolicy — proposed for removal by the active eviction policy
	// (2Q probation overflow; LRU and TinyLFU never propose evictions).
	EvictPolicy EvictReason = iota
	// EvictTTL — expired by TTL (lazy eviction on access).
	EvictTTL
	// EvictCapacity — removed to satisfy the per-shard capacity limit.
	EvictCapacity
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	// RejectAdmission is signaled when an admission policy declines an
	// insert on a full shard (the cache is left unchanged).
	RejectAdmission()
	Size(entries int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache behavior. Zero values are safe;
// sane defaults are applied in New():
//   - nil Policy   => LRU
//   - Shards == 0  => auto (ReasonableShardCount)
//   - nil Metrics  => NoopMetrics
type Options[K comparable, V any] struct {
	// Capacity is the total entry count limit, partitioned across shards:
	// each shard gets Capacity/Shards and the last shard also absorbs the
	// remainder. Must be > 0.
	Capacity int

	// Shards defines the number of partitions. If 0, an automatic value is
	// chosen (≈ 2*GOMAXPROCS, power of two, halved until it does not exceed
	// Capacity so no shard gets a zero share). Explicit values are used as
	// given; negative values are a configuration error. Non-power-of-two
	// counts work but take the slower modulo path on every shard lookup.
	Shards int

	// Policy is a pluggable eviction policy (LRU/2Q/TinyLFU/…); nil => LRU.
	// A policy that also implements policy.Admission participates in
	// admission filtering on full shards.
	Policy policy.Policy[K, V]

	// DefaultTTL applies to Add/Set when per-key TTL is not provided (0 = no TTL).
	DefaultTTL time.Duration

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called on eviction under the shard lock; keep callbacks lightweight.
	OnEvict func(k K, v V, reason EvictReason)

	// Metrics receives Hit/Miss/Evict/RejectAdmission/Size signals.
	Metrics Metrics

	// Clock allows overriding the time source (tests).
	// Nil => cached wall clock (go-timecache).
	Clock Clock
}
