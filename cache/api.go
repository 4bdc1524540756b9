package cache

import (
	"context"
	"time"
)

// Cache is a sharded, in-memory key/value cache interface.
// All methods are safe for concurrent use by multiple goroutines.
//
// Typical complexity for operations is amortized O(1):
// a map lookup plus constant-time list adjustments under a shard lock.
type Cache[K comparable, V any] interface {
	// Add inserts k→v only if k is not present.
	// It uses the cache's DefaultTTL (if any).
	// Returns false if the key already exists (no update is performed).
	Add(k K, v V) bool

	// Set inserts or updates k→v.
	// It uses the cache's DefaultTTL (if any), and promotes the entry
	// according to the active eviction policy (e.g., LRU).
	// When the target shard is full and the policy implements admission
	// filtering, a rejected insert is silently declined: the cache is
	// left unchanged and the decline is visible only through Metrics.
	Set(k K, v V)

	// Get returns the value for k and a boolean flag indicating presence.
	// On hit, the entry is promoted according to the policy. Admission
	// policies observe the key in their frequency state even on a miss.
	Get(k K) (V, bool)

	// Contains reports whether k is resident, without promoting it or
	// recording an access in admission state.
	Contains(k K) bool

	// Remove deletes k if present and returns true on success.
	Remove(k K) bool

	// Len returns the total number of resident entries across all shards.
	// Shard locks are taken one at a time, so the result is a snapshot
	// that may lag concurrent mutations.
	Len() int

	// NumShards returns the number of partitions backing this cache.
	NumShards() int

	// Decay ages the admission policy's frequency state in every shard
	// (counter halving). A no-op for policies without admission state.
	// The decay schedule is the caller's choice; resident entries are
	// unaffected.
	Decay()

	// Close stops background workers (if any) and marks the cache closed.
	// Current implementation is a soft close and returns nil.
	Close() error

	// SetWithTTL inserts or updates k→v with a per-key TTL (relative duration).
	// A non-positive ttl disables expiration for this entry.
	SetWithTTL(k K, v V, ttl time.Duration)

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced (singleflight).
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)
}
