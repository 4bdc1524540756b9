package cache

import (
	goerrors "github.com/agilira/go-errors"
)

// Error codes for construction-time failures. Runtime outcomes (misses,
// failed removes, declined admissions) are boolean results, not errors.
const (
	// ErrCodeInvalidCapacity — Capacity < 1 at construction.
	ErrCodeInvalidCapacity goerrors.ErrorCode = "PREDCACHE_INVALID_CAPACITY"
	// ErrCodeInvalidShards — negative explicit shard count at construction.
	ErrCodeInvalidShards goerrors.ErrorCode = "PREDCACHE_INVALID_SHARDS"
	// ErrCodeNoLoader — GetOrLoad called without a configured Loader.
	ErrCodeNoLoader goerrors.ErrorCode = "PREDCACHE_NO_LOADER"
)

// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
var ErrNoLoader = goerrors.NewWithField(ErrCodeNoLoader,
	"cache: no Loader provided", "operation", "GetOrLoad")

func errInvalidCapacity(capacity int) error {
	return goerrors.NewWithField(ErrCodeInvalidCapacity,
		"cache: Capacity must be > 0", "capacity", capacity)
}

func errInvalidShards(shards int) error {
	return goerrors.NewWithField(ErrCodeInvalidShards,
		"cache: Shards must be >= 0 (0 selects an automatic count)", "shards", shards)
}
