// Package util contains internal helpers (hashing, sharding, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import "fmt"

const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

// Fnv64a hashes common key types using 64-bit FNV-1a. The same function
// feeds shard routing, the admission sketch, and predictor tie-breaking,
// so a given key hashes identically at every call site — the sharded
// types depend on that for routing purity.
//
// Byte-like keys (string, []byte, fixed byte arrays) hash their bytes.
// Integer keys hash the 8 little-endian bytes of their value, with
// signed types widened by sign extension. fmt.Stringer is accepted as a
// last resort. Any other key type panics: silently degraded hashing
// would skew every layer built on top, so the failure is loud.
func Fnv64a[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return hashBytes([]byte(v))
	case []byte:
		return hashBytes(v)
	case [16]byte:
		return hashBytes(v[:])
	case [32]byte:
		return hashBytes(v[:])
	case [64]byte:
		return hashBytes(v[:])

	case uint:
		return hashWord(uint64(v))
	case uint8:
		return hashWord(uint64(v))
	case uint16:
		return hashWord(uint64(v))
	case uint32:
		return hashWord(uint64(v))
	case uint64:
		return hashWord(v)
	case uintptr:
		return hashWord(uint64(v))

	case int:
		return hashWord(uint64(v))
	case int8:
		return hashWord(uint64(v))
	case int16:
		return hashWord(uint64(v))
	case int32:
		return hashWord(uint64(v))
	case int64:
		return hashWord(uint64(v))

	case fmt.Stringer:
		return hashBytes([]byte(v.String()))
	default:
		panic(fmt.Sprintf("util.Fnv64a: unsupported key type %T; convert the key to string upstream", k))
	}
}

func hashBytes(b []byte) uint64 {
	h := fnvOffset64
	for i := 0; i < len(b); i++ {
		h = (h ^ uint64(b[i])) * fnvPrime64
	}
	return h
}

// hashWord folds the 8 little-endian bytes of w without allocating.
func hashWord(w uint64) uint64 {
	h := fnvOffset64
	for i := 0; i < 8; i++ {
		h = (h ^ (w & 0xff)) * fnvPrime64
		w >>= 8
	}
	return h
}
