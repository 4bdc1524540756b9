// Package tinylfu implements TinyLFU admission over LRU ordering.
//
// Recency is plain move-to-front LRU; the policy's contribution is the
// admission filter: when the shard is full, a newcomer replaces the LRU
// victim only if its estimated access frequency is at least the victim's.
// Frequencies come from a per-shard Count-Min Sketch that observes every
// requested key, hit or miss, and is aged by periodic halving.
//
// This is the admission half of W-TinyLFU; there is no window segment in
// front of the main LRU.
package tinylfu

import (
	"github.com/IvanBrykalov/predcache/internal/sketch"
	"github.com/IvanBrykalov/predcache/internal/util"
	"github.com/IvanBrykalov/predcache/policy"
)

// Default sketch dimensions, re-exported so callers don't need to reach
// into internal packages to spell the common configuration.
const (
	DefaultSketchWidth = sketch.DefaultWidth
	DefaultSketchDepth = sketch.DefaultDepth
)

// tinyLFU is a shard-local policy instance: LRU ordering via hooks plus
// a private frequency sketch for admission decisions.
type tinyLFU[K comparable, V any] struct {
	h   policy.Hooks[K, V]
	cms *sketch.Sketch
}

type tinyLFUPolicy[K comparable, V any] struct {
	width, depth int
}

// New constructs a TinyLFU policy factory with the given sketch dimensions.
// width must be a power of two; depth must be >= 1. Each shard gets its own
// sketch of these dimensions, so the memory cost is width*depth*4 bytes per
// shard.
func New[K comparable, V any](width, depth int) (policy.Policy[K, V], error) {
	// Validate eagerly: the per-shard factory has no error path.
	if _, err := sketch.New(width, depth); err != nil {
		return nil, err
	}
	return tinyLFUPolicy[K, V]{width: width, depth: depth}, nil
}

// MustNew is like New but panics on invalid sketch dimensions.
func MustNew[K comparable, V any](width, depth int) policy.Policy[K, V] {
	p, err := New[K, V](width, depth)
	if err != nil {
		panic(err)
	}
	return p
}

// Default returns a TinyLFU factory with the default sketch dimensions.
func Default[K comparable, V any]() policy.Policy[K, V] {
	return MustNew[K, V](DefaultSketchWidth, DefaultSketchDepth)
}

// New implements policy.Policy. Every shard receives a fresh sketch;
// frequency state is never shared across shards.
func (p tinyLFUPolicy[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &tinyLFU[K, V]{h: h, cms: sketch.MustNew(p.width, p.depth)}
}

// ---- ShardPolicy: recency handling is identical to plain LRU ----

func (p *tinyLFU[K, V]) OnAdd(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.h.PushFront(n)
	return nil
}

func (p *tinyLFU[K, V]) OnGet(n policy.Node[K, V])    { p.h.MoveToFront(n) }
func (p *tinyLFU[K, V]) OnUpdate(n policy.Node[K, V]) { p.h.MoveToFront(n) }
func (p *tinyLFU[K, V]) OnRemove(_ policy.Node[K, V]) {}

// ---- Admission ----

// Record observes one access to k in the frequency sketch.
// The shard calls this for every Get/Set, whether or not k is resident.
func (p *tinyLFU[K, V]) Record(k K) {
	p.cms.Observe(util.Fnv64a(k))
}

// Admit compares estimated frequencies of the newcomer and the current
// eviction victim. The tie goes to the newcomer: a fresh key space could
// otherwise never displace residents whose estimates are equally zero.
func (p *tinyLFU[K, V]) Admit(candidate, victim K) bool {
	return p.cms.Estimate(util.Fnv64a(candidate)) >= p.cms.Estimate(util.Fnv64a(victim))
}

// Decay halves every sketch counter so stale popularity ages out.
func (p *tinyLFU[K, V]) Decay() { p.cms.DecayHalf() }

// Estimate reports the sketch's current estimate for k. Intended for
// tests and diagnostics; admission goes through Admit.
func (p *tinyLFU[K, V]) Estimate(k K) uint32 {
	return p.cms.Estimate(util.Fnv64a(k))
}

var _ policy.Admission[string] = (*tinyLFU[string, int])(nil)
