// Package predictive layers per-shard Markov prediction on top of a
// sharded TinyLFU-admitted cache. Every access teaches the model the
// transition from the previous key seen on the same shard; when prefetch
// is enabled, likely successors are inserted ahead of demand through the
// normal admission path.
//
// Prefetch semantics: a prefetched key is inserted as a REAL entry whose
// value is the zero value of V (or Options.PrefetchValue(key) when set).
// A later Get on it is a hit that returns that placeholder value. Callers
// that cannot tolerate placeholder hits should supply PrefetchValue or
// run with prefetch disabled — the model still learns either way, so a
// later enable does not start cold.
package predictive

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/predcache/cache"
	"github.com/IvanBrykalov/predcache/internal/util"
	"github.com/IvanBrykalov/predcache/policy/tinylfu"
	"github.com/IvanBrykalov/predcache/predict"
)

// Tuning groups the prefetch knobs that may change at runtime
// (see SetTuning and the argus-backed HotTuning watcher).
type Tuning struct {
	// EnablePrefetch is the master switch. When false the wrapper still
	// learns transitions, so enabling later does not start cold.
	EnablePrefetch bool
	// PrefetchTopK caps successors prefetched per access (0 disables
	// prefetch even when EnablePrefetch is true).
	PrefetchTopK int
	// MinTransCount is the minimum observations of a transition before
	// it becomes a prefetch candidate.
	MinTransCount uint32
	// MinTransProb is the minimum conditional probability for candidacy.
	MinTransProb float64
}

// Options configures a predictive cache.
type Options[K comparable, V any] struct {
	// Capacity is the total entry budget, partitioned across shards
	// exactly as in the cache package. Must be > 0.
	Capacity int

	// Shards is the number of partitions (predictors align one-to-one
	// with the underlying cache shards). 0 selects an automatic count.
	Shards int

	// SketchWidth/SketchDepth size the per-shard admission sketch.
	// Zero selects the defaults (4096×4). Width must be a power of two.
	SketchWidth int
	SketchDepth int

	// Tuning is the initial prefetch configuration.
	Tuning Tuning

	// PrefetchValue builds the placeholder stored for a prefetched key.
	// Nil stores the zero value of V.
	PrefetchValue func(K) V

	// DecayInterval, when > 0, starts a maintenance goroutine that
	// periodically halves the admission sketches and the Markov models.
	// Close stops it. Zero leaves decay entirely to the caller.
	DecayInterval time.Duration

	// Metrics/Clock/OnEvict pass through to the underlying cache.
	Metrics cache.Metrics
	Clock   cache.Clock
	OnEvict func(k K, v V, reason cache.EvictReason)
}

// DefaultTuning mirrors the conservative defaults of the original design:
// prefetch one successor once a transition has been seen four times and
// carries at least 20% of its predecessor's outgoing mass.
func DefaultTuning() Tuning {
	return Tuning{
		EnablePrefetch: true,
		PrefetchTopK:   1,
		MinTransCount:  4,
		MinTransProb:   0.2,
	}
}

// predictorShard pairs a Markov model with the last key seen on this
// shard. Its mutex is SEPARATE from the cache's shard lock and is never
// held across a call into the underlying cache, so lock nesting is
// strictly one-way (predictor → cache) and deadlock-free even when a
// predicted key hashes to a different shard.
type predictorShard[K comparable] struct {
	mu      sync.Mutex
	model   *predict.Markov[K]
	prev    K
	hasPrev bool
}

// Cache is a predictive wrapper over a sharded TinyLFU cache.
// All methods are safe for concurrent use.
type Cache[K comparable, V any] struct {
	base   cache.Cache[K, V]
	hash   func(K) uint64
	preds  []*predictorShard[K]
	closed atomic.Bool

	placeholder func(K) V

	// tuning is read on every Get; writes come from SetTuning/HotTuning.
	tmu    sync.RWMutex
	tuning Tuning

	// maintenance goroutine lifecycle (DecayInterval > 0).
	stop     chan struct{}
	stopOnce sync.Once

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_           util.CacheLinePad
	transitions util.PaddedAtomicUint64
	prefetches  util.PaddedAtomicUint64
}

// Stats is a point-in-time snapshot of wrapper-level counters.
type Stats struct {
	// Transitions is the number of adjacencies taught to the models.
	Transitions uint64
	// Prefetches is the number of speculative inserts issued (admission
	// may still have declined some of them).
	Prefetches uint64
}

// New constructs a predictive cache. Configuration errors (Capacity < 1,
// negative Shards, bad sketch dimensions) are returned as coded errors.
func New[K comparable, V any](opt Options[K, V]) (*Cache[K, V], error) {
	if opt.Shards == 0 {
		opt.Shards = util.ReasonableShardCount()
	}
	if opt.SketchWidth == 0 {
		opt.SketchWidth = tinylfu.DefaultSketchWidth
	}
	if opt.SketchDepth == 0 {
		opt.SketchDepth = tinylfu.DefaultSketchDepth
	}

	pol, err := tinylfu.New[K, V](opt.SketchWidth, opt.SketchDepth)
	if err != nil {
		return nil, err
	}
	base, err := cache.New[K, V](cache.Options[K, V]{
		Capacity: opt.Capacity,
		Shards:   opt.Shards,
		Policy:   pol,
		Metrics:  opt.Metrics,
		Clock:    opt.Clock,
		OnEvict:  opt.OnEvict,
	})
	if err != nil {
		return nil, err
	}

	preds := make([]*predictorShard[K], base.NumShards())
	for i := range preds {
		preds[i] = &predictorShard[K]{model: predict.NewMarkov[K]()}
	}

	p := &Cache[K, V]{
		base:        base,
		hash:        util.Fnv64a[K],
		preds:       preds,
		placeholder: opt.PrefetchValue,
		tuning:      opt.Tuning,
		stop:        make(chan struct{}),
	}

	if opt.DecayInterval > 0 {
		go p.maintain(opt.DecayInterval)
	}
	return p, nil
}

// MustNew is like New but panics on configuration errors.
func MustNew[K comparable, V any](opt Options[K, V]) *Cache[K, V] {
	p, err := New(opt)
	if err != nil {
		panic(err)
	}
	return p
}

// Get returns the value for k and a presence flag. As side effects it
// teaches the shard's model the transition from the previously seen key,
// and — when prefetch is on — inserts up to PrefetchTopK predicted
// successors through the underlying cache's admission path. Predicted
// keys that hash to another shard route there normally.
func (p *Cache[K, V]) Get(k K) (V, bool) {
	if p.closed.Load() {
		var zero V
		return zero, false
	}

	t := p.Tuning()
	ps := p.preds[p.shardIndex(k)]

	ps.mu.Lock()
	if ps.hasPrev {
		ps.model.Observe(ps.prev, k)
		p.transitions.Add(1)
	}
	ps.prev, ps.hasPrev = k, true

	var cand []K
	if t.EnablePrefetch && t.PrefetchTopK > 0 {
		cand = ps.model.TopKNext(k, t.PrefetchTopK, t.MinTransCount, t.MinTransProb)
	}
	ps.mu.Unlock()

	v, ok := p.base.Get(k)

	for _, next := range cand {
		if p.base.Contains(next) {
			continue
		}
		p.base.Set(next, p.placeholderFor(next))
		p.prefetches.Add(1)
	}
	return v, ok
}

// Put inserts or updates k→v and marks k as the last key seen on its
// shard, so the next access on the shard learns the adjacency.
func (p *Cache[K, V]) Put(k K, v V) {
	if p.closed.Load() {
		return
	}
	p.base.Set(k, v)

	ps := p.preds[p.shardIndex(k)]
	ps.mu.Lock()
	ps.prev, ps.hasPrev = k, true
	ps.mu.Unlock()
}

// Remove deletes k if present and returns true on success.
// The model keeps any transitions involving k; decay prunes them.
func (p *Cache[K, V]) Remove(k K) bool {
	if p.closed.Load() {
		return false
	}
	return p.base.Remove(k)
}

// Contains reports residency without promoting or learning.
func (p *Cache[K, V]) Contains(k K) bool {
	if p.closed.Load() {
		return false
	}
	return p.base.Contains(k)
}

// Len returns a snapshot of the total resident entries (see cache.Cache.Len).
func (p *Cache[K, V]) Len() int { return p.base.Len() }

// NumShards returns the number of partitions.
func (p *Cache[K, V]) NumShards() int { return p.base.NumShards() }

// Decay halves the admission sketches of the underlying cache.
func (p *Cache[K, V]) Decay() { p.base.Decay() }

// DecayModels halves every shard's Markov model under its own lock,
// one shard at a time. Sketch decay is separate — see Decay.
func (p *Cache[K, V]) DecayModels() {
	for _, ps := range p.preds {
		ps.mu.Lock()
		ps.model.DecayHalf()
		ps.mu.Unlock()
	}
}

// Tuning returns the current prefetch configuration.
func (p *Cache[K, V]) Tuning() Tuning {
	p.tmu.RLock()
	defer p.tmu.RUnlock()
	return p.tuning
}

// SetTuning replaces the prefetch configuration. Safe to call while
// readers are in flight; each Get snapshots the tuning once.
func (p *Cache[K, V]) SetTuning(t Tuning) {
	p.tmu.Lock()
	p.tuning = t
	p.tmu.Unlock()
}

// Stats returns wrapper-level counters.
func (p *Cache[K, V]) Stats() Stats {
	return Stats{
		Transitions: p.transitions.Load(),
		Prefetches:  p.prefetches.Load(),
	}
}

// Close stops the maintenance goroutine (if any) and closes the
// underlying cache. Further operations are ignored.
func (p *Cache[K, V]) Close() error {
	p.closed.Store(true)
	p.stopOnce.Do(func() { close(p.stop) })
	return p.base.Close()
}

// ---- internals ----

// shardIndex mirrors the underlying cache's routing: the same key always
// lands on the same shard, so each predictor sees exactly the accesses
// of its own shard.
func (p *Cache[K, V]) shardIndex(k K) int {
	return util.ShardIndex(p.hash(k), len(p.preds))
}

func (p *Cache[K, V]) placeholderFor(k K) V {
	if p.placeholder != nil {
		return p.placeholder(k)
	}
	var zero V
	return zero
}

// maintain periodically ages both the admission sketches and the Markov
// models until Close.
func (p *Cache[K, V]) maintain(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-t.C:
			p.Decay()
			p.DecayModels()
		}
	}
}
