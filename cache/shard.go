package cache

import (
	"sync"

	"github.com/agilira/go-timecache"

	"github.com/IvanBrykalov/predcache/policy"
)

// shard is an independent partition of the cache with its own lock, map,
// and an intrusive doubly linked list (head=MRU, tail=LRU).
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu   sync.RWMutex
	m    map[K]*node[K, V]
	head *node[K, V] // MRU
	tail *node[K, V] // LRU
	len  int         // number of resident entries
	cap  int         // per-shard entry capacity

	// Policy and options (policy uses hooks to manipulate the list).
	pol policy.ShardPolicy[K, V]
	// adm is non-nil when pol also filters insertions (e.g., TinyLFU).
	// Record/Admit/Decay calls happen under mu.
	adm policy.Admission[K]
	opt Options[K, V]
}

// newShard initializes a shard with per-shard capacity, policy factory,
// and options. A zero capacity shard is legal (the capacity splitter can
// produce one when total < shards); it simply never retains an entry.
func newShard[K comparable, V any](capacity int, pol policy.Policy[K, V], opt Options[K, V]) *shard[K, V] {
	s := &shard[K, V]{
		m:   make(map[K]*node[K, V], capacity),
		cap: capacity,
		opt: opt,
	}

	// Wrap this shard with policy hooks.
	h := shardHooks[K, V]{s: s}
	s.pol = pol.New(h)
	s.adm, _ = s.pol.(policy.Admission[K])
	return s
}

// Add inserts a NEW entry (no update) as MRU via policy hooks.
// ttl is an absolute UnixNano deadline (0 = no TTL).
// Returns false if the key already exists, or if an admission policy
// declined the insert on a full shard.
func (s *shard[K, V]) Add(k K, v V, ttl int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adm != nil {
		s.adm.Record(k)
	}
	if _, exists := s.m[k]; exists {
		return false
	}
	return s.insertLocked(k, v, ttl)
}

// Set inserts or updates an entry and promotes it according to the policy.
// On a full shard, an admission policy may decline the insert; the shard
// is then left unchanged.
func (s *shard[K, V]) Set(k K, v V, ttl int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adm != nil {
		s.adm.Record(k)
	}
	if n, ok := s.m[k]; ok {
		// In-place update and promote.
		n.val = v
		n.exp = ttl
		s.pol.OnUpdate(n)
		return
	}
	s.insertLocked(k, v, ttl)
}

// insertLocked runs the admission check and, if it passes, links a new
// node as MRU and trims to capacity. Reports whether the entry was admitted.
func (s *shard[K, V]) insertLocked(k K, v V, ttl int64) bool {
	// Admission gate: only when the shard is full and there is a victim
	// to compare against. estimate(k) >= estimate(victim) admits k.
	if s.adm != nil && s.len >= s.cap {
		if victim := s.back(); victim != nil && !s.adm.Admit(k, victim.key) {
			s.opt.Metrics.RejectAdmission()
			return false
		}
	}

	n := &node[K, V]{key: k, val: v, exp: ttl}
	s.m[k] = n

	// Let the policy place/promote (and optionally suggest an eviction).
	if ev := s.pol.OnAdd(n); ev != nil {
		s.evictNode(ev.(*node[K, V]), EvictPolicy)
	}

	// Enforce the per-shard limit after insertion.
	s.enforceLimitLocked()
	return true
}

// Get returns the value and promotes the entry according to the policy.
// Admission state observes the key whether or not it is resident.
// TTL: if expired, the entry is evicted and a miss is returned.
func (s *shard[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adm != nil {
		s.adm.Record(k)
	}

	n, ok := s.m[k]
	if !ok {
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	if s.expiredLocked(n) {
		s.evictNode(n, EvictTTL)
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}

	s.pol.OnGet(n)
	s.opt.Metrics.Hit()
	return n.val, true
}

// Contains reports residency without promoting the entry or touching
// admission state. Expired entries report false (they are reaped lazily
// by the next Get).
func (s *shard[K, V]) Contains(k K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.m[k]
	return ok && !s.expiredLocked(n)
}

// Remove deletes an entry by key. Returns true if the entry existed.
func (s *shard[K, V]) Remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		return false
	}
	s.pol.OnRemove(n)
	s.removeNode(n)
	delete(s.m, k)
	// Note: explicit Remove is not counted as an eviction in metrics;
	// add a dedicated "deletes" counter if needed.
	return true
}

// Len returns the number of resident entries in this shard.
func (s *shard[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.len
}

// Decay halves the admission policy's frequency state, if any.
// Resident entries are unaffected.
func (s *shard[K, V]) Decay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adm != nil {
		s.adm.Decay()
	}
}

// -------------------- internals (mu held) --------------------

func (s *shard[K, V]) expiredLocked(n *node[K, V]) bool {
	if n.exp == 0 {
		return false
	}
	return s.now() > n.exp
}

func (s *shard[K, V]) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return timecache.CachedTimeNano()
}

// insertFront inserts n at MRU in O(1).
func (s *shard[K, V]) insertFront(n *node[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.len++
}

// moveToFront promotes n to MRU in O(1).
func (s *shard[K, V]) moveToFront(n *node[K, V]) {
	if n == s.head {
		return
	}
	// detach
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.tail == n {
		s.tail = n.prev
	}
	// insert at head
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// removeNode removes n from the list and updates counters in O(1).
func (s *shard[K, V]) removeNode(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.head == n {
		s.head = n.next
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
	s.len--
}

// back returns the current LRU node — the eviction victim — in O(1),
// without mutating recency order.
func (s *shard[K, V]) back() *node[K, V] { return s.tail }

// evictNode removes the node, updates metrics, and calls OnEvict.
func (s *shard[K, V]) evictNode(n *node[K, V], reason EvictReason) {
	s.pol.OnRemove(n)
	s.removeNode(n)
	delete(s.m, n.key)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		// Note: calling callbacks under the lock is safer but may add latency.
		// If you move this outside the lock later, pass copies of key/value.
		cb(n.key, n.val, reason)
	}
}

// enforceLimitLocked evicts LRU items until the entry count fits capacity.
func (s *shard[K, V]) enforceLimitLocked() {
	for s.len > s.cap {
		tail := s.back()
		if tail == nil {
			break
		}
		s.evictNode(tail, EvictCapacity)
	}
	s.opt.Metrics.Size(s.len)
}

// -------------------- policy hooks --------------------

// shardHooks adapts the shard's list operations to policy.Hooks.
type shardHooks[K comparable, V any] struct{ s *shard[K, V] }

func (h shardHooks[K, V]) MoveToFront(x policy.Node[K, V]) { h.s.moveToFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) PushFront(x policy.Node[K, V])   { h.s.insertFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) Remove(x policy.Node[K, V]) {
	// Policies call Remove while the shard lock is held.
	// Map bookkeeping is performed by the shard itself.
	h.s.removeNode(x.(*node[K, V]))
}
func (h shardHooks[K, V]) Back() policy.Node[K, V] { return h.s.back() }
func (h shardHooks[K, V]) Len() int                { return h.s.len }
