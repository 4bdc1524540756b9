// Package twoq implements the 2Q eviction policy.
//
// 2Q resists scan pollution by parking first-time entries in a probation
// queue (A1in) and only promoting keys to the mature region (Am) on a
// second access. Keys evicted from probation leave a ghost (key-only)
// trace in A1out; a re-arriving ghost bypasses probation entirely.
package twoq

import (
	"container/list"

	"github.com/IvanBrykalov/predcache/policy"
)

// twoQ is a shard-local 2Q instance.
//
// Resident queues:
//   - A1in (probation): its own list + index by node; admits first-timers.
//   - Am (mature): nodes absent from inIdx; ordering is the shard's list.
//
// Ghost A1out: keys only, tracking recent A1in evictions.
//
// Concurrency: all methods are called under the shard lock.
type twoQ[K comparable, V any] struct {
	h policy.Hooks[K, V]

	capIn    int // A1in capacity (per-shard)
	capGhost int // A1out capacity (per-shard)

	// A1in: MRU at Front() -> LRU at Back().
	inList *list.List
	inIdx  map[policy.Node[K, V]]*list.Element

	// A1out ghosts: MRU at Front() -> LRU at Back().
	ghostList *list.List
	ghostIdx  map[K]*list.Element // element.Value is K
}

type twoQPolicy[K comparable, V any] struct {
	capIn    int
	capGhost int
}

// New constructs a 2Q policy factory.
// Common choices: capIn ≈ 25% of shard capacity; capGhost ≈ 50–100% of
// shard capacity. When used with a sharded cache, pass per-shard sizes.
func New[K comparable, V any](capIn, capGhost int) policy.Policy[K, V] {
	if capIn < 1 {
		capIn = 1
	}
	if capGhost < 1 {
		capGhost = 1
	}
	return twoQPolicy[K, V]{capIn: capIn, capGhost: capGhost}
}

func (p twoQPolicy[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &twoQ[K, V]{
		h:         h,
		capIn:     p.capIn,
		capGhost:  p.capGhost,
		inList:    list.New(),
		inIdx:     make(map[policy.Node[K, V]]*list.Element),
		ghostList: list.New(),
		ghostIdx:  make(map[K]*list.Element),
	}
}

// OnAdd admission rules:
//   - A ghost key (present in A1out) bypasses A1in and enters Am at MRU;
//     the ghost entry is consumed.
//   - Anything else enters A1in (and MRU of the shard list).
//   - If A1in overflows, its LRU is proposed to the shard for eviction.
func (q *twoQ[K, V]) OnAdd(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	k := n.Key()
	if ge, ok := q.ghostIdx[k]; ok {
		q.ghostList.Remove(ge)
		delete(q.ghostIdx, k)
		q.h.PushFront(n) // straight into Am
		return nil
	}

	q.h.PushFront(n)
	q.inIdx[n] = q.inList.PushFront(n)

	if q.inList.Len() > q.capIn {
		if lruEl := q.inList.Back(); lruEl != nil {
			return lruEl.Value.(policy.Node[K, V])
		}
	}
	return nil
}

// OnGet: a hit on an A1in resident promotes it to Am (drop from A1in
// tracking), then the node moves to MRU in the shard list.
func (q *twoQ[K, V]) OnGet(n policy.Node[K, V]) {
	if el, ok := q.inIdx[n]; ok {
		q.inList.Remove(el)
		delete(q.inIdx, n)
	}
	q.h.MoveToFront(n)
}

// OnUpdate follows OnGet semantics (updates count as recent use).
func (q *twoQ[K, V]) OnUpdate(n policy.Node[K, V]) { q.OnGet(n) }

// OnRemove: an A1in resident leaves a ghost behind (respecting capGhost);
// removals from Am do not populate ghosts.
func (q *twoQ[K, V]) OnRemove(n policy.Node[K, V]) {
	el, ok := q.inIdx[n]
	if !ok {
		return
	}
	q.inList.Remove(el)
	delete(q.inIdx, n)

	k := n.Key()
	if old := q.ghostIdx[k]; old != nil {
		q.ghostList.Remove(old)
	}
	q.ghostIdx[k] = q.ghostList.PushFront(k)

	for q.ghostList.Len() > q.capGhost {
		tail := q.ghostList.Back()
		if tail == nil {
			break
		}
		kk := tail.Value.(K)
		delete(q.ghostIdx, kk)
		q.ghostList.Remove(tail)
	}
}
