// Package lru implements the default move-to-front eviction policy.
package lru

import "github.com/IvanBrykalov/predcache/policy"

// New returns a factory producing per-shard LRU instances.
//
// LRU keeps no state of its own: recency lives entirely in the shard's
// intrusive list, so the policy reduces to the hook calls below. It also
// implements no admission filtering — every insert is accepted and the
// shard trims from the tail (see policy/tinylfu for the frequency-gated
// variant).
func New[K comparable, V any]() policy.Policy[K, V] { return factory[K, V]{} }

type factory[K comparable, V any] struct{}

func (factory[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &shardLRU[K, V]{hooks: h}
}

// shardLRU drives one shard's list: new entries enter at MRU, any touch
// promotes, and the eviction victim is always the shard-chosen tail.
type shardLRU[K comparable, V any] struct {
	hooks policy.Hooks[K, V]
}

// OnAdd places the new entry at MRU. It never proposes an eviction;
// capacity trimming is the shard's job.
func (p *shardLRU[K, V]) OnAdd(n policy.Node[K, V]) policy.Node[K, V] {
	p.hooks.PushFront(n)
	return nil
}

// OnGet promotes the entry to MRU.
func (p *shardLRU[K, V]) OnGet(n policy.Node[K, V]) { p.hooks.MoveToFront(n) }

// OnUpdate treats an overwrite as recent use.
func (p *shardLRU[K, V]) OnUpdate(n policy.Node[K, V]) { p.hooks.MoveToFront(n) }

// OnRemove has nothing to clean up: there is no policy-private state.
func (p *shardLRU[K, V]) OnRemove(policy.Node[K, V]) {}
