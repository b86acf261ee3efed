// Package lru is the default intern table policy: evict the entry whose key
// was canonicalized least recently.
package lru

import "github.com/IvanBrykalov/hashcons/policy"

type lru[K comparable, V any] struct {
	h policy.Hooks[K, V]
}

type factory[K comparable, V any] struct{}

// New returns the LRU policy factory.
func New[K comparable, V any]() policy.Policy[K, V] { return factory[K, V]{} }

func (factory[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &lru[K, V]{h: h}
}

// OnAdmit links the new entry at the front. Capacity is enforced by the
// shard, which trims from Back(), so LRU never nominates a victim itself.
func (p *lru[K, V]) OnAdmit(e policy.Entry[K, V]) policy.Entry[K, V] {
	p.h.PushFront(e)
	return nil
}

// OnHit refreshes e: a repeated construction of the same key is a use.
func (p *lru[K, V]) OnHit(e policy.Entry[K, V]) { p.h.MoveToFront(e) }

func (p *lru[K, V]) OnEvict(policy.Entry[K, V]) {}
