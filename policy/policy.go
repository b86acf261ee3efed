// Package policy defines how an intern table orders its resident entries and
// picks eviction victims.
package policy

// Entry is what a policy sees of a resident table entry.
type Entry[K comparable, V any] interface {
	Key() K
	Value() V
}

// Hooks are the O(1) recency-list operations a shard lends to its policy.
// They are only ever called with the shard lock held. Hooks touch the list
// alone; the shard keeps the key index.
type Hooks[K comparable, V any] interface {
	// MoveToFront marks e as most recently used.
	MoveToFront(e Entry[K, V])
	// PushFront links a newly admitted entry as most recently used.
	PushFront(e Entry[K, V])
	// Remove unlinks e.
	Remove(e Entry[K, V])
	// Back returns the least recently used entry, or nil.
	Back() Entry[K, V]
	Len() int
}

// ShardPolicy is a policy instance bound to one shard.
//
// OnAdmit may nominate a victim; the shard evicts it and then reports it
// through OnEvict like any other eviction. OnHit fires when a lookup finds
// an existing canonical instance.
type ShardPolicy[K comparable, V any] interface {
	OnAdmit(Entry[K, V]) (victim Entry[K, V])
	OnHit(Entry[K, V])
	OnEvict(Entry[K, V])
}

// Policy builds shard-local instances.
type Policy[K comparable, V any] interface {
	New(Hooks[K, V]) ShardPolicy[K, V]
}
