package intern

import (
	"sync"

	"github.com/IvanBrykalov/hashcons/internal/util"
	"github.com/IvanBrykalov/hashcons/policy"
)

// shard is one lock domain of a table: a key index plus an intrusive
// recency list (head=MRU, tail=LRU).
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu   sync.Mutex
	m    map[K]*entry[K, V]
	head *entry[K, V]
	tail *entry[K, V]
	len  int
	cap  int

	pol   policy.ShardPolicy[K, V]
	table *Table[K, V]

	_      util.CacheLinePad
	hits   util.PaddedCounter
	misses util.PaddedCounter
	evicts util.PaddedCounter
}

func newShard[K comparable, V any](capacity int, t *Table[K, V]) *shard[K, V] {
	s := &shard[K, V]{
		m:     make(map[K]*entry[K, V], capacity),
		cap:   capacity,
		table: t,
	}
	s.pol = t.opt.Policy.New(shardHooks[K, V]{s: s})
	return s
}

func (s *shard[K, V]) canonicalize(k K, candidate V) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.m[k]; ok {
		s.pol.OnHit(e)
		s.hits.Add(1)
		s.table.opt.Metrics.Hit()
		return e.val, false
	}

	e := &entry[K, V]{key: k, val: candidate}
	s.m[k] = e
	if victim := s.pol.OnAdmit(e); victim != nil {
		s.evict(victim.(*entry[K, V]))
	}
	s.trimLocked()
	s.misses.Add(1)
	s.table.opt.Metrics.Miss()
	s.table.opt.Metrics.Size(s.table.Len())
	return candidate, true
}

// get is a read that still counts as a use.
func (s *shard[K, V]) get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	s.pol.OnHit(e)
	return e.val, true
}

func (s *shard[K, V]) remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[k]
	if !ok {
		return false
	}
	s.pol.OnEvict(e)
	s.unlink(e)
	delete(s.m, k)
	s.table.opt.Metrics.Size(s.table.Len())
	return true
}

// -------------------- internals (mu held) --------------------

func (s *shard[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
	s.len++
	s.table.resident.Add(1)
}

func (s *shard[K, V]) moveToFront(e *entry[K, V]) {
	if e == s.head {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *shard[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.head == e {
		s.head = e.next
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
	s.len--
	s.table.resident.Add(-1)
}

// evict drops e from the shard. Whoever already holds e.val keeps a valid
// value; only future sharing through this key is lost.
func (s *shard[K, V]) evict(e *entry[K, V]) {
	s.pol.OnEvict(e)
	s.unlink(e)
	delete(s.m, e.key)
	s.evicts.Add(1)
	s.table.opt.Metrics.Evict()
	if cb := s.table.opt.OnEvict; cb != nil {
		cb(e.key, e.val)
	}
}

func (s *shard[K, V]) trimLocked() {
	for s.len > s.cap && s.tail != nil {
		s.evict(s.tail)
	}
}

// -------------------- policy hooks --------------------

type shardHooks[K comparable, V any] struct{ s *shard[K, V] }

func (h shardHooks[K, V]) MoveToFront(e policy.Entry[K, V]) { h.s.moveToFront(e.(*entry[K, V])) }
func (h shardHooks[K, V]) PushFront(e policy.Entry[K, V])   { h.s.pushFront(e.(*entry[K, V])) }
func (h shardHooks[K, V]) Remove(e policy.Entry[K, V])      { h.s.unlink(e.(*entry[K, V])) }
func (h shardHooks[K, V]) Back() policy.Entry[K, V] {
	if h.s.tail == nil {
		return nil
	}
	return h.s.tail
}
func (h shardHooks[K, V]) Len() int { return h.s.len }
