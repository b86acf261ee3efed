package intern

import (
	"sync/atomic"

	"github.com/IvanBrykalov/hashcons/internal/util"
	"github.com/IvanBrykalov/hashcons/policy/lru"
)

// Table is a bounded, sharded canonicalizing map from key to the one
// instance currently standing for that key. All methods are safe for
// concurrent use.
//
// Each operation costs one hash, one shard lock and O(1) list work.
type Table[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	// resident is the entry count across all shards, kept so Metrics.Size
	// can report a table-wide figure without visiting every shard.
	resident atomic.Int64

	opt TableOptions[K, V]
}

// NewTable builds a table from opt, applying defaults for zero fields.
func NewTable[K comparable, V any](opt TableOptions[K, V]) *Table[K, V] {
	if opt.Capacity < 0 {
		opt.Capacity = 0
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K, V]()
	}
	if opt.Hash == nil {
		opt.Hash = util.HashOf[K]
	}

	t := &Table[K, V]{hash: opt.Hash, opt: opt}
	if opt.Capacity == 0 {
		return t
	}

	n := util.ShardCount(opt.Shards, opt.Capacity)
	perShard := (opt.Capacity + n - 1) / n
	t.shards = make([]*shard[K, V], n)
	for i := range t.shards {
		t.shards[i] = newShard(perShard, t)
	}
	return t
}

// Canonicalize returns the canonical instance for k. If k is resident the
// cached instance is returned with false and candidate is dropped. Otherwise
// candidate becomes canonical, the least recently used entry is evicted if
// the shard is full, and candidate is returned with true.
//
// The lookup and the insert happen under one shard lock, so two callers
// racing on equal keys always leave with the same instance. A disabled or
// closed table admits nothing and hands every candidate back as new.
func (t *Table[K, V]) Canonicalize(k K, candidate V) (V, bool) {
	if len(t.shards) == 0 || t.closed.Load() {
		return candidate, true
	}
	return t.shardFor(k).canonicalize(k, candidate)
}

// Get returns the canonical instance for k without admitting anything.
func (t *Table[K, V]) Get(k K) (V, bool) {
	if len(t.shards) == 0 || t.closed.Load() {
		var zero V
		return zero, false
	}
	return t.shardFor(k).get(k)
}

// Remove drops k's canonical instance. Existing holders are unaffected;
// the next Canonicalize for k simply starts a new canonical instance.
func (t *Table[K, V]) Remove(k K) bool {
	if len(t.shards) == 0 {
		return false
	}
	return t.shardFor(k).remove(k)
}

// Len is the number of resident entries.
func (t *Table[K, V]) Len() int { return int(t.resident.Load()) }

// Capacity is the configured bound (0 when caching is disabled).
func (t *Table[K, V]) Capacity() int { return t.opt.Capacity }

// TableStats is a point-in-time summary of a table.
type TableStats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Stats sums the shard counters.
func (t *Table[K, V]) Stats() TableStats {
	st := TableStats{Entries: t.Len()}
	for _, s := range t.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Evictions += s.evicts.Load()
	}
	return st
}

// Close turns the table into a pass-through. Entries are left for the
// garbage collector along with the table.
func (t *Table[K, V]) Close() error {
	t.closed.Store(true)
	return nil
}

func (t *Table[K, V]) shardFor(k K) *shard[K, V] {
	return t.shards[util.ShardIndex(t.hash(k), len(t.shards))]
}
