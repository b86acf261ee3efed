package intern

import (
	"github.com/IvanBrykalov/hashcons/policy"
)

// Metrics receives table-level signals. NoopMetrics is used when none is set.
type Metrics interface {
	// Hit is an existing canonical instance returned.
	Hit()
	// Miss is a candidate admitted as the new canonical instance.
	Miss()
	// Evict is one entry dropped to respect capacity.
	Evict()
	// Size reports the resident entry count after a change.
	Size(entries int)
}

// TableOptions configures a Table. Zero values are safe:
//   - Capacity 0  => the table never caches (Canonicalize always admits nothing)
//   - Shards <= 0 => auto, a power of two no larger than Capacity
//   - nil Policy  => LRU
//   - nil Hash    => util.HashOf
//   - nil Metrics => NoopMetrics
type TableOptions[K comparable, V any] struct {
	// Capacity bounds the number of resident entries.
	Capacity int

	Shards int
	Policy policy.Policy[K, V]
	Hash   func(K) uint64

	Metrics Metrics

	// OnEvict runs under the shard lock for every evicted entry; keep it cheap.
	OnEvict func(k K, v V)
}
