package intern

// entry is a resident key→canonical instance pair linked into its shard's
// recency list (head is most recently used).
type entry[K comparable, V any] struct {
	key K
	val V

	prev, next *entry[K, V]
}

func (e *entry[K, V]) Key() K   { return e.key }
func (e *entry[K, V]) Value() V { return e.val }
