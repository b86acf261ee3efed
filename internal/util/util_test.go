package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextPow2(t *testing.T) {
	t.Parallel()

	cases := map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 1000: 1024, 1 << 40: 1 << 40}
	for in, want := range cases {
		assert.Equal(t, want, NextPow2(in), "NextPow2(%d)", in)
	}
	assert.Equal(t, uint64(1<<63), NextPow2(1<<63+1))
}

func TestShardCount_NeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, ShardCount(16, 1))
	assert.Equal(t, 2, ShardCount(16, 3))
	assert.Equal(t, 16, ShardCount(16, 10_000))
	assert.Equal(t, 8, ShardCount(5, 10_000))
	assert.Equal(t, 1, ShardCount(0, 0))

	auto := ShardCount(0, 1<<20)
	assert.LessOrEqual(t, auto, 256)
	assert.Equal(t, 0, auto&(auto-1), "auto shard count %d is not a power of two", auto)
}

type selfHashed uint64

func (s selfHashed) Hash() uint64 { return uint64(s) * 3 }

func TestHashOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HashOf("note"), HashOf("note"))
	assert.NotEqual(t, HashOf("note"), HashOf("rest"))
	assert.NotEqual(t, HashOf(1), HashOf(2))
	assert.Equal(t, uint64(21), HashOf(selfHashed(7)))
	assert.Panics(t, func() { HashOf(struct{ a int }{1}) })
}
