package util

import "runtime"

// NextPow2 returns the smallest power of two >= x (1 for x == 0), clamped to
// 1<<63 on overflow.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	if x == 0 {
		return 1 << 63
	}
	return x
}

// ShardCount picks the number of shards for a table holding at most capacity
// entries. want <= 0 selects nextPow2(2*GOMAXPROCS) clamped to 256. The
// result is a power of two and never exceeds capacity, so small tables do
// not silently grow past their bound through per-shard rounding.
func ShardCount(want, capacity int) int {
	if want <= 0 {
		p := runtime.GOMAXPROCS(0)
		if p < 1 {
			p = 1
		}
		want = min(int(NextPow2(uint64(2*p))), 256)
	}
	n := int(NextPow2(uint64(want)))
	for n > 1 && n > capacity {
		n >>= 1
	}
	return n
}

// ShardIndex maps a hash onto one of n shards; n must be a power of two.
func ShardIndex(hash uint64, n int) int {
	return int(hash & uint64(n-1))
}
