package util

import (
	"sync/atomic"
	"unsafe"
)

// CacheLineSize is 64 on the platforms we care about.
const CacheLineSize = 64

// CacheLinePad separates hot fields onto distinct cache lines.
type CacheLinePad struct{ _ [CacheLineSize]byte }

// PaddedCounter is an atomic counter occupying a full cache line, so shard
// hit/miss counters bumped by different cores do not false-share.
type PaddedCounter struct {
	atomic.Uint64
	_ [CacheLineSize - 8]byte
}

var _ [CacheLineSize - int(unsafe.Sizeof(PaddedCounter{}))]byte
