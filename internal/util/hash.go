// Package util holds small internal helpers: hashing, shard sizing, padding.
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hasher is implemented by key types that carry their own hash, such as
// value.Key.
type Hasher interface{ Hash() uint64 }

// HashOf is the default table hasher. Keys implementing Hasher hash
// themselves; strings and byte slices use xxhash; integer widths are mixed
// with FNV-1a over their little-endian bytes. Other key types panic: supply a
// hash function in the table options instead of silently hashing poorly.
func HashOf[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case Hasher:
		return v.Hash()
	case string:
		return xxhash.Sum64String(v)
	case []byte:
		return xxhash.Sum64(v)
	case uint8:
		return fnv64a(uint64(v))
	case uint16:
		return fnv64a(uint64(v))
	case uint32:
		return fnv64a(uint64(v))
	case uint64:
		return fnv64a(v)
	case uint:
		return fnv64a(uint64(v))
	case int8:
		return fnv64a(uint64(uint8(v)))
	case int16:
		return fnv64a(uint64(uint16(v)))
	case int32:
		return fnv64a(uint64(uint32(v)))
	case int64:
		return fnv64a(uint64(v))
	case int:
		return fnv64a(uint64(v))
	case fmt.Stringer:
		return xxhash.Sum64String(v.String())
	default:
		panic(fmt.Sprintf("util.HashOf: unsupported key type %T; set a Hash function in the options", k))
	}
}

const (
	fnvOffset64 = 1469598103934665603
	fnvPrime64  = 1099511628211
)

func fnv64a(u uint64) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < 8; i++ {
		h ^= uint64(byte(u))
		h *= fnvPrime64
		u >>= 8
	}
	return h
}
