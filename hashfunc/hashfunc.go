// Package hashfunc provides the application-supplied hash function plugged
// into an ehmap.Map. The store needs a pure function of the key producing
// an unsigned machine-word hash; applications may supply their own for a
// distribution better suited to their keys, following the same
// pluggable-algorithm idea as a pluggable bucket-selection algorithm.
package hashfunc

import "github.com/cespare/xxhash/v2"

// Hasher produces a full, unsigned 64-bit hash for a key. It must be a
// pure function: the same key always yields the same hash for the
// lifetime of a store, since the hash also determines where the re-hash
// during a bucket split looks for a moved element.
type Hasher[K any] func(key K) uint64

// Codec is the minimal encoding capability Default needs from a key type;
// it mirrors codec.Codec without importing that package, keeping hashfunc
// free of a codec.Codec dependency cycle.
type Codec[K any] interface {
	Size() int
	Encode(v K, dst []byte)
}

// Default builds a Hasher over any fixed-size-encodable key type by
// hashing its encoded bytes with xxhash, the fast non-cryptographic hash
// the ecosystem reaches for in exactly this kind of embedded, disk-backed
// hash table.
func Default[K any](c Codec[K]) Hasher[K] {
	buf := make([]byte, c.Size())
	return func(key K) uint64 {
		c.Encode(key, buf)
		return xxhash.Sum64(buf)
	}
}
