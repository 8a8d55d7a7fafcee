// Package bucket implements the bucket-array component: a view over a
// mapped region interpreting it as N fixed-size buckets of P bytes each,
// each holding up to B elements plus a trailing counter.
package bucket

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"

	"github.com/sturla/ehmap/internal/region"
)

// Codec is the encoding capability the bucket array needs from a key or
// value type. It is the same shape as codec.Codec, restated here so this
// package doesn't depend on the root codec package.
type Codec[T any] interface {
	Size() int
	Encode(v T, dst []byte)
	Decode(src []byte) T
}

// Slot is one decoded (key, value) pair read out of a bucket.
type Slot[K, V any] struct {
	Key   K
	Value V
}

// Array is a bucket array: N fixed-size pages over one mapped region, all
// of identical page size P, each holding up to B elements of size S plus a
// trailing counter of CounterBytes.
type Array[K, V any] struct {
	region       *region.Region
	pageSize     int64
	bucketCount  int64
	elementSize  int64
	counterBytes int64
	capacity     int64 // B
	keyCodec     Codec[K]
	valueCodec   Codec[V]
	keySize      int64
	valueSize    int64
}

// Capacity derives B, the number of element slots per bucket, from the
// page size, counter width, and element size, and validates the geometry
// spec §4.2 requires: B*S+C <= P and B < 2^(8*counterBytes).
func Capacity(pageSize, counterBytes, elementSize int64) (int64, error) {
	if elementSize <= 0 {
		return 0, fmt.Errorf("bucket: element size must be positive")
	}

	capacity := (pageSize - counterBytes) / elementSize
	if capacity <= 0 {
		return 0, fmt.Errorf("bucket: element size %d too large for page size %d", elementSize, pageSize)
	}
	if capacity*elementSize+counterBytes > pageSize {
		return 0, fmt.Errorf("bucket: geometry error: %d elements of size %d plus %d-byte counter exceed page size %d", capacity, elementSize, counterBytes, pageSize)
	}
	maxCapacity := int64(math.Pow(2, float64(8*counterBytes)))
	if capacity >= maxCapacity {
		return 0, fmt.Errorf("bucket: capacity %d does not fit in a %d-byte counter", capacity, counterBytes)
	}
	return capacity, nil
}

// New builds an Array over an already-open region. counterBytes is the
// width of the trailing per-bucket counter (spec: 16-bit unsigned, so
// B <= 65535). Fails if the derived geometry is impossible.
func New[K, V any](r *region.Region, pageSize, bucketCount, counterBytes int64, keyCodec Codec[K], valueCodec Codec[V]) (*Array[K, V], error) {
	keySize := int64(keyCodec.Size())
	valueSize := int64(valueCodec.Size())
	elementSize := keySize + valueSize

	capacity, err := Capacity(pageSize, counterBytes, elementSize)
	if err != nil {
		return nil, err
	}

	if r.Len() != pageSize*bucketCount {
		return nil, fmt.Errorf("bucket: region length %d does not match %d buckets of %d bytes", r.Len(), bucketCount, pageSize)
	}

	return &Array[K, V]{
		region:       r,
		pageSize:     pageSize,
		bucketCount:  bucketCount,
		elementSize:  elementSize,
		counterBytes: counterBytes,
		capacity:     capacity,
		keyCodec:     keyCodec,
		valueCodec:   valueCodec,
		keySize:      keySize,
		valueSize:    valueSize,
	}, nil
}

// Capacity returns B, the number of element slots per bucket.
func (a *Array[K, V]) Capacity() int64 { return a.capacity }

// Count returns N, the number of buckets in this array.
func (a *Array[K, V]) Count() int64 { return a.bucketCount }

func (a *Array[K, V]) bucketOffset(idx int64) (int64, error) {
	if idx < 0 || idx >= a.bucketCount {
		return 0, OutOfRange{Index: idx, Limit: a.bucketCount}
	}
	return idx * a.pageSize, nil
}

func (a *Array[K, V]) counterOffset(idx int64) int64 {
	return idx*a.pageSize + a.pageSize - a.counterBytes
}

func (a *Array[K, V]) slotOffset(bucketOff, slot int64) int64 {
	return bucketOff + slot*a.elementSize
}

// Size returns the current element count stored in bucket idx.
func (a *Array[K, V]) Size(idx int64) (int64, error) {
	if _, err := a.bucketOffset(idx); err != nil {
		return 0, err
	}
	off := a.counterOffset(idx)
	return readCounter(a.region.Bytes()[off:off+a.counterBytes], a.counterBytes), nil
}

// SetSize overwrites bucket idx's counter directly. Used by the resize
// protocol when compacting a bucket in place.
func (a *Array[K, V]) SetSize(idx, n int64) error {
	if _, err := a.bucketOffset(idx); err != nil {
		return err
	}
	if n < 0 || n > a.capacity {
		return fmt.Errorf("bucket: counter value %d out of [0, %d]", n, a.capacity)
	}
	off := a.counterOffset(idx)
	writeCounter(a.region.Bytes()[off:off+a.counterBytes], n, a.counterBytes)
	return nil
}

// Append writes (key, value) to the first free slot in bucket idx and
// increments its counter. Returns false, nil iff the bucket is full.
func (a *Array[K, V]) Append(idx int64, key K, value V) (bool, error) {
	bucketOff, err := a.bucketOffset(idx)
	if err != nil {
		return false, err
	}
	size, err := a.Size(idx)
	if err != nil {
		return false, err
	}
	if size == a.capacity {
		return false, nil
	}

	data := a.region.Bytes()
	slotOff := a.slotOffset(bucketOff, size)
	a.keyCodec.Encode(key, data[slotOff:slotOff+a.keySize])
	a.valueCodec.Encode(value, data[slotOff+a.keySize:slotOff+a.elementSize])

	if err = a.SetSize(idx, size+1); err != nil {
		return false, err
	}
	return true, nil
}

// Get decodes the slot-th element of bucket idx. Caller must ensure
// slot < Size(idx).
func (a *Array[K, V]) Get(idx, slot int64) (K, V, error) {
	var zeroK K
	var zeroV V
	bucketOff, err := a.bucketOffset(idx)
	if err != nil {
		return zeroK, zeroV, err
	}
	data := a.region.Bytes()
	slotOff := a.slotOffset(bucketOff, slot)
	key := a.keyCodec.Decode(data[slotOff : slotOff+a.keySize])
	value := a.valueCodec.Decode(data[slotOff+a.keySize : slotOff+a.elementSize])
	return key, value, nil
}

// Elements returns a snapshot of the valid slot prefix [0, Size(idx)) of
// bucket idx. Snapshotting (rather than reading live while mutating) is
// what lets the resize protocol's compacting write cursor run over the
// same bucket it reads without the two cursors racing: the keep branch
// writes at most as many elements as it has already read from this copy.
func (a *Array[K, V]) Elements(idx int64) ([]Slot[K, V], error) {
	size, err := a.Size(idx)
	if err != nil {
		return nil, err
	}
	out := make([]Slot[K, V], size)
	for i := int64(0); i < size; i++ {
		k, v, err := a.Get(idx, i)
		if err != nil {
			return nil, err
		}
		out[i] = Slot[K, V]{Key: k, Value: v}
	}
	return out, nil
}

// PutAt overwrites the slot-th element of bucket idx without touching the
// counter. Used by the resize protocol's compacting write cursor.
func (a *Array[K, V]) PutAt(idx, slot int64, key K, value V) error {
	bucketOff, err := a.bucketOffset(idx)
	if err != nil {
		return err
	}
	data := a.region.Bytes()
	slotOff := a.slotOffset(bucketOff, slot)
	a.keyCodec.Encode(key, data[slotOff:slotOff+a.keySize])
	a.valueCodec.Encode(value, data[slotOff+a.keySize:slotOff+a.elementSize])
	return nil
}

// Prefetch advises the kernel (MADV_WILLNEED) that bucket idx's page is
// about to be accessed. The store's resize protocol does not call it.
func (a *Array[K, V]) Prefetch(idx int64) error {
	off, err := a.bucketOffset(idx)
	if err != nil {
		return err
	}
	return a.region.AdviseRange(off, a.pageSize, unix.MADV_WILLNEED)
}

// OutOfRange reports a bucket subscript beyond an array's bucket count.
type OutOfRange struct {
	Index, Limit int64
}

func (e OutOfRange) Error() string {
	return fmt.Sprintf("bucket: index %d out of range [0, %d)", e.Index, e.Limit)
}

func readCounter(b []byte, width int64) int64 {
	var v int64
	for i := int64(0); i < width; i++ {
		v |= int64(b[i]) << (8 * i)
	}
	return v
}

func writeCounter(b []byte, v, width int64) {
	for i := int64(0); i < width; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
