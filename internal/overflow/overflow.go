// Package overflow implements the in-memory, two-level overflow index:
// bucket coordinate -> full hash -> element. It absorbs insertions that
// would overflow a full bucket and is rebalanced by the resize protocol.
package overflow

// Element is a stored key/value pair as held in the overflow index. The
// bucket-array side stores the same pair in its on-disk form; the overflow
// index keeps it purely in memory.
type Element[K, V any] struct {
	Key   K
	Value V
}

// Index is the coord -> hash -> element mapping described in spec §4.3.
// The two levels let the resize protocol enumerate exactly the elements
// bound to one coordinate in O(|sub-bucket|) instead of O(overflow_count).
type Index[K, V any] struct {
	byCoord map[uint64]map[uint64]Element[K, V]
	count   int
}

// New returns an empty overflow index.
func New[K, V any]() *Index[K, V] {
	return &Index[K, V]{byCoord: make(map[uint64]map[uint64]Element[K, V])}
}

// Insert adds element under (coord, hash), creating the inner mapping if
// absent. Last write wins on an existing (coord, hash) pair.
func (x *Index[K, V]) Insert(coord, hash uint64, e Element[K, V]) {
	inner, ok := x.byCoord[coord]
	if !ok {
		inner = make(map[uint64]Element[K, V])
		x.byCoord[coord] = inner
	}
	if _, existed := inner[hash]; !existed {
		x.count++
	}
	inner[hash] = e
}

// Find looks up the element stored under (coord, hash).
func (x *Index[K, V]) Find(coord, hash uint64) (Element[K, V], bool) {
	inner, ok := x.byCoord[coord]
	if !ok {
		return Element[K, V]{}, false
	}
	e, ok := inner[hash]
	return e, ok
}

// Take removes and returns the inner mapping bound to coord, used by the
// resize protocol's rebalance step. Returns ok=false if coord has no
// overflow entries.
func (x *Index[K, V]) Take(coord uint64) (map[uint64]Element[K, V], bool) {
	inner, ok := x.byCoord[coord]
	if !ok {
		return nil, false
	}
	delete(x.byCoord, coord)
	x.count -= len(inner)
	return inner, true
}

// Len returns the total number of elements held across all coordinates.
func (x *Index[K, V]) Len() int {
	return x.count
}

// CoordLen returns the number of distinct coordinates currently holding
// at least one overflow element.
func (x *Index[K, V]) CoordLen() int {
	return len(x.byCoord)
}

// Record is one flattened (coord, hash, element) triple, used for bulk
// iteration at flush time.
type Record[K, V any] struct {
	Coord uint64
	Hash  uint64
	Elem  Element[K, V]
}

// Iterator walks every record in the overflow index in an unspecified
// order, with a HasNext/Next shape.
type Iterator[K, V any] struct {
	records []Record[K, V]
	pos     int
}

// Records returns an Iterator over every (coord, hash, element) currently
// in the index. Used by Flush to serialise overflow.bin.
func (x *Index[K, V]) Records() *Iterator[K, V] {
	records := make([]Record[K, V], 0, x.count)
	for coord, inner := range x.byCoord {
		for hash, e := range inner {
			records = append(records, Record[K, V]{Coord: coord, Hash: hash, Elem: e})
		}
	}
	return &Iterator[K, V]{records: records}
}

// HasNext reports whether another record is available.
func (it *Iterator[K, V]) HasNext() bool {
	return it.pos < len(it.records)
}

// Next returns the next record and advances the iterator.
func (it *Iterator[K, V]) Next() Record[K, V] {
	r := it.records[it.pos]
	it.pos++
	return r
}
