package store

import (
	"github.com/sturla/ehmap/internal/conf"
	"github.com/sturla/ehmap/internal/overflow"
)

// Add inserts key, per spec §4.4.3. Add does not detect duplicates: two
// inserts with equal keys produce two stored elements, and Get returns
// whichever one the overflow index or the bucket scan reaches first.
// Attempts a bucket append at
// bucket_coord(h) first, falling through to the overflow index if the
// bucket is full.
func (s *Store[K, V]) Add(key K, value V) error {
	h := s.hash(key)
	arrayIdx, bucketIdx := s.bucketCoord(h)
	arr := s.arrays[arrayIdx]

	ok, err := arr.Append(bucketIdx, key, value)
	if err != nil {
		return err
	}
	if !ok {
		oc := s.overflowCoord(h)
		s.overflowIndex.Insert(oc, h, overflow.Element[K, V]{Key: key, Value: value})
	}
	s.eCount++

	return s.afterInsert()
}

// afterInsert runs the amortized resize protocol: a bounded burst of steps
// if a resize is already underway, or a threshold check to start one,
// per spec §4.4.4.
func (s *Store[K, V]) afterInsert() error {
	if s.isResizing {
		for i := int64(0); i < conf.ResizeBurst; i++ {
			done, err := s.resizeStep()
			if err != nil {
				return err
			}
			if done {
				break
			}
		}
		return nil
	}
	if s.shouldResize() {
		return s.startResize()
	}
	return nil
}

// Get looks up key, per spec §4.4.2: check the overflow index first, then
// scan the home bucket.
func (s *Store[K, V]) Get(key K) (V, bool, error) {
	var zero V
	h := s.hash(key)

	oc := s.overflowCoord(h)
	if e, ok := s.overflowIndex.Find(oc, h); ok && e.Key == key {
		return e.Value, true, nil
	}

	arrayIdx, bucketIdx := s.bucketCoord(h)
	arr := s.arrays[arrayIdx]
	size, err := arr.Size(bucketIdx)
	if err != nil {
		return zero, false, err
	}
	for i := int64(0); i < size; i++ {
		k, v, err := arr.Get(bucketIdx, i)
		if err != nil {
			return zero, false, err
		}
		if k == key {
			return v, true, nil
		}
	}
	return zero, false, nil
}
