package store

import (
	"fmt"
	"path/filepath"

	"github.com/sturla/ehmap/internal/bucket"
	"github.com/sturla/ehmap/internal/conf"
	"github.com/sturla/ehmap/internal/overflow"
	"github.com/sturla/ehmap/internal/region"
)

// shouldResize implements spec §4.4.4's resize trigger.
func (s *Store[K, V]) shouldResize() bool {
	if s.overflowIndex.Len() >= conf.OverflowEmergencyThreshold {
		return true
	}
	if float64(s.eCount) <= conf.ResizeLoadThreshold*float64(s.bucketSpace) {
		return false
	}
	overflowCount := int64(s.overflowIndex.Len())
	return overflowCount >= conf.OverflowAbsoluteThreshold ||
		float64(overflowCount) >= conf.OverflowRatioThreshold*float64(s.eCount)
}

// startResize allocates the next directory entry and begins a doubling,
// per spec §4.4.5.
func (s *Store[K, V]) startResize() error {
	if s.isResizing {
		return nil
	}

	newIdx := int64(len(s.arrays))
	bucketCount := bucketCountForArray(s.m0, newIdx)
	path := filepath.Join(s.dir, fmt.Sprintf("%s%d", conf.DataFilePrefix, newIdx))

	r, err := region.Open(path, s.pageSize*bucketCount)
	if err != nil {
		return err
	}
	arr, err := bucket.New(r, s.pageSize, bucketCount, s.counterBytes, s.keyCodec, s.valueCodec)
	if err != nil {
		_ = r.Close(false)
		return err
	}

	s.arrays = append(s.arrays, arr)
	s.regions = append(s.regions, r)
	s.resizeCounter = 0
	s.isResizing = true
	return nil
}

// resizeStep splits bucket R of the current address space into the newest
// directory entry, per spec §4.4.5. Returns done=true if this call
// finalised the resize.
func (s *Store[K, V]) resizeStep() (done bool, err error) {
	if !s.isResizing {
		return true, nil
	}

	R := s.resizeCounter
	a, b := s.bucketCoord(uint64(R))
	oldArr := s.arrays[a]
	newArr := s.arrays[len(s.arrays)-1]

	if err = newArr.SetSize(R, 0); err != nil {
		return false, err
	}

	mask := uint64(1) << uint(s.M)

	slots, err := oldArr.Elements(b)
	if err != nil {
		return false, err
	}

	var cursor int64
	for _, slot := range slots {
		h := s.hash(slot.Key)
		if h&mask == 0 {
			if err = oldArr.PutAt(b, cursor, slot.Key, slot.Value); err != nil {
				return false, err
			}
			cursor++
			continue
		}
		ok, aerr := newArr.Append(R, slot.Key, slot.Value)
		if aerr != nil {
			return false, aerr
		}
		if !ok {
			s.overflowIndex.Insert(h&(uint64(1)<<uint(s.M+1)-1), h, overflow.Element[K, V]{Key: slot.Key, Value: slot.Value})
		}
	}
	if err = oldArr.SetSize(b, cursor); err != nil {
		return false, err
	}

	if inner, ok := s.overflowIndex.Take(uint64(R)); ok {
		for h, e := range inner {
			if h&mask == 0 {
				ok2, aerr := oldArr.Append(b, e.Key, e.Value)
				_ = ok2
				if aerr != nil {
					return false, aerr
				}
				if !ok2 {
					s.overflowIndex.Insert(uint64(R), h, e)
				}
			} else {
				ok2, aerr := newArr.Append(R, e.Key, e.Value)
				if aerr != nil {
					return false, aerr
				}
				if !ok2 {
					s.overflowIndex.Insert(uint64(R)^mask, h, e)
				}
			}
		}
	}

	s.bucketSpace += s.capacity

	if R == int64(mask)-1 {
		s.M++
		s.resizeCounter = 0
		s.isResizing = false
		return true, nil
	}
	s.resizeCounter++
	return false, nil
}
