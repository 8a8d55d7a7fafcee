// Package store implements the bucket map: the extendible-hash state
// machine tying together mapped regions, bucket arrays, and the overflow
// index into a persistent Add/Get/Flush engine, per spec §4.4.
package store

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/sturla/ehmap/internal/bucket"
	"github.com/sturla/ehmap/internal/conf"
	"github.com/sturla/ehmap/internal/meta"
	"github.com/sturla/ehmap/internal/overflow"
	"github.com/sturla/ehmap/internal/region"
)

// Codec is the encoding capability Store needs from a key or value type.
type Codec[T any] interface {
	Size() int
	Encode(v T, dst []byte)
	Decode(src []byte) T
}

// Hasher produces a full, unsigned 64-bit hash for a key.
type Hasher[K any] func(key K) uint64

// Store is the bucket map: directory of bucket arrays, current mask
// width, in-progress resize state, and the Add/Get/Flush entry points.
type Store[K comparable, V any] struct {
	dir          string
	pageSize     int64
	counterBytes int64
	capacity     int64 // B, identical across every array
	keyCodec     Codec[K]
	valueCodec   Codec[V]
	hash         Hasher[K]

	arrays  []*bucket.Array[K, V]
	regions []*region.Region

	m0            int64 // original mask width M0
	M             int64 // current mask width M
	isResizing    bool
	resizeCounter int64 // R

	eCount      int64
	bucketSpace int64

	overflowIndex *overflow.Index[K, V]
}

// Config bundles the construction-time parameters shared between Create
// and Open.
type Config[K comparable, V any] struct {
	Dir          string
	PageSize     int64
	CounterBytes int64
	KeyCodec     Codec[K]
	ValueCodec   Codec[V]
	Hash         Hasher[K]
	TargetLoad   float64 // used only by Create, for initial sizing
}

// Create makes a brand-new store directory sized for setupSize unique
// keys, per spec §4.4.7's "path does not exist" branch.
func Create[K comparable, V any](cfg Config[K, V], setupSize int64) (*Store[K, V], error) {
	elementSize := int64(cfg.KeyCodec.Size() + cfg.ValueCodec.Size())
	capacity, err := bucket.Capacity(cfg.PageSize, cfg.CounterBytes, elementSize)
	if err != nil {
		return nil, err
	}

	targetLoad := cfg.TargetLoad
	if targetLoad <= 0 {
		targetLoad = conf.InitialTargetLoad
	}

	m0 := int64(1)
	if ratio := float64(setupSize) / (targetLoad * float64(capacity)); ratio > 1 {
		m0 = int64(math.Ceil(math.Log2(ratio)))
		if m0 < 1 {
			m0 = 1
		}
	}

	if err = os.MkdirAll(cfg.Dir, conf.DirMode); err != nil {
		return nil, fmt.Errorf("store: create dir %s: %w", cfg.Dir, err)
	}

	bucketCount := int64(1) << uint(m0)
	r, err := region.Open(filepath.Join(cfg.Dir, conf.DataFilePrefix+"0"), cfg.PageSize*bucketCount)
	if err != nil {
		return nil, err
	}
	arr, err := bucket.New(r, cfg.PageSize, bucketCount, cfg.CounterBytes, cfg.KeyCodec, cfg.ValueCodec)
	if err != nil {
		_ = r.Close(false)
		return nil, err
	}

	return &Store[K, V]{
		dir:           cfg.Dir,
		pageSize:      cfg.PageSize,
		counterBytes:  cfg.CounterBytes,
		capacity:      capacity,
		keyCodec:      cfg.KeyCodec,
		valueCodec:    cfg.ValueCodec,
		hash:          cfg.Hash,
		arrays:        []*bucket.Array[K, V]{arr},
		regions:       []*region.Region{r},
		m0:            m0,
		M:             m0,
		bucketSpace:   bucketCount * capacity,
		overflowIndex: overflow.New[K, V](),
	}, nil
}

// bucketCountForArray returns the number of buckets in the i-th directory
// entry given an original mask width of m0, per spec §3: array i has
// 2^(M0+max(0,i-1)) buckets.
func bucketCountForArray(m0, i int64) int64 {
	exp := m0
	if i > 0 {
		exp = m0 + i - 1
	}
	return int64(1) << uint(exp)
}

// Open re-opens an existing store directory, rebuilding in-memory state
// from meta.bin and overflow.bin, per spec §4.4.7's "directory exists"
// branch.
func Open[K comparable, V any](cfg Config[K, V]) (*Store[K, V], error) {
	stat, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("store: stat %s: %w", cfg.Dir, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("store: %s exists and is not a directory", cfg.Dir)
	}

	metaPath := filepath.Join(cfg.Dir, conf.MetaFileName)
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("store: missing %s: %w", metaPath, err)
	}
	if len(metaBytes) != meta.Size {
		return nil, fmt.Errorf("store: %s has wrong size %d, expected %d", metaPath, len(metaBytes), meta.Size)
	}
	mr := meta.Decode(metaBytes)

	m0 := int64(mr.OriginalMaskSize)
	arraysCount := int64(mr.BucketArraysCount)
	M := m0 + arraysCount - 1
	if mr.IsResizing {
		// startResize appends the target array before M is raised.
		M--
	}

	elementSize := int64(cfg.KeyCodec.Size() + cfg.ValueCodec.Size())
	capacity, err := bucket.Capacity(cfg.PageSize, cfg.CounterBytes, elementSize)
	if err != nil {
		return nil, err
	}

	arrays := make([]*bucket.Array[K, V], arraysCount)
	regions := make([]*region.Region, arraysCount)
	var bucketSpace int64

	for i := int64(0); i < arraysCount; i++ {
		bucketCount := bucketCountForArray(m0, i)
		path := filepath.Join(cfg.Dir, fmt.Sprintf("%s%d", conf.DataFilePrefix, i))
		wantSize := cfg.PageSize * bucketCount

		st, serr := os.Stat(path)
		if serr != nil {
			return nil, fmt.Errorf("store: missing data file %s: %w", path, serr)
		}
		if st.Size() != wantSize {
			return nil, fmt.Errorf("store: data file %s has size %d, expected %d", path, st.Size(), wantSize)
		}

		r, oerr := region.Open(path, wantSize)
		if oerr != nil {
			return nil, oerr
		}
		arr, aerr := bucket.New(r, cfg.PageSize, bucketCount, cfg.CounterBytes, cfg.KeyCodec, cfg.ValueCodec)
		if aerr != nil {
			_ = r.Close(false)
			return nil, aerr
		}

		arrays[i] = arr
		regions[i] = r

		isLast := i == arraysCount-1
		if isLast && mr.IsResizing {
			bucketSpace += int64(mr.ResizeCounter) * capacity
		} else {
			bucketSpace += bucketCount * capacity
		}
	}

	s := &Store[K, V]{
		dir:           cfg.Dir,
		pageSize:      cfg.PageSize,
		counterBytes:  cfg.CounterBytes,
		capacity:      capacity,
		keyCodec:      cfg.KeyCodec,
		valueCodec:    cfg.ValueCodec,
		hash:          cfg.Hash,
		arrays:        arrays,
		regions:       regions,
		m0:            m0,
		M:             M,
		isResizing:    mr.IsResizing,
		resizeCounter: int64(mr.ResizeCounter),
		eCount:        int64(mr.ECount),
		bucketSpace:   bucketSpace,
		overflowIndex: overflow.New[K, V](),
	}

	if err = s.loadOverflow(int64(mr.OverflowCount)); err != nil {
		return nil, err
	}

	return s, nil
}

// ECount returns the total number of inserted elements, including those
// resident in the overflow index.
func (s *Store[K, V]) ECount() int64 { return s.eCount }

// OverflowCount returns the number of elements currently held in the
// overflow index.
func (s *Store[K, V]) OverflowCount() int64 { return int64(s.overflowIndex.Len()) }

// BucketSpace returns the sum of B*N_i over every active array.
func (s *Store[K, V]) BucketSpace() int64 { return s.bucketSpace }

// MaskWidth returns the current mask width M.
func (s *Store[K, V]) MaskWidth() int64 { return s.M }

// ArrayCount returns the number of bucket arrays in the directory.
func (s *Store[K, V]) ArrayCount() int { return len(s.arrays) }

// IsResizing reports whether a doubling is currently in progress.
func (s *Store[K, V]) IsResizing() bool { return s.isResizing }

// Capacity returns B, the per-bucket element capacity.
func (s *Store[K, V]) Capacity() int64 { return s.capacity }

// Flush persists every mapped region, the overflow index, and the
// metadata record, per spec §4.4.6.
func (s *Store[K, V]) Flush() error {
	for i := len(s.regions) - 1; i >= 0; i-- {
		if err := s.regions[i].Flush(false); err != nil {
			return err
		}
	}
	for i := len(s.regions) - 1; i >= 0; i-- {
		if err := s.regions[i].Flush(true); err != nil {
			return err
		}
	}

	if err := s.flushOverflow(); err != nil {
		return err
	}

	return s.flushMeta()
}

func (s *Store[K, V]) flushMeta() error {
	rec := meta.Record{
		OriginalMaskSize:  uint8(s.m0),
		BucketArraysCount: uint8(len(s.arrays)),
		IsResizing:        s.isResizing,
		ResizeCounter:     uint64(s.resizeCounter),
		ECount:            uint64(s.eCount),
		OverflowCount:     uint64(s.overflowIndex.Len()),
	}
	buf := make([]byte, meta.Size)
	meta.Encode(rec, buf)

	path := filepath.Join(s.dir, conf.MetaFileName)
	if err := os.WriteFile(path, buf, 0600); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	return nil
}

// Close flushes (if requested) and releases every mapped region.
func (s *Store[K, V]) Close(flush bool) error {
	if flush {
		if err := s.Flush(); err != nil {
			return err
		}
	}
	var firstErr error
	for _, r := range s.regions {
		if err := r.Close(false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Destroy releases every mapped region and removes the entire store
// directory.
func (s *Store[K, V]) Destroy() error {
	for _, r := range s.regions {
		_ = r.Destroy()
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("store: remove %s: %w", s.dir, err)
	}
	return nil
}
