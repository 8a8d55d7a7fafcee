// Package ehmap implements a persistent, disk-resident associative map
// backed by an extendible-hash bucket directory and an in-memory overflow
// index. See SPEC_FULL.md for the full design.
package ehmap

import (
	"errors"
	"os"
	"strings"

	"github.com/sturla/ehmap/codec"
	"github.com/sturla/ehmap/hashfunc"
	"github.com/sturla/ehmap/internal/bucket"
	"github.com/sturla/ehmap/internal/conf"
	"github.com/sturla/ehmap/internal/store"
)

// Codec is the fixed-size encoding capability a key or value type must
// provide. See package codec for the built-in implementations.
type Codec[T any] = codec.Codec[T]

// Hasher produces a full, unsigned 64-bit hash for a key. See package
// hashfunc for the default xxhash-based implementation.
type Hasher[K any] = hashfunc.Hasher[K]

// Map is a persistent, disk-resident key/value store. It is not safe for
// concurrent use from multiple goroutines: callers needing that wrap
// Add/Get/Flush in their own sync.Mutex.
type Map[K comparable, V any] struct {
	s *store.Store[K, V]
}

// Open opens the store directory at dir, creating it if it does not
// exist. setupSize is the caller's estimate of the number of unique keys
// the store will eventually hold; it only affects the initial bucket
// directory size when creating a new store, not its correctness.
func Open[K comparable, V any](dir string, setupSize int64, keyCodec Codec[K], valueCodec Codec[V], hash Hasher[K], opts ...Option) (*Map[K, V], error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	elementSize := int64(keyCodec.Size() + valueCodec.Size())
	if _, err := bucket.Capacity(cfg.pageSize, conf.CounterBytes, elementSize); err != nil {
		return nil, ConfigError{msg: err.Error()}
	}

	scfg := store.Config[K, V]{
		Dir:          dir,
		PageSize:     cfg.pageSize,
		CounterBytes: conf.CounterBytes,
		KeyCodec:     keyCodec,
		ValueCodec:   valueCodec,
		Hash:         store.Hasher[K](hash),
		TargetLoad:   cfg.targetLoad,
	}

	stat, statErr := os.Stat(dir)
	switch {
	case statErr == nil && stat.IsDir():
		s, err := store.Open(scfg)
		if err != nil {
			return nil, classifyOpenError(dir, err)
		}
		return &Map[K, V]{s: s}, nil
	case statErr == nil:
		return nil, InvalidPathError{path: dir}
	case os.IsNotExist(statErr):
		s, err := store.Create(scfg, setupSize)
		if err != nil {
			return nil, IOError{op: "create store", err: err}
		}
		return &Map[K, V]{s: s}, nil
	default:
		return nil, IOError{op: "stat " + dir, err: statErr}
	}
}

func classifyOpenError(dir string, err error) error {
	if strings.Contains(err.Error(), "is not a directory") {
		return InvalidPathError{path: dir}
	}
	return CorruptStoreError{msg: err.Error()}
}

// classifyErr surfaces a bucket-subscript failure as the typed
// OutOfRangeError spec §7 names, instead of leaking the internal
// bucket.OutOfRange type across the package boundary.
func classifyErr(err error) error {
	var oor bucket.OutOfRange
	if errors.As(err, &oor) {
		return OutOfRangeError{index: oor.Index, limit: oor.Limit}
	}
	return err
}

// Add inserts key with value. Add does not detect duplicates: inserting
// the same key twice stores two elements, and which one Get later returns
// is unspecified.
func (m *Map[K, V]) Add(key K, value V) error {
	return classifyErr(m.s.Add(key, value))
}

// Get looks up key, reporting whether it was found.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	v, ok, err := m.s.Get(key)
	return v, ok, classifyErr(err)
}

// Flush persists every mapped region, the overflow index, and the
// metadata record to disk.
func (m *Map[K, V]) Flush() error {
	return classifyErr(m.s.Flush())
}

// Close flushes and releases every mapped region. The Map must not be
// used afterward.
func (m *Map[K, V]) Close() error {
	return m.s.Close(true)
}

// Destroy releases every mapped region and removes the entire store
// directory. The Map must not be used afterward.
func (m *Map[K, V]) Destroy() error {
	return m.s.Destroy()
}
