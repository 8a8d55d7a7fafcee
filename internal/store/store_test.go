package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type u64Codec struct{}

func (u64Codec) Size() int { return 8 }
func (u64Codec) Encode(v uint64, dst []byte) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}
func (u64Codec) Decode(src []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(src[i]) << (8 * i)
	}
	return v
}

func identityHash(k uint64) uint64 { return k }

func newTestStore(t *testing.T, dir string, setupSize int64) *Store[uint64, uint64] {
	cfg := Config[uint64, uint64]{
		Dir:          dir,
		PageSize:     512,
		CounterBytes: 2,
		KeyCodec:     u64Codec{},
		ValueCodec:   u64Codec{},
		Hash:         identityHash,
		TargetLoad:   0.75,
	}
	s, err := Create(cfg, setupSize)
	assert.NoError(t, err, "creates a fresh store")
	return s
}

func TestTinySanity(t *testing.T) {
	t.Run("inserts and retrieves a handful of keys", func(t *testing.T) {
		// Prepare
		dir := t.TempDir()
		s := newTestStore(t, dir, 700)

		// Execute
		assert.NoError(t, s.Add(0, 0), "adds key 0")
		assert.NoError(t, s.Add(1, 1), "adds key 1")
		assert.NoError(t, s.Add(2, 2), "adds key 2")
		assert.NoError(t, s.Add(65636, 16), "adds key 65636")

		// Check
		for _, k := range []uint64{0, 1, 2, 65636} {
			v, ok, err := s.Get(k)
			assert.NoError(t, err, "lookup does not error")
			assert.True(t, ok, "key found")
			if k == 65636 {
				assert.Equal(t, uint64(16), v, "value matches")
			} else {
				assert.Equal(t, k, v, "value matches key")
			}
		}
		assert.Equal(t, int64(4), s.ECount(), "e_count is 4")
		assert.Equal(t, int64(0), s.OverflowCount(), "nothing overflowed")

		// Clean up
		assert.NoError(t, s.Destroy(), "destroys the store")
	})
}

func TestDuplicateKeysNotDetected(t *testing.T) {
	t.Run("re-adding a key stores a second element instead of overwriting", func(t *testing.T) {
		// Prepare
		dir := t.TempDir()
		s := newTestStore(t, dir, 700)
		assert.NoError(t, s.Add(5, 50), "adds key 5")

		// Execute
		assert.NoError(t, s.Add(5, 99), "adds key 5 again")

		// Check
		assert.Equal(t, int64(2), s.ECount(), "both inserts are counted, duplicates are not detected")
		v, ok, err := s.Get(5)
		assert.NoError(t, err, "lookup does not error")
		assert.True(t, ok, "one of the two stored elements is found")
		assert.Contains(t, []uint64{50, 99}, v, "lookup returns one of the two values stored under this key")

		// Clean up
		assert.NoError(t, s.Destroy(), "destroys the store")
	})
}

func TestMissingKey(t *testing.T) {
	t.Run("reports not found for an absent key", func(t *testing.T) {
		// Prepare
		dir := t.TempDir()
		s := newTestStore(t, dir, 700)

		// Execute
		_, ok, err := s.Get(404)

		// Check
		assert.NoError(t, err, "lookup does not error")
		assert.False(t, ok, "key was never inserted")

		// Clean up
		assert.NoError(t, s.Destroy(), "destroys the store")
	})
}

func TestFillPastOneArray(t *testing.T) {
	t.Run("grows the directory under heavy load", func(t *testing.T) {
		// Prepare
		dir := t.TempDir()
		s := newTestStore(t, dir, 700)

		// Execute
		const n = 10000
		for i := uint64(0); i < n; i++ {
			assert.NoError(t, s.Add(i*2654435761+1, i), "inserts a pseudo-random key")
		}

		// Check
		for i := uint64(0); i < n; i++ {
			v, ok, err := s.Get(i*2654435761 + 1)
			assert.NoError(t, err, "lookup does not error")
			assert.True(t, ok, "every inserted key is retrievable")
			assert.Equal(t, i, v, "value matches")
		}
		assert.Equal(t, int64(n), s.ECount(), "e_count matches insert count")
		assert.GreaterOrEqual(t, s.ArrayCount(), 2, "directory grew past one array")
		assert.GreaterOrEqual(t, s.MaskWidth(), int64(6), "mask width grew")

		// Clean up
		assert.NoError(t, s.Destroy(), "destroys the store")
	})
}

func TestPersistenceRoundTrip(t *testing.T) {
	t.Run("survives close and reopen", func(t *testing.T) {
		// Prepare
		dir := t.TempDir()
		s := newTestStore(t, dir, 700)
		const n = 2000
		for i := uint64(0); i < n; i++ {
			assert.NoError(t, s.Add(i*2654435761+1, i*3), "inserts")
		}
		assert.NoError(t, s.Close(true), "flushes and closes")

		// Execute
		cfg := Config[uint64, uint64]{
			Dir:          dir,
			PageSize:     512,
			CounterBytes: 2,
			KeyCodec:     u64Codec{},
			ValueCodec:   u64Codec{},
			Hash:         identityHash,
		}
		reopened, err := Open(cfg)
		assert.NoError(t, err, "reopens the store")

		// Check
		assert.Equal(t, int64(n), reopened.ECount(), "e_count preserved")
		for i := uint64(0); i < n; i++ {
			v, ok, err := reopened.Get(i*2654435761 + 1)
			assert.NoError(t, err, "lookup does not error")
			assert.True(t, ok, "key survives reopen")
			assert.Equal(t, i*3, v, "value survives reopen")
		}

		// Clean up
		assert.NoError(t, reopened.Destroy(), "destroys the store")
	})
}

func TestOverflowRehoming(t *testing.T) {
	t.Run("drains the overflow index after a full resize", func(t *testing.T) {
		// Prepare
		dir := t.TempDir()
		cfg := Config[uint64, uint64]{
			Dir:          dir,
			PageSize:     512,
			CounterBytes: 2,
			KeyCodec:     u64Codec{},
			ValueCodec:   u64Codec{},
			Hash:         identityHash,
			TargetLoad:   0.75,
		}
		s, err := Create(cfg, 700)
		assert.NoError(t, err, "creates a fresh store")

		m0 := s.m0
		h0 := uint64(1) << uint(m0+2)
		hAlt := h0 ^ (uint64(1) << uint(m0))
		b := s.capacity

		// Execute: insert B+10 elements whose low M0 hash bits are all zero,
		// so every one lands in bucket 0 and the overflow index absorbs the
		// excess. The hashes alternate on bit M0, the bit the first split
		// examines.
		for i := int64(0); i < b+10; i++ {
			var key uint64
			if i%2 == 0 {
				key = h0
			} else {
				key = hAlt
			}
			key += uint64(i) << 32
			assert.NoError(t, s.Add(key, uint64(i)), "inserts under a colliding hash")
		}

		assert.Greater(t, s.OverflowCount(), int64(0), "some elements overflowed before resizing")

		// Force a full resize regardless of the automatic threshold, per
		// the scenario's "force a full resize" step.
		assert.NoError(t, s.startResize(), "starts a resize")
		for s.isResizing {
			_, err := s.resizeStep()
			assert.NoError(t, err, "resize step does not error")
		}

		// Check
		assert.Equal(t, int64(0), s.OverflowCount(), "overflow index fully drained")
		assert.Equal(t, b+10, s.ECount(), "no elements lost")

		// Clean up
		assert.NoError(t, s.Destroy(), "destroys the store")
	})
}

func TestDataFileNaming(t *testing.T) {
	t.Run("first array is named data.0", func(t *testing.T) {
		// Prepare
		dir := t.TempDir()
		s := newTestStore(t, dir, 700)

		// Check
		assert.FileExists(t, filepath.Join(dir, "data.0"), "first bucket array file")

		// Clean up
		assert.NoError(t, s.Destroy(), "destroys the store")
	})
}
