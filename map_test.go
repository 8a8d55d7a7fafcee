package ehmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sturla/ehmap/codec"
	"github.com/sturla/ehmap/hashfunc"
)

func writeFile(path string) error {
	return os.WriteFile(path, []byte("not a directory"), 0600)
}

func openTestMap(t *testing.T, dir string, opts ...Option) *Map[uint64, uint64] {
	m, err := Open[uint64, uint64](dir, 700, codec.Uint64{}, codec.Uint64{}, hashfunc.Default[uint64](codec.Uint64{}), opts...)
	assert.NoError(t, err, "opens a fresh map")
	return m
}

func TestOpenCreatesNewStore(t *testing.T) {
	t.Run("creates the directory on first open", func(t *testing.T) {
		// Prepare
		dir := filepath.Join(t.TempDir(), "store")

		// Execute
		m := openTestMap(t, dir)

		// Check
		assert.DirExists(t, dir, "directory created")
		assert.FileExists(t, filepath.Join(dir, "data.0"), "initial bucket array created")

		// Clean up
		assert.NoError(t, m.Destroy(), "destroys the map")
	})

	t.Run("rejects a path that is a regular file", func(t *testing.T) {
		// Prepare
		dir := t.TempDir()
		path := filepath.Join(dir, "not-a-dir")
		assert.NoError(t, writeFile(path), "creates a plain file at the target path")

		// Execute
		_, err := Open[uint64, uint64](path, 700, codec.Uint64{}, codec.Uint64{}, hashfunc.Default[uint64](codec.Uint64{}))

		// Check
		assert.Error(t, err, "rejects a non-directory path")
		var pathErr InvalidPathError
		assert.ErrorAs(t, err, &pathErr, "error is the typed InvalidPathError")
	})
}

func TestAddGetFlushClose(t *testing.T) {
	t.Run("round trips through a flush and close", func(t *testing.T) {
		// Prepare
		dir := filepath.Join(t.TempDir(), "store")
		m := openTestMap(t, dir)
		assert.NoError(t, m.Add(1, 100), "adds key 1")
		assert.NoError(t, m.Add(2, 200), "adds key 2")

		// Execute
		assert.NoError(t, m.Flush(), "flushes to disk")
		assert.NoError(t, m.Close(), "closes the map")

		reopened, err := Open[uint64, uint64](dir, 700, codec.Uint64{}, codec.Uint64{}, hashfunc.Default[uint64](codec.Uint64{}))
		assert.NoError(t, err, "reopens the map")

		// Check
		v, ok, err := reopened.Get(1)
		assert.NoError(t, err, "lookup does not error")
		assert.True(t, ok, "key 1 survives reopen")
		assert.Equal(t, uint64(100), v, "value survives reopen")

		_, ok, err = reopened.Get(404)
		assert.NoError(t, err, "lookup does not error")
		assert.False(t, ok, "absent key stays absent")

		// Clean up
		assert.NoError(t, reopened.Destroy(), "destroys the map")
	})
}

func TestStat(t *testing.T) {
	t.Run("reports aggregate counts", func(t *testing.T) {
		// Prepare
		dir := filepath.Join(t.TempDir(), "store")
		m := openTestMap(t, dir, WithPageSize(512))
		for i := uint64(0); i < 50; i++ {
			assert.NoError(t, m.Add(i, i*2), "adds a key")
		}

		// Execute
		st := m.Stat()

		// Check
		assert.Equal(t, int64(50), st.ECount, "e_count matches insert count")
		assert.GreaterOrEqual(t, st.BucketSpace, int64(0), "bucket space reported")
		assert.GreaterOrEqual(t, st.Capacity, int64(1), "capacity reported")

		// Clean up
		assert.NoError(t, m.Destroy(), "destroys the map")
	})
}

func TestConfigError(t *testing.T) {
	t.Run("rejects a page size too small for the element", func(t *testing.T) {
		// Prepare
		dir := filepath.Join(t.TempDir(), "store")

		// Execute
		_, err := Open[uint64, uint64](dir, 700, codec.Uint64{}, codec.Uint64{}, hashfunc.Default[uint64](codec.Uint64{}), WithPageSize(4))

		// Check
		assert.Error(t, err, "page too small for one element plus counter")
		var cfgErr ConfigError
		assert.ErrorAs(t, err, &cfgErr, "error is the typed ConfigError")
	})
}
