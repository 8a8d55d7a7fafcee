package ehmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sturla/ehmap/internal/conf"
)

func TestOptions(t *testing.T) {
	t.Run("defaults match the package constants", func(t *testing.T) {
		// Execute
		s := defaultSettings()

		// Check
		assert.Equal(t, conf.PageSize, s.pageSize, "default page size")
		assert.Equal(t, conf.InitialTargetLoad, s.targetLoad, "default target load")
	})

	t.Run("WithPageSize overrides the default", func(t *testing.T) {
		// Prepare
		s := defaultSettings()

		// Execute
		WithPageSize(1024)(&s)

		// Check
		assert.Equal(t, int64(1024), s.pageSize, "page size overridden")
	})

	t.Run("WithTargetLoad overrides the default", func(t *testing.T) {
		// Prepare
		s := defaultSettings()

		// Execute
		WithTargetLoad(0.5)(&s)

		// Check
		assert.Equal(t, 0.5, s.targetLoad, "target load overridden")
	})
}
