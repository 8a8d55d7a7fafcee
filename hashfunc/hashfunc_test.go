package hashfunc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type uint64Codec struct{}

func (uint64Codec) Size() int { return 8 }
func (uint64Codec) Encode(v uint64, dst []byte) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func TestDefault(t *testing.T) {
	t.Run("is a pure function of the key", func(t *testing.T) {
		// Prepare
		h := Default[uint64](uint64Codec{})

		// Execute
		a := h(42)
		b := h(42)
		c := h(43)

		// Check
		assert.Equal(t, a, b, "same key hashes the same every time")
		assert.NotEqual(t, a, c, "different keys are very unlikely to collide")
	})

	t.Run("does not alias state across calls", func(t *testing.T) {
		// Prepare
		h := Default[uint64](uint64Codec{})

		// Execute
		first := h(1)
		_ = h(2)
		firstAgain := h(1)

		// Check
		assert.Equal(t, first, firstAgain, "reusing the internal buffer doesn't corrupt earlier results")
	})
}
