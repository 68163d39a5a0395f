package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("db down")

	t.Run("direct code", func(t *testing.T) {
		err := New(CodeNotFound, "record not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("nested codes are visible", func(t *testing.T) {
		inner := New(CodeConflict, "duplicate")
		outer := Wrap(inner, CodeInternal, "failed to save")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeConflict))
	})

	t.Run("fmt wrapping preserved", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", Wrap(base, CodeValidation, "bad payload"))
		assert.True(t, Is(err, CodeValidation))
		assert.ErrorIs(t, err, base)
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(base, CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}
