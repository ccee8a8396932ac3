package task

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureClassification(t *testing.T) {
	t.Parallel()

	t.Run("permanent errors match ErrPermanent", func(t *testing.T) {
		t.Parallel()
		err := Permanentf("city %q not found", "Atlantis")
		assert.True(t, errors.Is(err, ErrPermanent))
		assert.False(t, errors.Is(err, ErrTransient))
		assert.True(t, IsPermanent(err))
		assert.Equal(t, `city "Atlantis" not found`, err.Error())
	})

	t.Run("transient errors match ErrTransient", func(t *testing.T) {
		t.Parallel()
		err := Transientf("upstream returned status %d", 503)
		assert.True(t, errors.Is(err, ErrTransient))
		assert.False(t, errors.Is(err, ErrPermanent))
		assert.False(t, IsPermanent(err))
	})

	t.Run("wrapping preserves the cause", func(t *testing.T) {
		t.Parallel()
		cause := fmt.Errorf("connection refused")
		err := TransientWrap(cause, "weather api request failed")
		assert.True(t, errors.Is(err, ErrTransient))
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "weather api request failed")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("unclassified errors default to retryable", func(t *testing.T) {
		t.Parallel()
		assert.False(t, IsPermanent(errors.New("something unexpected")))
		assert.False(t, IsPermanent(nil))
	})
}
