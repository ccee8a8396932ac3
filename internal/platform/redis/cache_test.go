package redis

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("accepts a valid URL", func(t *testing.T) {
		c, err := New("redis://localhost:6379/0", logger)
		require.NoError(t, err)
		assert.NotNil(t, c)
		assert.NoError(t, c.Close())
	})

	t.Run("rejects a malformed URL", func(t *testing.T) {
		_, err := New("not-a-redis-url", logger)
		assert.Error(t, err)
	})
}

func TestMakeKey(t *testing.T) {
	assert.Equal(t, "tasker:task_output:abc", makeKey("task_output:abc"))
}
