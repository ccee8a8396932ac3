package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 100, cfg.Queue.Size)
	assert.Equal(t, 4, cfg.Worker.Count)
	assert.Equal(t, 3, cfg.Worker.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Worker.RetryDelay)
	assert.Less(t, cfg.Worker.SoftTimeLimit, cfg.Worker.HardTimeLimit)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 10000, cfg.Tasks.MaxPromptLength)
	assert.Equal(t, 100, cfg.Tasks.MaxCityLength)
	assert.InDelta(t, 1e15, cfg.Tasks.MaxNumberValue, 1)
	assert.Empty(t, cfg.Cache.RedisURL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TASKER_SERVER_PORT", "9090")
	t.Setenv("TASKER_SERVER_LOG_LEVEL", "debug")
	t.Setenv("TASKER_WORKER_MAX_RETRIES", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 1, cfg.Worker.MaxRetries)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("TASKER_SERVER_LOG_LEVEL", "verbose")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("TASKER_SERVER_PORT", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}
