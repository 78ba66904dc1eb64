package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("RingTimeout converts milliseconds to duration", func(t *testing.T) {
		cfg := &Config{RingTimeoutMs: 30000}
		assert.Equal(t, 30*time.Second, cfg.RingTimeout())
	})

	t.Run("HistoryRetention converts days to duration", func(t *testing.T) {
		cfg := &Config{HistoryRetentionDays: 90}
		assert.Equal(t, 90*24*time.Hour, cfg.HistoryRetention())
	})
}

func TestValidate(t *testing.T) {
	t.Run("rejects non-positive ring timeout", func(t *testing.T) {
		cfg := &Config{RingTimeoutMs: 0, HistoryRetentionDays: 90}
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects non-positive retention", func(t *testing.T) {
		cfg := &Config{RingTimeoutMs: 30000, HistoryRetentionDays: -1}
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("accepts defaults", func(t *testing.T) {
		cfg := &Config{RingTimeoutMs: 30000, HistoryRetentionDays: 90}
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("production without FCM key only warns", func(t *testing.T) {
		cfg := &Config{RingTimeoutMs: 30000, HistoryRetentionDays: 90}
		assert.NoError(t, cfg.Validate(true))
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                   os.Getenv("PORT"),
		"DATABASE_URL":           os.Getenv("DATABASE_URL"),
		"REDIS_URL":              os.Getenv("REDIS_URL"),
		"RING_TIMEOUT_MS":        os.Getenv("RING_TIMEOUT_MS"),
		"HISTORY_RETENTION_DAYS": os.Getenv("HISTORY_RETENTION_DAYS"),
		"RATE_LIMIT_PER_MIN":     os.Getenv("RATE_LIMIT_PER_MIN"),
		"LOG_LEVEL":              os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("RING_TIMEOUT_MS")
		os.Unsetenv("HISTORY_RETENTION_DAYS")
		os.Unsetenv("RATE_LIMIT_PER_MIN")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, 30000, cfg.RingTimeoutMs)
		assert.Equal(t, 90, cfg.HistoryRetentionDays)
		assert.Equal(t, 60, cfg.RateLimitPerMin)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("fails without required database url", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("overrides ring timeout", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("RING_TIMEOUT_MS", "5000")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, cfg.RingTimeout())
	})
}
