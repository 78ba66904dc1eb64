package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                 int    `env:"PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL,required"`
	RedisURL             string `env:"REDIS_URL,required"`
	RingTimeoutMs        int    `env:"RING_TIMEOUT_MS" envDefault:"30000"`
	FCMServerKey         string `env:"FCM_SERVER_KEY"`
	FCMEndpoint          string `env:"FCM_ENDPOINT" envDefault:"https://fcm.googleapis.com/fcm/send"`
	HistoryRetentionDays int    `env:"HISTORY_RETENTION_DAYS" envDefault:"90"`
	RateLimitPerMin      int    `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) RingTimeout() time.Duration {
	return time.Duration(c.RingTimeoutMs) * time.Millisecond
}

func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.HistoryRetentionDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.RingTimeoutMs <= 0 {
		return fmt.Errorf("RING_TIMEOUT_MS must be positive, got %d", c.RingTimeoutMs)
	}
	if c.HistoryRetentionDays <= 0 {
		return fmt.Errorf("HISTORY_RETENTION_DAYS must be positive, got %d", c.HistoryRetentionDays)
	}

	if isProduction {
		if c.FCMServerKey == "" {
			log.Warn().Msg("FCM_SERVER_KEY is empty in production: offline receivers will not get push notifications")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
