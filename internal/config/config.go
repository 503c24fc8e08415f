// Package config loads daemon configuration from the environment with sane
// defaults. Schema-validated config files are a host concern, not ours.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the configuration surface consumed by the stream core.
type Config struct {
	// ServerURL is the WebSocket endpoint of the city server.
	ServerURL string
	// AccountID identifies the account to stream for.
	AccountID string
	// Token is the account's secret credential.
	Token string

	// BackoffBase is the reconnect delay for attempt 0.
	BackoffBase time.Duration
	// BackoffMax caps the reconnect delay.
	BackoffMax time.Duration
	// KeepAliveInterval is the period between liveness probes.
	KeepAliveInterval time.Duration

	// LogLevel is the logging threshold ("trace".."error").
	LogLevel string
}

// Load reads configuration from the environment and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ServerURL:         getenv("CITYSTREAM_SERVER_URL", "wss://stream.openclaw.city/v1/stream"),
		AccountID:         os.Getenv("CITYSTREAM_ACCOUNT_ID"),
		Token:             os.Getenv("CITYSTREAM_TOKEN"),
		BackoffBase:       getenvDuration("CITYSTREAM_BACKOFF_BASE", time.Second),
		BackoffMax:        getenvDuration("CITYSTREAM_BACKOFF_MAX", 30*time.Second),
		KeepAliveInterval: getenvDuration("CITYSTREAM_KEEPALIVE_INTERVAL", 30*time.Second),
		LogLevel:          getenv("CITYSTREAM_LOG_LEVEL", "info"),
	}

	if cfg.AccountID == "" {
		return nil, fmt.Errorf("CITYSTREAM_ACCOUNT_ID is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("CITYSTREAM_TOKEN is required")
	}
	if cfg.BackoffBase > cfg.BackoffMax {
		return nil, fmt.Errorf("backoff base %v exceeds max %v", cfg.BackoffBase, cfg.BackoffMax)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
