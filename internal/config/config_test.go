package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("CITYSTREAM_ACCOUNT_ID", "acct-1")
	t.Setenv("CITYSTREAM_TOKEN", "tok")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "wss://stream.openclaw.city/v1/stream", cfg.ServerURL)
	require.Equal(t, time.Second, cfg.BackoffBase)
	require.Equal(t, 30*time.Second, cfg.BackoffMax)
	require.Equal(t, 30*time.Second, cfg.KeepAliveInterval)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CITYSTREAM_SERVER_URL", "ws://localhost:9100/v1/stream")
	t.Setenv("CITYSTREAM_BACKOFF_BASE", "250ms")
	t.Setenv("CITYSTREAM_BACKOFF_MAX", "10s")
	t.Setenv("CITYSTREAM_KEEPALIVE_INTERVAL", "5s")
	t.Setenv("CITYSTREAM_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:9100/v1/stream", cfg.ServerURL)
	require.Equal(t, 250*time.Millisecond, cfg.BackoffBase)
	require.Equal(t, 10*time.Second, cfg.BackoffMax)
	require.Equal(t, 5*time.Second, cfg.KeepAliveInterval)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("CITYSTREAM_ACCOUNT_ID", "")
	t.Setenv("CITYSTREAM_TOKEN", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("CITYSTREAM_ACCOUNT_ID", "acct-1")
	_, err = Load()
	require.Error(t, err)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("CITYSTREAM_BACKOFF_BASE", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.BackoffBase)
}

func TestLoad_BaseAboveMaxRejected(t *testing.T) {
	setRequired(t)
	t.Setenv("CITYSTREAM_BACKOFF_BASE", "1m")
	t.Setenv("CITYSTREAM_BACKOFF_MAX", "10s")

	_, err := Load()
	require.Error(t, err)
}
