package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/visago/payments/internal/config"
)

func TestLoadRequiresFacadeBaseURL(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"FACADE_BASE_URL": "",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "FACADE_BASE_URL")
}

func TestLoadDerivesAttemptBound(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"FACADE_BASE_URL":   "https://backend.internal/payments",
		"POLL_INTERVAL":     "2s",
		"POLL_TIMEOUT":      "120s",
		"POLL_MAX_ATTEMPTS": "",
	})
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.PollInterval)
	require.Equal(t, 60, cfg.PollMaxAttempts)
}

func TestLoadExplicitAttemptsWinOverTimeout(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"FACADE_BASE_URL":   "https://backend.internal/payments",
		"POLL_INTERVAL":     "1s",
		"POLL_TIMEOUT":      "120s",
		"POLL_MAX_ATTEMPTS": "10",
	})
	require.NoError(t, err)
	require.Equal(t, 10, cfg.PollMaxAttempts)
}

func TestStatusCacheEnabled(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"FACADE_BASE_URL":  "https://backend.internal/payments",
		"REDIS_URL":        "redis://localhost:6379/0",
		"STATUS_CACHE_TTL": "500ms",
	})
	require.NoError(t, err)
	require.True(t, cfg.StatusCacheEnabled())

	cfg, err = config.LoadForTests(map[string]string{
		"FACADE_BASE_URL": "https://backend.internal/payments",
		"REDIS_URL":       "",
	})
	require.NoError(t, err)
	require.False(t, cfg.StatusCacheEnabled())
}

func TestHTTPAddr(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"FACADE_BASE_URL": "https://backend.internal/payments",
		"PORT":            "9090",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}
