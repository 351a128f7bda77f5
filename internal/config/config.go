package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	FacadeBaseURL      string
	FacadeTimeout      time.Duration
	HistoryMaxRetries  int
	RedisURL           string
	StatusCacheTTL     time.Duration
	PollInterval       time.Duration
	PollMaxAttempts    int
	PollTimeout        time.Duration
	CORSAllowedOrigins []string
	BreakerMinRequests int
	BreakerFailRatio   float64
	BreakerOpenFor     time.Duration
	PaymentTestMode    bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		FacadeBaseURL:      strings.TrimRight(strings.TrimSpace(k.String("FACADE_BASE_URL")), "/"),
		FacadeTimeout:      parseDuration(k.String("FACADE_TIMEOUT"), "10s"),
		HistoryMaxRetries:  parseInt(k.String("FACADE_HISTORY_MAX_RETRIES"), 3),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		StatusCacheTTL:     parseDuration(k.String("STATUS_CACHE_TTL"), "1500ms"),
		PollInterval:       parseDuration(k.String("POLL_INTERVAL"), "2s"),
		PollMaxAttempts:    parseInt(k.String("POLL_MAX_ATTEMPTS"), 0),
		PollTimeout:        parseDuration(k.String("POLL_TIMEOUT"), "120s"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BreakerMinRequests: parseInt(k.String("BREAKER_MIN_REQUESTS"), 5),
		BreakerFailRatio:   parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:     parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),
		PaymentTestMode:    parseBool(k.String("PAYMENT_TEST_MODE")),
	}

	if cfg.FacadeBaseURL == "" {
		return nil, errors.New("FACADE_BASE_URL is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollMaxAttempts <= 0 {
		// The attempt bound is derived so that attempts x interval covers the
		// configured polling timeout.
		cfg.PollMaxAttempts = int(cfg.PollTimeout / cfg.PollInterval)
		if cfg.PollMaxAttempts <= 0 {
			cfg.PollMaxAttempts = 1
		}
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// StatusCacheEnabled reports whether a redis-backed status cache should be wired.
func (c *Config) StatusCacheEnabled() bool {
	return c.RedisURL != "" && c.StatusCacheTTL > 0
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
