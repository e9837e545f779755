package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_ADDR", "CORS_ENABLED", "JWT_SECRET", "DATABASE_URL", "DB_CONNECT_TIMEOUT",
		"PORTFOLIO_FILE", "QUOTE_CACHE_TTL", "QUOTE_STALE_TTL", "REDIS_HOST", "REDIS_PORT",
		"REDIS_PASSWORD", "TWELVE_DATA_API_KEY", "TWELVE_DATA_BASE_URL", "PROVIDER_TIMEOUT",
		"PROVIDER_RATE_LIMIT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultPortfolioFile, cfg.Storage.File)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, DefaultStaleTTL, cfg.Cache.StaleTTL)
	assert.Equal(t, DefaultBaseURL, cfg.Provider.BaseURL)
	assert.Equal(t, DefaultRateLimit, cfg.Provider.RateLimit)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.RedisEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLThenEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  addr: ":9000"
database:
  url: "sqlite://from-yaml.db"
storage:
  file: "data/p.json"
cache:
  ttl: 2m
  redis:
    host: "cache"
provider:
  rate_limit: 0
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("QUOTE_STALE_TTL", "1h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Database.URL, "env should win over yaml")
	assert.Equal(t, "data/p.json", cfg.Storage.File)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, time.Hour, cfg.Cache.StaleTTL)
	assert.Equal(t, 0, cfg.Provider.RateLimit, "explicit zero disables throttling")
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "QUOTE_CACHE_TTL", "five minutes"},
		{"bad bool", "CORS_ENABLED", "maybe"},
		{"bad int", "PROVIDER_RATE_LIMIT", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cfg.Cache.StaleTTL = time.Minute
	assert.Error(t, cfg.Validate(), "stale ttl shorter than ttl")

	cfg.Cache.StaleTTL = time.Hour
	cfg.Cache.TTL = -time.Second
	assert.Error(t, cfg.Validate())
}
