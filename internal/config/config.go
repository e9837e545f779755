// Package config loads application configuration from an optional YAML file
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr      string `yaml:"addr"`
		CORS      bool   `yaml:"cors"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Database struct {
		URL            string        `yaml:"url"`
		ConnectTimeout time.Duration `yaml:"connect_timeout"`
	} `yaml:"database"`
	Storage struct {
		File string `yaml:"file"`
	} `yaml:"storage"`
	Cache struct {
		TTL      time.Duration `yaml:"ttl"`
		StaleTTL time.Duration `yaml:"stale_ttl"`
		Redis    struct {
			Host     string `yaml:"host"`
			Port     string `yaml:"port"`
			Password string `yaml:"password"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Provider struct {
		APIKey    string        `yaml:"api_key"`
		BaseURL   string        `yaml:"base_url"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit int           `yaml:"rate_limit"`
	} `yaml:"provider"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Defaults.
const (
	DefaultAddr           = ":8080"
	DefaultPortfolioFile  = "portfolios.json"
	DefaultBaseURL        = "https://api.twelvedata.com"
	DefaultCacheTTL       = 5 * time.Minute
	DefaultStaleTTL       = 24 * time.Hour
	DefaultConnectTimeout = 10 * time.Second
	DefaultTimeout        = 10 * time.Second
	DefaultRateLimit      = 8
)

// Path returns the YAML config path from CONFIG_PATH, or "config.yaml".
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Provider.RateLimit = -1

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CORS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CORS_ENABLED: %w", err)
		}
		cfg.Server.CORS = b
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if err := envDuration("DB_CONNECT_TIMEOUT", &cfg.Database.ConnectTimeout); err != nil {
		return err
	}
	if v := os.Getenv("PORTFOLIO_FILE"); v != "" {
		cfg.Storage.File = v
	}
	if err := envDuration("QUOTE_CACHE_TTL", &cfg.Cache.TTL); err != nil {
		return err
	}
	if err := envDuration("QUOTE_STALE_TTL", &cfg.Cache.StaleTTL); err != nil {
		return err
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Cache.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		cfg.Cache.Redis.Port = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("TWELVE_DATA_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("TWELVE_DATA_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if err := envDuration("PROVIDER_TIMEOUT", &cfg.Provider.Timeout); err != nil {
		return err
	}
	if v := os.Getenv("PROVIDER_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PROVIDER_RATE_LIMIT: %w", err)
		}
		cfg.Provider.RateLimit = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Storage.File == "" {
		cfg.Storage.File = DefaultPortfolioFile
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.StaleTTL == 0 {
		cfg.Cache.StaleTTL = DefaultStaleTTL
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = DefaultBaseURL
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = DefaultTimeout
	}
	// -1 marks "unset"; an explicit 0 disables throttling.
	if cfg.Provider.RateLimit < 0 {
		cfg.Provider.RateLimit = DefaultRateLimit
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Cache.StaleTTL < c.Cache.TTL {
		return fmt.Errorf("cache.stale_ttl must not be shorter than cache.ttl")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}
	if c.Database.ConnectTimeout <= 0 {
		return fmt.Errorf("database.connect_timeout must be positive")
	}
	if c.Storage.File == "" {
		return fmt.Errorf("storage.file is required")
	}
	return nil
}

// RedisEnabled reports whether a Redis host is configured.
func (c *Config) RedisEnabled() bool {
	return c.Cache.Redis.Host != ""
}

// RedisAddr returns host:port for the Redis client, defaulting the port to 6379.
func (c *Config) RedisAddr() string {
	port := c.Cache.Redis.Port
	if port == "" {
		port = "6379"
	}
	return c.Cache.Redis.Host + ":" + port
}
