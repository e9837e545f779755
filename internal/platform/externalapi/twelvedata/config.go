// Package twelvedata provides a client for the Twelve Data stock market API.
package twelvedata

import "time"

// Defaults applied by NewConfig.
const (
	DefaultBaseURL = "https://api.twelvedata.com"
	DefaultTimeout = 10 * time.Second
)

// Config holds configuration for the Twelve Data API client.
type Config struct {
	TwelveDataAPIKey string        // API key for authentication
	BaseURL          string        // Base URL for the API (e.g., "https://api.twelvedata.com")
	Timeout          time.Duration // HTTP request timeout
}

// NewConfig returns a Config with empty fields replaced by defaults.
func NewConfig(apiKey, baseURL string, timeout time.Duration) Config {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return Config{
		TwelveDataAPIKey: apiKey,
		BaseURL:          baseURL,
		Timeout:          timeout,
	}
}
