// Package di provides dependency injection factories for creating application components.
package di

import (
	"log/slog"
	"time"

	"portfolio_tracker/internal/config"
	"portfolio_tracker/internal/platform/externalapi/twelvedata"
	infrahttp "portfolio_tracker/internal/platform/http"
	"portfolio_tracker/internal/shared/ratelimiter"
)

// NewMarket creates a fully configured TwelveDataMarket with HTTP client and
// a per-minute rate limiter shared by every provider call.
func NewMarket(cfg *config.Config) *twelvedata.TwelveDataMarket {
	tdCfg := twelvedata.NewConfig(cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.Provider.Timeout)
	if tdCfg.TwelveDataAPIKey == "" {
		slog.Warn("TWELVE_DATA_API_KEY is not set; quotes will be reported as unavailable")
	}
	httpClient := infrahttp.NewHTTPClient(tdCfg.Timeout)
	limiter := ratelimiter.NewRateLimiter(cfg.Provider.RateLimit, time.Minute)
	return twelvedata.NewTwelveDataMarket(tdCfg, httpClient, limiter)
}
