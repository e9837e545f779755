package di

import (
	"context"
	"log/slog"

	"portfolio_tracker/internal/config"
	portfoliohandler "portfolio_tracker/internal/feature/portfolio/transport/handler"
	portfoliousecase "portfolio_tracker/internal/feature/portfolio/usecase"
	quotehandler "portfolio_tracker/internal/feature/quotes/transport/handler"
	quoteusecase "portfolio_tracker/internal/feature/quotes/usecase"
	"portfolio_tracker/internal/platform/cache"
	healthhandler "portfolio_tracker/internal/platform/http/handler"
)

// App bundles the usecases shared by the HTTP server and the terminal client.
type App struct {
	Quotes     quotehandler.QuoteUsecase
	Portfolios portfoliohandler.PortfolioUsecase
	Cache      *cache.QuoteCache
	Store      *PortfolioStore

	closeCache func()
}

// NewApp wires provider, cache, portfolio store and usecases from cfg.
func NewApp(ctx context.Context, cfg *config.Config) *App {
	market := NewMarket(cfg)
	quoteCache, closeCache := NewQuoteCache(ctx, cfg, market)
	quotes := quoteusecase.NewQuoteUsecase(quoteCache, market)

	store := NewPortfolioStore(ctx, cfg)
	portfolios := portfoliousecase.NewPortfolioUsecase(store.Repo, quotes)

	return &App{
		Quotes:     quotes,
		Portfolios: portfolios,
		Cache:      quoteCache,
		Store:      store,
		closeCache: closeCache,
	}
}

// HealthInfo reports the active backends for the health endpoint.
func (a *App) HealthInfo(ctx context.Context) healthhandler.Info {
	return healthhandler.Info{
		Store:        a.Store.Backend,
		Cache:        a.Cache.StoreKind(),
		CachedQuotes: a.Cache.Len(ctx),
	}
}

// Close releases the database connection and the Redis client.
func (a *App) Close() {
	if a.closeCache != nil {
		a.closeCache()
	}
	if err := a.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}
