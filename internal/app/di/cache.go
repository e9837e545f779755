package di

import (
	"context"
	"log/slog"
	"time"

	"portfolio_tracker/internal/config"
	"portfolio_tracker/internal/feature/quotes/usecase"
	"portfolio_tracker/internal/platform/cache"
	infraredis "portfolio_tracker/internal/platform/redis"
)

// redisPingTimeout bounds the startup ping of the optional Redis store.
const redisPingTimeout = 3 * time.Second

// NewQuoteCache wraps provider with the TTL cache.
// Entries live in Redis when it is configured and reachable, otherwise in process memory.
// The returned func releases the Redis client, if any.
func NewQuoteCache(ctx context.Context, cfg *config.Config, provider usecase.QuoteProvider) (*cache.QuoteCache, func()) {
	store, closeFn := newEntryStore(ctx, cfg)
	c := cache.NewQuoteCache(provider, store, cfg.Cache.TTL, cfg.Cache.StaleTTL)
	slog.Info("quote cache ready", "store", c.StoreKind(), "ttl", cfg.Cache.TTL, "stale_ttl", cfg.Cache.StaleTTL)
	return c, closeFn
}

func newEntryStore(ctx context.Context, cfg *config.Config) (cache.EntryStore, func()) {
	if !cfg.RedisEnabled() {
		return cache.NewMemoryStore(), func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	rdb, err := infraredis.NewRedisClient(pingCtx, cfg.RedisAddr(), cfg.Cache.Redis.Password)
	if err != nil {
		slog.Warn("Redis unavailable; using in-memory quote cache", "address", cfg.RedisAddr())
		return cache.NewMemoryStore(), func() {}
	}
	return cache.NewRedisStore(rdb, "quotes"), func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close Redis client", "error", err)
		}
	}
}
