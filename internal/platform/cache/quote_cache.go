// Package cache provides the TTL quote cache and its entry stores.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"portfolio_tracker/internal/feature/quotes/domain/entity"
	"portfolio_tracker/internal/feature/quotes/usecase"
)

// Defaults applied by NewQuoteCache.
const (
	DefaultTTL      = 5 * time.Minute
	DefaultStaleTTL = 24 * time.Hour
)

// EntryStore holds cached quotes keyed by symbol. Quote.FetchedAt is the entry's
// fetch timestamp.
type EntryStore interface {
	Load(ctx context.Context, symbol string) (entity.Quote, bool, error)
	// Save stores q; the store may discard it after retain has passed.
	Save(ctx context.Context, q entity.Quote, retain time.Duration) error
	Delete(ctx context.Context, symbol string) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Kind() string
}

// QuoteCache decorates a QuoteProvider with a TTL cache.
//
// A fresh entry (younger than ttl) is returned without calling the provider.
// Otherwise the provider is called once per symbol, shared by concurrent
// callers. When that call fails and an entry younger than staleTTL exists, the
// old quote is returned with Stale set; with no such entry the result is
// usecase.ErrQuoteUnavailable. Failed refreshes never modify the stored entry.
type QuoteCache struct {
	provider usecase.QuoteProvider
	store    EntryStore
	ttl      time.Duration
	staleTTL time.Duration
	now      func() time.Time
	group    singleflight.Group
}

var _ usecase.QuoteCache = (*QuoteCache)(nil)

// NewQuoteCache decorates provider with caching.
// If ttl is 0 it defaults to 5 minutes; staleTTL is raised to at least ttl.
// A nil store means an in-memory store.
func NewQuoteCache(provider usecase.QuoteProvider, store EntryStore, ttl, staleTTL time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if staleTTL <= 0 {
		staleTTL = DefaultStaleTTL
	}
	if staleTTL < ttl {
		staleTTL = ttl
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &QuoteCache{
		provider: provider,
		store:    store,
		ttl:      ttl,
		staleTTL: staleTTL,
		now:      time.Now,
	}
}

// Get returns the quote for symbol.
func (c *QuoteCache) Get(ctx context.Context, symbol string) (entity.Quote, error) {
	now := c.now()

	cached, ok := c.load(ctx, symbol)
	if ok && now.Sub(cached.FetchedAt) >= c.staleTTL {
		// too old even for degraded reads
		if err := c.store.Delete(ctx, symbol); err != nil {
			slog.Warn("failed to drop expired quote", "symbol", symbol, "error", err)
		}
		ok = false
	}
	if ok && now.Sub(cached.FetchedAt) < c.ttl {
		return cached, nil
	}

	// The shared fetch must outlive any single caller; each caller still
	// stops waiting when its own ctx ends.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(symbol, func() (any, error) {
		return c.refresh(fetchCtx, symbol)
	})
	var err error
	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(entity.Quote), nil
		}
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	if ok {
		slog.Warn("quote refresh failed, serving stale quote",
			"symbol", symbol, "age", cached.Age(now), "error", err)
		cached.Stale = true
		return cached, nil
	}
	slog.Warn("quote unavailable", "symbol", symbol, "error", err)
	return entity.Quote{}, fmt.Errorf("%w: %s: %w", usecase.ErrQuoteUnavailable, symbol, err)
}

func (c *QuoteCache) refresh(ctx context.Context, symbol string) (entity.Quote, error) {
	q, err := c.provider.GetQuote(ctx, symbol)
	if err != nil {
		return entity.Quote{}, err
	}
	q.Symbol = symbol
	q.FetchedAt = c.now().UTC()
	q.Stale = false

	// Best effort: a store failure still returns the fresh quote
	if err := c.store.Save(ctx, q, c.staleTTL); err != nil {
		slog.Warn("failed to cache quote", "symbol", symbol, "store", c.store.Kind(), "error", err)
	}
	return q, nil
}

func (c *QuoteCache) load(ctx context.Context, symbol string) (entity.Quote, bool) {
	q, ok, err := c.store.Load(ctx, symbol)
	if err != nil {
		slog.Warn("quote cache read failed", "symbol", symbol, "store", c.store.Kind(), "error", err)
		return entity.Quote{}, false
	}
	return q, ok
}

// Invalidate drops the entry for symbol.
func (c *QuoteCache) Invalidate(ctx context.Context, symbol string) error {
	return c.store.Delete(ctx, symbol)
}

// Clear drops every entry.
func (c *QuoteCache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Len returns the number of stored entries, fresh or stale.
func (c *QuoteCache) Len(ctx context.Context) int {
	n, err := c.store.Len(ctx)
	if err != nil {
		slog.Warn("quote cache len failed", "store", c.store.Kind(), "error", err)
		return 0
	}
	return n
}

// StoreKind reports which entry store backs the cache.
func (c *QuoteCache) StoreKind() string {
	return c.store.Kind()
}
