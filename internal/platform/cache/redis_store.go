package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/feature/quotes/domain/entity"
)

// RedisStore is an EntryStore shared between processes through Redis.
// Entries expire in Redis after the retain duration passed to Save.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

var _ EntryStore = (*RedisStore)(nil)

// quoteRecord is the JSON form of a cached quote.
type quoteRecord struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// NewRedisStore returns a RedisStore. If namespace is empty, it uses "quotes".
func NewRedisStore(rdb *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "quotes"
	}
	return &RedisStore{rdb: rdb, namespace: namespace}
}

func (s *RedisStore) Load(ctx context.Context, symbol string) (entity.Quote, bool, error) {
	key := s.cacheKey(symbol)
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.Quote{}, false, nil
	}
	if err != nil {
		return entity.Quote{}, false, err
	}

	var rec quoteRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		// Delete corrupted cache entry
		_ = s.rdb.Del(ctx, key).Err()
		return entity.Quote{}, false, nil
	}
	return entity.Quote{
		Symbol:    rec.Symbol,
		Price:     rec.Price,
		Currency:  rec.Currency,
		UpdatedAt: rec.UpdatedAt.UTC(),
		FetchedAt: rec.FetchedAt.UTC(),
	}, true, nil
}

func (s *RedisStore) Save(ctx context.Context, q entity.Quote, retain time.Duration) error {
	b, err := json.Marshal(quoteRecord{
		Symbol:    q.Symbol,
		Price:     q.Price,
		Currency:  q.Currency,
		UpdatedAt: q.UpdatedAt,
		FetchedAt: q.FetchedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}
	return s.rdb.Set(ctx, s.cacheKey(q.Symbol), b, retain).Err()
}

func (s *RedisStore) Delete(ctx context.Context, symbol string) error {
	return s.rdb.Del(ctx, s.cacheKey(symbol)).Err()
}

// Clear deletes every key in the namespace.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.scan(ctx, func(keys []string) error {
		return s.rdb.Del(ctx, keys...).Err()
	})
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	err := s.scan(ctx, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

func (s *RedisStore) Kind() string { return "redis" }

// cacheKey generates the cache key for a symbol.
func (s *RedisStore) cacheKey(symbol string) string {
	return fmt.Sprintf("%s:%s", s.namespace, safe(symbol))
}

// scan walks all namespace keys with SCAN, calling fn for each non-empty batch.
func (s *RedisStore) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, cur, err := s.rdb.Scan(ctx, cursor, s.namespace+":*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
