// Package usecase は株価取得のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/feature/quotes/domain/entity"
)

// QuoteProvider は銘柄の現在値を取得します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (entity.Quote, error)
}

// MarketRepository は外部の株価プロバイダを抽象化します。
type MarketRepository interface {
	QuoteProvider
	// GetTimeSeries は指定した間隔と件数の足を取得します。順序は問いません。
	GetTimeSeries(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error)
	GetStockInfo(ctx context.Context, symbol string) (entity.StockInfo, error)
}

// QuoteCache はTTL付きの現在値キャッシュです。
// Get は取得できない場合 ErrQuoteUnavailable を返します。
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (entity.Quote, error)
	Clear(ctx context.Context) error
}

var hundred = decimal.NewFromInt(100)

// quoteUsecase は株価取得のユースケースを定義します。
type quoteUsecase struct {
	cache  QuoteCache
	market MarketRepository
}

// NewQuoteUsecase はquoteUsecaseの新しいインスタンスを生成します。
func NewQuoteUsecase(cache QuoteCache, market MarketRepository) *quoteUsecase {
	return &quoteUsecase{cache: cache, market: market}
}

// GetQuote は銘柄の現在値をキャッシュ経由で取得します。
func (u *quoteUsecase) GetQuote(ctx context.Context, symbol string) (entity.Quote, error) {
	symbol = entity.NormalizeSymbol(symbol)
	if symbol == "" {
		return entity.Quote{}, ErrInvalidSymbol
	}
	return u.cache.Get(ctx, symbol)
}

// GetQuotes は複数銘柄の現在値を取得します。取得できなかった銘柄は結果に含まれません。
func (u *quoteUsecase) GetQuotes(ctx context.Context, symbols []string) map[string]entity.Quote {
	out := make(map[string]entity.Quote, len(symbols))
	for _, s := range symbols {
		s = entity.NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, done := out[s]; done {
			continue
		}
		q, err := u.cache.Get(ctx, s)
		if err != nil {
			continue
		}
		out[s] = q
	}
	return out
}

// GetHistory は銘柄の履歴を取得します。キャッシュは使用しません。
// period が空の場合は entity.DefaultPeriod を使用します。
func (u *quoteUsecase) GetHistory(ctx context.Context, symbol, period string) (entity.History, error) {
	symbol = entity.NormalizeSymbol(symbol)
	if symbol == "" {
		return entity.History{}, ErrInvalidSymbol
	}
	p, ok := entity.ParsePeriod(period)
	if !ok {
		return entity.History{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	candles, err := u.market.GetTimeSeries(ctx, symbol, p.Interval(), p.OutputSize())
	if err != nil {
		slog.Warn("history fetch failed", "symbol", symbol, "period", p, "error", err)
		return entity.History{}, fmt.Errorf("%w: %s: %w", ErrHistoryUnavailable, symbol, err)
	}
	if len(candles) == 0 {
		return entity.History{}, fmt.Errorf("%w: %s: no data", ErrHistoryUnavailable, symbol)
	}

	slices.SortFunc(candles, func(a, b entity.Candle) int {
		return a.Time.Compare(b.Time)
	})
	return entity.History{Symbol: symbol, Period: p, Candles: candles}, nil
}

// GetHistories は複数銘柄の履歴を取得します。失敗した銘柄はスキップされます。
func (u *quoteUsecase) GetHistories(ctx context.Context, symbols []string, period string) (map[string]entity.History, error) {
	if _, ok := entity.ParsePeriod(period); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	out := make(map[string]entity.History, len(symbols))
	for _, s := range symbols {
		s = entity.NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, done := out[s]; done {
			continue
		}
		h, err := u.GetHistory(ctx, s, period)
		if err != nil {
			continue
		}
		out[s] = h
	}
	return out, nil
}

// GetStockInfo は銘柄の基本情報を取得します。
func (u *quoteUsecase) GetStockInfo(ctx context.Context, symbol string) (entity.StockInfo, error) {
	symbol = entity.NormalizeSymbol(symbol)
	if symbol == "" {
		return entity.StockInfo{}, ErrInvalidSymbol
	}
	info, err := u.market.GetStockInfo(ctx, symbol)
	if err != nil {
		slog.Warn("stock info fetch failed", "symbol", symbol, "error", err)
		return entity.StockInfo{}, fmt.Errorf("%w: %s: %w", ErrQuoteUnavailable, symbol, err)
	}
	return info, nil
}

// ValidateSymbol は銘柄の現在値が取得できるかどうかを返します。
func (u *quoteUsecase) ValidateSymbol(ctx context.Context, symbol string) bool {
	_, err := u.GetQuote(ctx, symbol)
	return err == nil
}

// Compare は各銘柄の終値を先頭を100として正規化した系列を返します。
// 履歴が取得できない銘柄は結果から除外されます。
func (u *quoteUsecase) Compare(ctx context.Context, symbols []string, period string) ([]entity.Series, error) {
	histories, err := u.GetHistories(ctx, symbols, period)
	if err != nil {
		return nil, err
	}

	out := make([]entity.Series, 0, len(histories))
	seen := map[string]struct{}{}
	for _, s := range symbols {
		s = entity.NormalizeSymbol(s)
		h, ok := histories[s]
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}

		base := h.Candles[0].Close
		if base.IsZero() {
			continue
		}
		points := make([]entity.Point, 0, len(h.Candles))
		for _, c := range h.Candles {
			points = append(points, entity.Point{
				Time:  c.Time,
				Value: c.Close.Div(base).Mul(hundred).Round(4),
			})
		}
		out = append(out, entity.Series{Symbol: s, Points: points})
	}
	return out, nil
}

// ClearCache はキャッシュ済みの現在値をすべて破棄します。
func (u *quoteUsecase) ClearCache(ctx context.Context) error {
	return u.cache.Clear(ctx)
}
