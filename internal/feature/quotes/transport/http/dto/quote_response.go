// Package dto はquotesフィーチャーのHTTPレスポンスDTOを定義します。
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/feature/quotes/domain/entity"
	"portfolio_tracker/internal/shared/money"
)

// QuoteResponse は現在値のレスポンスDTOです。取得できない場合は Available=false のみ返します。
type QuoteResponse struct {
	Symbol    string           `json:"symbol"`
	Available bool             `json:"available"`
	Price     *decimal.Decimal `json:"price,omitempty"`     // 文字列としてシリアライズされる
	Display   string           `json:"display,omitempty"`   // 例: "$181.18"
	Currency  string           `json:"currency,omitempty"`  // 通貨コード
	UpdatedAt *time.Time       `json:"updated_at,omitempty"` // プロバイダの更新時刻
	FetchedAt *time.Time       `json:"fetched_at,omitempty"` // 取得時刻
	Stale     bool             `json:"stale,omitempty"`      // 期限切れキャッシュからの値
}

// CandleResponse はロウソク足データのレスポンスDTOです。
type CandleResponse struct {
	Time   string          `json:"time"`   // 日付
	Open   decimal.Decimal `json:"open"`   // 始値
	High   decimal.Decimal `json:"high"`   // 高値
	Low    decimal.Decimal `json:"low"`    // 安値
	Close  decimal.Decimal `json:"close"`  // 終値
	Volume int64           `json:"volume"` // 出来高
}

// HistoryResponse は履歴のレスポンスDTOです。
type HistoryResponse struct {
	Symbol    string           `json:"symbol"`
	Available bool             `json:"available"`
	Period    string           `json:"period,omitempty"`
	Candles   []CandleResponse `json:"candles,omitempty"`
}

// StockInfoResponse は銘柄情報のレスポンスDTOです。
type StockInfoResponse struct {
	Symbol        string          `json:"symbol"`
	Available     bool            `json:"available"`
	Name          string          `json:"name,omitempty"`
	Exchange      string          `json:"exchange,omitempty"`
	Currency      string          `json:"currency,omitempty"`
	Sector        string          `json:"sector,omitempty"`
	Industry      string          `json:"industry,omitempty"`
	High52w       decimal.Decimal `json:"high_52w"`
	Low52w        decimal.Decimal `json:"low_52w"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	MarketCap     *string         `json:"market_cap"`
	PERatio       *string         `json:"pe_ratio"`
	DividendYield *string         `json:"dividend_yield"`
	Beta          *string         `json:"beta"`
}

// PointResponse は比較チャートの1点です。
type PointResponse struct {
	Time  string          `json:"time"`
	Value decimal.Decimal `json:"value"`
}

// SeriesResponse は比較チャートの1系列です。
type SeriesResponse struct {
	Symbol string          `json:"symbol"`
	Points []PointResponse `json:"points"`
}

// Unavailable returns the degraded response for symbol.
func Unavailable(symbol string) QuoteResponse {
	return QuoteResponse{Symbol: symbol, Available: false}
}

// FromQuote はエンティティをレスポンスDTOに変換します。
func FromQuote(q entity.Quote) QuoteResponse {
	price := q.Price
	updated, fetched := q.UpdatedAt, q.FetchedAt
	return QuoteResponse{
		Symbol:    q.Symbol,
		Available: true,
		Price:     &price,
		Display:   money.Format(q.Price, q.Currency),
		Currency:  q.Currency,
		UpdatedAt: &updated,
		FetchedAt: &fetched,
		Stale:     q.Stale,
	}
}

// FromHistory はエンティティをレスポンスDTOに変換します。
func FromHistory(h entity.History) HistoryResponse {
	out := make([]CandleResponse, 0, len(h.Candles))
	for _, x := range h.Candles {
		out = append(out, CandleResponse{
			Time:   x.Time.UTC().Format("2006-01-02"),
			Open:   x.Open,
			High:   x.High,
			Low:    x.Low,
			Close:  x.Close,
			Volume: x.Volume,
		})
	}
	return HistoryResponse{Symbol: h.Symbol, Available: true, Period: string(h.Period), Candles: out}
}

// FromStockInfo はエンティティをレスポンスDTOに変換します。
func FromStockInfo(i entity.StockInfo) StockInfoResponse {
	return StockInfoResponse{
		Symbol:        i.Symbol,
		Available:     true,
		Name:          i.Name,
		Exchange:      i.Exchange,
		Currency:      i.Currency,
		Sector:        i.Sector,
		Industry:      i.Industry,
		High52w:       i.High52w,
		Low52w:        i.Low52w,
		PreviousClose: i.PreviousClose,
		MarketCap:     optional(i.MarketCap),
		PERatio:       optional(i.PERatio),
		DividendYield: optional(i.DividendYield),
		Beta:          optional(i.Beta),
	}
}

// optional は未取得（ゼロ）の指標を null として返します。
func optional(d decimal.Decimal) *string {
	if d.IsZero() {
		return nil
	}
	s := d.String()
	return &s
}

// FromSeries はエンティティをレスポンスDTOに変換します。
func FromSeries(series []entity.Series) []SeriesResponse {
	out := make([]SeriesResponse, 0, len(series))
	for _, s := range series {
		points := make([]PointResponse, 0, len(s.Points))
		for _, p := range s.Points {
			points = append(points, PointResponse{Time: p.Time.UTC().Format("2006-01-02"), Value: p.Value})
		}
		out = append(out, SeriesResponse{Symbol: s.Symbol, Points: points})
	}
	return out
}
