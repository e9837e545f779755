package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_tracker/internal/shared/ratelimiter"
)

func newTestMarket(t *testing.T, h http.HandlerFunc) *TwelveDataMarket {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewTwelveDataMarket(NewConfig("test-key", server.URL, 0), server.Client(), nil)
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := NewConfig("k", "", 0)
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected base url %q, got %q", DefaultBaseURL, cfg.BaseURL)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Timeout)
	}

	cfg = NewConfig("k", "http://local", time.Second)
	if cfg.BaseURL != "http://local" || cfg.Timeout != time.Second {
		t.Errorf("explicit values not preserved: %+v", cfg)
	}
}

func TestTwelveDataMarket_GetQuote_Success(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		jsonHandler(http.StatusOK, `{
			"symbol": "AAPL",
			"name": "Apple Inc",
			"exchange": "NASDAQ",
			"currency": "USD",
			"datetime": "2024-01-05",
			"timestamp": 1704470400,
			"close": "181.18000",
			"previous_close": "181.91000",
			"fifty_two_week": {"low": "124.17000", "high": "199.62000"}
		}`)(w, r)
	})
	fixed := time.Date(2024, 1, 5, 21, 0, 0, 0, time.UTC)
	market.now = func() time.Time { return fixed }

	q, err := market.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "181.18", q.Price.String())
	assert.Equal(t, "USD", q.Currency)
	assert.True(t, q.UpdatedAt.Equal(time.Unix(1704470400, 0)))
	assert.True(t, q.FetchedAt.Equal(fixed))
	assert.False(t, q.Stale)
}

func TestTwelveDataMarket_GetQuote_DatetimeFallback(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, jsonHandler(http.StatusOK,
		`{"symbol":"7203.T","currency":"JPY","datetime":"2024-01-05 15:00:00","close":"2500"}`))

	q, err := market.GetQuote(context.Background(), "7203.T")
	require.NoError(t, err)
	assert.True(t, q.UpdatedAt.Equal(time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)))
}

// TestTwelveDataMarket_GetQuote_Errors は無効な銘柄やHTTPエラーがエラーとして返ることを検証します。
func TestTwelveDataMarket_GetQuote_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error body", http.StatusOK, `{"code":404,"message":"symbol ZZZZ not found","status":"error"}`, "symbol ZZZZ not found"},
		{"http error with message", http.StatusUnauthorized, `{"code":401,"message":"invalid api key","status":"error"}`, "twelvedata http 401: invalid api key"},
		{"http error no body", http.StatusServiceUnavailable, ``, "twelvedata http 503"},
		{"empty quote", http.StatusOK, `{}`, "empty quote"},
		{"bad price", http.StatusOK, `{"close":"abc","timestamp":1}`, "parse close"},
		{"zero price", http.StatusOK, `{"close":"0","timestamp":1}`, "non-positive price"},
		{"bad datetime", http.StatusOK, `{"close":"1","datetime":"yesterday"}`, "parse time"},
		{"invalid json", http.StatusOK, `{invalid`, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			market := newTestMarket(t, jsonHandler(tt.status, tt.body))
			_, err := market.GetQuote(context.Background(), "ZZZZ")
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

// stockInfoHandler は /quote・/profile・/statistics をパスごとに返すスタブです。
func stockInfoHandler(bodies map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":404,"message":"not found","status":"error"}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}
}

const infoQuoteBody = `{
	"symbol": "AAPL",
	"name": "Apple Inc",
	"exchange": "NASDAQ",
	"currency": "USD",
	"close": "181.18",
	"previous_close": "181.91",
	"fifty_two_week": {"low": "124.17", "high": "199.62"}
}`

func TestTwelveDataMarket_GetStockInfo(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, stockInfoHandler(map[string]string{
		"/quote":   infoQuoteBody,
		"/profile": `{"symbol":"AAPL","name":"Apple Inc","sector":"Technology","industry":"Consumer Electronics"}`,
		"/statistics": `{"statistics":{
			"valuations_metrics":{"market_capitalization":2830000000000,"trailing_pe":29.53},
			"stock_price_summary":{"beta":1.29},
			"dividends_and_splits":{"forward_annual_dividend_yield":null,"trailing_annual_dividend_yield":0.0051}
		}}`,
	}))

	info, err := market.GetStockInfo(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", info.Name)
	assert.Equal(t, "NASDAQ", info.Exchange)
	assert.Equal(t, "199.62", info.High52w.String())
	assert.Equal(t, "124.17", info.Low52w.String())
	assert.Equal(t, "181.91", info.PreviousClose.String())
	assert.Equal(t, "Technology", info.Sector)
	assert.Equal(t, "Consumer Electronics", info.Industry)
	assert.Equal(t, "2830000000000", info.MarketCap.String())
	assert.Equal(t, "29.53", info.PERatio.String())
	assert.Equal(t, "0.0051", info.DividendYield.String())
	assert.Equal(t, "1.29", info.Beta.String())
}

// TestTwelveDataMarket_GetStockInfo_QuoteOnly は /profile と /statistics が使えなくても基本情報を返すことを検証します。
func TestTwelveDataMarket_GetStockInfo_QuoteOnly(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, stockInfoHandler(map[string]string{
		"/quote":      infoQuoteBody,
		"/statistics": `{"code":403,"message":"/statistics is available exclusively with pro plan","status":"error"}`,
	}))

	info, err := market.GetStockInfo(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", info.Name)
	assert.Empty(t, info.Sector)
	assert.True(t, info.MarketCap.IsZero())
	assert.True(t, info.Beta.IsZero())

	empty := newTestMarket(t, jsonHandler(http.StatusOK, `{}`))
	_, err = empty.GetStockInfo(context.Background(), "ZZZZ")
	assert.Error(t, err)
}

func TestTwelveDataMarket_GetTimeSeries_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request parameters
		if r.URL.Query().Get("symbol") != "AAPL" {
			t.Errorf("expected symbol AAPL, got %s", r.URL.Query().Get("symbol"))
		}
		if r.URL.Query().Get("interval") != "1day" {
			t.Errorf("expected interval 1day, got %s", r.URL.Query().Get("interval"))
		}
		if r.URL.Query().Get("outputsize") != "100" {
			t.Errorf("expected outputsize 100, got %s", r.URL.Query().Get("outputsize"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"meta": {"symbol": "AAPL", "interval": "1day", "currency": "USD"},
			"values": [
				{
					"datetime": "2025-01-15",
					"open": "150.00",
					"high": "155.00",
					"low": "149.00",
					"close": "154.50",
					"volume": "1000000"
				},
				{
					"datetime": "2025-01-14 09:30:00",
					"open": "148.00",
					"high": "151.00",
					"low": "147.50",
					"close": "150.00",
					"volume": ""
				}
			]
		}`))
	}))
	defer server.Close()

	market := NewTwelveDataMarket(NewConfig("test-key", server.URL, 0), server.Client(), nil)

	candles, err := market.GetTimeSeries(context.Background(), "AAPL", "1day", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}

	if candles[0].Open.String() != "150" {
		t.Errorf("expected open 150, got %s", candles[0].Open)
	}
	if candles[0].Close.String() != "154.5" {
		t.Errorf("expected close 154.5, got %s", candles[0].Close)
	}
	if candles[0].Volume != 1000000 {
		t.Errorf("expected volume 1000000, got %d", candles[0].Volume)
	}
	if candles[1].Volume != 0 {
		t.Errorf("expected missing volume to be 0, got %d", candles[1].Volume)
	}
}

func TestTwelveDataMarket_GetTimeSeries_InvalidNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		errField string
	}{
		{"invalid open", `{"datetime": "2025-01-15", "open": "abc", "high": "155", "low": "149", "close": "154.5", "volume": "1"}`, "parse open"},
		{"invalid high", `{"datetime": "2025-01-15", "open": "150", "high": "xyz", "low": "149", "close": "154.5", "volume": "1"}`, "parse high"},
		{"invalid low", `{"datetime": "2025-01-15", "open": "150", "high": "155", "low": "bad", "close": "154.5", "volume": "1"}`, "parse low"},
		{"invalid close", `{"datetime": "2025-01-15", "open": "150", "high": "155", "low": "149", "close": "bad", "volume": "1"}`, "parse close"},
		{"invalid volume", `{"datetime": "2025-01-15", "open": "150", "high": "155", "low": "149", "close": "154.5", "volume": "n/a"}`, "parse volume"},
		{"invalid datetime", `{"datetime": "invalid-date", "open": "150", "high": "155", "low": "149", "close": "154.5", "volume": "1"}`, "parse time"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			market := newTestMarket(t, jsonHandler(http.StatusOK, `{"status":"ok","values":[`+tt.value+`]}`))
			_, err := market.GetTimeSeries(context.Background(), "AAPL", "1day", 100)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errField) {
				t.Errorf("expected error containing %q, got %v", tt.errField, err)
			}
		})
	}
}

func TestTwelveDataMarket_GetTimeSeries_APIError(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, jsonHandler(http.StatusOK, `{"status": "error", "message": "Invalid API key"}`))

	_, err := market.GetTimeSeries(context.Background(), "AAPL", "1day", 100)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "Invalid API key") {
		t.Errorf("expected API error message, got %v", err)
	}
}

func TestTwelveDataMarket_GetTimeSeries_EmptyValues(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, jsonHandler(http.StatusOK, `{"status": "ok", "values": []}`))

	candles, err := market.GetTimeSeries(context.Background(), "AAPL", "1day", 100)
	require.NoError(t, err)
	assert.Empty(t, candles)
}

func TestTwelveDataMarket_ContextCancellation(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := market.GetQuote(ctx, "AAPL")
	if err == nil {
		t.Fatal("expected error due to context cancellation, got nil")
	}
}

// TestTwelveDataMarket_RateLimited はレートリミッタで待機中にコンテキストが切れた場合、
// リクエストが送信されないことを検証します。
func TestTwelveDataMarket_RateLimited(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		jsonHandler(http.StatusOK, `{"symbol":"AAPL","close":"1","timestamp":1}`)(w, r)
	}))
	defer server.Close()

	market := NewTwelveDataMarket(NewConfig("k", server.URL, 0), server.Client(), ratelimiter.NewRateLimiter(1, time.Hour))

	_, err := market.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = market.GetQuote(ctx, "AAPL")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), hits.Load())
}
