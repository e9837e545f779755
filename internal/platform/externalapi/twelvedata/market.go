package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/feature/quotes/domain/entity"
	"portfolio_tracker/internal/feature/quotes/usecase"
	"portfolio_tracker/internal/platform/externalapi/twelvedata/dto"
	"portfolio_tracker/internal/shared/ratelimiter"
)

// TwelveDataMarket はTwelve Data外部APIから株価データを取得するMarketRepository実装です。
type TwelveDataMarket struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.Limiter
	now     func() time.Time
}

// TwelveDataMarketがMarketRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.MarketRepository = (*TwelveDataMarket)(nil)

// NewTwelveDataMarket は指定された設定とHTTPクライアントでTwelveDataMarketの新しいインスタンスを生成します。
// limiter が nil の場合はリクエストを制限しません。
func NewTwelveDataMarket(cfg Config, client *http.Client, limiter ratelimiter.Limiter) *TwelveDataMarket {
	return &TwelveDataMarket{cfg: cfg, client: client, limiter: limiter, now: time.Now}
}

// GetQuote はTwelve Data APIの/quoteから現在値を取得します。
func (t *TwelveDataMarket) GetQuote(ctx context.Context, symbol string) (entity.Quote, error) {
	body, err := t.fetchQuote(ctx, symbol)
	if err != nil {
		return entity.Quote{}, err
	}

	if body.Close == "" {
		return entity.Quote{}, fmt.Errorf("twelvedata: empty quote for %s", symbol)
	}
	price, err := decimal.NewFromString(body.Close)
	if err != nil {
		return entity.Quote{}, fmt.Errorf("parse close %q: %w", body.Close, err)
	}
	if !price.IsPositive() {
		return entity.Quote{}, fmt.Errorf("twelvedata: non-positive price %s for %s", price, symbol)
	}

	updated := time.Unix(body.Timestamp, 0).UTC()
	if body.Timestamp == 0 {
		if updated, err = parseTime(body.Datetime); err != nil {
			return entity.Quote{}, err
		}
	}

	return entity.Quote{
		Symbol:    symbolOr(body.Symbol, symbol),
		Price:     price,
		Currency:  body.Currency,
		UpdatedAt: updated,
		FetchedAt: t.now().UTC(),
	}, nil
}

// GetStockInfo はTwelve Data APIの/quote・/profile・/statisticsから銘柄の基本情報を取得します。
// /profile と /statistics は契約プランによって利用できないため、失敗しても該当項目を空にして返します。
func (t *TwelveDataMarket) GetStockInfo(ctx context.Context, symbol string) (entity.StockInfo, error) {
	body, err := t.fetchQuote(ctx, symbol)
	if err != nil {
		return entity.StockInfo{}, err
	}
	if body.Name == "" && body.Close == "" {
		return entity.StockInfo{}, fmt.Errorf("twelvedata: no info for %s", symbol)
	}

	info := entity.StockInfo{
		Symbol:   symbolOr(body.Symbol, symbol),
		Name:     body.Name,
		Exchange: body.Exchange,
		Currency: body.Currency,
	}
	// 欠損している数値はゼロのまま返す
	if err := parseDecimals([]decimalField{
		{"52w high", body.FiftyTwoWeek.High, &info.High52w},
		{"52w low", body.FiftyTwoWeek.Low, &info.Low52w},
		{"previous close", body.PreviousClose, &info.PreviousClose},
	}); err != nil {
		return entity.StockInfo{}, err
	}

	if err := t.fillProfile(ctx, symbol, &info); err != nil {
		slog.Warn("twelvedata profile unavailable", "symbol", symbol, "error", err)
	}
	if err := t.fillStatistics(ctx, symbol, &info); err != nil {
		slog.Warn("twelvedata statistics unavailable", "symbol", symbol, "error", err)
	}
	return info, nil
}

func (t *TwelveDataMarket) fillProfile(ctx context.Context, symbol string, info *entity.StockInfo) error {
	q := url.Values{}
	q.Set("symbol", symbol)

	var body dto.ProfileResponse
	if err := t.get(ctx, "/profile", q, &body); err != nil {
		return err
	}
	if body.Status == "error" {
		return fmt.Errorf("twelvedata: %s", body.Message)
	}
	info.Sector = body.Sector
	info.Industry = body.Industry
	if info.Name == "" {
		info.Name = body.Name
	}
	return nil
}

func (t *TwelveDataMarket) fillStatistics(ctx context.Context, symbol string, info *entity.StockInfo) error {
	q := url.Values{}
	q.Set("symbol", symbol)

	var body dto.StatisticsResponse
	if err := t.get(ctx, "/statistics", q, &body); err != nil {
		return err
	}
	if body.Status == "error" {
		return fmt.Errorf("twelvedata: %s", body.Message)
	}

	st := body.Statistics
	yield := st.DividendsAndSplits.ForwardAnnualDividendYield
	if yield == "" {
		yield = st.DividendsAndSplits.TrailingAnnualDividendYield
	}
	return parseDecimals([]decimalField{
		{"market cap", st.ValuationsMetrics.MarketCapitalization.String(), &info.MarketCap},
		{"trailing pe", st.ValuationsMetrics.TrailingPE.String(), &info.PERatio},
		{"dividend yield", yield.String(), &info.DividendYield},
		{"beta", st.StockPriceSummary.Beta.String(), &info.Beta},
	})
}

type decimalField struct {
	name string
	raw  string
	dst  *decimal.Decimal
}

// parseDecimals は空でない項目を decimal に変換します。
func parseDecimals(fields []decimalField) error {
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// GetTimeSeries はTwelve Data APIから時系列株価データを取得し、
// entity.Candleのスライスとして返します。
func (t *TwelveDataMarket) GetTimeSeries(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("outputsize", strconv.Itoa(outputsize))

	var body dto.TimeSeriesResponse
	if err := t.get(ctx, "/time_series", q, &body); err != nil {
		return nil, err
	}
	if body.Status == "error" {
		return nil, fmt.Errorf("twelvedata: %s", body.Message)
	}

	candles := make([]entity.Candle, 0, len(body.Values))
	for _, v := range body.Values {
		tm, err := parseTime(v.Datetime)
		if err != nil {
			return nil, err
		}

		var c entity.Candle
		c.Time = tm
		for _, f := range []decimalField{
			{"open", v.Open, &c.Open},
			{"high", v.High, &c.High},
			{"low", v.Low, &c.Low},
			{"close", v.Close, &c.Close},
		} {
			d, err := decimal.NewFromString(f.raw)
			if err != nil {
				return nil, fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
			}
			*f.dst = d
		}

		// 為替など出来高が無い銘柄もある
		if v.Volume != "" {
			vol, err := strconv.ParseInt(v.Volume, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse volume %q: %w", v.Volume, err)
			}
			c.Volume = vol
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (t *TwelveDataMarket) fetchQuote(ctx context.Context, symbol string) (dto.QuoteResponse, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var body dto.QuoteResponse
	if err := t.get(ctx, "/quote", q, &body); err != nil {
		return dto.QuoteResponse{}, err
	}
	if body.Status == "error" {
		return dto.QuoteResponse{}, fmt.Errorf("twelvedata: %s", body.Message)
	}
	return body, nil
}

// get は共通のリクエスト処理を行い、レスポンスを out にデコードします。
func (t *TwelveDataMarket) get(ctx context.Context, path string, q url.Values, out any) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	q.Set("apikey", t.cfg.TwelveDataAPIKey)
	u := fmt.Sprintf("%s%s?%s", t.cfg.BaseURL, path, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		var e dto.ErrorResponse
		if json.NewDecoder(res.Body).Decode(&e) == nil && e.Message != "" {
			return fmt.Errorf("twelvedata http %d: %s", res.StatusCode, e.Message)
		}
		return fmt.Errorf("twelvedata http %d", res.StatusCode)
	}

	return json.NewDecoder(res.Body).Decode(out)
}

func parseTime(s string) (time.Time, error) {
	tm, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		tm, err = time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
		}
	}
	return tm.UTC(), nil
}

func symbolOr(got, requested string) string {
	if got != "" {
		return entity.NormalizeSymbol(got)
	}
	return requested
}
