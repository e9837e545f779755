package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_tracker/internal/feature/portfolio/domain/entity"
	quoteentity "portfolio_tracker/internal/feature/quotes/domain/entity"
)

var errQuote = errors.New("quote unavailable")

// fakeRepository はPortfolioRepositoryのインメモリ実装です。
type fakeRepository struct {
	portfolios map[string]entity.Portfolio
	createErr  error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{portfolios: map[string]entity.Portfolio{}}
}

func (r *fakeRepository) Create(_ context.Context, p entity.Portfolio) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.portfolios[p.Name]; ok {
		return ErrPortfolioAlreadyExists
	}
	r.portfolios[p.Name] = p
	return nil
}

func (r *fakeRepository) List(context.Context) ([]entity.Portfolio, error) {
	out := make([]entity.Portfolio, 0, len(r.portfolios))
	for _, p := range r.portfolios {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeRepository) Get(_ context.Context, name string) (entity.Portfolio, error) {
	p, ok := r.portfolios[name]
	if !ok {
		return entity.Portfolio{}, ErrPortfolioNotFound
	}
	return p, nil
}

func (r *fakeRepository) AddHolding(_ context.Context, name string, h entity.Holding) (entity.Holding, error) {
	p, ok := r.portfolios[name]
	if !ok {
		return entity.Holding{}, ErrPortfolioNotFound
	}
	out := p.Upsert(h)
	r.portfolios[name] = p
	return out, nil
}

func (r *fakeRepository) UpdateHolding(_ context.Context, name string, h entity.Holding) error {
	p, ok := r.portfolios[name]
	if !ok {
		return ErrPortfolioNotFound
	}
	if !p.Replace(h) {
		return ErrHoldingNotFound
	}
	r.portfolios[name] = p
	return nil
}

func (r *fakeRepository) RemoveHolding(_ context.Context, name, symbol string) error {
	p, ok := r.portfolios[name]
	if !ok {
		return ErrPortfolioNotFound
	}
	if !p.Remove(symbol) {
		return ErrHoldingNotFound
	}
	r.portfolios[name] = p
	return nil
}

func (r *fakeRepository) Delete(_ context.Context, name string) error {
	if _, ok := r.portfolios[name]; !ok {
		return ErrPortfolioNotFound
	}
	delete(r.portfolios, name)
	return nil
}

// mockQuotes はQuoteSourceのモック実装です。
type mockQuotes struct {
	prices     map[string]string
	histories  map[string]quoteentity.History
	sectors    map[string]string
	stale      bool
	QuoteCalls int
}

func (m *mockQuotes) GetQuote(_ context.Context, symbol string) (quoteentity.Quote, error) {
	m.QuoteCalls++
	p, ok := m.prices[symbol]
	if !ok {
		return quoteentity.Quote{}, errQuote
	}
	return quoteentity.Quote{Symbol: symbol, Price: decimal.RequireFromString(p), Currency: "USD", Stale: m.stale}, nil
}

func (m *mockQuotes) GetHistory(_ context.Context, symbol, _ string) (quoteentity.History, error) {
	h, ok := m.histories[symbol]
	if !ok {
		return quoteentity.History{}, errQuote
	}
	return h, nil
}

func (m *mockQuotes) GetStockInfo(_ context.Context, symbol string) (quoteentity.StockInfo, error) {
	sector, ok := m.sectors[symbol]
	if !ok {
		return quoteentity.StockInfo{}, errQuote
	}
	return quoteentity.StockInfo{Symbol: symbol, Sector: sector}, nil
}

var testNow = time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

func newTestUsecase(repo PortfolioRepository, quotes QuoteSource) *portfolioUsecase {
	uc := NewPortfolioUsecase(repo, quotes)
	uc.now = func() time.Time { return testNow }
	return uc
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func TestPortfolioUsecase_CreatePortfolio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		setup       func(r *fakeRepository)
		expectedErr error
	}{
		{name: "success", input: "  Retirement  "},
		{name: "failure: empty name", input: "   ", expectedErr: ErrInvalidPortfolioName},
		{name: "failure: too long", input: strings.Repeat("a", MaxNameLength+1), expectedErr: ErrInvalidPortfolioName},
		{name: "success: max length multibyte", input: strings.Repeat("株", MaxNameLength)},
		{
			name:  "failure: duplicate",
			input: "Retirement",
			setup: func(r *fakeRepository) {
				r.portfolios["Retirement"] = entity.Portfolio{Name: "Retirement"}
			},
			expectedErr: ErrPortfolioAlreadyExists,
		},
		{
			name:        "failure: store error propagates",
			input:       "x",
			setup:       func(r *fakeRepository) { r.createErr = ErrStoreUnavailable },
			expectedErr: ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeRepository()
			if tt.setup != nil {
				tt.setup(repo)
			}
			uc := newTestUsecase(repo, &mockQuotes{})

			p, err := uc.CreatePortfolio(context.Background(), tt.input)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.input), p.Name)
			assert.True(t, p.CreatedAt.Equal(testNow))
			assert.Contains(t, repo.portfolios, p.Name)
		})
	}
}

// TestPortfolioUsecase_AddHolding_AutoFillsPrice は取得単価を省略した場合に現在値で補完されることを検証します。
func TestPortfolioUsecase_AddHolding_AutoFillsPrice(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	quotes := &mockQuotes{prices: map[string]string{"AAPL": "190.25"}}
	uc := newTestUsecase(repo, quotes)
	ctx := context.Background()

	_, err := uc.CreatePortfolio(ctx, "Retirement")
	require.NoError(t, err)

	h, err := uc.AddHolding(ctx, "Retirement", HoldingInput{Symbol: "aapl", Shares: dec("10.5")})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", h.Symbol)
	assert.True(t, h.PurchasePrice.Equal(dec("190.25")))
	assert.True(t, h.PurchaseDate.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)))

	list, err := uc.ListPortfolios(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Holdings, 1)
	assert.True(t, list[0].Holdings[0].Shares.Equal(dec("10.5")))
	assert.True(t, list[0].Holdings[0].PurchasePrice.Equal(dec("190.25")))
}

func TestPortfolioUsecase_AddHolding_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		portfolio     string
		input         HoldingInput
		expectedErr   error
		expectedCalls int
	}{
		{"empty symbol", "p", HoldingInput{Symbol: " ", Shares: dec("1")}, ErrInvalidHolding, 0},
		{"zero shares", "p", HoldingInput{Symbol: "AAPL", Shares: decimal.Zero}, ErrInvalidHolding, 0},
		{"negative price", "p", HoldingInput{Symbol: "AAPL", Shares: dec("1"), PurchasePrice: ptr(dec("-1"))}, ErrInvalidHolding, 0},
		{"unknown portfolio", "missing", HoldingInput{Symbol: "AAPL", Shares: dec("1")}, ErrPortfolioNotFound, 0},
		{"no quote for auto-fill", "p", HoldingInput{Symbol: "ZZZZ", Shares: dec("1")}, ErrPriceUnavailable, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeRepository()
			repo.portfolios["p"] = entity.Portfolio{Name: "p"}
			quotes := &mockQuotes{prices: map[string]string{}}
			uc := newTestUsecase(repo, quotes)

			_, err := uc.AddHolding(context.Background(), tt.portfolio, tt.input)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Equal(t, tt.expectedCalls, quotes.QuoteCalls)
			assert.Empty(t, repo.portfolios["p"].Holdings)
		})
	}
}

func TestPortfolioUsecase_AddHolding_ExplicitPriceAndMerge(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	repo.portfolios["p"] = entity.Portfolio{Name: "p"}
	quotes := &mockQuotes{}
	uc := newTestUsecase(repo, quotes)
	ctx := context.Background()

	date := time.Date(2023, 2, 1, 15, 0, 0, 0, time.UTC)
	_, err := uc.AddHolding(ctx, "p", HoldingInput{Symbol: "MSFT", Shares: dec("2"), PurchasePrice: ptr(dec("100")), PurchaseDate: &date})
	require.NoError(t, err)

	merged, err := uc.AddHolding(ctx, "p", HoldingInput{Symbol: "MSFT", Shares: dec("2"), PurchasePrice: ptr(dec("200"))})
	require.NoError(t, err)

	assert.Equal(t, 0, quotes.QuoteCalls, "explicit price must not hit the provider")
	assert.True(t, merged.Shares.Equal(dec("4")))
	assert.True(t, merged.PurchasePrice.Equal(dec("150")))
	assert.True(t, merged.PurchaseDate.Equal(time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPortfolioUsecase_UpdateHolding(t *testing.T) {
	t.Parallel()

	date := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.portfolios["p"] = entity.Portfolio{Name: "p", Holdings: []entity.Holding{
		{Symbol: "AAPL", Shares: dec("1"), PurchasePrice: dec("10"), PurchaseDate: date},
	}}
	uc := newTestUsecase(repo, &mockQuotes{})
	ctx := context.Background()

	h, err := uc.UpdateHolding(ctx, "p", "aapl", UpdateInput{Shares: dec("3"), PurchasePrice: dec("12.5")})
	require.NoError(t, err)
	assert.True(t, h.Shares.Equal(dec("3")))
	assert.True(t, h.PurchaseDate.Equal(date), "purchase date kept")
	assert.True(t, h.UpdatedAt.Equal(testNow))
	assert.True(t, repo.portfolios["p"].Holdings[0].PurchasePrice.Equal(dec("12.5")))

	_, err = uc.UpdateHolding(ctx, "p", "MSFT", UpdateInput{Shares: dec("1"), PurchasePrice: dec("1")})
	assert.ErrorIs(t, err, ErrHoldingNotFound)

	_, err = uc.UpdateHolding(ctx, "p", "AAPL", UpdateInput{Shares: dec("0"), PurchasePrice: dec("1")})
	assert.ErrorIs(t, err, ErrInvalidHolding)
}

func TestPortfolioUsecase_RemoveAndDelete(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	repo.portfolios["p"] = entity.Portfolio{Name: "p", Holdings: []entity.Holding{{Symbol: "AAPL"}}}
	uc := newTestUsecase(repo, &mockQuotes{})
	ctx := context.Background()

	require.NoError(t, uc.RemoveHolding(ctx, "p", "aapl"))
	assert.ErrorIs(t, uc.RemoveHolding(ctx, "p", "AAPL"), ErrHoldingNotFound)

	require.NoError(t, uc.DeletePortfolio(ctx, "p"))
	_, err := uc.GetPortfolio(ctx, "p")
	assert.ErrorIs(t, err, ErrPortfolioNotFound)
}

// TestPortfolioUsecase_Valuate は現在値が取得できない銘柄が合計から除外されることを検証します。
func TestPortfolioUsecase_Valuate(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	repo.portfolios["p"] = entity.Portfolio{Name: "p", Holdings: []entity.Holding{
		{Symbol: "AAPL", Shares: dec("10"), PurchasePrice: dec("100")},
		{Symbol: "MSFT", Shares: dec("5"), PurchasePrice: dec("400")},
		{Symbol: "ZZZZ", Shares: dec("1"), PurchasePrice: dec("50")},
	}}
	quotes := &mockQuotes{prices: map[string]string{"AAPL": "150", "MSFT": "300"}}
	uc := newTestUsecase(repo, quotes)

	v, err := uc.Valuate(context.Background(), "p")
	require.NoError(t, err)
	require.Len(t, v.Holdings, 3)

	aapl := v.Holdings[0]
	assert.True(t, aapl.Available)
	assert.True(t, aapl.Value.Equal(dec("1500")))
	assert.True(t, aapl.Gain.Equal(dec("500")))
	assert.Equal(t, "50", aapl.GainPct.String())
	assert.Equal(t, "50", aapl.Weight.String())

	msft := v.Holdings[1]
	assert.True(t, msft.Gain.Equal(dec("-500")))
	assert.Equal(t, "-25", msft.GainPct.String())

	assert.False(t, v.Holdings[2].Available)
	assert.Equal(t, []string{"ZZZZ"}, v.Unavailable)

	assert.True(t, v.TotalValue.Equal(dec("3000")))
	assert.True(t, v.TotalCost.Equal(dec("3000")))
	assert.True(t, v.TotalGain.IsZero())
	assert.True(t, v.TotalGainPct.IsZero())

	_, err = uc.Valuate(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPortfolioNotFound)
}

func TestPortfolioUsecase_Summary(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	repo.portfolios["p"] = entity.Portfolio{Name: "p", CreatedAt: testNow, Holdings: []entity.Holding{
		{Symbol: "AAPL", Shares: dec("2"), PurchasePrice: dec("10")},
		{Symbol: "MSFT", Shares: dec("1"), PurchasePrice: dec("5.5")},
	}}
	uc := newTestUsecase(repo, &mockQuotes{})

	s, err := uc.Summary(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 2, s.HoldingCount)
	assert.Equal(t, []string{"AAPL", "MSFT"}, s.Symbols)
	assert.True(t, s.TotalCost.Equal(dec("25.5")))
	assert.True(t, s.CreatedAt.Equal(testNow))
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func history(symbol string, closes map[int]string) quoteentity.History {
	h := quoteentity.History{Symbol: symbol}
	days := make([]int, 0, len(closes))
	for d := range closes {
		days = append(days, d)
	}
	sort.Ints(days)
	for _, d := range days {
		h.Candles = append(h.Candles, quoteentity.Candle{Time: day(d), Close: dec(closes[d])})
	}
	return h
}

// TestPortfolioUsecase_Performance は履歴が重なる期間で日次評価額が計算されることを検証します。
func TestPortfolioUsecase_Performance(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	repo.portfolios["p"] = entity.Portfolio{Name: "p", Holdings: []entity.Holding{
		{Symbol: "AAPL", Shares: dec("2")},
		{Symbol: "MSFT", Shares: dec("1")},
		{Symbol: "ZZZZ", Shares: dec("100")},
	}}
	quotes := &mockQuotes{histories: map[string]quoteentity.History{
		"AAPL": history("AAPL", map[int]string{1: "10", 2: "11", 3: "12", 4: "13"}),
		"MSFT": history("MSFT", map[int]string{2: "100", 4: "110", 5: "120"}),
	}}
	uc := newTestUsecase(repo, quotes)

	points, err := uc.Performance(context.Background(), "p", "1mo")
	require.NoError(t, err)

	// 共通期間は 2日〜4日
	got := make([]string, 0, len(points))
	for _, p := range points {
		got = append(got, fmt.Sprintf("%s=%s", p.Date.Format("01-02"), p.Value))
	}
	assert.Equal(t, []string{"01-02=122", "01-03=124", "01-04=136"}, got)

	_, err = uc.Performance(context.Background(), "p", "10y")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPortfolioUsecase_Performance_NoHistory(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	repo.portfolios["p"] = entity.Portfolio{Name: "p", Holdings: []entity.Holding{{Symbol: "ZZZZ", Shares: dec("1")}}}
	uc := newTestUsecase(repo, &mockQuotes{})

	points, err := uc.Performance(context.Background(), "p", "")
	require.NoError(t, err)
	assert.Empty(t, points)
}

// TestPortfolioUsecase_TrimsNameOnEveryOperation は前後に空白のある名前でも同じポートフォリオを操作できることを検証します。
func TestPortfolioUsecase_TrimsNameOnEveryOperation(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	uc := newTestUsecase(repo, &mockQuotes{prices: map[string]string{"AAPL": "10"}, sectors: map[string]string{}})
	ctx := context.Background()
	const padded = "  Retirement \t"

	_, err := uc.CreatePortfolio(ctx, padded)
	require.NoError(t, err)

	p, err := uc.GetPortfolio(ctx, padded)
	require.NoError(t, err)
	assert.Equal(t, "Retirement", p.Name)

	_, err = uc.AddHolding(ctx, padded, HoldingInput{Symbol: "aapl", Shares: dec("1")})
	require.NoError(t, err)
	_, err = uc.UpdateHolding(ctx, padded, "AAPL", UpdateInput{Shares: dec("2"), PurchasePrice: dec("10")})
	require.NoError(t, err)

	_, err = uc.Valuate(ctx, padded)
	require.NoError(t, err)
	_, err = uc.Summary(ctx, padded)
	require.NoError(t, err)
	_, err = uc.SectorAllocation(ctx, padded)
	require.NoError(t, err)
	_, err = uc.Performance(ctx, padded, "1mo")
	require.NoError(t, err)

	require.NoError(t, uc.RemoveHolding(ctx, padded, "AAPL"))
	require.NoError(t, uc.DeletePortfolio(ctx, padded))
	assert.Empty(t, repo.portfolios)
}

// TestPortfolioUsecase_SectorAllocation はセクターごとの銘柄数と分類できない銘柄を検証します。
func TestPortfolioUsecase_SectorAllocation(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	repo.portfolios["Growth"] = entity.Portfolio{Name: "Growth", Holdings: []entity.Holding{
		{Symbol: "AAPL", Shares: dec("1"), PurchasePrice: dec("1")},
		{Symbol: "JPM", Shares: dec("1"), PurchasePrice: dec("1")},
		{Symbol: "MSFT", Shares: dec("1"), PurchasePrice: dec("1")},
		{Symbol: "SPY", Shares: dec("1"), PurchasePrice: dec("1")},
		{Symbol: "ZZZZ", Shares: dec("1"), PurchasePrice: dec("1")},
	}}
	quotes := &mockQuotes{sectors: map[string]string{
		"AAPL": "Technology",
		"MSFT": "Technology",
		"JPM":  "Financial Services",
		"SPY":  "",
	}}
	uc := newTestUsecase(repo, quotes)

	got, err := uc.SectorAllocation(context.Background(), "Growth")
	require.NoError(t, err)

	require.Len(t, got.Sectors, 2)
	assert.Equal(t, "Technology", got.Sectors[0].Sector)
	assert.Equal(t, 2, got.Sectors[0].Count)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got.Sectors[0].Symbols)
	assert.Equal(t, "66.6667", got.Sectors[0].Weight.String())
	assert.Equal(t, "Financial Services", got.Sectors[1].Sector)
	assert.Equal(t, 1, got.Sectors[1].Count)
	assert.Equal(t, 3, got.Classified)
	assert.Equal(t, []string{"SPY", "ZZZZ"}, got.Unclassified)

	_, err = uc.SectorAllocation(context.Background(), "Nope")
	assert.ErrorIs(t, err, ErrPortfolioNotFound)
}

func TestPortfolioUsecase_SectorAllocation_Empty(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	repo.portfolios["Empty"] = entity.Portfolio{Name: "Empty"}
	uc := newTestUsecase(repo, &mockQuotes{})

	got, err := uc.SectorAllocation(context.Background(), "Empty")
	require.NoError(t, err)
	assert.NotNil(t, got.Sectors)
	assert.Empty(t, got.Sectors)
	assert.Zero(t, got.Classified)
}
