// Package usecase はポートフォリオ管理のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/feature/portfolio/domain/entity"
	quoteentity "portfolio_tracker/internal/feature/quotes/domain/entity"
)

// MaxNameLength はポートフォリオ名の最大文字数です。
const MaxNameLength = 100

// performanceTolerance は評価日に対して採用する終値の許容ずれです。
const performanceTolerance = 7 * 24 * time.Hour

// PortfolioRepository はポートフォリオの永続化レイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type PortfolioRepository interface {
	// Create は新しいポートフォリオを保存します。同名が存在する場合は ErrPortfolioAlreadyExists。
	Create(ctx context.Context, p entity.Portfolio) error
	// List は名前順のポートフォリオ一覧を返します。
	List(ctx context.Context) ([]entity.Portfolio, error)
	// Get は名前でポートフォリオを取得します。存在しない場合は ErrPortfolioNotFound。
	Get(ctx context.Context, name string) (entity.Portfolio, error)
	// AddHolding は保有を追加します。既存の銘柄は entity.Holding.Merge で統合され、結果を返します。
	AddHolding(ctx context.Context, name string, h entity.Holding) (entity.Holding, error)
	// UpdateHolding は既存の保有を置き換えます。存在しない場合は ErrHoldingNotFound。
	UpdateHolding(ctx context.Context, name string, h entity.Holding) error
	// RemoveHolding は保有を削除します。存在しない場合は ErrHoldingNotFound。
	RemoveHolding(ctx context.Context, name, symbol string) error
	// Delete はポートフォリオと全ての保有を削除します。
	Delete(ctx context.Context, name string) error
}

// QuoteSource は現在値と履歴の取得元です。
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (quoteentity.Quote, error)
	GetHistory(ctx context.Context, symbol, period string) (quoteentity.History, error)
	GetStockInfo(ctx context.Context, symbol string) (quoteentity.StockInfo, error)
}

// HoldingInput は保有追加の入力です。PurchasePrice が nil の場合は現在値で補完し、
// PurchaseDate が nil の場合は当日になります。
type HoldingInput struct {
	Symbol        string
	Shares        decimal.Decimal
	PurchasePrice *decimal.Decimal
	PurchaseDate  *time.Time
}

// UpdateInput は保有更新の入力です。PurchaseDate が nil の場合は既存の取得日を維持します。
type UpdateInput struct {
	Shares        decimal.Decimal
	PurchasePrice decimal.Decimal
	PurchaseDate  *time.Time
}

// portfolioUsecase はポートフォリオ操作のユースケースを定義します。
type portfolioUsecase struct {
	repo   PortfolioRepository
	quotes QuoteSource
	now    func() time.Time
}

// NewPortfolioUsecase はportfolioUsecaseの新しいインスタンスを生成します。
func NewPortfolioUsecase(repo PortfolioRepository, quotes QuoteSource) *portfolioUsecase {
	return &portfolioUsecase{repo: repo, quotes: quotes, now: time.Now}
}

// CreatePortfolio は新しいポートフォリオを作成します。
func (u *portfolioUsecase) CreatePortfolio(ctx context.Context, name string) (entity.Portfolio, error) {
	p := entity.NewPortfolio(name, u.now())
	if p.Name == "" || utf8.RuneCountInString(p.Name) > MaxNameLength {
		return entity.Portfolio{}, fmt.Errorf("%w: must be 1-%d characters", ErrInvalidPortfolioName, MaxNameLength)
	}
	if err := u.repo.Create(ctx, p); err != nil {
		return entity.Portfolio{}, err
	}
	slog.Info("portfolio created", "name", p.Name)
	return p, nil
}

// ListPortfolios は全てのポートフォリオを返します。
func (u *portfolioUsecase) ListPortfolios(ctx context.Context) ([]entity.Portfolio, error) {
	return u.repo.List(ctx)
}

// GetPortfolio は名前でポートフォリオを取得します。
func (u *portfolioUsecase) GetPortfolio(ctx context.Context, name string) (entity.Portfolio, error) {
	return u.repo.Get(ctx, entity.NormalizeName(name))
}

// DeletePortfolio はポートフォリオを削除します。
func (u *portfolioUsecase) DeletePortfolio(ctx context.Context, name string) error {
	name = entity.NormalizeName(name)
	if err := u.repo.Delete(ctx, name); err != nil {
		return err
	}
	slog.Info("portfolio deleted", "name", name)
	return nil
}

// AddHolding はポートフォリオに保有を追加します。
// 取得単価が省略された場合は現在値を取得単価として補完します。
func (u *portfolioUsecase) AddHolding(ctx context.Context, name string, in HoldingInput) (entity.Holding, error) {
	name = entity.NormalizeName(name)
	symbol := quoteentity.NormalizeSymbol(in.Symbol)
	if symbol == "" {
		return entity.Holding{}, fmt.Errorf("%w: symbol is required", ErrInvalidHolding)
	}
	if !in.Shares.IsPositive() {
		return entity.Holding{}, fmt.Errorf("%w: shares must be positive", ErrInvalidHolding)
	}
	if in.PurchasePrice != nil && !in.PurchasePrice.IsPositive() {
		return entity.Holding{}, fmt.Errorf("%w: purchase price must be positive", ErrInvalidHolding)
	}

	// 存在しないポートフォリオのために現在値を取得しない
	if _, err := u.repo.Get(ctx, name); err != nil {
		return entity.Holding{}, err
	}

	now := u.now()
	h := entity.Holding{
		Symbol:       symbol,
		Shares:       in.Shares,
		PurchaseDate: now,
		UpdatedAt:    now,
	}
	if in.PurchaseDate != nil {
		h.PurchaseDate = *in.PurchaseDate
	}
	if in.PurchasePrice != nil {
		h.PurchasePrice = *in.PurchasePrice
	} else {
		q, err := u.quotes.GetQuote(ctx, symbol)
		if err != nil {
			return entity.Holding{}, fmt.Errorf("%w: %s: %w", ErrPriceUnavailable, symbol, err)
		}
		h.PurchasePrice = q.Price
		slog.Info("purchase price filled from quote", "symbol", symbol, "price", q.Price, "stale", q.Stale)
	}

	added, err := u.repo.AddHolding(ctx, name, h.Normalize())
	if err != nil {
		return entity.Holding{}, err
	}
	slog.Info("holding added", "portfolio", name, "symbol", symbol, "shares", added.Shares)
	return added, nil
}

// UpdateHolding は既存の保有の株数と取得単価を置き換えます。
func (u *portfolioUsecase) UpdateHolding(ctx context.Context, name, symbol string, in UpdateInput) (entity.Holding, error) {
	name = entity.NormalizeName(name)
	symbol = quoteentity.NormalizeSymbol(symbol)
	if !in.Shares.IsPositive() || !in.PurchasePrice.IsPositive() {
		return entity.Holding{}, fmt.Errorf("%w: shares and purchase price must be positive", ErrInvalidHolding)
	}

	p, err := u.repo.Get(ctx, name)
	if err != nil {
		return entity.Holding{}, err
	}
	i, ok := p.Find(symbol)
	if !ok {
		return entity.Holding{}, fmt.Errorf("%w: %s", ErrHoldingNotFound, symbol)
	}

	h := p.Holdings[i]
	h.Shares = in.Shares
	h.PurchasePrice = in.PurchasePrice
	h.UpdatedAt = u.now()
	if in.PurchaseDate != nil {
		h.PurchaseDate = *in.PurchaseDate
	}
	h = h.Normalize()

	if err := u.repo.UpdateHolding(ctx, name, h); err != nil {
		return entity.Holding{}, err
	}
	return h, nil
}

// RemoveHolding はポートフォリオから保有を削除します。
func (u *portfolioUsecase) RemoveHolding(ctx context.Context, name, symbol string) error {
	return u.repo.RemoveHolding(ctx, entity.NormalizeName(name), quoteentity.NormalizeSymbol(symbol))
}

// Valuate は現在値でポートフォリオを評価します。
// 現在値が得られない銘柄は Available=false として合計から除外されます。
func (u *portfolioUsecase) Valuate(ctx context.Context, name string) (entity.Valuation, error) {
	p, err := u.repo.Get(ctx, entity.NormalizeName(name))
	if err != nil {
		return entity.Valuation{}, err
	}

	v := entity.Valuation{Name: p.Name, Holdings: make([]entity.HoldingValuation, 0, len(p.Holdings))}
	for _, h := range p.Holdings {
		hv := entity.HoldingValuation{Holding: h, CostBasis: h.CostBasis()}
		q, err := u.quotes.GetQuote(ctx, h.Symbol)
		if err != nil {
			v.Unavailable = append(v.Unavailable, h.Symbol)
			v.Holdings = append(v.Holdings, hv)
			continue
		}
		hv.Available = true
		hv.Stale = q.Stale
		hv.Currency = q.Currency
		hv.CurrentPrice = q.Price
		hv.Value = h.Shares.Mul(q.Price)
		hv.Gain = hv.Value.Sub(hv.CostBasis)
		hv.GainPct = entity.Percent(hv.Gain, hv.CostBasis)

		v.TotalValue = v.TotalValue.Add(hv.Value)
		v.TotalCost = v.TotalCost.Add(hv.CostBasis)
		v.Holdings = append(v.Holdings, hv)
	}
	for i := range v.Holdings {
		if v.Holdings[i].Available {
			v.Holdings[i].Weight = entity.Percent(v.Holdings[i].Value, v.TotalValue)
		}
	}
	v.TotalGain = v.TotalValue.Sub(v.TotalCost)
	v.TotalGainPct = entity.Percent(v.TotalGain, v.TotalCost)
	return v, nil
}

// Summary はポートフォリオの概要を返します。
func (u *portfolioUsecase) Summary(ctx context.Context, name string) (entity.Summary, error) {
	p, err := u.repo.Get(ctx, entity.NormalizeName(name))
	if err != nil {
		return entity.Summary{}, err
	}
	s := entity.Summary{
		Name:         p.Name,
		CreatedAt:    p.CreatedAt,
		HoldingCount: len(p.Holdings),
		Symbols:      p.Symbols(),
	}
	for _, h := range p.Holdings {
		s.TotalCost = s.TotalCost.Add(h.CostBasis())
	}
	return s, nil
}

// SectorAllocation はセクターごとの保有銘柄数を返します。
// 銘柄情報が取得できない銘柄とセクター不明の銘柄は Unclassified に入ります。
func (u *portfolioUsecase) SectorAllocation(ctx context.Context, name string) (entity.SectorAllocation, error) {
	p, err := u.repo.Get(ctx, entity.NormalizeName(name))
	if err != nil {
		return entity.SectorAllocation{}, err
	}

	out := entity.SectorAllocation{Name: p.Name, Sectors: []entity.SectorCount{}}
	index := map[string]int{}
	for _, h := range p.Holdings {
		info, err := u.quotes.GetStockInfo(ctx, h.Symbol)
		if err != nil || info.Sector == "" {
			if err != nil {
				slog.Warn("sector lookup failed", "symbol", h.Symbol, "error", err)
			}
			out.Unclassified = append(out.Unclassified, h.Symbol)
			continue
		}
		i, ok := index[info.Sector]
		if !ok {
			i = len(out.Sectors)
			index[info.Sector] = i
			out.Sectors = append(out.Sectors, entity.SectorCount{Sector: info.Sector})
		}
		out.Sectors[i].Count++
		out.Sectors[i].Symbols = append(out.Sectors[i].Symbols, h.Symbol)
		out.Classified++
	}

	for i := range out.Sectors {
		out.Sectors[i].Weight = entity.Percent(decimal.NewFromInt(int64(out.Sectors[i].Count)), decimal.NewFromInt(int64(out.Classified)))
	}
	slices.SortStableFunc(out.Sectors, func(a, b entity.SectorCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Sector, b.Sector)
	})
	return out, nil
}

// Performance は期間内の日次評価額を返します。
// 全ての銘柄の履歴が重なる期間について、各日付から7日以内の最も近い終値で評価します。
// 履歴が取得できない銘柄は計算から除外されます。
func (u *portfolioUsecase) Performance(ctx context.Context, name, period string) ([]entity.PerformancePoint, error) {
	if _, ok := quoteentity.ParsePeriod(period); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	p, err := u.repo.Get(ctx, entity.NormalizeName(name))
	if err != nil {
		return nil, err
	}

	type series struct {
		shares  decimal.Decimal
		history quoteentity.History
	}
	var (
		all    []series
		lo, hi time.Time
	)
	for _, h := range p.Holdings {
		hist, err := u.quotes.GetHistory(ctx, h.Symbol, period)
		if err != nil || len(hist.Candles) == 0 {
			continue
		}
		first, last := hist.Candles[0].Time, hist.Candles[len(hist.Candles)-1].Time
		if len(all) == 0 || first.After(lo) {
			lo = first
		}
		if len(all) == 0 || last.Before(hi) {
			hi = last
		}
		all = append(all, series{shares: h.Shares, history: hist})
	}
	if len(all) == 0 || hi.Before(lo) {
		return []entity.PerformancePoint{}, nil
	}

	var dates []time.Time
	for _, s := range all {
		for _, c := range s.history.Candles {
			if c.Time.Before(lo) || c.Time.After(hi) {
				continue
			}
			dates = append(dates, entity.Date(c.Time))
		}
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	dates = slices.CompactFunc(dates, func(a, b time.Time) bool { return a.Equal(b) })

	out := make([]entity.PerformancePoint, 0, len(dates))
	for _, date := range dates {
		total := decimal.Zero
		valid := true
		for _, s := range all {
			closePrice, ok := s.history.CloseNear(date, performanceTolerance)
			if !ok {
				valid = false
				break
			}
			total = total.Add(s.shares.Mul(closePrice))
		}
		if valid && total.IsPositive() {
			out = append(out, entity.PerformancePoint{Date: date, Value: total.Round(4)})
		}
	}
	return out, nil
}
