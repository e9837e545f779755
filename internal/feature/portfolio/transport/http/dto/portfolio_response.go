package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/feature/portfolio/domain/entity"
	"portfolio_tracker/internal/shared/money"
)

// HoldingRes は保有のレスポンスDTOです。金額は文字列としてシリアライズされます。
type HoldingRes struct {
	Symbol        string          `json:"symbol"`
	Shares        decimal.Decimal `json:"shares"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	PurchaseDate  string          `json:"purchase_date"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PortfolioRes はポートフォリオのレスポンスDTOです。
type PortfolioRes struct {
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	Holdings  []HoldingRes `json:"holdings"`
}

// HoldingValuationRes は1銘柄の評価です。現在値が得られない銘柄は available=false になります。
type HoldingValuationRes struct {
	HoldingRes
	Available    bool             `json:"available"`
	Stale        bool             `json:"stale,omitempty"`
	Currency     string           `json:"currency,omitempty"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
	Value        *decimal.Decimal `json:"value,omitempty"`
	Gain         *decimal.Decimal `json:"gain,omitempty"`
	GainPct      *decimal.Decimal `json:"gain_pct,omitempty"`
	Weight       *decimal.Decimal `json:"weight,omitempty"`
	Display      string           `json:"display,omitempty"` // 評価額の表示用文字列
}

// ValuationRes はポートフォリオ評価のレスポンスDTOです。
type ValuationRes struct {
	Name         string                `json:"name"`
	Holdings     []HoldingValuationRes `json:"holdings"`
	TotalValue   decimal.Decimal       `json:"total_value"`
	TotalCost    decimal.Decimal       `json:"total_cost"`
	TotalGain    decimal.Decimal       `json:"total_gain"`
	TotalGainPct decimal.Decimal       `json:"total_gain_pct"`
	Display      string                `json:"display"`
	GainDisplay  string                `json:"gain_display"`
	Unavailable  []string              `json:"unavailable"`
}

// SummaryRes はポートフォリオ概要のレスポンスDTOです。
type SummaryRes struct {
	Name         string          `json:"name"`
	CreatedAt    time.Time       `json:"created_at"`
	HoldingCount int             `json:"holding_count"`
	Symbols      []string        `json:"symbols"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Display      string          `json:"display"`
}

// SectorRes は1セクターの構成です。
type SectorRes struct {
	Sector  string          `json:"sector"`
	Count   int             `json:"count"`
	Symbols []string        `json:"symbols"`
	Weight  decimal.Decimal `json:"weight_pct"`
}

// SectorAllocationRes はセクター構成のレスポンスDTOです。
type SectorAllocationRes struct {
	Name         string      `json:"name"`
	Sectors      []SectorRes `json:"sectors"`
	Unclassified []string    `json:"unclassified"`
}

// PerformancePointRes は日次評価額の1点です。
type PerformancePointRes struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// FromHolding はエンティティをレスポンスDTOに変換します。
func FromHolding(h entity.Holding) HoldingRes {
	return HoldingRes{
		Symbol:        h.Symbol,
		Shares:        h.Shares,
		PurchasePrice: h.PurchasePrice,
		PurchaseDate:  h.PurchaseDate.Format(DateLayout),
		CostBasis:     h.CostBasis().Round(entity.PriceScale),
		UpdatedAt:     h.UpdatedAt,
	}
}

// FromPortfolio はエンティティをレスポンスDTOに変換します。
func FromPortfolio(p entity.Portfolio) PortfolioRes {
	out := PortfolioRes{Name: p.Name, CreatedAt: p.CreatedAt, Holdings: make([]HoldingRes, 0, len(p.Holdings))}
	for _, h := range p.Holdings {
		out.Holdings = append(out.Holdings, FromHolding(h))
	}
	return out
}

// FromPortfolios はエンティティの一覧をレスポンスDTOに変換します。
func FromPortfolios(ps []entity.Portfolio) []PortfolioRes {
	out := make([]PortfolioRes, 0, len(ps))
	for _, p := range ps {
		out = append(out, FromPortfolio(p))
	}
	return out
}

// FromValuation はエンティティをレスポンスDTOに変換します。
func FromValuation(v entity.Valuation) ValuationRes {
	out := ValuationRes{
		Name:         v.Name,
		Holdings:     make([]HoldingValuationRes, 0, len(v.Holdings)),
		TotalValue:   v.TotalValue,
		TotalCost:    v.TotalCost,
		TotalGain:    v.TotalGain,
		TotalGainPct: v.TotalGainPct,
		Display:      money.Format(v.TotalValue, money.DefaultCurrency),
		GainDisplay:  money.Format(v.TotalGain, money.DefaultCurrency) + " (" + money.Percent(v.TotalGainPct) + ")",
		Unavailable:  v.Unavailable,
	}
	if out.Unavailable == nil {
		out.Unavailable = []string{}
	}
	for _, hv := range v.Holdings {
		res := HoldingValuationRes{HoldingRes: FromHolding(hv.Holding), Available: hv.Available}
		if hv.Available {
			price, value, gain, pct, weight := hv.CurrentPrice, hv.Value, hv.Gain, hv.GainPct, hv.Weight
			res.Stale = hv.Stale
			res.Currency = hv.Currency
			res.CurrentPrice = &price
			res.Value = &value
			res.Gain = &gain
			res.GainPct = &pct
			res.Weight = &weight
			res.Display = money.Format(value, hv.Currency)
		}
		out.Holdings = append(out.Holdings, res)
	}
	return out
}

// FromSummary はエンティティをレスポンスDTOに変換します。
func FromSummary(s entity.Summary) SummaryRes {
	symbols := s.Symbols
	if symbols == nil {
		symbols = []string{}
	}
	return SummaryRes{
		Name:         s.Name,
		CreatedAt:    s.CreatedAt,
		HoldingCount: s.HoldingCount,
		Symbols:      symbols,
		TotalCost:    s.TotalCost,
		Display:      money.Format(s.TotalCost, money.DefaultCurrency),
	}
}

// FromSectorAllocation はエンティティをレスポンスDTOに変換します。
func FromSectorAllocation(a entity.SectorAllocation) SectorAllocationRes {
	out := SectorAllocationRes{
		Name:         a.Name,
		Sectors:      make([]SectorRes, 0, len(a.Sectors)),
		Unclassified: a.Unclassified,
	}
	if out.Unclassified == nil {
		out.Unclassified = []string{}
	}
	for _, s := range a.Sectors {
		out.Sectors = append(out.Sectors, SectorRes{Sector: s.Sector, Count: s.Count, Symbols: s.Symbols, Weight: s.Weight})
	}
	return out
}

// FromPerformance はエンティティをレスポンスDTOに変換します。
func FromPerformance(points []entity.PerformancePoint) []PerformancePointRes {
	out := make([]PerformancePointRes, 0, len(points))
	for _, p := range points {
		out = append(out, PerformancePointRes{Date: p.Date.Format(DateLayout), Value: p.Value})
	}
	return out
}
