package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingValuation は現在値で評価した1銘柄の損益です。
// Available が false の場合、現在値に依存するフィールドはゼロ値です。
type HoldingValuation struct {
	Holding      Holding
	Available    bool
	Stale        bool
	Currency     string
	CurrentPrice decimal.Decimal
	Value        decimal.Decimal
	CostBasis    decimal.Decimal
	Gain         decimal.Decimal
	GainPct      decimal.Decimal
	Weight       decimal.Decimal // 評価額合計に占める割合（%）
}

// Valuation はポートフォリオ全体の評価です。合計は Available な銘柄のみで計算されます。
type Valuation struct {
	Name         string
	Holdings     []HoldingValuation
	TotalValue   decimal.Decimal
	TotalCost    decimal.Decimal
	TotalGain    decimal.Decimal
	TotalGainPct decimal.Decimal
	Unavailable  []string
}

// Summary はポートフォリオの概要です。
type Summary struct {
	Name         string
	CreatedAt    time.Time
	HoldingCount int
	Symbols      []string
	TotalCost    decimal.Decimal
}

// SectorCount は1セクターに属する保有銘柄です。
type SectorCount struct {
	Sector  string
	Count   int
	Symbols []string
	Weight  decimal.Decimal // 分類済み銘柄数に占める割合（%）
}

// SectorAllocation はポートフォリオのセクター構成です。Sectors は銘柄数の多い順です。
type SectorAllocation struct {
	Name         string
	Sectors      []SectorCount
	Classified   int
	Unclassified []string
}

// PerformancePoint は日次のポートフォリオ評価額です。
type PerformancePoint struct {
	Date  time.Time
	Value decimal.Decimal
}

// Percent returns part/whole*100 rounded to 4 places, or zero when whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(4)
}
