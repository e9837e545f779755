// Package entity はportfolioフィーチャーのドメインモデルを定義します。
package entity

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale は保存される価格・株数の小数桁数です。
const PriceScale = 8

// Portfolio は名前で識別される保有銘柄の集合です。
type Portfolio struct {
	Name      string    // ストア内で一意
	CreatedAt time.Time // 作成日時（UTC, マイクロ秒精度）
	Holdings  []Holding // Symbol の昇順
}

// Holding は1銘柄のポジションです。
type Holding struct {
	Symbol        string          // 大文字の銘柄コード
	Shares        decimal.Decimal // 端数株を許容
	PurchasePrice decimal.Decimal // 平均取得単価
	PurchaseDate  time.Time       // 取得日（UTC 0時）
	UpdatedAt     time.Time
}

// NewPortfolio は空のポートフォリオを生成します。
func NewPortfolio(name string, now time.Time) Portfolio {
	return Portfolio{Name: NormalizeName(name), CreatedAt: Timestamp(now)}
}

// NormalizeName trims surrounding whitespace from a portfolio name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// Timestamp normalizes t to the precision every backend can store.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Normalize は銘柄コード、日付、小数桁を保存形式に揃えます。
func (h Holding) Normalize() Holding {
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	h.Shares = h.Shares.Round(PriceScale)
	h.PurchasePrice = h.PurchasePrice.Round(PriceScale)
	h.PurchaseDate = Date(h.PurchaseDate)
	h.UpdatedAt = Timestamp(h.UpdatedAt)
	return h
}

// CostBasis は取得総額（株数×取得単価）を返します。
func (h Holding) CostBasis() decimal.Decimal {
	return h.Shares.Mul(h.PurchasePrice)
}

// Merge は同一銘柄の追加購入を1つのポジションにまとめます。
// 株数は合算、取得単価は株数加重平均、取得日は早い方を採用します。
func (h Holding) Merge(add Holding) Holding {
	total := h.Shares.Add(add.Shares)
	out := h
	out.Shares = total
	if total.IsPositive() {
		out.PurchasePrice = h.CostBasis().Add(add.CostBasis()).Div(total).Round(PriceScale)
	}
	if add.PurchaseDate.Before(h.PurchaseDate) {
		out.PurchaseDate = add.PurchaseDate
	}
	out.UpdatedAt = add.UpdatedAt
	return out
}

// Find は銘柄のインデックスを返します。
func (p *Portfolio) Find(symbol string) (int, bool) {
	for i, h := range p.Holdings {
		if h.Symbol == symbol {
			return i, true
		}
	}
	return -1, false
}

// Upsert は保有を追加し、既存の銘柄であれば Merge します。
func (p *Portfolio) Upsert(h Holding) Holding {
	if i, ok := p.Find(h.Symbol); ok {
		p.Holdings[i] = p.Holdings[i].Merge(h)
		return p.Holdings[i]
	}
	p.Holdings = append(p.Holdings, h)
	p.SortHoldings()
	return h
}

// Replace は既存の保有を置き換えます。銘柄が無い場合は false を返します。
func (p *Portfolio) Replace(h Holding) bool {
	i, ok := p.Find(h.Symbol)
	if !ok {
		return false
	}
	p.Holdings[i] = h
	return true
}

// Remove は保有を削除します。銘柄が無い場合は false を返します。
func (p *Portfolio) Remove(symbol string) bool {
	i, ok := p.Find(symbol)
	if !ok {
		return false
	}
	p.Holdings = slices.Delete(p.Holdings, i, i+1)
	return true
}

// SortHoldings は保有を銘柄コード順に並べ替えます。
func (p *Portfolio) SortHoldings() {
	slices.SortFunc(p.Holdings, func(a, b Holding) int {
		return strings.Compare(a.Symbol, b.Symbol)
	})
}

// Symbols は保有銘柄コードの一覧を返します。
func (p Portfolio) Symbols() []string {
	out := make([]string, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		out = append(out, h.Symbol)
	}
	return out
}
