// Package money formats decimal amounts as currency strings.
package money

import (
	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a quote carries no currency.
const DefaultCurrency = "USD"

// Format renders amount in the given ISO 4217 currency, e.g. "$1,234.56".
// Amounts are rounded half-away-from-zero to the currency's minor unit.
func Format(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	cur := gomoney.GetCurrency(currency)
	if cur == nil {
		cur = gomoney.GetCurrency(DefaultCurrency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return gomoney.New(minor, cur.Code).Display()
}

// Percent renders a percentage with two decimals, e.g. "12.34%".
func Percent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}
