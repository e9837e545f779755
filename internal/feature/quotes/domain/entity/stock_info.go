package entity

import "github.com/shopspring/decimal"

// StockInfo は銘柄の基本情報です。取得できなかった項目は空文字またはゼロ値です。
type StockInfo struct {
	Symbol        string
	Name          string
	Exchange      string
	Currency      string
	Sector        string
	Industry      string
	High52w       decimal.Decimal
	Low52w        decimal.Decimal
	PreviousClose decimal.Decimal
	MarketCap     decimal.Decimal
	PERatio       decimal.Decimal
	DividendYield decimal.Decimal // 年率（0.0044 = 0.44%）
	Beta          decimal.Decimal
}
