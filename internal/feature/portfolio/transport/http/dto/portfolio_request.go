// Package dto はportfolioフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout は取得日の入出力形式です。
const DateLayout = "2006-01-02"

// CreatePortfolioReq は POST /portfolios のリクエストボディです。
type CreatePortfolioReq struct {
	Name string `json:"name" binding:"required"`
}

// AddHoldingReq は POST /portfolios/:name/holdings のリクエストボディです。
// PurchasePrice を省略すると現在値で補完されます。
type AddHoldingReq struct {
	Symbol        string           `json:"symbol" binding:"required"`
	Shares        *decimal.Decimal `json:"shares" binding:"required"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	PurchaseDate  string           `json:"purchase_date"` // YYYY-MM-DD, 省略時は当日
}

// UpdateHoldingReq は PUT /portfolios/:name/holdings/:symbol のリクエストボディです。
type UpdateHoldingReq struct {
	Shares        *decimal.Decimal `json:"shares" binding:"required"`
	PurchasePrice *decimal.Decimal `json:"purchase_price" binding:"required"`
	PurchaseDate  string           `json:"purchase_date"` // 省略時は既存の取得日を維持
}

// ParseDate は空文字を nil として YYYY-MM-DD を解釈します。
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("purchase_date must be YYYY-MM-DD: %w", err)
	}
	return &t, nil
}
