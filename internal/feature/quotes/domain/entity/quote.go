// Package entity はquotesフィーチャーのドメインモデルを定義します。
package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote は銘柄の現在値です。
type Quote struct {
	Symbol    string          // 銘柄コード（大文字）
	Price     decimal.Decimal // 現在値
	Currency  string          // ISO 4217 通貨コード
	UpdatedAt time.Time       // プロバイダ側の最終更新時刻
	FetchedAt time.Time       // プロバイダから取得した時刻
	Stale     bool            // TTL切れのキャッシュから返された場合 true
}

// Age returns how long ago the quote was fetched.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.FetchedAt)
}

// NormalizeSymbol は銘柄コードの前後の空白を除去し、大文字に正規化します。
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
