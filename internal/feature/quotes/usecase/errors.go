package usecase

import "errors"

var (
	// ErrQuoteUnavailable はキャッシュにもプロバイダにも現在値が無い場合に返されます。
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrHistoryUnavailable は履歴の取得に失敗した場合に返されます。
	ErrHistoryUnavailable = errors.New("history unavailable")
	// ErrInvalidSymbol は銘柄コードが空の場合に返されます。
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInvalidPeriod は未対応の期間が指定された場合に返されます。
	ErrInvalidPeriod = errors.New("invalid period")
)
