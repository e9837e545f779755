package usecase

import "errors"

var (
	// ErrPortfolioNotFound は指定された名前のポートフォリオが存在しない場合に返されます。
	ErrPortfolioNotFound = errors.New("portfolio not found")
	// ErrPortfolioAlreadyExists は同名のポートフォリオが既に存在する場合に返されます。
	ErrPortfolioAlreadyExists = errors.New("portfolio already exists")
	// ErrHoldingNotFound はポートフォリオに指定の銘柄が無い場合に返されます。
	ErrHoldingNotFound = errors.New("holding not found")
	// ErrInvalidPortfolioName はポートフォリオ名が空または長すぎる場合に返されます。
	ErrInvalidPortfolioName = errors.New("invalid portfolio name")
	// ErrInvalidHolding は銘柄・株数・取得単価が不正な場合に返されます。
	ErrInvalidHolding = errors.New("invalid holding")
	// ErrInvalidPeriod は未対応の期間が指定された場合に返されます。
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrPriceUnavailable は取得単価の自動補完に必要な現在値が得られない場合に返されます。
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrStoreUnavailable はバックエンド（DB・ファイル）の操作に失敗した場合に返されます。
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrSerialization は保存ファイルが破損しているか想定外の形式の場合に返されます。
	ErrSerialization = errors.New("serialization error")
)
