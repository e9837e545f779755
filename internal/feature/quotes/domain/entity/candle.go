package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle は1期間分のOHLCVデータです。
type Candle struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// History は銘柄の時系列データです。Candles は時刻の昇順に並びます。
type History struct {
	Symbol  string
	Period  Period
	Candles []Candle
}

// CloseNear returns the close of the candle nearest to t, provided it lies
// within tolerance. Candles must be sorted ascending.
func (h History) CloseNear(t time.Time, tolerance time.Duration) (decimal.Decimal, bool) {
	var (
		best     decimal.Decimal
		bestDist time.Duration = -1
	)
	for _, c := range h.Candles {
		d := c.Time.Sub(t)
		if d < 0 {
			d = -d
		}
		if d > tolerance {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = c.Close, d
		}
	}
	return best, bestDist >= 0
}

// Point は比較チャート用の正規化済みデータ点です。
type Point struct {
	Time  time.Time
	Value decimal.Decimal
}

// Series は銘柄ごとの正規化済み時系列です。
type Series struct {
	Symbol string
	Points []Point
}
