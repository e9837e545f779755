package entity

// Period は履歴取得の対象期間です。
type Period string

const (
	Period1M Period = "1mo"
	Period3M Period = "3mo"
	Period6M Period = "6mo"
	Period1Y Period = "1y"
	Period2Y Period = "2y"
	Period5Y Period = "5y"

	// DefaultPeriod は期間未指定時に使用されます。
	DefaultPeriod = Period1Y
)

type periodSpec struct {
	interval   string
	outputSize int
}

// 取引日ベースの件数。5年は週足で取得する。
var periods = map[Period]periodSpec{
	Period1M: {"1day", 22},
	Period3M: {"1day", 66},
	Period6M: {"1day", 130},
	Period1Y: {"1day", 252},
	Period2Y: {"1day", 504},
	Period5Y: {"1week", 260},
}

// Periods lists the supported periods in ascending order.
func Periods() []Period {
	return []Period{Period1M, Period3M, Period6M, Period1Y, Period2Y, Period5Y}
}

// ParsePeriod は文字列を Period に変換します。空文字列は DefaultPeriod になります。
func ParsePeriod(s string) (Period, bool) {
	if s == "" {
		return DefaultPeriod, true
	}
	p := Period(s)
	_, ok := periods[p]
	return p, ok
}

// Interval はプロバイダに渡す足の間隔を返します。
func (p Period) Interval() string {
	return periods[p].interval
}

// OutputSize はプロバイダに要求する件数を返します。
func (p Period) OutputSize() int {
	return periods[p].outputSize
}
