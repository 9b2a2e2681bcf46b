package indicator

import (
	talib "github.com/markcheno/go-talib"

	"basescan/pkg/model"
)

// DefaultATRPeriod is the Wilder period used for volatility contraction.
const DefaultATRPeriod = 14

// AverageTrueRange computes Wilder-smoothed ATR. True range needs a prior
// close, so the first value sits at index period (the mean true range of
// bars 1..period) and earlier positions are NaN.
func AverageTrueRange(bars []model.Candle, period int) []float64 {
	n := len(bars)
	out := nanSlice(n)
	if period < 1 || n <= period {
		return out
	}
	atr := talib.Atr(Highs(bars), Lows(bars), Closes(bars), period)
	copy(out[period:], atr[period:])
	return out
}

// AddATR returns a copy of s with an ATR column.
func AddATR(s Series, period int) Series {
	return s.with(map[string][]float64{ATR: AverageTrueRange(s.bars, period)})
}
