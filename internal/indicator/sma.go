package indicator

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

// TradingDays52w is the rolling window for the 52-week high and low.
const TradingDays52w = 252

// SMAColumn returns the column name for an SMA window.
func SMAColumn(window int) string {
	return fmt.Sprintf("SMA_%d", window)
}

// SMA returns the simple moving average of values. Positions before
// window-1 are NaN; talib leaves them at zero.
func SMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	sma := talib.Sma(values, window)
	copy(out[window-1:], sma[window-1:])
	return out
}

// ComputeSMAs returns a copy of s with one SMA column of the close per
// window. With no windows the defaults 50/150/200 are used.
func ComputeSMAs(s Series, windows ...int) Series {
	if len(windows) == 0 {
		windows = DefaultSMAWindows
	}
	closes := Closes(s.bars)
	added := make(map[string][]float64, len(windows))
	for _, w := range windows {
		added[SMAColumn(w)] = SMA(closes, w)
	}
	return s.with(added)
}

// RollingMax returns the max over a trailing window with a minimum of one
// observation, so every position is defined. talib.Max has no partial
// window, so this stays a loop.
func RollingMax(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		m := math.Inf(-1)
		for j := start; j <= i; j++ {
			if values[j] > m {
				m = values[j]
			}
		}
		out[i] = m
	}
	return out
}

// RollingMin is the trailing-window minimum counterpart of RollingMax.
func RollingMin(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		m := math.Inf(1)
		for j := start; j <= i; j++ {
			if values[j] < m {
				m = values[j]
			}
		}
		out[i] = m
	}
	return out
}

// Add52WeekHighLow returns a copy of s with High_52w and Low_52w columns.
func Add52WeekHighLow(s Series) Series {
	return s.with(map[string][]float64{
		High52w: RollingMax(Highs(s.bars), TradingDays52w),
		Low52w:  RollingMin(Lows(s.bars), TradingDays52w),
	})
}
