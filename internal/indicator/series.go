// Package indicator computes moving averages, rolling ranges and volatility
// over daily price history. Every function that adds a column returns a new
// Series; the receiver and its bars are never written to.
package indicator

import (
	"math"
	"sort"
	"time"

	"basescan/pkg/model"
)

// Column names used by the overlay functions.
const (
	SMA50   = "SMA_50"
	SMA150  = "SMA_150"
	SMA200  = "SMA_200"
	High52w = "High_52w"
	Low52w  = "Low_52w"
	ATR     = "ATR"
)

// DefaultSMAWindows are the trend windows used by the uptrend test and the
// trend template.
var DefaultSMAWindows = []int{50, 150, 200}

// Series is an ascending, unique-date daily series with derived columns.
// Column values are NaN where they are undefined.
type Series struct {
	bars []model.Candle
	cols map[string][]float64
}

// NewSeries builds a Series over a private copy of bars.
func NewSeries(bars []model.Candle) Series {
	cp := make([]model.Candle, len(bars))
	copy(cp, bars)
	return Series{bars: cp}
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.bars) }

// Bar returns the bar at position i.
func (s Series) Bar(i int) model.Candle { return s.bars[i] }

// Bars returns a copy of the underlying bars.
func (s Series) Bars() []model.Candle {
	cp := make([]model.Candle, len(s.bars))
	copy(cp, s.bars)
	return cp
}

// Last returns the final bar. It panics on an empty series.
func (s Series) Last() model.Candle { return s.bars[len(s.bars)-1] }

// Has reports whether the named column exists.
func (s Series) Has(name string) bool {
	_, ok := s.cols[name]
	return ok
}

// Columns returns the names of all derived columns in sorted order.
func (s Series) Columns() []string {
	names := make([]string, 0, len(s.cols))
	for k := range s.cols {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Value returns column name at position i, or NaN when the column is
// missing, the position is out of range, or the value is undefined.
func (s Series) Value(name string, i int) float64 {
	col, ok := s.cols[name]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Column returns a copy of the named column, or nil when it does not exist.
func (s Series) Column(name string) []float64 {
	col, ok := s.cols[name]
	if !ok {
		return nil
	}
	cp := make([]float64, len(col))
	copy(cp, col)
	return cp
}

// with returns a new Series sharing bars (read-only) and existing columns,
// plus the given columns.
func (s Series) with(added map[string][]float64) Series {
	cols := make(map[string][]float64, len(s.cols)+len(added))
	for k, v := range s.cols {
		cols[k] = v
	}
	for k, v := range added {
		cols[k] = v
	}
	return Series{bars: s.bars, cols: cols}
}

// IndexAtOrBefore returns the position of the last bar dated on or before
// t, or -1 when every bar is later.
func (s Series) IndexAtOrBefore(t time.Time) int {
	i := sort.Search(len(s.bars), func(i int) bool {
		return s.bars[i].Time.After(t)
	})
	return i - 1
}

// IndexRange returns the half-open position range of bars dated within
// [from, to].
func (s Series) IndexRange(from, to time.Time) (int, int) {
	lo := sort.Search(len(s.bars), func(i int) bool {
		return !s.bars[i].Time.Before(from)
	})
	hi := sort.Search(len(s.bars), func(i int) bool {
		return s.bars[i].Time.After(to)
	})
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Closes returns the close prices.
func Closes(bars []model.Candle) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high prices.
func Highs(bars []model.Candle) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low prices.
func Lows(bars []model.Candle) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
