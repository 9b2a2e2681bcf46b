// Package synth builds deterministic price histories for tests.
package synth

import (
	"math"
	"time"

	"basescan/pkg/model"
)

// DefaultVolume is the per-day volume used by the builders.
const DefaultVolume = 1_000_000

// Start is a Monday used as the default first trading day.
var Start = time.Date(2019, 1, 7, 0, 0, 0, 0, time.UTC)

// BusinessDays returns n consecutive weekday dates from start.
func BusinessDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for len(out) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// Uptrend returns n daily bars compounding at growth per day from price.
// Each bar spans 1% either side of its close.
func Uptrend(start time.Time, n int, price, growth float64) []model.Candle {
	days := BusinessDays(start, n)
	bars := make([]model.Candle, n)
	for i := range bars {
		c := price * math.Exp(growth*float64(i))
		bars[i] = model.Candle{
			Time:   days[i],
			Open:   c * 0.998,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: DefaultVolume,
		}
	}
	return bars
}

// Shape is one bar expressed as fractions of a reference price.
type Shape struct {
	Open, High, Low, Close float64
}

// AppendShapes appends one daily bar per shape, scaled by ref, on the
// business days following the last bar.
func AppendShapes(bars []model.Candle, ref float64, shapes []Shape) []model.Candle {
	next := bars[len(bars)-1].Time.AddDate(0, 0, 1)
	days := BusinessDays(next, len(shapes))
	out := make([]model.Candle, len(bars), len(bars)+len(shapes))
	copy(out, bars)
	for i, s := range shapes {
		out = append(out, model.Candle{
			Time:   days[i],
			Open:   ref * s.Open,
			High:   ref * s.High,
			Low:    ref * s.Low,
			Close:  ref * s.Close,
			Volume: DefaultVolume,
		})
	}
	return out
}

// ExpandWeeks turns weekly bars into five identical daily bars per week,
// starting on the Monday start. ToWeekly of the result reproduces weeks.
func ExpandWeeks(start time.Time, weeks []model.Candle) []model.Candle {
	days := BusinessDays(start, len(weeks)*5)
	out := make([]model.Candle, 0, len(days))
	for i, w := range weeks {
		for j := 0; j < 5; j++ {
			out = append(out, model.Candle{
				Time:   days[i*5+j],
				Open:   w.Open,
				High:   w.High,
				Low:    w.Low,
				Close:  w.Close,
				Volume: w.Volume / 5,
			})
		}
	}
	return out
}

// darvasShapes is a three-week pullback and recovery relative to the prior
// high: a 12% dip over two weeks, then five tight days just under the high.
var darvasShapes = []Shape{
	{0.975, 0.990, 0.955, 0.960},
	{0.960, 0.965, 0.930, 0.935},
	{0.935, 0.940, 0.910, 0.915},
	{0.915, 0.925, 0.900, 0.905},
	{0.905, 0.915, 0.890, 0.895},
	{0.895, 0.900, 0.880, 0.885},
	{0.885, 0.910, 0.880, 0.905},
	{0.905, 0.930, 0.900, 0.925},
	{0.925, 0.945, 0.915, 0.940},
	{0.940, 0.950, 0.890, 0.945},
	{0.970, 0.982, 0.968, 0.978},
	{0.978, 0.984, 0.970, 0.980},
	{0.980, 0.985, 0.972, 0.981},
	{0.981, 0.985, 0.973, 0.982},
	{0.982, 0.985, 0.975, 0.983},
}

// DarvasUpTrendDays is the length of the advance in DarvasSetup. It is a
// whole number of weeks so the advance ends on a Friday.
const DarvasUpTrendDays = 1250

// DarvasSetup returns about five years of a steady advance followed by a
// four-week box: the final advance week sets the high, two weeks dip about
// 12%, and the last week forms a five-day pivot within 2% of the high.
func DarvasSetup(start time.Time) []model.Candle {
	bars := Uptrend(start, DarvasUpTrendDays, 20, 0.0015)
	high := bars[len(bars)-1].High
	return AppendShapes(bars, high, darvasShapes)
}

// DoubleBottomWeeks returns 270 weekly bars: a 260-week advance, a prior
// high of 110 on week 260, and a ten-week base with pivot lows of 100
// (week 262) and 103 (week 267) under steadily lower highs.
func DoubleBottomWeeks() []model.Candle {
	weeks := make([]model.Candle, 0, 270)
	for k := 0; k < 260; k++ {
		c := 105 * math.Exp(-0.004*float64(259-k))
		weeks = append(weeks, model.Candle{Open: c * 0.998, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 5 * DefaultVolume})
	}
	base := []Shape{
		{106, 110, 104, 106.5},       // 260 prior high
		{107, 108, 104, 104.5},       // 261
		{104, 107, 100, 101},         // 262 first low
		{101, 106.5, 101, 103},       // 263
		{103, 106, 102, 105},         // 264
		{105, 105.8, 104, 105.5},     // 265
		{105.5, 105.5, 104.5, 105},   // 266
		{105, 105.2, 103, 104},       // 267 second low
		{104, 105.1, 104, 104.8},     // 268
		{104.8, 105.0, 104.5, 104.9}, // 269
	}
	for _, s := range base {
		weeks = append(weeks, model.Candle{Open: s.Open, High: s.High, Low: s.Low, Close: s.Close, Volume: 5 * DefaultVolume})
	}
	return weeks
}
