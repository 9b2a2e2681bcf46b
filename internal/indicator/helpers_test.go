package indicator

import (
	"time"

	"basescan/pkg/model"
)

// businessDays returns n weekday dates starting at start (rolled forward
// off a weekend).
func businessDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for len(out) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// barsFromCloses builds bars whose high/low sit 1% around the close.
func barsFromCloses(start time.Time, closes []float64) []model.Candle {
	days := businessDays(start, len(closes))
	bars := make([]model.Candle, len(closes))
	for i, c := range closes {
		bars[i] = model.Candle{
			Time:   days[i],
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}
