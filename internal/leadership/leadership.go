// Package leadership scores a stock against the trend template and measures
// its relative strength versus a benchmark.
package leadership

import (
	"fmt"
	"math"
	"sort"
	"time"

	"basescan/internal/indicator"
	"basescan/pkg/model"
)

// RSWindow is the trailing overlap, in trading days, used by RSRatio.
const RSWindow = 126

// SlopeDays is how far back criterion 3 compares the 200-day SMA.
const SlopeDays = 21

// Criterion is one trend-template check.
type Criterion struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail,omitempty"`
}

// TemplateResult is the trend-template score with per-criterion detail.
type TemplateResult struct {
	Score    int         `json:"score"`
	Criteria []Criterion `json:"criteria"`
	Date     time.Time   `json:"date"`
}

// TrendTemplate evaluates the eight criteria on the last bar at or before at
// (zero at means the latest bar). rs may be nil, which fails criterion 8.
// Missing SMA or 52-week columns are computed on a copy.
func TrendTemplate(s indicator.Series, rs *float64, at time.Time) TemplateResult {
	if s.Len() == 0 {
		return TemplateResult{}
	}
	pos := s.Len() - 1
	if !at.IsZero() {
		pos = s.IndexAtOrBefore(at)
		if pos < 0 {
			return TemplateResult{}
		}
	}
	if !s.Has(indicator.SMA200) {
		s = indicator.ComputeSMAs(s)
	}
	if !s.Has(indicator.High52w) {
		s = indicator.Add52WeekHighLow(s)
	}

	price := s.Bar(pos).Close
	sma50 := s.Value(indicator.SMA50, pos)
	sma150 := s.Value(indicator.SMA150, pos)
	sma200 := s.Value(indicator.SMA200, pos)
	high52 := s.Value(indicator.High52w, pos)
	low52 := s.Value(indicator.Low52w, pos)

	// NaN comparisons are false, so undefined averages fail on their own.
	rising := false
	if pos >= SlopeDays {
		ago := s.Value(indicator.SMA200, pos-SlopeDays)
		rising = sma200 > ago
	}

	rsDetail := "N/A"
	if rs != nil {
		rsDetail = fmt.Sprintf("RS ratio %.2f", *rs)
	}

	criteria := []Criterion{
		{Name: "Price above 150d & 200d SMA", Pass: price > sma150 && price > sma200, Detail: fmt.Sprintf("Close %.2f", price)},
		{Name: "150d SMA above 200d SMA", Pass: sma150 > sma200},
		{Name: "200d SMA rising (1 month)", Pass: rising},
		{Name: "50d SMA above 150d & 200d", Pass: sma50 > sma150 && sma50 > sma200},
		{Name: "Price above 50d SMA", Pass: price > sma50},
		{Name: "Price at least 25% above 52w low", Pass: low52 > 0 && price >= 1.25*low52},
		{Name: "Price within 25% of 52w high", Pass: high52 > 0 && price >= 0.75*high52},
		{Name: "Relative strength vs benchmark", Pass: rs != nil && *rs >= 1, Detail: rsDetail},
	}

	res := TemplateResult{Criteria: criteria, Date: s.Bar(pos).Time}
	for _, c := range criteria {
		if c.Pass {
			res.Score++
		}
	}
	return res
}

// RSRatio divides the stock's close-to-close return by the benchmark's over
// the last window common trading dates (all common dates when fewer). ok is
// false with under two common dates or a non-positive start price or
// benchmark return.
func RSRatio(stock, bench []model.Candle, window int) (ratio float64, ok bool) {
	if window <= 0 {
		window = RSWindow
	}
	benchClose := make(map[string]float64, len(bench))
	for _, b := range bench {
		if !math.IsNaN(b.Close) {
			benchClose[model.DateKey(b.Time)] = b.Close
		}
	}

	type pair struct {
		t    time.Time
		s, b float64
	}
	var common []pair
	for _, c := range stock {
		if math.IsNaN(c.Close) {
			continue
		}
		if bc, found := benchClose[model.DateKey(c.Time)]; found {
			common = append(common, pair{t: c.Time, s: c.Close, b: bc})
		}
	}
	sort.SliceStable(common, func(i, j int) bool { return common[i].t.Before(common[j].t) })

	if len(common) < 2 {
		return 0, false
	}
	if len(common) > window {
		common = common[len(common)-window:]
	}
	first, last := common[0], common[len(common)-1]
	if first.s <= 0 || first.b <= 0 {
		return 0, false
	}
	benchRet := last.b / first.b
	if benchRet <= 0 {
		return 0, false
	}
	return (last.s / first.s) / benchRet, true
}
