package sepa

import (
	"time"

	"basescan/pkg/model"
)

// Volume labels returned by PivotVolumeVsAverage.
const (
	VolumeBelow = "below"
	VolumeAbove = "above"
)

// FormingState describes a tight daily consolidation ending on the last bar.
type FormingState struct {
	Forming     bool      `json:"forming"`
	Days        int       `json:"days,omitempty"`
	RangePct    float64   `json:"range_pct,omitempty"`
	TightCloses bool      `json:"tight_closes"`
	StartDate   time.Time `json:"pivot_start_date"`
	EndDate     time.Time `json:"pivot_end_date"`
	PivotHigh   float64   `json:"pivot_high,omitempty"`
}

// PivotForming searches the trailing MaxDays..MinDays daily bars, longest
// first, for a window whose high-low range is below MaxRangePct of its high.
// The longest qualifying window is returned.
func PivotForming(daily []model.Candle, fp FormingParams) FormingState {
	n := len(daily)
	if n < fp.MinDays || fp.MinDays <= 0 {
		return FormingState{}
	}

	maxDays := fp.MaxDays
	if maxDays > n {
		maxDays = n
	}

	for days := maxDays; days >= fp.MinDays; days-- {
		window := daily[n-days:]
		hi, lo := window[0].High, window[0].Low
		for _, b := range window[1:] {
			if b.High > hi {
				hi = b.High
			}
			if b.Low < lo {
				lo = b.Low
			}
		}
		if hi <= 0 {
			continue
		}
		rangePct := (hi - lo) * 100 / hi
		if rangePct >= fp.MaxRangePct {
			continue
		}
		return FormingState{
			Forming:     true,
			Days:        days,
			RangePct:    round2(rangePct),
			TightCloses: tightCloses(window, fp),
			StartDate:   window[0].Time,
			EndDate:     window[len(window)-1].Time,
			PivotHigh:   round2(hi),
		}
	}
	return FormingState{}
}

// tightCloses checks the last TightCloseDays closes span no more than
// TightClosePct of their midpoint.
func tightCloses(window []model.Candle, fp FormingParams) bool {
	k := fp.TightCloseDays
	if k <= 0 || len(window) < k {
		return false
	}
	last := window[len(window)-k:]
	hi, lo := last[0].Close, last[0].Close
	for _, b := range last[1:] {
		if b.Close > hi {
			hi = b.Close
		}
		if b.Close < lo {
			lo = b.Close
		}
	}
	mid := (hi + lo) / 2
	if mid <= 0 {
		return false
	}
	return (hi-lo)/mid*100 <= fp.TightClosePct
}

// PivotInBase returns the base that contains the forming pivot, or nil.
// A base qualifies when its [start, end] overlaps the pivot window; among
// those, a base containing the pivot end date wins, and a current base wins
// over a stale one.
func PivotInBase(pivot FormingState, bases []Base) *Base {
	if !pivot.Forming || len(bases) == 0 {
		return nil
	}

	var overlap, containing, current *Base
	for i := range bases {
		b := &bases[i]
		if pivot.StartDate.After(b.EndDate) || pivot.EndDate.Before(b.StartDate) {
			continue
		}
		if overlap == nil {
			overlap = b
		}
		if !pivot.EndDate.Before(b.StartDate) && !pivot.EndDate.After(b.EndDate) {
			if containing == nil {
				containing = b
			}
			if b.IsCurrent && current == nil {
				current = b
			}
		}
	}

	switch {
	case current != nil:
		return current
	case containing != nil:
		return containing
	default:
		return overlap
	}
}

// PivotVolumeVsAverage compares the mean volume inside the pivot window to
// the mean over the trailing VolumeLookback bars (or all bars when fewer
// exist). ok is false when either mean cannot be formed.
func PivotVolumeVsAverage(daily []model.Candle, pivot FormingState, fp FormingParams) (label string, ok bool) {
	if !pivot.Forming || len(daily) == 0 {
		return "", false
	}

	var pivotSum float64
	var pivotN int
	for _, b := range daily {
		if b.Time.Before(pivot.StartDate) || b.Time.After(pivot.EndDate) {
			continue
		}
		pivotSum += float64(b.Volume)
		pivotN++
	}
	if pivotN == 0 {
		return "", false
	}

	lookback := fp.VolumeLookback
	if lookback <= 0 || lookback > len(daily) {
		lookback = len(daily)
	}
	var avgSum float64
	for _, b := range daily[len(daily)-lookback:] {
		avgSum += float64(b.Volume)
	}
	avg := avgSum / float64(lookback)
	if avg <= 0 {
		return "", false
	}

	if pivotSum/float64(pivotN) < avg {
		return VolumeBelow, true
	}
	return VolumeAbove, true
}
