package sepa

import "basescan/pkg/model"

// Source identifies which heuristic proposed a candidate interval.
type Source string

const (
	SourcePivotHigh    Source = "pivot_high"
	SourceTrailingHigh Source = "trailing_high"
	SourcePivotAnchor  Source = "pivot_anchor"
)

// Candidate is a weekly interval [Hi, End] to evaluate as a base.
type Candidate struct {
	Hi     int
	End    int
	Source Source
}

// Candidates generates intervals from all three heuristics, deduplicated by
// (Hi, End) with the first proposer kept.
func Candidates(weekly []model.Candle, pivotHighs []int, pivot FormingState, p Params) []Candidate {
	n := len(weekly)
	if n == 0 {
		return nil
	}
	last := n - 1

	var out []Candidate
	seen := make(map[[2]int]bool)
	add := func(c Candidate) {
		if c.End <= c.Hi {
			return
		}
		key := [2]int{c.Hi, c.End}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, c)
	}

	// Pivot high to the week before the next pivot high.
	for k, hi := range pivotHighs {
		end := last
		if k+1 < len(pivotHighs) {
			end = pivotHighs[k+1] - 1
		}
		add(Candidate{Hi: hi, End: end, Source: SourcePivotHigh})
	}

	// Highest recent week not yet confirmed as a pivot high.
	if idx := argMaxHigh(weekly, n-p.TrailingHighWeeks, n); idx >= 0 {
		if !containsInt(pivotHighs, idx) && last-idx >= p.TrailingHighMinAge {
			add(Candidate{Hi: idx, End: last, Source: SourceTrailingHigh})
		}
	}

	// Highest week before a forming daily pivot.
	if pivot.Forming {
		before := 0
		for before < n && weekly[before].Time.Before(pivot.StartDate) {
			before++
		}
		if idx := argMaxHigh(weekly, before-p.PivotAnchorWeeks, before); idx >= 0 {
			add(Candidate{Hi: idx, End: last, Source: SourcePivotAnchor})
		}
	}

	return out
}

// argMaxHigh returns the first index of the highest high in [from, to), or
// -1 for an empty range.
func argMaxHigh(weekly []model.Candle, from, to int) int {
	if from < 0 {
		from = 0
	}
	if to > len(weekly) {
		to = len(weekly)
	}
	best := -1
	for i := from; i < to; i++ {
		if best < 0 || weekly[i].High > weekly[best].High {
			best = i
		}
	}
	return best
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
