package sepa

import (
	"math"
	"time"

	"basescan/internal/indicator"
	"basescan/pkg/model"
)

// vcpLike reports a volatility-contraction signature: pullback depths to
// each interior low shrink strictly (at least two lows), down-week volume
// averages below up-week volume, and daily ATR is lower at the end of the
// base than at its start. Missing volume or ATR data passes its check.
func vcpLike(w, seg []model.Candle, lowsIn []int, priorHigh float64, daily indicator.Series, start, end time.Time) bool {
	if priorHigh <= 0 || len(lowsIn) < 2 {
		return false
	}

	prev := math.Inf(1)
	for _, i := range lowsIn {
		d := (priorHigh - w[i].Low) / priorHigh * 100
		if d >= prev {
			return false
		}
		prev = d
	}

	var upSum, downSum float64
	var upN, downN int
	for _, b := range seg {
		if b.Close >= b.Open {
			upSum += float64(b.Volume)
			upN++
		} else {
			downSum += float64(b.Volume)
			downN++
		}
	}
	if upN > 0 && downN > 0 {
		upAvg := upSum / float64(upN)
		if upAvg > 0 && downSum/float64(downN) >= upAvg {
			return false
		}
	}

	if daily.Has(indicator.ATR) {
		lo, hi := daily.IndexRange(start, end)
		if hi > lo {
			atrStart := daily.Value(indicator.ATR, lo)
			atrEnd := daily.Value(indicator.ATR, hi-1)
			if !math.IsNaN(atrStart) && !math.IsNaN(atrEnd) && atrStart > 0 && atrEnd >= atrStart {
				return false
			}
		}
	}
	return true
}
