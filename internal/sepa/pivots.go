package sepa

import "basescan/pkg/model"

// PivotHighsLows returns the ascending indexes of weekly swing highs and
// lows. Bar i is a pivot high when its high is the maximum over
// [i-radius, i+radius] clipped to the series, and a pivot low when its low
// is the minimum. Ties count, so flat tops yield adjacent pivots.
func PivotHighsLows(weekly []model.Candle, radius int) (highs, lows []int) {
	n := len(weekly)
	for i := 0; i < n; i++ {
		left := i - radius
		if left < 0 {
			left = 0
		}
		right := i + radius + 1
		if right > n {
			right = n
		}

		isHigh, isLow := true, true
		for j := left; j < right; j++ {
			if weekly[j].High > weekly[i].High {
				isHigh = false
			}
			if weekly[j].Low < weekly[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, i)
		}
		if isLow {
			lows = append(lows, i)
		}
	}
	return highs, lows
}
