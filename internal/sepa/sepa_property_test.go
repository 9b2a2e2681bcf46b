package sepa

import (
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"basescan/internal/indicator"
	"basescan/internal/synth"
	"basescan/pkg/model"
)

func randomWalk(returns []float64) []model.Candle {
	days := synth.BusinessDays(synth.Start, len(returns))
	out := make([]model.Candle, len(returns))
	c := 50.0
	for i, r := range returns {
		open := c
		c *= 1 + r
		out[i] = model.Candle{
			Time:   days[i],
			Open:   open,
			High:   math.Max(open, c) * 1.01,
			Low:    math.Min(open, c) * 0.99,
			Close:  c,
			Volume: synth.DefaultVolume + int64(i%7)*50_000,
		}
	}
	return out
}

// Property: detection is deterministic and each base satisfies the
// structural guarantees: unique start dates in order, a closed interval,
// positive resistance, and distance only when untriggered.
func TestFindBasesProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)
	p := DefaultParams()

	properties.Property("bases are deterministic and well formed", prop.ForAll(
		func(returns []float64) bool {
			daily := randomWalk(returns)
			weekly := indicator.ToWeekly(daily)
			pivot := PivotForming(daily, p.Forming)

			first := FindBases(weekly, indicator.NewSeries(daily), pivot, p)
			second := FindBases(weekly, indicator.NewSeries(daily), pivot, p)
			if !reflect.DeepEqual(first, second) {
				return false
			}

			last := len(weekly) - 1
			seen := make(map[int64]bool)
			for i, b := range first {
				if i > 0 && first[i-1].StartDate.After(b.StartDate) {
					return false
				}
				key := b.StartDate.Unix()
				if seen[key] {
					return false
				}
				seen[key] = true

				if b.EndIndex <= b.StartIndex || b.DurationWeeks != b.EndIndex-b.StartIndex+1 {
					return false
				}
				if !(b.Resistance > 0) || b.DepthPct < 0 {
					return false
				}
				if b.IsCurrent != (b.EndIndex == last) {
					return false
				}
				if b.Triggered() && b.DistancePct != 0 {
					return false
				}
				if b.DurationWeeks > p.CupHandleWeeks.Max {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(320, gen.Float64Range(-0.025, 0.03)),
	))

	properties.TestingRun(t)
}

// Property: PivotForming returns the longest trailing window under the
// range threshold, and nothing when no window qualifies.
func TestPivotFormingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	fp := DefaultParams().Forming

	properties.Property("longest qualifying window wins", prop.ForAll(
		func(returns []float64) bool {
			daily := randomWalk(returns)
			got := PivotForming(daily, fp)

			want := 0
			for days := fp.MaxDays; days >= fp.MinDays && days <= len(daily); days-- {
				window := daily[len(daily)-days:]
				hi, lo := window[0].High, window[0].Low
				for _, b := range window {
					hi = math.Max(hi, b.High)
					lo = math.Min(lo, b.Low)
				}
				if (hi-lo)*100/hi < fp.MaxRangePct {
					want = days
					break
				}
			}

			if want == 0 {
				return !got.Forming
			}
			return got.Forming && got.Days == want && got.RangePct <= fp.MaxRangePct &&
				got.EndDate.Equal(daily[len(daily)-1].Time)
		},
		gen.SliceOfN(12, gen.Float64Range(-0.02, 0.02)),
	))

	properties.TestingRun(t)
}
