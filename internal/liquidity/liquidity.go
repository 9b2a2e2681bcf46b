// Package liquidity measures average daily volume and turns it into an
// exit-capacity limit for position sizing.
package liquidity

import "basescan/pkg/model"

// ADV windows in trading days.
const (
	Window20 = 20
	Window50 = 50
)

// Defaults for MaxPurchase.
const (
	DefaultMaxDaysToExit = 5
	DefaultPctADVPerDay  = 0.25
)

// ADV returns the mean volume of the last window bars. ok is false with
// fewer bars than window, when every volume in the window is non-positive,
// or when the mean is not positive.
func ADV(bars []model.Candle, window int) (adv float64, ok bool) {
	if window <= 0 || len(bars) < window {
		return 0, false
	}
	tail := bars[len(bars)-window:]
	var sum float64
	positive := false
	for _, b := range tail {
		if b.Volume > 0 {
			positive = true
		}
		sum += float64(b.Volume)
	}
	if !positive {
		return 0, false
	}
	mean := sum / float64(window)
	if mean <= 0 {
		return 0, false
	}
	return mean, true
}

// Metrics summarises liquidity from daily bars. Nil fields are undefined.
type Metrics struct {
	ADV20       *float64 `json:"adv_20"`
	ADV50       *float64 `json:"adv_50"`
	LatestClose *float64 `json:"latest_close"`
	DollarADV20 *float64 `json:"dollar_adv_20"`
	DollarADV50 *float64 `json:"dollar_adv_50"`
}

// ComputeMetrics returns 20- and 50-day ADV with their dollar values at the
// latest close.
func ComputeMetrics(bars []model.Candle) Metrics {
	var m Metrics
	if len(bars) == 0 {
		return m
	}
	last := bars[len(bars)-1].Close
	m.LatestClose = &last

	if a, ok := ADV(bars, Window20); ok {
		d := a * last
		m.ADV20, m.DollarADV20 = &a, &d
	}
	if a, ok := ADV(bars, Window50); ok {
		d := a * last
		m.ADV50, m.DollarADV50 = &a, &d
	}
	return m
}

// DaysToLiquidate is shares / adv: days to exit trading one full ADV per
// day. ok is false for a non-positive adv or negative shares.
func DaysToLiquidate(shares, adv float64) (days float64, ok bool) {
	if adv <= 0 || shares < 0 {
		return 0, false
	}
	return shares / adv, true
}

// PurchaseLimits configures MaxPurchase.
type PurchaseLimits struct {
	MaxDaysToExit int     `yaml:"max_days_to_exit"`
	PctADVPerDay  float64 `yaml:"pct_adv_per_day"`
	ADVWindow     int     `yaml:"adv_window"`
}

// DefaultPurchaseLimits exits within 5 days at 25% of the 20-day ADV.
func DefaultPurchaseLimits() PurchaseLimits {
	return PurchaseLimits{
		MaxDaysToExit: DefaultMaxDaysToExit,
		PctADVPerDay:  DefaultPctADVPerDay,
		ADVWindow:     Window20,
	}
}

// MaxPurchaseResult is the liquidity ceiling on a position.
type MaxPurchaseResult struct {
	MaxShares       float64 `json:"max_shares"`
	MaxDollar       float64 `json:"max_dollar"`
	ADV             float64 `json:"adv"`
	DaysToExitAtMax int     `json:"days_to_exit_at_max"`
	LatestClose     float64 `json:"latest_close"`
}

// MaxPurchase sizes the largest position that can be exited within
// MaxDaysToExit days trading PctADVPerDay of ADV each day. ok is false when
// ADV is undefined.
func MaxPurchase(bars []model.Candle, lim PurchaseLimits) (MaxPurchaseResult, bool) {
	adv, ok := ADV(bars, lim.ADVWindow)
	if !ok {
		return MaxPurchaseResult{}, false
	}
	last := bars[len(bars)-1].Close
	shares := float64(lim.MaxDaysToExit) * lim.PctADVPerDay * adv
	return MaxPurchaseResult{
		MaxShares:       shares,
		MaxDollar:       shares * last,
		ADV:             adv,
		DaysToExitAtMax: lim.MaxDaysToExit,
		LatestClose:     last,
	}, true
}
