// Package sepa detects weekly base patterns and forming daily pivots.
package sepa

import (
	"math"

	"basescan/internal/indicator"
)

// WeekRange is an inclusive duration range in weeks.
type WeekRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Contains reports whether weeks lies inside the range.
func (r WeekRange) Contains(weeks int) bool {
	return weeks >= r.Min && weeks <= r.Max
}

// FormingParams tunes the daily pivot-forming detector.
type FormingParams struct {
	MinDays        int     `yaml:"min_days"`
	MaxDays        int     `yaml:"max_days"`
	MaxRangePct    float64 `yaml:"max_range_pct"`    // exclusive
	TightCloseDays int     `yaml:"tight_close_days"`
	TightClosePct  float64 `yaml:"tight_close_pct"`  // inclusive
	VolumeLookback int     `yaml:"volume_lookback"`  // days
}

// Params holds every tunable of base detection. It is a plain value; copy
// and modify it to run scans with different settings side by side.
type Params struct {
	MinDailyBars      int `yaml:"min_daily_bars"`
	MinWeeklyBars     int `yaml:"min_weekly_bars"`
	UptrendSlopeDays  int `yaml:"uptrend_slope_days"`
	SMARisingLookback int `yaml:"sma_rising_lookback"`
	PivotRadius       int `yaml:"pivot_weeks"`
	ATRPeriod         int `yaml:"atr_period"`

	PowerPlayWeeks       WeekRange `yaml:"power_play_weeks"`
	DarvasWeeks          WeekRange `yaml:"darvas_weeks"`
	CupCheatWeeks        WeekRange `yaml:"cup_cheat_weeks"`
	CurrentCupCheatWeeks WeekRange `yaml:"current_cup_cheat_weeks"`
	CupHandleWeeks       WeekRange `yaml:"cup_handle_weeks"`
	DoubleBottomWeeks    WeekRange `yaml:"double_bottom_weeks"`

	PowerPlayMinRunup        float64 `yaml:"power_play_min_runup"` // decimal, 0.90 = 90%
	PriorGainWeeks           int     `yaml:"prior_gain_weeks"`
	DoubleBottomLowTolerance float64 `yaml:"double_bottom_low_tolerance"` // fraction of prior high
	DarvasMaxDepthPct        float64 `yaml:"darvas_max_depth_pct"`

	TrailingHighWeeks  int `yaml:"trailing_high_weeks"`
	TrailingHighMinAge int `yaml:"trailing_high_min_age"`
	PivotAnchorWeeks   int `yaml:"pivot_anchor_weeks"`

	Forming FormingParams `yaml:"forming"`
}

// DefaultParams returns the standard detection settings.
func DefaultParams() Params {
	return Params{
		MinDailyBars:      252,
		MinWeeklyBars:     4,
		UptrendSlopeDays:  21,
		SMARisingLookback: 5,
		PivotRadius:       2,
		ATRPeriod:         indicator.DefaultATRPeriod,

		PowerPlayWeeks:       WeekRange{2, 6},
		DarvasWeeks:          WeekRange{4, 6},
		CupCheatWeeks:        WeekRange{6, 52},
		CurrentCupCheatWeeks: WeekRange{5, 52},
		CupHandleWeeks:       WeekRange{7, 65},
		DoubleBottomWeeks:    WeekRange{7, 65},

		PowerPlayMinRunup:        0.90,
		PriorGainWeeks:           8,
		DoubleBottomLowTolerance: 0.05,
		DarvasMaxDepthPct:        25.0,

		TrailingHighWeeks:  12,
		TrailingHighMinAge: 4,
		PivotAnchorWeeks:   10,

		Forming: FormingParams{
			MinDays:        3,
			MaxDays:        10,
			MaxRangePct:    8.0,
			TightCloseDays: 3,
			TightClosePct:  3.0,
			VolumeLookback: 50,
		},
	}
}

// TrendConfig returns the uptrend settings carried by p.
func (p Params) TrendConfig() indicator.TrendConfig {
	return indicator.TrendConfig{SlopeDays: p.UptrendSlopeDays, RisingLookback: p.SMARisingLookback}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
