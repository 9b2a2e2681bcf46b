package indicator

import (
	"math"
	"time"
)

// TrendConfig controls the uptrend test.
type TrendConfig struct {
	SlopeDays      int // 200d SMA must exceed its value this many bars earlier
	RisingLookback int // every SMA must exceed its value this many bars earlier
}

// DefaultTrendConfig returns the standard 21-day slope and 5-day rising checks.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{SlopeDays: 21, RisingLookback: 5}
}

// UptrendAt reports whether the 50/150/200 SMAs are stacked and rising on
// the last trading day at or before at. s must carry the SMA columns.
func UptrendAt(s Series, at time.Time, cfg TrendConfig) bool {
	if s.Len() == 0 || !s.Has(SMA200) {
		return false
	}
	pos := s.IndexAtOrBefore(at)
	if pos < 0 {
		return false
	}
	return UptrendAtIndex(s, pos, cfg)
}

// UptrendAtIndex is UptrendAt for a known bar position.
func UptrendAtIndex(s Series, pos int, cfg TrendConfig) bool {
	sma50, sma150, sma200 := s.Value(SMA50, pos), s.Value(SMA150, pos), s.Value(SMA200, pos)
	if math.IsNaN(sma50) || math.IsNaN(sma150) || math.IsNaN(sma200) {
		return false
	}
	if !(sma50 > sma150 && sma150 > sma200) {
		return false
	}

	if pos < cfg.SlopeDays {
		return false
	}
	ago := s.Value(SMA200, pos-cfg.SlopeDays)
	if math.IsNaN(ago) || sma200 <= ago {
		return false
	}

	if pos < cfg.RisingLookback {
		return true
	}
	for _, name := range []string{SMA50, SMA150, SMA200} {
		now := s.Value(name, pos)
		prev := s.Value(name, pos-cfg.RisingLookback)
		if math.IsNaN(prev) || now <= prev {
			return false
		}
	}
	return true
}
