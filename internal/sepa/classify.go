package sepa

import "math"

// BaseType names a recognised base pattern.
type BaseType string

const (
	PowerPlay          BaseType = "Power Play"
	DarvasBox          BaseType = "Darvas box"
	CupCompletionCheat BaseType = "Cup completion cheat"
	LowCheat           BaseType = "Low cheat"
	CupWithHandle      BaseType = "Cup w/ handle"
	DoubleBottom       BaseType = "Double bottom"
)

// Features are the shape measurements of one candidate interval.
type Features struct {
	DurationWeeks int
	DepthPct      float64
	PriorHigh     float64
	BaseLow       float64
	LatestClose   float64

	// Interior pivot lows in chronological order; Low1/Low2 are valid when
	// LowsInSegment reaches 1 and 2 respectively.
	LowsInSegment int
	Low1, Low2    float64
	HasHandle     bool

	PriorGain    float64 // decimal gain into the prior high
	HasPriorGain bool

	// Current marks an interval that ends on the last weekly bar.
	Current bool
}

// TwoLows reports whether the interval holds at least two pivot lows.
func (f Features) TwoLows() bool { return f.LowsInSegment >= 2 }

// doubleBottomPair reports whether the first two interior lows sit within
// tolerance of each other.
func (f Features) doubleBottomPair(p Params) bool {
	if !f.TwoLows() || f.PriorHigh <= 0 {
		return false
	}
	return math.Abs(f.Low1-f.Low2)/f.PriorHigh <= p.DoubleBottomLowTolerance
}

// Classify assigns a base type. The first matching rule wins:
// Power Play, Darvas box, the cup/low-cheat family, Cup w/ handle, Double
// bottom, then the duration fallbacks. A ok of false means no type fits.
func Classify(f Features, p Params) (BaseType, bool) {
	d := f.DurationWeeks

	if p.PowerPlayWeeks.Contains(d) && f.HasPriorGain && f.PriorGain >= p.PowerPlayMinRunup {
		return PowerPlay, true
	}

	if p.DarvasWeeks.Contains(d) && f.DepthPct <= p.DarvasMaxDepthPct {
		return DarvasBox, true
	}

	cupRange := p.CupCheatWeeks
	if f.Current {
		cupRange = p.CurrentCupCheatWeeks
	}
	isDoubleBottom := p.DoubleBottomWeeks.Contains(d) && f.doubleBottomPair(p)

	// A matched pair of lows is a double bottom, not a single broad cup.
	if cupRange.Contains(d) && !f.HasHandle && !isDoubleBottom {
		if f.LatestClose <= lowerThird(f.PriorHigh, f.BaseLow) {
			return LowCheat, true
		}
		return CupCompletionCheat, true
	}

	if p.CupHandleWeeks.Contains(d) && f.HasHandle {
		return CupWithHandle, true
	}

	if isDoubleBottom {
		return DoubleBottom, true
	}

	if cupRange.Contains(d) {
		return CupCompletionCheat, true
	}
	if p.CupHandleWeeks.Contains(d) {
		return CupWithHandle, true
	}
	return "", false
}

func lowerThird(priorHigh, baseLow float64) float64 {
	cup := priorHigh - baseLow
	if cup <= 0 {
		return baseLow
	}
	return baseLow + cup/3
}
