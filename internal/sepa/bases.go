package sepa

import (
	"math"
	"sort"
	"time"

	"basescan/internal/indicator"
	"basescan/pkg/model"
)

// Base is a classified consolidation on the weekly series.
type Base struct {
	Type          BaseType   `json:"base_type"`
	Source        Source     `json:"source"`
	StartIndex    int        `json:"start_index"`
	EndIndex      int        `json:"end_index"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	DepthPct      float64    `json:"depth_pct"`
	DurationWeeks int        `json:"duration_weeks"`
	PriorHigh     float64    `json:"prior_high"`
	BaseLow       float64    `json:"base_low"`
	Resistance    float64    `json:"resistance"`
	BuyPointDate  *time.Time `json:"buy_point_date"`
	DistancePct   float64    `json:"distance_pct"`
	IsCurrent     bool       `json:"is_current"`
	VCPLike       bool       `json:"vcp_like"`
}

// Triggered reports whether a weekly close has reached resistance.
func (b Base) Triggered() bool { return b.BuyPointDate != nil }

// Detector finds bases with a fixed parameter set. It holds no per-call
// state and is safe for concurrent use.
type Detector struct {
	params Params
	tracer Tracer
}

// NewDetector creates a detector for p.
func NewDetector(p Params) *Detector {
	return &Detector{params: p, tracer: noopTracer{}}
}

// WithTracer returns a copy of d that reports candidate evaluations to t.
func (d *Detector) WithTracer(t Tracer) *Detector {
	if t == nil {
		t = noopTracer{}
	}
	return &Detector{params: d.params, tracer: t}
}

// Params returns the detector's parameters.
func (d *Detector) Params() Params { return d.params }

// FindBases is shorthand for NewDetector(p).FindBases.
func FindBases(weekly []model.Candle, daily indicator.Series, pivot FormingState, p Params) []Base {
	return NewDetector(p).FindBases(weekly, daily, pivot)
}

// FindBases evaluates every candidate interval on weekly and returns the
// surviving bases ordered by start date. daily is the matching daily series;
// SMA and ATR columns are computed on a copy when missing. Short histories
// yield nil.
func (d *Detector) FindBases(weekly []model.Candle, daily indicator.Series, pivot FormingState) []Base {
	p := d.params
	if len(weekly) < p.MinWeeklyBars || daily.Len() < p.MinDailyBars {
		return nil
	}
	if !daily.Has(indicator.SMA200) {
		daily = indicator.ComputeSMAs(daily)
	}
	if !daily.Has(indicator.ATR) {
		daily = indicator.AddATR(daily, p.ATRPeriod)
	}

	highs, lows := PivotHighsLows(weekly, p.PivotRadius)
	ev := evaluator{weekly: weekly, daily: daily, lows: lows, params: p}

	var found []Base
	for _, c := range Candidates(weekly, highs, pivot, p) {
		base, trace := ev.evaluate(c)
		d.tracer.Trace(trace)
		if trace.Accepted {
			found = append(found, base)
		}
	}
	return d.dedupe(found, len(weekly)-1)
}

// dedupe keeps one base per start date, preferring the one that ends on the
// last week, otherwise the first proposed.
func (d *Detector) dedupe(found []Base, lastIdx int) []Base {
	chosen := make(map[time.Time]int)
	var order []time.Time
	for i, b := range found {
		j, ok := chosen[b.StartDate]
		if !ok {
			chosen[b.StartDate] = i
			order = append(order, b.StartDate)
			continue
		}
		if found[j].EndIndex != lastIdx && b.EndIndex == lastIdx {
			chosen[b.StartDate] = i
		}
	}

	out := make([]Base, 0, len(order))
	for _, st := range order {
		b := found[chosen[st]]
		b.IsCurrent = b.EndIndex == lastIdx
		out = append(out, b)
	}
	for i, b := range found {
		if chosen[b.StartDate] != i {
			d.tracer.Trace(TraceEvent{
				Source:        b.Source,
				Hi:            b.StartIndex,
				End:           b.EndIndex,
				StartDate:     b.StartDate,
				EndDate:       b.EndDate,
				DurationWeeks: b.DurationWeeks,
				DepthPct:      b.DepthPct,
				Uptrend:       true,
				BaseType:      b.Type,
				Reason:        ReasonDuplicate,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}

type evaluator struct {
	weekly []model.Candle
	daily  indicator.Series
	lows   []int
	params Params
}

func (e evaluator) evaluate(c Candidate) (Base, TraceEvent) {
	w := e.weekly
	p := e.params
	last := len(w) - 1

	tr := TraceEvent{Source: c.Source, Hi: c.Hi, End: c.End}
	if c.Hi < 0 || c.End > last || c.End <= c.Hi {
		tr.Reason = ReasonEmptyInterval
		return Base{}, tr
	}

	seg := w[c.Hi : c.End+1]
	priorHigh := w[c.Hi].High
	baseLow := seg[0].Low
	for _, b := range seg[1:] {
		if b.Low < baseLow {
			baseLow = b.Low
		}
	}
	depth := 0.0
	if priorHigh > 0 {
		depth = (priorHigh - baseLow) / priorHigh * 100
	}
	current := c.End == last

	tr.StartDate = w[c.Hi].Time
	tr.EndDate = w[c.End].Time
	tr.DurationWeeks = c.End - c.Hi + 1
	tr.DepthPct = round2(depth)

	cfg := p.TrendConfig()
	tr.Uptrend = indicator.UptrendAt(e.daily, w[c.Hi].Time, cfg)
	if !tr.Uptrend && current && c.Hi > 0 {
		tr.Uptrend = indicator.UptrendAt(e.daily, w[c.Hi-1].Time, cfg)
		tr.UptrendRetry = tr.Uptrend
	}
	if !tr.Uptrend {
		tr.Reason = ReasonNoUptrend
		return Base{}, tr
	}

	var lowsIn []int
	for _, i := range e.lows {
		if i > c.Hi && i <= c.End {
			lowsIn = append(lowsIn, i)
		}
	}

	f := Features{
		DurationWeeks: tr.DurationWeeks,
		DepthPct:      depth,
		PriorHigh:     priorHigh,
		BaseLow:       baseLow,
		LatestClose:   w[c.End].Close,
		LowsInSegment: len(lowsIn),
		Current:       current,
	}
	if len(lowsIn) >= 1 {
		f.Low1 = w[lowsIn[0]].Low
	}
	if len(lowsIn) >= 2 {
		f.Low2 = w[lowsIn[1]].Low
		mid := baseLow + (priorHigh-baseLow)/2
		f.HasHandle = f.Low2 > mid && f.Low2 > f.Low1
	}
	if c.Hi >= p.PriorGainWeeks {
		if ago := w[c.Hi-p.PriorGainWeeks].Close; ago > 0 {
			f.PriorGain = (priorHigh - ago) / ago
			f.HasPriorGain = true
		}
	}

	tr.LowsInSegment = f.LowsInSegment
	tr.HasHandle = f.HasHandle
	tr.PriorGain = f.PriorGain
	tr.HasPriorGain = f.HasPriorGain

	bt, ok := Classify(f, p)
	if !ok {
		tr.Reason = ReasonUnclassified
		return Base{}, tr
	}
	tr.BaseType = bt

	res := resistanceFor(bt, w, c, priorHigh, lowsIn, f.HasHandle)
	if !(res > 0) {
		tr.Reason = ReasonNoResistance
		return Base{}, tr
	}

	buy := buyPointDate(w, c.Hi, c.End, res)
	distance := 0.0
	if buy == nil {
		distance = (res - f.LatestClose) / res * 100
	}

	tr.Accepted = true
	return Base{
		Type:          bt,
		Source:        c.Source,
		StartIndex:    c.Hi,
		EndIndex:      c.End,
		StartDate:     tr.StartDate,
		EndDate:       tr.EndDate,
		DepthPct:      round2(depth),
		DurationWeeks: tr.DurationWeeks,
		PriorHigh:     priorHigh,
		BaseLow:       baseLow,
		Resistance:    round2(res),
		BuyPointDate:  buy,
		DistancePct:   round2(distance),
		IsCurrent:     current,
		VCPLike:       vcpLike(w, seg, lowsIn, priorHigh, e.daily, tr.StartDate, tr.EndDate),
	}, tr
}

// resistanceFor returns the breakout level for a classified interval.
func resistanceFor(bt BaseType, w []model.Candle, c Candidate, priorHigh float64, lowsIn []int, hasHandle bool) float64 {
	switch {
	case bt == CupWithHandle && hasHandle && len(lowsIn) >= 2:
		return maxHigh(w[lowsIn[1] : c.End+1])
	case bt == DoubleBottom && len(lowsIn) >= 2:
		return maxHigh(w[lowsIn[0] : lowsIn[1]+1])
	case bt == DarvasBox:
		return maxHigh(w[c.Hi : c.End+1])
	default:
		return priorHigh
	}
}

// buyPointDate returns the first week in [from, to] closing at or above
// resistance.
func buyPointDate(w []model.Candle, from, to int, resistance float64) *time.Time {
	for i := from; i <= to && i < len(w); i++ {
		if w[i].Close >= resistance {
			t := w[i].Time
			return &t
		}
	}
	return nil
}

func maxHigh(bars []model.Candle) float64 {
	m := math.Inf(-1)
	for _, b := range bars {
		if b.High > m {
			m = b.High
		}
	}
	return m
}
