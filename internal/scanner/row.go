package scanner

import (
	"math"
	"time"

	"basescan/internal/indicator"
	"basescan/internal/leadership"
	"basescan/internal/sepa"
	"basescan/pkg/model"
)

// Row is one symbol's flattened scan result. Pointer fields are nil when the
// value could not be computed.
type Row struct {
	Symbol             string     `json:"symbol"`
	Name               string     `json:"name"`
	PivotForming       bool       `json:"pivot_forming"`
	PivotDays          *int       `json:"pivot_days"`
	PivotRangePct      *float64   `json:"pivot_range_pct"`
	TightCloses        bool       `json:"tight_closes"`
	PivotHigh          *float64   `json:"pivot_high"`
	InBase             bool       `json:"in_base"`
	BaseType           string     `json:"base_type,omitempty"`
	Resistance         *float64   `json:"resistance"`
	DistancePct        *float64   `json:"distance_pct"`
	BuyPointDate       *time.Time `json:"buy_point_date"`
	VolumeAtPivot      string     `json:"volume_at_pivot,omitempty"`
	TrendTemplateScore *int       `json:"trend_template_score"`
	RSRatio            *float64   `json:"rs_ratio"`
	QualityScore       float64    `json:"quality_score"`
	Buyable            bool       `json:"buyable"`

	Error string `json:"error,omitempty"`
}

// BuyableGate decides which rows make the next-day watchlist.
type BuyableGate struct {
	DistanceMax   float64 // percent below resistance
	MinTrendScore *int
	RequireRS     bool
}

// DefaultDistanceMax is the default buyable distance threshold in percent.
const DefaultDistanceMax = 3.0

// DefaultGate allows pivots within 3% of resistance with no leadership checks.
func DefaultGate() BuyableGate {
	return BuyableGate{DistanceMax: DefaultDistanceMax}
}

// SafeRow is the all-null row used when a symbol has too little data or its
// computation failed.
func SafeRow(stock model.Stock) Row {
	return Row{Symbol: stock.Symbol, Name: stock.Name}
}

// ComputeRow runs the full per-symbol pipeline on daily bars. bench is the
// benchmark series for relative strength and may be nil. tracer may be nil.
func ComputeRow(stock model.Stock, daily, bench []model.Candle, opts Options, tracer sepa.Tracer) Row {
	row := SafeRow(stock)
	p := opts.Params
	if len(daily) == 0 || len(daily) < p.MinDailyBars {
		return row
	}

	series := indicator.ComputeSMAs(indicator.NewSeries(daily))
	weekly := indicator.ToWeekly(daily)
	pivot := sepa.PivotForming(daily, p.Forming)
	bases := sepa.NewDetector(p).WithTracer(tracer).FindBases(weekly, series, pivot)

	if pivot.Forming {
		row.PivotForming = true
		row.PivotDays = ptr(pivot.Days)
		row.PivotRangePct = ptr(pivot.RangePct)
		row.TightCloses = pivot.TightCloses
		row.PivotHigh = ptr(pivot.PivotHigh)
		if label, ok := sepa.PivotVolumeVsAverage(daily, pivot, p.Forming); ok {
			row.VolumeAtPivot = label
		}
		if b := sepa.PivotInBase(pivot, bases); b != nil {
			row.InBase = true
			row.BaseType = string(b.Type)
			row.Resistance = ptr(b.Resistance)
			row.DistancePct = ptr(b.DistancePct)
			if b.BuyPointDate != nil {
				row.BuyPointDate = ptr(*b.BuyPointDate)
			}
		}
	}

	if opts.IncludeLeadership {
		var rs *float64
		if ratio, ok := leadership.RSRatio(daily, bench, leadership.RSWindow); ok {
			rs = ptr(round2(ratio))
		}
		row.RSRatio = rs
		tt := leadership.TrendTemplate(indicator.Add52WeekHighLow(series), rs, time.Time{})
		row.TrendTemplateScore = ptr(tt.Score)
	}

	row.QualityScore = QualityScore(row)
	row.Buyable = IsBuyable(row, opts.Gate)
	return row
}

// QualityScore ranks forming pivots from 0 to 100; rows without a forming
// pivot score 0.
func QualityScore(r Row) float64 {
	if !r.PivotForming {
		return 0
	}
	var score float64
	if r.PivotRangePct != nil {
		score += math.Max(0, 40-5*(*r.PivotRangePct))
	}
	if r.TightCloses {
		score += 15
	}
	if r.InBase {
		score += 20
	}
	if r.VolumeAtPivot == sepa.VolumeBelow {
		score += 10
	}
	if r.DistancePct != nil && r.BuyPointDate == nil {
		if d := *r.DistancePct; d <= 0 {
			score += 15
		} else {
			score += math.Max(0, 15-3*d)
		}
	}
	return round2(score)
}

// IsBuyable reports whether r is a candidate for a breakout on the next
// session.
func IsBuyable(r Row, g BuyableGate) bool {
	if !r.PivotForming {
		return false
	}
	if !r.InBase || r.Resistance == nil {
		return false
	}
	if r.BuyPointDate != nil {
		return false
	}
	if r.DistancePct == nil || *r.DistancePct > g.DistanceMax {
		return false
	}
	if g.MinTrendScore != nil {
		score := 0
		if r.TrendTemplateScore != nil {
			score = *r.TrendTemplateScore
		}
		if score < *g.MinTrendScore {
			return false
		}
	}
	if g.RequireRS && (r.RSRatio == nil || *r.RSRatio < 1.0) {
		return false
	}
	return true
}

func ptr[T any](v T) *T { return &v }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
