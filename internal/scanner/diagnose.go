package scanner

import (
	"context"
	"errors"
	"time"

	"basescan/internal/indicator"
	"basescan/internal/leadership"
	"basescan/internal/provider"
	"basescan/internal/sepa"
	"basescan/pkg/model"
)

// Diagnosis is the full intermediate state of one symbol's scan, used to
// explain why a base was or was not found.
type Diagnosis struct {
	Stock      model.Stock                `json:"stock"`
	DailyBars  int                        `json:"daily_bars"`
	Weekly     []model.Candle             `json:"weekly"`
	PivotHighs []int                      `json:"pivot_highs"`
	PivotLows  []int                      `json:"pivot_lows"`
	Pivot      sepa.FormingState          `json:"pivot"`
	Trace      []sepa.TraceEvent          `json:"trace"`
	Bases      []sepa.Base                `json:"bases"`
	InBase     *sepa.Base                 `json:"in_base,omitempty"`
	Template   *leadership.TemplateResult `json:"trend_template,omitempty"`
	Row        Row                        `json:"row"`
}

// Diagnose fetches one symbol and records every candidate evaluation.
func (s *Scanner) Diagnose(ctx context.Context, stock model.Stock) (*Diagnosis, error) {
	daily, err := s.fetch(ctx, stock.Symbol)
	if err != nil && !errors.Is(err, provider.ErrNoData) {
		return nil, err
	}
	var bench []model.Candle
	if s.opts.IncludeLeadership {
		bench = s.fetchBenchmark(ctx, s.logger)
	}
	return DiagnoseBars(stock, daily, bench, s.opts), nil
}

// DiagnoseBars is Diagnose on already-fetched bars.
func DiagnoseBars(stock model.Stock, daily, bench []model.Candle, opts Options) *Diagnosis {
	p := opts.Params
	weekly := indicator.ToWeekly(daily)
	highs, lows := sepa.PivotHighsLows(weekly, p.PivotRadius)
	pivot := sepa.PivotForming(daily, p.Forming)

	tracer := &sepa.RecordingTracer{}
	row := ComputeRow(stock, daily, bench, opts, tracer)

	d := &Diagnosis{
		Stock:      stock,
		DailyBars:  len(daily),
		Weekly:     weekly,
		PivotHighs: highs,
		PivotLows:  lows,
		Pivot:      pivot,
		Trace:      tracer.Events(),
		Row:        row,
	}
	if len(daily) < p.MinDailyBars {
		return d
	}

	series := indicator.ComputeSMAs(indicator.NewSeries(daily))
	d.Bases = sepa.NewDetector(p).FindBases(weekly, series, pivot)
	if b := sepa.PivotInBase(pivot, d.Bases); b != nil {
		in := *b
		d.InBase = &in
	}
	if opts.IncludeLeadership {
		tt := leadership.TrendTemplate(indicator.Add52WeekHighLow(series), row.RSRatio, time.Time{})
		d.Template = &tt
	}
	return d
}
