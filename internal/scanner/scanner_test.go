package scanner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"basescan/internal/provider"
	"basescan/internal/sepa"
	"basescan/internal/synth"
	"basescan/pkg/model"
)

type fakeProvider struct {
	bars    map[string][]model.Candle
	errs    map[string]error
	blocked map[string]bool
	release chan struct{}
	calls   atomic.Int64
}

func (f *fakeProvider) Name() string      { return "fake" }
func (f *fakeProvider) IsAvailable() bool { return true }
func (f *fakeProvider) RateLimit() int    { return 0 }

func (f *fakeProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	f.calls.Add(1)
	if f.blocked[symbol] {
		// Ignores ctx so the scanner's own timeout is exercised.
		<-f.release
		return nil, errors.New("released")
	}
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

func fptr(v float64) *float64 { return &v }

func TestQualityScore(t *testing.T) {
	buyDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		row  Row
		want float64
	}{
		{"not forming", Row{PivotRangePct: fptr(1), InBase: true}, 0},
		{"range only", Row{PivotForming: true, PivotRangePct: fptr(2)}, 30},
		{"wide range floors at zero", Row{PivotForming: true, PivotRangePct: fptr(9)}, 0},
		{"all signals at resistance", Row{
			PivotForming: true, PivotRangePct: fptr(0), TightCloses: true, InBase: true,
			VolumeAtPivot: sepa.VolumeBelow, DistancePct: fptr(0),
		}, 100},
		{"distance partial", Row{PivotForming: true, PivotRangePct: fptr(4), InBase: true, DistancePct: fptr(2.5)}, 47.5},
		{"distance far", Row{PivotForming: true, PivotRangePct: fptr(4), DistancePct: fptr(6)}, 20},
		{"triggered ignores distance", Row{
			PivotForming: true, PivotRangePct: fptr(4), DistancePct: fptr(0), BuyPointDate: &buyDate,
		}, 20},
		{"volume above", Row{PivotForming: true, PivotRangePct: fptr(1.23), VolumeAtPivot: sepa.VolumeAbove}, 33.85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QualityScore(tt.row); got != tt.want {
				t.Errorf("QualityScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsBuyable(t *testing.T) {
	buyDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	six := 6
	base := Row{PivotForming: true, InBase: true, Resistance: fptr(50), DistancePct: fptr(2)}
	score := func(v int) *int { return &v }

	tests := []struct {
		name string
		mod  func(r *Row)
		gate BuyableGate
		want bool
	}{
		{"qualifies", func(r *Row) {}, DefaultGate(), true},
		{"not forming", func(r *Row) { r.PivotForming = false }, DefaultGate(), false},
		{"not in base", func(r *Row) { r.InBase = false }, DefaultGate(), false},
		{"no resistance", func(r *Row) { r.Resistance = nil }, DefaultGate(), false},
		{"already triggered", func(r *Row) { r.BuyPointDate = &buyDate }, DefaultGate(), false},
		{"triggered at zero distance", func(r *Row) { r.BuyPointDate = &buyDate; r.DistancePct = fptr(0) }, DefaultGate(), false},
		{"no distance", func(r *Row) { r.DistancePct = nil }, DefaultGate(), false},
		{"too far", func(r *Row) { r.DistancePct = fptr(3.01) }, DefaultGate(), false},
		{"at threshold", func(r *Row) { r.DistancePct = fptr(3.0) }, DefaultGate(), true},
		{"missing trend score counts as zero", func(r *Row) {}, BuyableGate{DistanceMax: 3, MinTrendScore: &six}, false},
		{"trend score met", func(r *Row) { r.TrendTemplateScore = score(7) }, BuyableGate{DistanceMax: 3, MinTrendScore: &six}, true},
		{"rs required and missing", func(r *Row) {}, BuyableGate{DistanceMax: 3, RequireRS: true}, false},
		{"rs below one", func(r *Row) { r.RSRatio = fptr(0.99) }, BuyableGate{DistanceMax: 3, RequireRS: true}, false},
		{"rs at one", func(r *Row) { r.RSRatio = fptr(1) }, BuyableGate{DistanceMax: 3, RequireRS: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mod(&r)
			if got := IsBuyable(r, tt.gate); got != tt.want {
				t.Errorf("IsBuyable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeRowDarvasIsBuyable(t *testing.T) {
	daily := synth.DarvasSetup(synth.Start)
	stock := model.Stock{Symbol: "DARV", Name: "Darvas Inc"}

	row := ComputeRow(stock, daily, nil, DefaultOptions(), nil)

	if !row.PivotForming || row.PivotDays == nil || *row.PivotDays < 5 {
		t.Fatalf("expected a forming pivot of at least 5 days, got %+v", row)
	}
	if !row.InBase || row.BaseType != string(sepa.DarvasBox) {
		t.Errorf("expected pivot inside a Darvas box, got in_base=%v type=%q", row.InBase, row.BaseType)
	}
	if row.Resistance == nil || row.DistancePct == nil || *row.DistancePct > 3 {
		t.Errorf("expected resistance within 3%%, got %v %v", row.Resistance, row.DistancePct)
	}
	if row.BuyPointDate != nil {
		t.Errorf("expected no buy point yet, got %v", row.BuyPointDate)
	}
	if !row.Buyable {
		t.Error("expected row to be buyable")
	}
	if row.QualityScore <= 0 || row.QualityScore != QualityScore(row) {
		t.Errorf("unexpected quality score %v", row.QualityScore)
	}
	if row.TrendTemplateScore == nil {
		t.Error("expected a trend template score")
	}
	if row.RSRatio != nil {
		t.Errorf("expected no RS ratio without a benchmark, got %v", *row.RSRatio)
	}
}

func TestComputeRowInsufficientData(t *testing.T) {
	stock := model.Stock{Symbol: "NEW", Name: "New Listing"}
	for _, n := range []int{0, 50} {
		var daily []model.Candle
		if n > 0 {
			daily = synth.Uptrend(synth.Start, n, 10, 0.001)
		}
		row := ComputeRow(stock, daily, nil, DefaultOptions(), nil)
		if row.PivotForming || row.InBase || row.Buyable || row.QualityScore != 0 {
			t.Errorf("%d bars: expected safe row, got %+v", n, row)
		}
		if row.PivotDays != nil || row.Resistance != nil || row.TrendTemplateScore != nil {
			t.Errorf("%d bars: expected null fields, got %+v", n, row)
		}
		if row.Symbol != "NEW" || row.Name != "New Listing" {
			t.Errorf("%d bars: identity lost: %+v", n, row)
		}
	}
}

func TestScan(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	fp := &fakeProvider{
		bars: map[string][]model.Candle{
			"SPY":   synth.Uptrend(synth.Start, 1300, 100, 0.0008),
			"DARV":  synth.DarvasSetup(synth.Start),
			"SHORT": synth.Uptrend(synth.Start, 50, 10, 0.001),
		},
		errs: map[string]error{
			"EMPTY": &provider.ProviderError{Provider: "fake", Err: provider.ErrNoData},
			"FAIL":  &provider.ProviderError{Provider: "fake", Err: errors.New("boom"), Retryable: true},
		},
		blocked: map[string]bool{"SLOW": true},
		release: release,
	}
	stocks := []model.Stock{
		{Symbol: "SHORT"}, {Symbol: "EMPTY"}, {Symbol: "FAIL"}, {Symbol: "DARV"}, {Symbol: "SLOW"},
	}

	opts := DefaultOptions()
	opts.Workers = 2
	opts.Timeout = 100 * time.Millisecond
	s := NewScanner(fp, opts, zerolog.Nop())

	var progress atomic.Int64
	s.SetProgressCallback(func(scanned, total int) {
		if total != len(stocks) {
			t.Errorf("total = %d, want %d", total, len(stocks))
		}
		progress.Add(1)
	})

	res, err := s.Scan(context.Background(), stocks)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.Scanned != 5 || res.Successful != 3 || res.Failed != 2 {
		t.Errorf("counts scanned=%d successful=%d failed=%d", res.Scanned, res.Successful, res.Failed)
	}
	if progress.Load() != 5 {
		t.Errorf("progress called %d times, want 5", progress.Load())
	}
	if len(res.Rows) != 5 {
		t.Fatalf("expected one row per symbol, got %d", len(res.Rows))
	}

	order := make([]string, len(res.Rows))
	for i, r := range res.Rows {
		order[i] = r.Symbol
	}
	want := []string{"DARV", "SHORT", "EMPTY", "FAIL", "SLOW"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("row order = %v, want %v", order, want)
		}
	}

	top := res.Rows[0]
	if !top.Buyable || top.RSRatio == nil {
		t.Errorf("expected buyable DARV with RS ratio, got %+v", top)
	}
	if res.Forming() < 1 || len(res.BuyableRows()) != 1 {
		t.Errorf("forming=%d buyable=%d", res.Forming(), len(res.BuyableRows()))
	}
	for _, r := range res.Rows[1:] {
		if r.QualityScore != 0 || r.Buyable || r.PivotForming {
			t.Errorf("%s: expected safe row, got %+v", r.Symbol, r)
		}
	}
	if res.Rows[3].Error == "" || res.Rows[4].Error == "" {
		t.Error("failed rows should carry their error")
	}
	if res.Rows[2].Error != "" {
		t.Errorf("empty data is not a failure, got %q", res.Rows[2].Error)
	}
	if res.RunID == "" || res.FinishedAt.Before(res.StartedAt) {
		t.Errorf("bad run metadata: %q %v %v", res.RunID, res.StartedAt, res.FinishedAt)
	}
}

func TestScanEmpty(t *testing.T) {
	fp := &fakeProvider{}
	s := NewScanner(fp, DefaultOptions(), zerolog.Nop())

	res, err := s.Scan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.Scanned != 0 || len(res.Rows) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if fp.calls.Load() != 0 {
		t.Error("empty scan should not fetch the benchmark")
	}
}

func TestScanCancelled(t *testing.T) {
	fp := &fakeProvider{bars: map[string][]model.Candle{}}
	s := NewScanner(fp, DefaultOptions(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Scan(ctx, []model.Stock{{Symbol: "A"}, {Symbol: "B"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if res == nil || len(res.Rows) != 2 {
		t.Fatalf("cancelled scan must still return a row per symbol")
	}
}

func TestSortRowsStable(t *testing.T) {
	rows := []Row{
		{Symbol: "A", QualityScore: 10},
		{Symbol: "B", QualityScore: 50},
		{Symbol: "C", QualityScore: 10},
		{Symbol: "D", QualityScore: 50},
	}
	SortRows(rows)
	want := "BDAC"
	got := ""
	for _, r := range rows {
		got += r.Symbol
	}
	if got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestDiagnoseBars(t *testing.T) {
	daily := synth.DarvasSetup(synth.Start)
	d := DiagnoseBars(model.Stock{Symbol: "DARV"}, daily, nil, DefaultOptions())

	if d.DailyBars != len(daily) || len(d.Weekly) == 0 {
		t.Fatalf("unexpected sizes: %d daily, %d weekly", d.DailyBars, len(d.Weekly))
	}
	if len(d.PivotHighs) == 0 || len(d.Trace) == 0 {
		t.Error("expected pivots and trace events")
	}
	accepted := 0
	for _, ev := range d.Trace {
		if ev.Accepted {
			accepted++
		}
	}
	if accepted == 0 {
		t.Error("expected at least one accepted candidate")
	}
	if d.InBase == nil || d.InBase.Type != sepa.DarvasBox {
		t.Errorf("expected pivot in a Darvas box, got %+v", d.InBase)
	}
	if d.Template == nil || d.Row.TrendTemplateScore == nil || d.Template.Score != *d.Row.TrendTemplateScore {
		t.Error("template should match the row's score")
	}
}
