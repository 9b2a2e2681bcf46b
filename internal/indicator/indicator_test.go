package indicator

import (
	"math"
	"testing"
	"time"

	"basescan/pkg/model"
)

var testStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func TestComputeSMAsAddsColumns(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	s := NewSeries(barsFromCloses(testStart, closes))
	out := ComputeSMAs(s, 50, 150, 200)

	for _, name := range []string{SMA50, SMA150, SMA200} {
		if !out.Has(name) {
			t.Fatalf("expected column %s", name)
		}
	}
	if out.Len() != s.Len() {
		t.Errorf("expected %d rows, got %d", s.Len(), out.Len())
	}
	if !math.IsNaN(out.Value(SMA50, 48)) {
		t.Errorf("SMA_50 at 48 should be undefined, got %f", out.Value(SMA50, 48))
	}
	var sum float64
	for i := 0; i < 50; i++ {
		sum += closes[i]
	}
	if got, want := out.Value(SMA50, 49), sum/50; math.Abs(got-want) > 1e-9 {
		t.Errorf("SMA_50 at 49 = %f, want %f", got, want)
	}
}

func TestComputeSMAsDoesNotMutateInput(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100
	}
	s := NewSeries(barsFromCloses(testStart, closes))
	_ = ComputeSMAs(s)
	if s.Has(SMA50) {
		t.Error("input series gained SMA_50 column")
	}
	withHL := Add52WeekHighLow(s)
	if s.Has(High52w) || !withHL.Has(High52w) {
		t.Error("Add52WeekHighLow should only add columns to the copy")
	}
}

func TestNewSeriesCopiesBars(t *testing.T) {
	bars := barsFromCloses(testStart, []float64{10, 11, 12})
	s := NewSeries(bars)
	bars[0].Close = 999
	if s.Bar(0).Close != 10 {
		t.Errorf("series should not alias caller bars, got close %f", s.Bar(0).Close)
	}
}

func Test52WeekHighLowDefinedFromFirstBar(t *testing.T) {
	s := Add52WeekHighLow(NewSeries(barsFromCloses(testStart, []float64{100, 90, 110})))
	if got := s.Value(High52w, 0); math.Abs(got-101) > 1e-9 {
		t.Errorf("High_52w[0] = %f, want 101", got)
	}
	if got := s.Value(Low52w, 1); math.Abs(got-89.1) > 1e-9 {
		t.Errorf("Low_52w[1] = %f, want 89.1", got)
	}
	if got := s.Value(High52w, 2); math.Abs(got-111.1) > 1e-9 {
		t.Errorf("High_52w[2] = %f, want 111.1", got)
	}
}

func TestAverageTrueRange(t *testing.T) {
	bars := make([]model.Candle, 20)
	for i := range bars {
		bars[i] = model.Candle{High: 12, Low: 10, Close: 11}
	}
	atr := AverageTrueRange(bars, 14)
	if !math.IsNaN(atr[13]) {
		t.Errorf("ATR[13] should be undefined, got %f", atr[13])
	}
	for i := 14; i < len(atr); i++ {
		if math.Abs(atr[i]-2) > 1e-9 {
			t.Errorf("ATR[%d] = %f, want 2", i, atr[i])
		}
	}

	short := AverageTrueRange(bars[:14], 14)
	for i, v := range short {
		if !math.IsNaN(v) {
			t.Errorf("ATR[%d] on short input should be NaN, got %f", i, v)
		}
	}
}

func TestAverageTrueRangeWilderSmoothing(t *testing.T) {
	// Period 2: TR = 2, 4, 3 from bar 1 on; gaps above the prior close count.
	bars := []model.Candle{
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 15, Low: 13, Close: 14},
		{High: 14, Low: 11, Close: 12},
	}
	atr := AverageTrueRange(bars, 2)
	tests := []struct {
		idx  int
		want float64
	}{
		{2, 3}, // (2+4)/2
		{3, 3}, // (3*1+3)/2
	}
	if !math.IsNaN(atr[0]) || !math.IsNaN(atr[1]) {
		t.Errorf("ATR before index 2 should be NaN, got %v", atr[:2])
	}
	for _, tt := range tests {
		if math.Abs(atr[tt.idx]-tt.want) > 1e-9 {
			t.Errorf("ATR[%d] = %f, want %f", tt.idx, atr[tt.idx], tt.want)
		}
	}
}

func TestSMAShortInput(t *testing.T) {
	out := SMA([]float64{1, 2, 3}, 5)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Errorf("SMA[%d] on short input should be NaN, got %f", i, v)
		}
	}
	out = SMA([]float64{1, 2, 3, 4}, 2)
	want := []float64{math.NaN(), 1.5, 2.5, 3.5}
	if !math.IsNaN(out[0]) {
		t.Errorf("SMA[0] should be NaN, got %f", out[0])
	}
	for i := 1; i < len(want); i++ {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Errorf("SMA[%d] = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestUptrendAtRisingSeries(t *testing.T) {
	closes := make([]float64, 400)
	for i := range closes {
		closes[i] = 100 + 0.5*float64(i)
	}
	s := ComputeSMAs(NewSeries(barsFromCloses(testStart, closes)))
	cfg := DefaultTrendConfig()

	if !UptrendAt(s, s.Bar(300).Time, cfg) {
		t.Error("expected uptrend on rising series at bar 300")
	}
	if !UptrendAt(s, s.Bar(225).Time, cfg) {
		t.Error("expected uptrend on rising series at bar 225")
	}
	if UptrendAt(s, s.Bar(150).Time, cfg) {
		t.Error("expected no uptrend while SMA_200 is undefined")
	}
	// A weekend date resolves to the prior Friday.
	fri := s.Bar(300).Time
	for fri.Weekday() != time.Friday {
		fri = fri.AddDate(0, 0, 1)
	}
	if !UptrendAt(s, fri.AddDate(0, 0, 1), cfg) {
		t.Error("expected weekend date to resolve to prior trading day")
	}
	if UptrendAt(s, testStart.AddDate(0, 0, -10), cfg) {
		t.Error("expected false before first bar")
	}
}

func TestUptrendAtRequiresSMAColumns(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100
	}
	s := NewSeries(barsFromCloses(testStart, closes))
	if UptrendAt(s, s.Bar(250).Time, DefaultTrendConfig()) {
		t.Error("expected false without SMA columns")
	}
}

func TestUptrendAtDecliningSeries(t *testing.T) {
	closes := make([]float64, 400)
	for i := range closes {
		if i < 250 {
			closes[i] = 100 + float64(i)*0.2
		} else {
			closes[i] = 100 + 250*0.2 - float64(i-250)*0.1
		}
	}
	s := ComputeSMAs(NewSeries(barsFromCloses(testStart, closes)))
	if UptrendAt(s, s.Last().Time, DefaultTrendConfig()) {
		t.Error("expected no uptrend once the 200d SMA rolls over")
	}
}

func TestWeekEnding(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-08", "2024-01-12"}, // Monday
		{"2024-01-12", "2024-01-12"}, // Friday
		{"2024-01-13", "2024-01-19"}, // Saturday
		{"2024-01-14", "2024-01-19"}, // Sunday
	}
	for _, tt := range tests {
		in, _ := time.Parse("2006-01-02", tt.in)
		if got := model.DateKey(WeekEnding(in)); got != tt.want {
			t.Errorf("WeekEnding(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestToWeekly(t *testing.T) {
	days := businessDays(time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC), 15)
	daily := make([]model.Candle, len(days))
	for i, d := range days {
		daily[i] = model.Candle{
			Time:   d,
			Open:   10,
			High:   12 + float64(i),
			Low:    8,
			Close:  11 + float64(i),
			Volume: 100,
		}
	}
	weekly := ToWeekly(daily)
	if len(weekly) != 3 {
		t.Fatalf("expected 3 weeks, got %d", len(weekly))
	}
	w := weekly[1]
	if got := model.DateKey(w.Time); got != "2020-01-17" {
		t.Errorf("second week label = %s, want 2020-01-17", got)
	}
	if w.Open != 10 || w.High != 21 || w.Low != 8 || w.Close != 20 || w.Volume != 500 {
		t.Errorf("unexpected aggregate %+v", w)
	}
	if ToWeekly(nil) != nil {
		t.Error("expected nil for empty input")
	}
}
