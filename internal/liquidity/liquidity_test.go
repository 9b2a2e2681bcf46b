package liquidity

import (
	"math"
	"testing"

	"basescan/internal/synth"
	"basescan/pkg/model"
)

func withVolumes(vols ...int64) []model.Candle {
	bars := synth.Uptrend(synth.Start, len(vols), 10, 0)
	for i, v := range vols {
		bars[i].Volume = v
	}
	return bars
}

func TestADV(t *testing.T) {
	tests := []struct {
		name   string
		bars   []model.Candle
		window int
		want   float64
		ok     bool
	}{
		{"trailing mean", withVolumes(999, 100, 200, 300), 3, 200, true},
		{"too few bars", withVolumes(100, 200), 3, 0, false},
		{"all zero", withVolumes(0, 0, 0), 3, 0, false},
		{"zero counts in mean", withVolumes(0, 0, 300), 3, 100, true},
		{"non-positive mean", withVolumes(-500, 0, 100), 3, 0, false},
		{"empty", nil, 20, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ADV(tt.bars, tt.window)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ADV() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestComputeMetrics(t *testing.T) {
	bars := synth.Uptrend(synth.Start, 30, 10, 0)
	m := ComputeMetrics(bars)

	if m.LatestClose == nil || *m.LatestClose != 10 {
		t.Fatalf("latest close = %v", m.LatestClose)
	}
	if m.ADV20 == nil || *m.ADV20 != synth.DefaultVolume {
		t.Errorf("adv20 = %v", m.ADV20)
	}
	if m.DollarADV20 == nil || *m.DollarADV20 != 10*synth.DefaultVolume {
		t.Errorf("dollar adv20 = %v", m.DollarADV20)
	}
	if m.ADV50 != nil || m.DollarADV50 != nil {
		t.Error("expected undefined 50-day ADV with 30 bars")
	}

	empty := ComputeMetrics(nil)
	if empty.LatestClose != nil || empty.ADV20 != nil {
		t.Error("expected all-nil metrics for empty input")
	}
}

func TestDaysToLiquidate(t *testing.T) {
	if d, ok := DaysToLiquidate(5000, 1000); !ok || d != 5 {
		t.Errorf("got (%v, %v), want (5, true)", d, ok)
	}
	if _, ok := DaysToLiquidate(5000, 0); ok {
		t.Error("expected undefined with zero ADV")
	}
	if _, ok := DaysToLiquidate(-1, 1000); ok {
		t.Error("expected undefined with negative shares")
	}
}

func TestMaxPurchase(t *testing.T) {
	bars := synth.Uptrend(synth.Start, 25, 40, 0)
	res, ok := MaxPurchase(bars, DefaultPurchaseLimits())
	if !ok {
		t.Fatal("expected a limit")
	}
	wantShares := 5 * 0.25 * float64(synth.DefaultVolume)
	if math.Abs(res.MaxShares-wantShares) > 1e-9 {
		t.Errorf("max shares = %v, want %v", res.MaxShares, wantShares)
	}
	if math.Abs(res.MaxDollar-wantShares*40) > 1e-6 {
		t.Errorf("max dollar = %v", res.MaxDollar)
	}
	if res.DaysToExitAtMax != 5 || res.LatestClose != 40 {
		t.Errorf("unexpected result %+v", res)
	}

	if _, ok := MaxPurchase(bars[:10], DefaultPurchaseLimits()); ok {
		t.Error("expected no limit with fewer bars than the ADV window")
	}
}
