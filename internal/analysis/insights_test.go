package analysis

import (
	"math"
	"testing"

	"stockdesk/internal/models"
)

func bar(open, high, low, close float64, volume int64) models.OHLCBar {
	return models.NewOHLCBar("", open, high, low, close, volume)
}

func TestSynthesizeEmpty(t *testing.T) {
	if got := Synthesize(nil); got != nil {
		t.Errorf("Synthesize(nil) = %+v, want nil", got)
	}
	if got := Synthesize([]models.OHLCBar{}); got != nil {
		t.Errorf("Synthesize([]) = %+v, want nil", got)
	}
	var empty *Insights
	if empty.Narrative() != nil {
		t.Error("nil insights should have no narrative")
	}
}

func TestSynthesize(t *testing.T) {
	bars := []models.OHLCBar{
		bar(100, 104, 99, 103, 1000),  // gain 3
		bar(103, 105, 100, 101, 1200), // loss 2
		bar(101, 106, 100, 105, 1500), // gain 4
		bar(105, 108, 104, 107, 2000), // gain 2
	}

	got := Synthesize(bars)
	if got == nil {
		t.Fatal("expected insights")
	}

	if got.TrendDirection != Bullish {
		t.Errorf("TrendDirection = %s, want bullish", got.TrendDirection)
	}
	if got.PriceChange != 7 {
		t.Errorf("PriceChange = %v, want 7", got.PriceChange)
	}
	// ranges: 5, 5, 6, 4 -> mean 5
	if got.Volatility != 5 {
		t.Errorf("Volatility = %v, want 5", got.Volatility)
	}
	if math.Abs(got.VolatilityPercent-5) > 1e-9 {
		t.Errorf("VolatilityPercent = %v, want 5", got.VolatilityPercent)
	}
	if got.VolumeTrend != VolumeIncreasing {
		t.Errorf("VolumeTrend = %s, want increasing", got.VolumeTrend)
	}
	if got.GreenCandles != 3 || got.RedCandles != 1 {
		t.Errorf("candles = %d/%d, want 3/1", got.GreenCandles, got.RedCandles)
	}
	// maxHigh 108, minLow 99, span 9
	if got.ResistanceLevel != 108-9*0.25 {
		t.Errorf("ResistanceLevel = %v, want %v", got.ResistanceLevel, 108-9*0.25)
	}
	if got.SupportLevel != 99+9*0.25 {
		t.Errorf("SupportLevel = %v, want %v", got.SupportLevel, 99+9*0.25)
	}
	// last close 107 vs bars[0].close 103
	if got.RecentTrend != MomentumPositive {
		t.Errorf("RecentTrend = %s, want positive", got.RecentTrend)
	}
	// mean gain 3, mean loss 2
	if got.RelativeStrength != 1.5 {
		t.Errorf("RelativeStrength = %v, want 1.5", got.RelativeStrength)
	}
}

func TestSynthesizeBearishAndDecreasingVolume(t *testing.T) {
	bars := []models.OHLCBar{
		bar(100, 101, 95, 96, 5000),
		bar(96, 97, 92, 93, 3000),
		bar(93, 94, 90, 91, 1000),
	}
	got := Synthesize(bars)
	if got.TrendDirection != Bearish {
		t.Errorf("TrendDirection = %s, want bearish", got.TrendDirection)
	}
	// split at 1: first half 5000, second half 4000
	if got.VolumeTrend != VolumeDecreasing {
		t.Errorf("VolumeTrend = %s, want decreasing", got.VolumeTrend)
	}
	if got.RecentTrend != MomentumNegative {
		t.Errorf("RecentTrend = %s, want negative", got.RecentTrend)
	}
	if got.RelativeStrength != 0 {
		t.Errorf("RelativeStrength with no gains = %v, want 0", got.RelativeStrength)
	}
}

func TestSynthesizeRelativeStrengthCeiling(t *testing.T) {
	bars := []models.OHLCBar{
		bar(100, 102, 99, 101, 10),
		bar(101, 103, 100, 102, 10),
	}
	got := Synthesize(bars)
	if got.RelativeStrength != RelativeStrengthCeiling {
		t.Errorf("RelativeStrength = %v, want %v", got.RelativeStrength, RelativeStrengthCeiling)
	}
}

func TestSynthesizeFlatSeries(t *testing.T) {
	bars := []models.OHLCBar{bar(0, 0, 0, 0, 0)}
	got := Synthesize(bars)
	if got.TrendDirection != Bullish {
		t.Errorf("zero change should be bullish, got %s", got.TrendDirection)
	}
	if math.IsNaN(got.VolatilityPercent) || got.VolatilityPercent != 0 {
		t.Errorf("VolatilityPercent with zero open = %v, want 0", got.VolatilityPercent)
	}
	if got.RedCandles != 1 {
		t.Errorf("a flat bar is not a gain, got %d red", got.RedCandles)
	}
}

func TestNarrative(t *testing.T) {
	got := Synthesize(GenerateBars(DefaultGenerateConfig(7)))
	lines := got.Narrative()
	if len(lines) != 6 {
		t.Fatalf("expected 6 insights, got %d", len(lines))
	}
	for _, l := range lines {
		if l.Title == "" || l.Description == "" {
			t.Errorf("incomplete insight %+v", l)
		}
	}
}

func TestGenerateBars(t *testing.T) {
	cfg := DefaultGenerateConfig(42)
	a := GenerateBars(cfg)
	b := GenerateBars(cfg)
	if len(a) != cfg.Count {
		t.Fatalf("len = %d, want %d", len(a), cfg.Count)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs between runs with the same seed", i)
		}
		if a[i].Low > math.Min(a[i].Open, a[i].Close) || a[i].High < math.Max(a[i].Open, a[i].Close) {
			t.Errorf("bar %d violates OHLC bounds: %+v", i, a[i])
		}
		if a[i].Gain != (a[i].Close > a[i].Open) {
			t.Errorf("bar %d has inconsistent gain flag", i)
		}
	}
	if GenerateBars(GenerateConfig{Count: 0}) != nil {
		t.Error("zero count should produce no bars")
	}
}
