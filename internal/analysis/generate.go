package analysis

import (
	"math"
	"math/rand"
	"time"

	"stockdesk/internal/models"
)

// BarTimeLayout is the layout of OHLCBar.Time for daily bars.
const BarTimeLayout = "2006-01-02"

// GenerateConfig controls the synthetic series produced by GenerateBars.
type GenerateConfig struct {
	Seed       int64
	Count      int
	Start      time.Time
	StartPrice float64
	// MaxMove is the largest close-to-open move per bar as a fraction.
	MaxMove    float64
	BaseVolume int64
}

// DefaultGenerateConfig returns a 30-bar series starting at 100.
func DefaultGenerateConfig(seed int64) GenerateConfig {
	return GenerateConfig{
		Seed:       seed,
		Count:      30,
		Start:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		StartPrice: 100,
		MaxMove:    0.03,
		BaseVolume: 1_000_000,
	}
}

// GenerateBars produces a deterministic random-walk series. Each bar opens
// at the previous close and satisfies Low <= min(Open, Close) and
// High >= max(Open, Close). Weekends are skipped.
func GenerateBars(cfg GenerateConfig) []models.OHLCBar {
	if cfg.Count <= 0 {
		return nil
	}
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = 100
	}
	if cfg.MaxMove <= 0 {
		cfg.MaxMove = 0.03
	}
	if cfg.BaseVolume <= 0 {
		cfg.BaseVolume = 1_000_000
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	bars := make([]models.OHLCBar, 0, cfg.Count)
	day := cfg.Start
	price := cfg.StartPrice

	for len(bars) < cfg.Count {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
			continue
		}

		open := round2(price)
		close := round2(open * (1 + (rng.Float64()*2-1)*cfg.MaxMove))
		if close <= 0 {
			close = open
		}
		high := round2(math.Max(open, close) * (1 + rng.Float64()*cfg.MaxMove/2))
		low := round2(math.Min(open, close) * (1 - rng.Float64()*cfg.MaxMove/2))
		volume := cfg.BaseVolume/2 + rng.Int63n(cfg.BaseVolume)

		bars = append(bars, models.NewOHLCBar(day.Format(BarTimeLayout), open, high, low, close, volume))
		price = close
		day = day.AddDate(0, 0, 1)
	}
	return bars
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
