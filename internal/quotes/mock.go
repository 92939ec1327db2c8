package quotes

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"stockdesk/internal/analysis"
	"stockdesk/internal/models"
)

const (
	mockHistoryBars = 252
	mockBeta        = 1.0
)

// MockFeed serves deterministic synthetic data seeded by the symbol, so the
// same ticker always produces the same series.
type MockFeed struct {
	now func() time.Time
}

// NewMockFeed creates a mock feed.
func NewMockFeed() *MockFeed {
	return &MockFeed{now: time.Now}
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(NormalizeSymbol(symbol)))
	return int64(h.Sum64() & math.MaxInt64)
}

func (m *MockFeed) series(symbol string, count int) []models.OHLCBar {
	cfg := analysis.DefaultGenerateConfig(symbolSeed(symbol))
	cfg.Count = count
	cfg.StartPrice = 20 + float64(symbolSeed(symbol)%480)
	return analysis.GenerateBars(cfg)
}

// Quote derives a snapshot from the last two bars of a year-long series.
func (m *MockFeed) Quote(_ context.Context, symbol string) (models.QuoteSnapshot, error) {
	symbol = NormalizeSymbol(symbol)
	bars := m.series(symbol, mockHistoryBars)
	last, prev := bars[len(bars)-1], bars[len(bars)-2]

	low, high := math.Inf(1), math.Inf(-1)
	for _, b := range bars {
		low = math.Min(low, b.Low)
		high = math.Max(high, b.High)
	}

	beta := mockBeta
	return models.QuoteSnapshot{
		Symbol:           symbol,
		CurrentPrice:     last.Close,
		PreviousClose:    prev.Close,
		DayHigh:          last.High,
		DayLow:           last.Low,
		Volume:           last.Volume,
		FiftyTwoWeekLow:  low,
		FiftyTwoWeekHigh: high,
		Beta:             &beta,
		Source:           SourceMock,
		FetchedAt:        m.now(),
	}, nil
}

// Bars returns the tail of the same synthetic series Quote uses, so the
// last bar always matches the mock quote. The range selects the length.
func (m *MockFeed) Bars(_ context.Context, symbol, rng, _ string) ([]models.OHLCBar, error) {
	bars := m.series(symbol, mockHistoryBars)
	return bars[len(bars)-barsForRange(rng):], nil
}

func barsForRange(rng string) int {
	switch rng {
	case "5d":
		return 5
	case "3mo":
		return 63
	case "6mo":
		return 126
	case "1y":
		return mockHistoryBars
	default:
		return 21
	}
}
