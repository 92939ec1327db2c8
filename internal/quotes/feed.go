// Package quotes provides market data feeds: the Yahoo Finance client, a
// per-symbol snapshot cache, last-known/mock fallback and a scheduled
// watchlist refresher.
package quotes

import (
	"context"
	"strings"

	"stockdesk/internal/models"
)

// Source labels recorded on snapshots.
const (
	SourceYahoo = "yahoo"
	SourceCache = "cache"
	SourceMock  = "mock"
)

// Default chart parameters.
const (
	DefaultRange    = "1mo"
	DefaultInterval = "1d"
)

// Feed supplies quote snapshots and OHLC bars for a symbol.
type Feed interface {
	// Quote returns the latest snapshot for symbol.
	Quote(ctx context.Context, symbol string) (models.QuoteSnapshot, error)
	// Bars returns the chart series for symbol over rng at interval.
	Bars(ctx context.Context, symbol, rng, interval string) ([]models.OHLCBar, error)
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
