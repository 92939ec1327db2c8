package quotes

import (
	"context"

	"github.com/rs/zerolog"

	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/logging"
	"stockdesk/internal/models"
)

// FallbackFeed wraps a primary feed. Successful results are cached; on an
// upstream failure the last-known value is served, then mock data.
// Unknown symbols and caller cancellation are returned as errors.
type FallbackFeed struct {
	primary Feed
	cache   *Cache
	mock    Feed
	logger  zerolog.Logger
}

// NewFallbackFeed creates a fallback feed. A nil cache gets a default one.
func NewFallbackFeed(primary Feed, cache *Cache, logger zerolog.Logger) *FallbackFeed {
	if cache == nil {
		cache = NewCache(DefaultCacheSize)
	}
	return &FallbackFeed{
		primary: primary,
		cache:   cache,
		mock:    NewMockFeed(),
		logger:  logger,
	}
}

func degradable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !apperrors.Is(err, apperrors.ErrSymbolNotFound)
}

// Quote returns a live snapshot, or a cached or mock one when the primary fails.
func (f *FallbackFeed) Quote(ctx context.Context, symbol string) (models.QuoteSnapshot, error) {
	symbol = NormalizeSymbol(symbol)
	q, err := f.primary.Quote(ctx, symbol)
	if err == nil {
		f.cache.Put(q)
		return q, nil
	}
	if !degradable(ctx, err) {
		return models.QuoteSnapshot{}, err
	}

	if last, ok := f.cache.Latest(symbol); ok {
		logging.LogFallback(f.logger, symbol, SourceCache, err)
		last.Source = SourceCache
		return last, nil
	}

	logging.LogFallback(f.logger, symbol, SourceMock, err)
	return f.mock.Quote(ctx, symbol)
}

// Bars returns a live series, or a cached or mock one when the primary fails.
func (f *FallbackFeed) Bars(ctx context.Context, symbol, rng, interval string) ([]models.OHLCBar, error) {
	symbol = NormalizeSymbol(symbol)
	bars, err := f.primary.Bars(ctx, symbol, rng, interval)
	if err == nil {
		f.cache.PutBars(symbol, bars)
		return bars, nil
	}
	if !degradable(ctx, err) {
		return nil, err
	}

	if cached, ok := f.cache.Bars(symbol); ok {
		logging.LogFallback(f.logger, symbol, SourceCache, err)
		return cached, nil
	}

	logging.LogFallback(f.logger, symbol, SourceMock, err)
	return f.mock.Bars(ctx, symbol, rng, interval)
}
