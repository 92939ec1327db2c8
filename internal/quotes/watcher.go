package quotes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"stockdesk/internal/analysis"
	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/logging"
	"stockdesk/internal/models"
	"stockdesk/pkg/utils"
)

// DefaultWatchSpec refreshes every 30 seconds.
const DefaultWatchSpec = "*/30 * * * * *"

// WatchResult is the outcome of refreshing one symbol.
type WatchResult struct {
	Symbol    string               `json:"symbol"`
	Quote     models.QuoteSnapshot `json:"quote"`
	Trend     models.TrendLabel    `json:"trend"`
	Err       error                `json:"-"`
	Refreshed time.Time            `json:"refreshed"`
	// SessionChange is the percent move since the oldest snapshot this
	// watcher still holds for the symbol, nil until a second refresh.
	SessionChange *float64 `json:"session_change_percent,omitempty"`
}

// Watcher refreshes a watchlist on a cron schedule, fetching symbols
// concurrently.
type Watcher struct {
	feed        Feed
	concurrency int
	timeout     time.Duration
	logger      zerolog.Logger
	cron        *cron.Cron
	history     *Cache
}

// NewWatcher creates a watcher fetching at most concurrency symbols at once.
func NewWatcher(feed Feed, concurrency int, timeout time.Duration, logger zerolog.Logger) *Watcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Watcher{
		feed:        feed,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logging.WithOperation(logger, "watch"),
		cron:        cron.New(cron.WithSeconds()),
		history:     NewCache(DefaultCacheSize),
	}
}

// Refresh fetches every symbol once and returns results in watchlist order.
func (w *Watcher) Refresh(ctx context.Context, symbols []string) []WatchResult {
	p := pool.NewWithResults[indexedResult]().WithMaxGoroutines(w.concurrency)

	for i, symbol := range symbols {
		i, symbol := i, NormalizeSymbol(symbol)
		p.Go(func() indexedResult {
			fetchCtx, cancel := context.WithTimeout(ctx, w.timeout)
			defer cancel()

			r := WatchResult{Symbol: symbol, Refreshed: time.Now()}
			q, err := w.feed.Quote(fetchCtx, symbol)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
					err = fmt.Errorf("%w after %s: %w", apperrors.ErrTimeout, w.timeout, err)
				}
				r.Err = err
				w.logger.Warn().Err(err).Str("symbol", symbol).Msg("Refresh failed")
			} else {
				r.Quote = q
				r.Trend = analysis.ClassifyQuote(q)
				q.Symbol = symbol
				w.history.Put(q)
				r.SessionChange = sessionChange(w.history.History(symbol))
				logging.LogQuote(w.logger, symbol, q.Source, q.CurrentPrice, string(r.Trend))
			}
			return indexedResult{index: i, result: r}
		})
	}

	collected := p.Wait()
	sort.Slice(collected, func(a, b int) bool { return collected[a].index < collected[b].index })

	results := make([]WatchResult, len(collected))
	for i, c := range collected {
		results[i] = c.result
	}
	return results
}

// sessionChange compares the newest snapshot with the oldest one held.
func sessionChange(h []models.QuoteSnapshot) *float64 {
	if len(h) < 2 {
		return nil
	}
	pct := analysis.ChangePercent(h[len(h)-1].CurrentPrice, h[0].CurrentPrice)
	if !utils.IsFinite(pct) {
		return nil
	}
	return &pct
}

type indexedResult struct {
	index  int
	result WatchResult
}

// Start schedules Refresh on spec and reports each batch to onUpdate. The
// schedule stops when ctx is done.
func (w *Watcher) Start(ctx context.Context, spec string, symbols []string, onUpdate func([]WatchResult)) error {
	if spec == "" {
		spec = DefaultWatchSpec
	}
	if len(symbols) == 0 {
		return fmt.Errorf("watchlist is empty")
	}

	if _, err := w.cron.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		onUpdate(w.Refresh(ctx, symbols))
	}); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", spec, err)
	}

	w.cron.Start()
	w.logger.Info().Str("spec", spec).Int("symbols", len(symbols)).Msg("Watcher started")

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

// Stop stops the schedule, waits for a running refresh to finish and
// clears the session history.
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
	w.history.Reset()
}
