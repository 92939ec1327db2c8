package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/logging"
	"stockdesk/internal/models"
	"stockdesk/internal/resilience"
	"stockdesk/pkg/utils"
)

const (
	// DefaultBaseURL is the public Yahoo Finance endpoint.
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (compatible; stockdesk)"
	maxBodyBytes   = 4 << 20
)

// YahooConfig configures a YahooFeed.
type YahooConfig struct {
	BaseURL string
	Timeout time.Duration
	Retry   utils.RetryConfig
}

// YahooFeed implements Feed using the Yahoo Finance public API.
type YahooFeed struct {
	baseURL string
	client  *http.Client
	retry   utils.RetryConfig
	breaker *resilience.Breaker
	logger  zerolog.Logger
}

// NewYahooFeed creates a Yahoo feed. A nil breaker gets a private one.
func NewYahooFeed(cfg YahooConfig, breaker *resilience.Breaker, logger zerolog.Logger) *YahooFeed {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = utils.DefaultRetryConfig()
	}
	// Unknown symbols and rate limits are not worth retrying.
	cfg.Retry.Retryable = func(err error) bool {
		return !apperrors.Is(err, apperrors.ErrSymbolNotFound) && !apperrors.Is(err, apperrors.ErrRateLimited)
	}
	if breaker == nil {
		breaker = resilience.NewBreaker(SourceYahoo, resilience.DefaultConfig())
	}

	return &YahooFeed{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		retry:   cfg.Retry,
		breaker: breaker,
		logger:  logging.WithOperation(logger, "yahoo"),
	}
}

// quoteResponse is the v7 quote payload. Pointer fields distinguish an
// absent value from a zero.
type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol                     string   `json:"symbol"`
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
	RegularMarketDayHigh       *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow        *float64 `json:"regularMarketDayLow"`
	RegularMarketVolume        *int64   `json:"regularMarketVolume"`
	FiftyTwoWeekLow            *float64 `json:"fiftyTwoWeekLow"`
	FiftyTwoWeekHigh           *float64 `json:"fiftyTwoWeekHigh"`
	Beta                       *float64 `json:"beta"`
}

// chartResponse is the v8 chart payload. Yahoo reports null for bars on
// holidays and halted sessions.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Quote fetches the latest snapshot for symbol.
func (f *YahooFeed) Quote(ctx context.Context, symbol string) (models.QuoteSnapshot, error) {
	symbol = NormalizeSymbol(symbol)
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", f.baseURL, url.QueryEscape(symbol))

	var resp quoteResponse
	if err := f.getJSON(ctx, u, &resp); err != nil {
		return models.QuoteSnapshot{}, apperrors.NewDataError("quote", symbol, "fetch failed", err)
	}
	if resp.QuoteResponse.Error != nil {
		return models.QuoteSnapshot{}, apperrors.NewDataError("quote", symbol, resp.QuoteResponse.Error.Description, apperrors.ErrUpstreamFailure)
	}
	if len(resp.QuoteResponse.Result) == 0 {
		return models.QuoteSnapshot{}, apperrors.NewDataError("quote", symbol, "no result", apperrors.ErrSymbolNotFound)
	}

	q := resolveQuote(resp.QuoteResponse.Result[0])
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	return q, nil
}

// resolveQuote applies the missing-value defaults once: NaN for absent
// prices, 0 for absent volume, nil for absent beta.
func resolveQuote(r quoteResult) models.QuoteSnapshot {
	return models.QuoteSnapshot{
		Symbol:           NormalizeSymbol(r.Symbol),
		CurrentPrice:     floatOrNaN(r.RegularMarketPrice),
		PreviousClose:    floatOrNaN(r.RegularMarketPreviousClose),
		DayHigh:          floatOrNaN(r.RegularMarketDayHigh),
		DayLow:           floatOrNaN(r.RegularMarketDayLow),
		Volume:           intOrZero(r.RegularMarketVolume),
		FiftyTwoWeekLow:  floatOrNaN(r.FiftyTwoWeekLow),
		FiftyTwoWeekHigh: floatOrNaN(r.FiftyTwoWeekHigh),
		Beta:             r.Beta,
		Source:           SourceYahoo,
		FetchedAt:        time.Now(),
	}
}

// Bars fetches the chart series for symbol.
func (f *YahooFeed) Bars(ctx context.Context, symbol, rng, interval string) ([]models.OHLCBar, error) {
	symbol = NormalizeSymbol(symbol)
	if rng == "" {
		rng = DefaultRange
	}
	if interval == "" {
		interval = DefaultInterval
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		f.baseURL, url.PathEscape(symbol), url.QueryEscape(rng), url.QueryEscape(interval))

	var resp chartResponse
	if err := f.getJSON(ctx, u, &resp); err != nil {
		return nil, apperrors.NewDataError("chart", symbol, "fetch failed", err)
	}
	if resp.Chart.Error != nil {
		return nil, apperrors.NewDataError("chart", symbol, resp.Chart.Error.Description, apperrors.ErrSymbolNotFound)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, apperrors.NewDataError("chart", symbol, "no data returned", apperrors.ErrSymbolNotFound)
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]models.OHLCBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			continue // null bar
		}
		var volume int64
		if i < len(quote.Volume) {
			volume = intOrZero(quote.Volume[i])
		}
		t := time.Unix(ts, 0).UTC().Format("2006-01-02")
		bars = append(bars, models.NewOHLCBar(t, *o, *h, *l, *c, volume))
	}
	return bars, nil
}

// getJSON performs a GET under the breaker with retries and decodes into out.
func (f *YahooFeed) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	return f.breaker.Execute(ctx, func(ctx context.Context) error {
		return utils.Retry(ctx, f.retry, func(ctx context.Context) error {
			start := time.Now()
			err := f.fetch(ctx, rawURL, out)
			logging.LogAPICall(f.logger, http.MethodGet, rawURL, time.Since(start), err)
			return err
		})
	})
}

func (f *YahooFeed) fetch(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", apperrors.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		// Yahoo still sends a chart error body for unknown symbols.
		if json.Unmarshal(body, out) == nil {
			return nil
		}
		return apperrors.ErrSymbolNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", apperrors.ErrUpstreamFailure, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode: %v", apperrors.ErrUpstreamFailure, err)
	}
	return nil
}

func at[T any](values []*T, i int) *T {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func intOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
