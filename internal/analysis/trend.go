package analysis

import (
	"math"

	"stockdesk/internal/models"
)

// ClassifyTrend labels a day-over-day percent change. A NaN change is
// Sideways.
func ClassifyTrend(changePercent float64) models.TrendLabel {
	return ClassifyTrendWithBeta(changePercent, math.NaN())
}

// ClassifyTrendWithBeta labels a day-over-day percent change, using beta as
// a volatility proxy. A NaN beta means the feed did not supply one.
//
// A move beyond TrendThresholdPercent in either direction is the stronger
// signal and wins over beta; otherwise a beta above VolatileBeta turns a
// sideways day into Volatile.
func ClassifyTrendWithBeta(changePercent, beta float64) models.TrendLabel {
	if math.IsNaN(changePercent) || math.IsInf(changePercent, 0) {
		return models.Sideways
	}

	switch {
	case changePercent > TrendThresholdPercent:
		return models.Uptrend
	case changePercent < -TrendThresholdPercent:
		return models.Downtrend
	}

	if !math.IsNaN(beta) && beta > VolatileBeta {
		return models.Volatile
	}
	return models.Sideways
}

// ClassifyQuote labels a quote snapshot from its change versus the previous
// close and its beta.
func ClassifyQuote(q models.QuoteSnapshot) models.TrendLabel {
	beta := math.NaN()
	if q.HasBeta() {
		beta = *q.Beta
	}
	return ClassifyTrendWithBeta(ChangePercent(q.CurrentPrice, q.PreviousClose), beta)
}

// Change returns price minus previous close, or NaN when either is missing.
func Change(price, previousClose float64) float64 {
	if !finite(price) || !finite(previousClose) {
		return math.NaN()
	}
	return price - previousClose
}

// ChangePercent returns the percent change from previous close to price.
// It is NaN when either input is missing or the previous close is not
// positive.
func ChangePercent(price, previousClose float64) float64 {
	if !finite(price) || !finite(previousClose) || previousClose <= 0 {
		return math.NaN()
	}
	return (price - previousClose) / previousClose * 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
