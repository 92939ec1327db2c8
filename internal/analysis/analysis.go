// Package analysis provides the trading-metric derivation layer: trend
// classification, support/resistance positioning, position sizing,
// risk/reward and OHLC insight synthesis.
//
// Every function in this package is a pure transform over its arguments.
// Missing inputs resolve to documented defaults; only true mathematical
// impossibilities are reported as *errors.DomainError.
package analysis

// Thresholds carried over from the dashboard. None of them has a stated
// derivation and they are not validated trading logic.
const (
	// TrendThresholdPercent is the day-over-day move that separates a
	// directional trend from a sideways day.
	TrendThresholdPercent = 1.5
	// VolatileBeta is the beta above which a sideways day is labelled volatile.
	VolatileBeta = 1.0
	// NearSupportFraction is the range position below which price is
	// considered to be testing support.
	NearSupportFraction = 0.3
	// NearResistanceFraction is the range position above which price is
	// considered to be testing resistance.
	NearResistanceFraction = 0.7
	// BiasMidpoint splits support-testing from resistance-testing bias.
	BiasMidpoint = 0.5
	// IntermediateLevelFraction places the intermediate levels a quarter
	// of the range in from each end.
	IntermediateLevelFraction = 0.25
	// RelativeStrengthCeiling is reported when a series has gains but no
	// losses.
	RelativeStrengthCeiling = 10.0
	// RecentTrendLookback is the number of bars RecentTrend looks back.
	RecentTrendLookback = 3
)
