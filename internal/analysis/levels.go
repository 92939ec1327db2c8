package analysis

import (
	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/models"
)

// Bias is the directional lean of price within its support/resistance range.
type Bias string

const (
	SupportTesting    Bias = "support-testing"
	ResistanceTesting Bias = "resistance-testing"
)

// Zone is the strategy tier of a range position.
type Zone string

const (
	ZoneNearSupport    Zone = "near-support"
	ZoneMidRange       Zone = "mid-range"
	ZoneNearResistance Zone = "near-resistance"
)

// Suggestion returns the trade-suggestion wording for the zone. It is a
// classification only; no order logic hangs off it.
func (z Zone) Suggestion() string {
	switch z {
	case ZoneNearSupport:
		return "Price is near support: potential buying opportunity with a tight stop below support."
	case ZoneNearResistance:
		return "Price is near resistance: exercise caution, consider taking profits or waiting for a breakout."
	default:
		return "Price is mid-range: consider range trading between support and resistance."
	}
}

// LevelAnalysis is the position of a price within a support/resistance range.
type LevelAnalysis struct {
	Price                  float64 `json:"price"`
	Support                float64 `json:"support"`
	Resistance             float64 `json:"resistance"`
	PositionFraction       float64 `json:"position_fraction"`
	IntermediateSupport    float64 `json:"intermediate_support"`
	IntermediateResistance float64 `json:"intermediate_resistance"`
	Bias                   Bias    `json:"bias"`
	Zone                   Zone    `json:"zone"`
}

// ClampedFraction returns PositionFraction limited to [0, 1] for display.
// The raw fraction is kept on the struct because out-of-range values carry
// meaning (price broke through a level).
func (l *LevelAnalysis) ClampedFraction() float64 {
	switch {
	case l.PositionFraction < 0:
		return 0
	case l.PositionFraction > 1:
		return 1
	}
	return l.PositionFraction
}

// AnalyzeLevels computes where price sits between support and resistance.
// resistance must be strictly above support.
func AnalyzeLevels(price, support, resistance float64) (*LevelAnalysis, error) {
	if !finite(price) {
		return nil, apperrors.NewValidationError("price", price, "must be a finite number")
	}
	if !finite(support) {
		return nil, apperrors.NewValidationError("support", support, "must be a finite number")
	}
	if !finite(resistance) {
		return nil, apperrors.NewValidationError("resistance", resistance, "must be a finite number")
	}

	width := resistance - support
	if width == 0 {
		return nil, apperrors.NewDomainError("analyze levels", "resistance equals support", apperrors.ErrDivisionByZero)
	}
	if width < 0 {
		return nil, apperrors.NewDomainError("analyze levels", "resistance is below support", apperrors.ErrInvalidRange)
	}

	fraction := (price - support) / width
	bias := SupportTesting
	if fraction > BiasMidpoint {
		bias = ResistanceTesting
	}

	return &LevelAnalysis{
		Price:                  price,
		Support:                support,
		Resistance:             resistance,
		PositionFraction:       fraction,
		IntermediateSupport:    support + width*IntermediateLevelFraction,
		IntermediateResistance: support + width*(1-IntermediateLevelFraction),
		Bias:                   bias,
		Zone:                   ClassifyZone(fraction),
	}, nil
}

// ClassifyZone tiers a range position into near-support, mid-range or
// near-resistance.
func ClassifyZone(fraction float64) Zone {
	switch {
	case fraction < NearSupportFraction:
		return ZoneNearSupport
	case fraction > NearResistanceFraction:
		return ZoneNearResistance
	}
	return ZoneMidRange
}

// FiftyTwoWeekPosition analyzes the current price against the 52-week
// range. The second result is false when the range is missing or
// degenerate; callers display "N/A" in that case.
func FiftyTwoWeekPosition(q models.QuoteSnapshot) (*LevelAnalysis, bool) {
	levels, err := AnalyzeLevels(q.CurrentPrice, q.FiftyTwoWeekLow, q.FiftyTwoWeekHigh)
	if err != nil {
		return nil, false
	}
	return levels, true
}
