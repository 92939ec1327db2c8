package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/models"
)

// NoRatio is displayed when a risk/reward ratio cannot be computed from the
// form fields.
const NoRatio = "-"

// Sizing is the dollar risk and share quantity of a trade.
type Sizing struct {
	DollarRisk    float64 `json:"dollar_risk"`
	ShareQuantity float64 `json:"share_quantity"`
	RiskPerShare  float64 `json:"risk_per_share"`
}

// SizePosition computes the dollar amount at risk and the number of shares
// that risks exactly that amount between entry and stop. The share quantity
// is truncated (not rounded) to two decimals.
func SizePosition(accountSize, riskPercent, entry, stop float64) (*Sizing, error) {
	if err := validatePositive("account_size", accountSize); err != nil {
		return nil, err
	}
	if !finite(riskPercent) || riskPercent <= 0 || riskPercent > 100 {
		return nil, apperrors.NewValidationError("risk_percent", riskPercent, "must be in (0, 100]")
	}
	if err := validatePositive("entry_price", entry); err != nil {
		return nil, err
	}
	if err := validatePositive("stop_loss", stop); err != nil {
		return nil, err
	}
	if entry == stop {
		return nil, apperrors.NewDomainError("size position", "entry equals stop loss", apperrors.ErrDivisionByZero)
	}

	dollarRisk := decimal.NewFromFloat(accountSize).
		Mul(decimal.NewFromFloat(riskPercent)).
		Div(decimal.NewFromInt(100))
	perShare := decimal.NewFromFloat(entry).Sub(decimal.NewFromFloat(stop)).Abs()
	shares := dollarRisk.Div(perShare).Truncate(2)

	risk, _ := dollarRisk.Float64()
	qty, _ := shares.Float64()
	ps, _ := perShare.Float64()
	return &Sizing{
		DollarRisk:    risk,
		ShareQuantity: qty,
		RiskPerShare:  ps,
	}, nil
}

// RiskRewardRatio returns |takeProfit - stop| / |entry - stop|.
// Any NaN input yields NaN with a nil error; entry equal to stop is a
// DomainError.
func RiskRewardRatio(entry, stop, takeProfit float64) (float64, error) {
	if !finite(entry) || !finite(stop) || !finite(takeProfit) {
		return math.NaN(), nil
	}
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0, apperrors.NewDomainError("risk reward", "entry equals stop loss", apperrors.ErrDivisionByZero)
	}
	return math.Abs(takeProfit-stop) / risk, nil
}

// FormatRiskReward formats the risk/reward ratio as "3.00:1", or "-" when
// any input is missing.
func FormatRiskReward(entry, stop, takeProfit float64) (string, error) {
	ratio, err := RiskRewardRatio(entry, stop, takeProfit)
	if err != nil {
		return "", err
	}
	if math.IsNaN(ratio) {
		return NoRatio, nil
	}
	return fmt.Sprintf("%s:1", decimal.NewFromFloat(ratio).StringFixed(2)), nil
}

// ParseRiskReward is the form-field entry point to FormatRiskReward: blank
// or unparsable text counts as a missing value.
func ParseRiskReward(entry, stop, takeProfit string) (string, error) {
	return FormatRiskReward(parseField(entry), parseField(stop), parseField(takeProfit))
}

func parseField(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func validatePositive(field string, v float64) error {
	if !finite(v) || v <= 0 {
		return apperrors.NewValidationError(field, v, "must be a positive number")
	}
	return nil
}

// PlanResult is a fully derived RiskPlan.
type PlanResult struct {
	Plan            models.RiskPlan `json:"plan"`
	DollarRisk      float64         `json:"dollar_risk"`
	PositionSize    float64         `json:"position_size"`
	PositionValue   float64         `json:"position_value"`
	RiskRewardRatio float64         `json:"risk_reward_ratio"`
	RiskReward      string          `json:"risk_reward"`
	PotentialProfit float64         `json:"potential_profit"`
}

// EvaluatePlan validates a RiskPlan and derives its sizing and ratio.
func EvaluatePlan(plan models.RiskPlan) (*PlanResult, error) {
	sizing, err := SizePosition(plan.AccountSize, plan.RiskPercent, plan.EntryPrice, plan.StopLoss)
	if err != nil {
		return nil, err
	}
	if err := validatePositive("take_profit", plan.TakeProfit); err != nil {
		return nil, err
	}

	ratio, err := RiskRewardRatio(plan.EntryPrice, plan.StopLoss, plan.TakeProfit)
	if err != nil {
		return nil, err
	}
	formatted, err := FormatRiskReward(plan.EntryPrice, plan.StopLoss, plan.TakeProfit)
	if err != nil {
		return nil, err
	}

	return &PlanResult{
		Plan:            plan,
		DollarRisk:      sizing.DollarRisk,
		PositionSize:    sizing.ShareQuantity,
		PositionValue:   sizing.ShareQuantity * plan.EntryPrice,
		RiskRewardRatio: ratio,
		RiskReward:      formatted,
		PotentialProfit: sizing.ShareQuantity * math.Abs(plan.TakeProfit-plan.EntryPrice),
	}, nil
}
