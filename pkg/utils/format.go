// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// NotAvailable is displayed in place of any missing or non-numeric value.
const NotAvailable = "N/A"

var (
	thousand = decimal.New(1, 3)
	million  = decimal.New(1, 6)
	billion  = decimal.New(1, 9)
)

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatVolume abbreviates a share volume with a K, M or B suffix, rounding
// half-up to two decimals. The suffix is picked before rounding, so 999995
// formats as "1000.00K". Zero, negative and non-finite volumes are "N/A".
func FormatVolume(volume float64) string {
	if !IsFinite(volume) || volume <= 0 {
		return NotAvailable
	}

	v := decimal.NewFromFloat(volume)
	switch {
	case volume >= 1e9:
		return v.Div(billion).StringFixed(2) + "B"
	case volume >= 1e6:
		return v.Div(million).StringFixed(2) + "M"
	case volume >= 1e3:
		return v.Div(thousand).StringFixed(2) + "K"
	}
	return v.Truncate(0).String()
}

// FormatShares is FormatVolume for integer share counts.
func FormatShares(volume int64) string {
	return FormatVolume(float64(volume))
}

// FormatPrice formats a price with two decimals.
func FormatPrice(price float64) string {
	if !IsFinite(price) {
		return NotAvailable
	}
	return decimal.NewFromFloat(price).StringFixed(2)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	if !IsFinite(value) {
		return NotAvailable
	}
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatCurrency formats an amount in the given ISO currency, e.g. "$1,250.00".
// Unknown currencies fall back to a plain two-decimal amount with the code.
func FormatCurrency(amount float64, currency string) string {
	if !IsFinite(amount) {
		return NotAvailable
	}
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%s %s", FormatPrice(amount), currency)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// FormatRange formats a low-high pair as "low - high".
func FormatRange(low, high float64) string {
	if !IsFinite(low) || !IsFinite(high) {
		return NotAvailable
	}
	return FormatPrice(low) + " - " + FormatPrice(high)
}

// TruncateDecimals floors a non-negative value to the given number of
// decimal places. Negative values truncate toward zero.
func TruncateDecimals(value float64, places int32) float64 {
	if !IsFinite(value) {
		return value
	}
	f, _ := decimal.NewFromFloat(value).Truncate(places).Float64()
	return f
}
