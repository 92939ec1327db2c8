package cli

import (
	"fmt"
	"strings"
	"time"

	"stockdesk/pkg/utils"
)

// FormatMoney formats an amount in the configured display currency.
func FormatMoney(amount float64, currency string) string {
	return utils.FormatCurrency(amount, currency)
}

// FormatPnL formats a profit or loss with an explicit sign.
func FormatPnL(pnl float64, currency string) string {
	formatted := FormatMoney(pnl, currency)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatQuantity formats a share quantity, dropping trailing zeros.
func FormatQuantity(qty float64) string {
	if !utils.IsFinite(qty) {
		return utils.NotAvailable
	}
	s := strings.TrimRight(fmt.Sprintf("%.4f", qty), "0")
	return strings.TrimSuffix(s, ".")
}

// FormatDate formats t with layout, falling back to ISO dates.
func FormatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return "-"
	}
	if layout == "" {
		layout = "2006-01-02"
	}
	return t.Local().Format(layout)
}

// FormatDateTime formats t as date and minute.
func FormatDateTime(t time.Time, layout string) string {
	if t.IsZero() {
		return "-"
	}
	return FormatDate(t, layout) + " " + t.Local().Format("15:04")
}

// FormatDuration formats a duration as "1h 30m" or "45m".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", max(m, 1))
	}
}

// TruncateString truncates s to at most maxLen runes, marking the cut.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// YesNo renders a boolean setting.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
