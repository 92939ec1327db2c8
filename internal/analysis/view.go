package analysis

import (
	"fmt"
	"strings"

	"stockdesk/internal/models"
	"stockdesk/pkg/utils"
)

// StockView is a QuoteSnapshot with every optional field resolved to a
// display string. Prompt builders and renderers read only from a StockView,
// so a missing value can surface as "N/A" but never as NaN.
type StockView struct {
	Symbol        string            `json:"symbol"`
	Price         string            `json:"price"`
	PreviousClose string            `json:"previous_close"`
	Change        string            `json:"change"`
	ChangePercent string            `json:"change_percent"`
	DayRange      string            `json:"day_range"`
	Volume        string            `json:"volume"`
	YearRange     string            `json:"year_range"`
	YearPosition  string            `json:"year_position"`
	Beta          string            `json:"beta"`
	Trend         models.TrendLabel `json:"trend"`
	Source        string            `json:"source"`

	// Levels is the 52-week range analysis, nil when the range is unusable.
	Levels *LevelAnalysis `json:"levels,omitempty"`
}

// Describe resolves a snapshot into a StockView.
func Describe(q models.QuoteSnapshot) StockView {
	v := StockView{
		Symbol:        strings.ToUpper(strings.TrimSpace(q.Symbol)),
		Price:         utils.FormatPrice(q.CurrentPrice),
		PreviousClose: utils.FormatPrice(q.PreviousClose),
		DayRange:      utils.FormatRange(q.DayLow, q.DayHigh),
		Volume:        utils.FormatShares(q.Volume),
		YearRange:     utils.FormatRange(q.FiftyTwoWeekLow, q.FiftyTwoWeekHigh),
		YearPosition:  utils.NotAvailable,
		Beta:          utils.NotAvailable,
		Trend:         ClassifyQuote(q),
		Source:        q.Source,
	}
	if v.Symbol == "" {
		v.Symbol = utils.NotAvailable
	}
	if v.Source == "" {
		v.Source = "unknown"
	}

	change := Change(q.CurrentPrice, q.PreviousClose)
	if finite(change) {
		v.Change = fmt.Sprintf("%+.2f", change)
	} else {
		v.Change = utils.NotAvailable
	}
	v.ChangePercent = utils.FormatPercent(ChangePercent(q.CurrentPrice, q.PreviousClose))

	if q.HasBeta() {
		v.Beta = fmt.Sprintf("%.2f", *q.Beta)
	}

	if levels, ok := FiftyTwoWeekPosition(q); ok {
		v.Levels = levels
		v.YearPosition = fmt.Sprintf("%.0f%%", levels.ClampedFraction()*100)
	}
	return v
}

// Fields returns the view as ordered label/value pairs for tabular output.
func (v StockView) Fields() [][2]string {
	return [][2]string{
		{"Symbol", v.Symbol},
		{"Price", v.Price},
		{"Change", v.Change},
		{"Change %", v.ChangePercent},
		{"Previous Close", v.PreviousClose},
		{"Day Range", v.DayRange},
		{"52W Range", v.YearRange},
		{"52W Position", v.YearPosition},
		{"Volume", v.Volume},
		{"Beta", v.Beta},
		{"Trend", string(v.Trend)},
	}
}
