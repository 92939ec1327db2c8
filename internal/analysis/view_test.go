package analysis

import (
	"math"
	"strings"
	"testing"

	"stockdesk/internal/models"
)

func TestDescribe(t *testing.T) {
	beta := 1.23
	q := models.QuoteSnapshot{
		Symbol:           "aapl",
		CurrentPrice:     153,
		PreviousClose:    150,
		DayHigh:          154,
		DayLow:           149.5,
		Volume:           52_300_000,
		FiftyTwoWeekLow:  120,
		FiftyTwoWeekHigh: 200,
		Beta:             &beta,
		Source:           "yahoo",
	}

	v := Describe(q)
	checks := map[string][2]string{
		"symbol":         {v.Symbol, "AAPL"},
		"price":          {v.Price, "153.00"},
		"change":         {v.Change, "+3.00"},
		"change percent": {v.ChangePercent, "+2.00%"},
		"day range":      {v.DayRange, "149.50 - 154.00"},
		"volume":         {v.Volume, "52.30M"},
		"year range":     {v.YearRange, "120.00 - 200.00"},
		"year position":  {v.YearPosition, "41%"},
		"beta":           {v.Beta, "1.23"},
		"trend":          {string(v.Trend), "Uptrend"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", name, c[0], c[1])
		}
	}
	if v.Levels == nil {
		t.Error("expected 52-week levels")
	}
}

func TestDescribeMissingFields(t *testing.T) {
	q := models.QuoteSnapshot{
		Symbol:           "XYZ",
		CurrentPrice:     math.NaN(),
		PreviousClose:    math.NaN(),
		DayHigh:          math.NaN(),
		DayLow:           math.NaN(),
		FiftyTwoWeekLow:  math.NaN(),
		FiftyTwoWeekHigh: math.NaN(),
	}

	v := Describe(q)
	for _, f := range v.Fields() {
		if strings.Contains(f[1], "NaN") || strings.Contains(f[1], "undefined") {
			t.Errorf("%s leaked %q", f[0], f[1])
		}
	}
	if v.Price != "N/A" || v.Volume != "N/A" || v.Beta != "N/A" || v.YearPosition != "N/A" {
		t.Errorf("missing values should be N/A, got %+v", v)
	}
	if v.Trend != models.Sideways {
		t.Errorf("Trend = %s, want Sideways", v.Trend)
	}
	if v.Levels != nil {
		t.Error("levels should be absent without a 52-week range")
	}
}
