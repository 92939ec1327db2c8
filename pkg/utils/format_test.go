package utils

import (
	"math"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		name   string
		volume float64
		want   string
	}{
		{"zero", 0, "N/A"},
		{"negative", -10, "N/A"},
		{"nan", math.NaN(), "N/A"},
		{"inf", math.Inf(1), "N/A"},
		{"units", 999, "999"},
		{"single share", 1, "1"},
		{"thousands", 1500, "1.50K"},
		{"exact thousand", 1000, "1.00K"},
		{"millions", 2_500_000, "2.50M"},
		{"billions", 3_200_000_000, "3.20B"},
		{"half-up rounding", 1005, "1.01K"},
		{"round down", 1004, "1.00K"},
		{"fraction below thousand", 999.9, "999"},
		// The unit is chosen from the raw value, so rounding may reach 1000.
		{"rounds up within thousands", 999_995, "1000.00K"},
		{"just below rounding boundary", 999_994, "999.99K"},
		{"rounds up within millions", 999_999_999, "1000.00M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatVolume(tt.volume); got != tt.want {
				t.Errorf("FormatVolume(%v) = %q, want %q", tt.volume, got, tt.want)
			}
		})
	}
}

func TestFormatShares(t *testing.T) {
	if got := FormatShares(2_500_000); got != "2.50M" {
		t.Errorf("FormatShares = %q, want 2.50M", got)
	}
	if got := FormatShares(0); got != NotAvailable {
		t.Errorf("FormatShares(0) = %q, want N/A", got)
	}
}

func TestProperty_FormatVolumeNeverLeaksNaN(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatVolume output is N/A or numeric with known suffix", prop.ForAll(
		func(v float64) bool {
			got := FormatVolume(v)
			if strings.Contains(got, "NaN") || strings.Contains(got, "Inf") {
				return false
			}
			if v <= 0 {
				return got == NotAvailable
			}
			if v >= 1e3 {
				last := got[len(got)-1:]
				return last == "K" || last == "M" || last == "B"
			}
			return true
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.Property("FormatVolume is deterministic", prop.ForAll(
		func(v float64) bool {
			return FormatVolume(v) == FormatVolume(v)
		},
		gen.Float64(),
	))

	properties.TestingRun(t)
}

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice(150); got != "150.00" {
		t.Errorf("FormatPrice(150) = %q", got)
	}
	if got := FormatPrice(math.NaN()); got != NotAvailable {
		t.Errorf("FormatPrice(NaN) = %q", got)
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{2, "+2.00%"},
		{-1.256, "-1.26%"},
		{0, "0.00%"},
		{math.NaN(), "N/A"},
	}
	for _, tt := range tests {
		if got := FormatPercent(tt.value); got != tt.want {
			t.Errorf("FormatPercent(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	if got := FormatCurrency(200, "USD"); got != "$200.00" {
		t.Errorf("FormatCurrency(200, USD) = %q, want $200.00", got)
	}
	if got := FormatCurrency(math.Inf(1), "USD"); got != NotAvailable {
		t.Errorf("FormatCurrency(Inf) = %q, want N/A", got)
	}
	if got := FormatCurrency(12.5, "ZZZ"); got != "12.50 ZZZ" {
		t.Errorf("FormatCurrency unknown currency = %q", got)
	}
}

func TestTruncateDecimals(t *testing.T) {
	tests := []struct {
		value  float64
		places int32
		want   float64
	}{
		{33.339, 2, 33.33},
		{100, 2, 100},
		{0.999, 2, 0.99},
		{-1.239, 2, -1.23},
	}
	for _, tt := range tests {
		if got := TruncateDecimals(tt.value, tt.places); got != tt.want {
			t.Errorf("TruncateDecimals(%v, %d) = %v, want %v", tt.value, tt.places, got, tt.want)
		}
	}
}
