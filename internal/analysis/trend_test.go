package analysis

import (
	"math"
	"testing"

	"stockdesk/internal/models"
)

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name   string
		change float64
		want   models.TrendLabel
	}{
		{"strong gain", 2.0, models.Uptrend},
		{"strong loss", -2.0, models.Downtrend},
		{"small move", 0.5, models.Sideways},
		{"exact threshold up", 1.5, models.Sideways},
		{"exact threshold down", -1.5, models.Sideways},
		{"nan", math.NaN(), models.Sideways},
		{"inf", math.Inf(1), models.Sideways},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTrend(tt.change); got != tt.want {
				t.Errorf("ClassifyTrend(%v) = %s, want %s", tt.change, got, tt.want)
			}
		})
	}
}

func TestClassifyTrendWithBeta(t *testing.T) {
	tests := []struct {
		name   string
		change float64
		beta   float64
		want   models.TrendLabel
	}{
		{"high beta sideways day", 0.5, 1.5, models.Volatile},
		{"low beta sideways day", 0.5, 0.8, models.Sideways},
		{"beta exactly one", 0.5, 1.0, models.Sideways},
		{"missing beta", 0.5, math.NaN(), models.Sideways},
		{"directional move beats beta", 2.0, 1.5, models.Uptrend},
		{"directional drop beats beta", -3.0, 2.0, models.Downtrend},
		{"missing change ignores beta", math.NaN(), 2.0, models.Sideways},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTrendWithBeta(tt.change, tt.beta); got != tt.want {
				t.Errorf("ClassifyTrendWithBeta(%v, %v) = %s, want %s", tt.change, tt.beta, got, tt.want)
			}
		})
	}
}

func TestClassifyQuote(t *testing.T) {
	beta := 1.4
	q := models.QuoteSnapshot{CurrentPrice: 100.5, PreviousClose: 100, Beta: &beta}
	if got := ClassifyQuote(q); got != models.Volatile {
		t.Errorf("ClassifyQuote = %s, want Volatile", got)
	}

	q = models.QuoteSnapshot{CurrentPrice: 110, PreviousClose: 100}
	if got := ClassifyQuote(q); got != models.Uptrend {
		t.Errorf("ClassifyQuote = %s, want Uptrend", got)
	}

	q = models.QuoteSnapshot{CurrentPrice: math.NaN(), PreviousClose: 100}
	if got := ClassifyQuote(q); got != models.Sideways {
		t.Errorf("ClassifyQuote with missing price = %s, want Sideways", got)
	}

	nanBeta := math.NaN()
	q = models.QuoteSnapshot{CurrentPrice: 100.5, PreviousClose: 100, Beta: &nanBeta}
	if got := ClassifyQuote(q); got != models.Sideways {
		t.Errorf("ClassifyQuote with NaN beta = %s, want Sideways", got)
	}
}

func TestQuoteHasBeta(t *testing.T) {
	finiteBeta, nanBeta, infBeta := 0.8, math.NaN(), math.Inf(1)
	tests := []struct {
		name string
		beta *float64
		want bool
	}{
		{"absent", nil, false},
		{"finite", &finiteBeta, true},
		{"nan", &nanBeta, false},
		{"inf", &infBeta, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (models.QuoteSnapshot{Beta: tt.beta}).HasBeta(); got != tt.want {
				t.Errorf("HasBeta() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChangePercent(t *testing.T) {
	if got := ChangePercent(102, 100); math.Abs(got-2) > 1e-9 {
		t.Errorf("ChangePercent(102, 100) = %v, want 2", got)
	}
	if got := ChangePercent(102, 0); !math.IsNaN(got) {
		t.Errorf("ChangePercent with zero previous close = %v, want NaN", got)
	}
	if got := ChangePercent(math.NaN(), 100); !math.IsNaN(got) {
		t.Errorf("ChangePercent with missing price = %v, want NaN", got)
	}
}
