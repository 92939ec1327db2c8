package analysis

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"stockdesk/internal/models"
)

// Property: for any support < price < resistance the raw position
// fraction lies strictly inside (0, 1), and the intermediate levels sit
// inside the range.
func TestProperty_PositionFractionInsideRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("support < price < resistance implies 0 < fraction < 1", prop.ForAll(
		func(support, width, at float64) bool {
			resistance := support + width
			price := support + width*at
			if !(support < price && price < resistance) {
				return true
			}
			got, err := AnalyzeLevels(price, support, resistance)
			if err != nil {
				return false
			}
			return got.PositionFraction > 0 && got.PositionFraction < 1 &&
				got.IntermediateSupport > support && got.IntermediateResistance < resistance &&
				got.IntermediateSupport < got.IntermediateResistance
		},
		gen.Float64Range(1, 1000),
		gen.Float64Range(0.5, 500),
		gen.Float64Range(0.01, 0.99),
	))

	properties.TestingRun(t)
}

// Property: position sizing never returns more shares than the exact
// quotient and risks no more than the dollar risk.
func TestProperty_PositionSizeIsFloored(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("share quantity is floor2(dollarRisk / |entry-stop|)", prop.ForAll(
		func(account, risk, entry, gap float64) bool {
			stop := entry - gap
			if stop <= 0 {
				return true
			}
			got, err := SizePosition(account, risk, entry, stop)
			if err != nil {
				t.Logf("SizePosition(%v, %v, %v, %v): %v", account, risk, entry, stop, err)
				return false
			}
			exact := got.DollarRisk / math.Abs(entry-stop)
			return got.ShareQuantity <= exact+1e-9 && exact-got.ShareQuantity < 0.01+1e-9
		},
		gen.Float64Range(1000, 1_000_000),
		gen.Float64Range(0.1, 10),
		gen.Float64Range(10, 1000),
		gen.Float64Range(0.05, 9),
	))

	properties.TestingRun(t)
}

func barGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.OHLCBar{}), map[string]gopter.Gen{
		"Open":   gen.Float64Range(10, 500),
		"High":   gen.Float64Range(10, 500),
		"Low":    gen.Float64Range(10, 500),
		"Close":  gen.Float64Range(10, 500),
		"Volume": gen.Int64Range(0, 10_000_000),
	}).Map(func(b models.OHLCBar) models.OHLCBar {
		b.High = math.Max(b.High, math.Max(b.Open, b.Close))
		b.Low = math.Min(b.Low, math.Min(b.Open, b.Close))
		b.Gain = b.Close > b.Open
		return b
	})
}

// Property: every bar is counted exactly once as a green or red candle,
// and synthesizing twice yields identical output.
func TestProperty_SynthesizeCountsAndDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("green + red == len(bars)", prop.ForAll(
		func(bars []models.OHLCBar) bool {
			got := Synthesize(bars)
			if len(bars) == 0 {
				return got == nil
			}
			return got.GreenCandles+got.RedCandles == len(bars)
		},
		gen.SliceOf(barGen()),
	))

	properties.Property("synthesize is pure", prop.ForAll(
		func(bars []models.OHLCBar) bool {
			return reflect.DeepEqual(Synthesize(bars), Synthesize(bars))
		},
		gen.SliceOf(barGen()),
	))

	properties.Property("support level never exceeds resistance level", prop.ForAll(
		func(bars []models.OHLCBar) bool {
			got := Synthesize(bars)
			if got == nil {
				return true
			}
			return got.SupportLevel <= got.ResistanceLevel && !math.IsNaN(got.RelativeStrength)
		},
		gen.SliceOf(barGen()),
	))

	properties.TestingRun(t)
}

// Round-trip: a generated series fed through Synthesize keeps every bar.
func TestProperty_GeneratedSeriesRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("generated bars are fully counted", prop.ForAll(
		func(seed int64, count int) bool {
			cfg := DefaultGenerateConfig(seed)
			cfg.Count = count
			bars := GenerateBars(cfg)
			got := Synthesize(bars)
			return len(bars) == count && got.GreenCandles+got.RedCandles == len(bars)
		},
		gen.Int64(),
		gen.IntRange(1, 250),
	))

	properties.TestingRun(t)
}

// Property: a resolved view never carries NaN, whatever the snapshot holds.
func TestProperty_DescribeNeverLeaksNaN(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	maybe := func(v float64, missing bool) float64 {
		if missing {
			return math.NaN()
		}
		return v
	}

	properties.Property("Describe output has no NaN", prop.ForAll(
		func(price, prev float64, missingPrice, missingPrev bool, volume int64) bool {
			q := models.QuoteSnapshot{
				Symbol:           "TEST",
				CurrentPrice:     maybe(price, missingPrice),
				PreviousClose:    maybe(prev, missingPrev),
				DayHigh:          math.NaN(),
				DayLow:           maybe(price, missingPrice),
				Volume:           volume,
				FiftyTwoWeekLow:  maybe(prev, missingPrev),
				FiftyTwoWeekHigh: maybe(price, missingPrice),
			}
			for _, f := range Describe(q).Fields() {
				if strings.Contains(f[1], "NaN") || strings.Contains(f[1], "Inf") {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 5000),
		gen.Float64Range(0, 5000),
		gen.Bool(),
		gen.Bool(),
		gen.Int64Range(0, 1e10),
	))

	properties.TestingRun(t)
}
