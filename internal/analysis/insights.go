package analysis

import (
	"fmt"
	"math"

	"stockdesk/internal/models"
)

// Direction is the bullish/bearish lean of a bar series.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// VolumeTrend compares the second half of a series' volume to the first.
type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "increasing"
	VolumeDecreasing VolumeTrend = "decreasing"
)

// Momentum is the short-term direction of the last few closes.
type Momentum string

const (
	MomentumPositive Momentum = "positive"
	MomentumNegative Momentum = "negative"
)

// Insights summarizes an OHLC series.
type Insights struct {
	Bars              int         `json:"bars"`
	TrendDirection    Direction   `json:"trend_direction"`
	PriceChange       float64     `json:"price_change"`
	Volatility        float64     `json:"volatility"`
	VolatilityPercent float64     `json:"volatility_percent"`
	VolumeTrend       VolumeTrend `json:"volume_trend"`
	GreenCandles      int         `json:"green_candles"`
	RedCandles        int         `json:"red_candles"`
	HighestHigh       float64     `json:"highest_high"`
	LowestLow         float64     `json:"lowest_low"`
	ResistanceLevel   float64     `json:"resistance_level"`
	SupportLevel      float64     `json:"support_level"`
	RecentTrend       Momentum    `json:"recent_trend"`
	RelativeStrength  float64     `json:"relative_strength"`
}

// Synthesize derives Insights from a bar series. It returns nil for an
// empty series.
func Synthesize(bars []models.OHLCBar) *Insights {
	n := len(bars)
	if n == 0 {
		return nil
	}

	first, last := bars[0], bars[n-1]
	ins := &Insights{
		Bars:        n,
		PriceChange: last.Close - first.Open,
		HighestHigh: math.Inf(-1),
		LowestLow:   math.Inf(1),
	}

	ins.TrendDirection = Bearish
	if ins.PriceChange >= 0 {
		ins.TrendDirection = Bullish
	}

	var rangeSum, gainSum, lossSum float64
	var firstHalfVolume, secondHalfVolume int64
	half := n / 2

	for i, b := range bars {
		rangeSum += b.High - b.Low
		if b.High > ins.HighestHigh {
			ins.HighestHigh = b.High
		}
		if b.Low < ins.LowestLow {
			ins.LowestLow = b.Low
		}

		if b.Gain {
			ins.GreenCandles++
			gainSum += b.Close - b.Open
		} else {
			ins.RedCandles++
			lossSum += b.Open - b.Close
		}

		if i < half {
			firstHalfVolume += b.Volume
		} else {
			secondHalfVolume += b.Volume
		}
	}

	ins.Volatility = rangeSum / float64(n)
	if first.Open != 0 {
		ins.VolatilityPercent = ins.Volatility / first.Open * 100
	}

	ins.VolumeTrend = VolumeDecreasing
	if secondHalfVolume > firstHalfVolume {
		ins.VolumeTrend = VolumeIncreasing
	}

	span := ins.HighestHigh - ins.LowestLow
	ins.ResistanceLevel = ins.HighestHigh - span*IntermediateLevelFraction
	ins.SupportLevel = ins.LowestLow + span*IntermediateLevelFraction

	lookback := n - 1 - RecentTrendLookback
	if lookback < 0 {
		lookback = 0
	}
	ins.RecentTrend = MomentumNegative
	if last.Close > bars[lookback].Close {
		ins.RecentTrend = MomentumPositive
	}

	ins.RelativeStrength = relativeStrength(gainSum, ins.GreenCandles, lossSum, ins.RedCandles)
	return ins
}

// relativeStrength is mean gain over mean loss. A series with gains and no
// measurable loss reports RelativeStrengthCeiling.
func relativeStrength(gainSum float64, gains int, lossSum float64, losses int) float64 {
	var avgGain, avgLoss float64
	if gains > 0 {
		avgGain = gainSum / float64(gains)
	}
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}
	if avgLoss == 0 {
		if avgGain > 0 {
			return RelativeStrengthCeiling
		}
		return 0
	}
	return avgGain / avgLoss
}

// BullishRatio returns the share of green candles.
func (i *Insights) BullishRatio() float64 {
	if i.Bars == 0 {
		return 0
	}
	return float64(i.GreenCandles) / float64(i.Bars)
}

// Insight is one line of the narrative insight set.
type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Sentiment   string `json:"sentiment"`
}

// Narrative turns the statistics into ordered, human-readable insights.
func (i *Insights) Narrative() []Insight {
	if i == nil {
		return nil
	}

	var out []Insight

	trend := Insight{Title: "Trend", Sentiment: string(i.TrendDirection)}
	if i.TrendDirection == Bullish {
		trend.Description = fmt.Sprintf("Price gained %.2f over %d bars.", i.PriceChange, i.Bars)
	} else {
		trend.Description = fmt.Sprintf("Price lost %.2f over %d bars.", -i.PriceChange, i.Bars)
	}
	out = append(out, trend)

	vol := Insight{Title: "Volatility", Sentiment: "neutral"}
	switch {
	case i.VolatilityPercent >= 3:
		vol.Description = fmt.Sprintf("High volatility: average bar range is %.2f%% of the opening price.", i.VolatilityPercent)
		vol.Sentiment = "caution"
	case i.VolatilityPercent >= 1:
		vol.Description = fmt.Sprintf("Moderate volatility: average bar range is %.2f%% of the opening price.", i.VolatilityPercent)
	default:
		vol.Description = fmt.Sprintf("Low volatility: average bar range is %.2f%% of the opening price.", i.VolatilityPercent)
	}
	out = append(out, vol)

	candles := Insight{Title: "Candles", Sentiment: "neutral"}
	candles.Description = fmt.Sprintf("%d green and %d red candles (%.0f%% bullish).", i.GreenCandles, i.RedCandles, i.BullishRatio()*100)
	if i.GreenCandles > i.RedCandles {
		candles.Sentiment = string(Bullish)
	} else if i.RedCandles > i.GreenCandles {
		candles.Sentiment = string(Bearish)
	}
	out = append(out, candles)

	volume := Insight{Title: "Volume", Sentiment: "neutral"}
	if i.VolumeTrend == VolumeIncreasing {
		volume.Description = "Volume is increasing, confirming participation in the current move."
		volume.Sentiment = string(i.TrendDirection)
	} else {
		volume.Description = "Volume is decreasing, the current move lacks conviction."
	}
	out = append(out, volume)

	out = append(out, Insight{
		Title:       "Key levels",
		Description: fmt.Sprintf("Support near %.2f, resistance near %.2f.", i.SupportLevel, i.ResistanceLevel),
		Sentiment:   "neutral",
	})

	momentum := Insight{Title: "Momentum", Sentiment: string(Bearish)}
	if i.RecentTrend == MomentumPositive {
		momentum.Sentiment = string(Bullish)
	}
	momentum.Description = fmt.Sprintf("Recent momentum is %s with relative strength %.2f.", i.RecentTrend, i.RelativeStrength)
	out = append(out, momentum)

	return out
}
