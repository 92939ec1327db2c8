package agents

import (
	"fmt"
	"strings"

	"stockdesk/internal/analysis"
	"stockdesk/pkg/utils"
)

// StockAnalysisPrompt asks for an overview of a single stock.
func StockAnalysisPrompt(view analysis.StockView) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Analyze %s using this market data:\n\n", view.Symbol))
	writeView(&sb, view)
	sb.WriteString("\nCover the current trend, where price sits in its 52-week range, ")
	sb.WriteString("notable risks, and what to watch next. Keep it under 250 words.\n")

	return sb.String()
}

// TradeSuggestionPrompt asks for a trade idea around explicit support and
// resistance levels.
func TradeSuggestionPrompt(view analysis.StockView, levels *analysis.LevelAnalysis) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Suggest a trade setup for %s.\n\n", view.Symbol))
	writeView(&sb, view)

	if levels != nil {
		sb.WriteString("\n## Levels\n")
		sb.WriteString(fmt.Sprintf("- Support: %s\n", utils.FormatPrice(levels.Support)))
		sb.WriteString(fmt.Sprintf("- Intermediate support: %s\n", utils.FormatPrice(levels.IntermediateSupport)))
		sb.WriteString(fmt.Sprintf("- Intermediate resistance: %s\n", utils.FormatPrice(levels.IntermediateResistance)))
		sb.WriteString(fmt.Sprintf("- Resistance: %s\n", utils.FormatPrice(levels.Resistance)))
		sb.WriteString(fmt.Sprintf("- Position in range: %.0f%%\n", levels.ClampedFraction()*100))
		sb.WriteString(fmt.Sprintf("- Bias: %s, zone: %s\n", levels.Bias, levels.Zone))
		sb.WriteString(fmt.Sprintf("- Rule of thumb: %s\n", levels.Zone.Suggestion()))
	} else {
		sb.WriteString("\nSupport and resistance levels are not available.\n")
	}

	sb.WriteString("\nPropose an entry, a stop loss and a take-profit, and explain the risk/reward.\n")
	return sb.String()
}

// InsightsPrompt asks the model to interpret chart statistics.
func InsightsPrompt(symbol string, insights *analysis.Insights) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Interpret the recent price action of %s.\n\n", strings.ToUpper(symbol)))
	if insights == nil {
		sb.WriteString("No chart data is available for this period.\n")
		return sb.String()
	}

	sb.WriteString("## Chart statistics\n")
	sb.WriteString(fmt.Sprintf("- Bars: %d\n", insights.Bars))
	sb.WriteString(fmt.Sprintf("- Trend: %s (%+.2f)\n", insights.TrendDirection, insights.PriceChange))
	sb.WriteString(fmt.Sprintf("- Volatility: %.2f (%.2f%% of open)\n", insights.Volatility, insights.VolatilityPercent))
	sb.WriteString(fmt.Sprintf("- Volume: %s\n", insights.VolumeTrend))
	sb.WriteString(fmt.Sprintf("- Candles: %d green / %d red\n", insights.GreenCandles, insights.RedCandles))
	sb.WriteString(fmt.Sprintf("- Range: %s\n", utils.FormatRange(insights.LowestLow, insights.HighestHigh)))
	sb.WriteString(fmt.Sprintf("- Recent support/resistance: %s / %s\n",
		utils.FormatPrice(insights.SupportLevel), utils.FormatPrice(insights.ResistanceLevel)))
	sb.WriteString(fmt.Sprintf("- Short-term momentum: %s\n", insights.RecentTrend))
	sb.WriteString(fmt.Sprintf("- Relative strength: %.2f\n", insights.RelativeStrength))

	sb.WriteString("\nSummarize what these numbers suggest in a few bullet points.\n")
	return sb.String()
}

// RiskPlanPrompt asks for a review of a sized trade plan.
func RiskPlanPrompt(result *analysis.PlanResult) string {
	var sb strings.Builder

	sb.WriteString("Review this trade plan:\n\n")
	if result == nil {
		sb.WriteString("The plan is incomplete.\n")
		return sb.String()
	}

	p := result.Plan
	sb.WriteString(fmt.Sprintf("- Account size: %s\n", utils.FormatPrice(p.AccountSize)))
	sb.WriteString(fmt.Sprintf("- Risk per trade: %.2f%% (%s)\n", p.RiskPercent, utils.FormatPrice(result.DollarRisk)))
	sb.WriteString(fmt.Sprintf("- Entry: %s\n", utils.FormatPrice(p.EntryPrice)))
	sb.WriteString(fmt.Sprintf("- Stop loss: %s\n", utils.FormatPrice(p.StopLoss)))
	sb.WriteString(fmt.Sprintf("- Take profit: %s\n", utils.FormatPrice(p.TakeProfit)))
	sb.WriteString(fmt.Sprintf("- Position size: %.2f shares (%s)\n", result.PositionSize, utils.FormatPrice(result.PositionValue)))
	sb.WriteString(fmt.Sprintf("- Risk/reward: %s\n", result.RiskReward))
	sb.WriteString(fmt.Sprintf("- Potential profit: %s\n", utils.FormatPrice(result.PotentialProfit)))

	sb.WriteString("\nIs the sizing sensible and the stop placement reasonable? Point out anything risky.\n")
	return sb.String()
}

func writeView(sb *strings.Builder, view analysis.StockView) {
	sb.WriteString("## Quote\n")
	for _, f := range view.Fields() {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", f[0], f[1]))
	}
	sb.WriteString(fmt.Sprintf("- Data source: %s\n", view.Source))
}
