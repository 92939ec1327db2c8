package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stockdesk/internal/analysis"
	"stockdesk/internal/logging"
	"stockdesk/internal/quotes"
	"stockdesk/internal/security"
	"stockdesk/pkg/utils"
)

// addMarketCommands adds quote, chart and watchlist commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newInsightsCmd(app))
	rootCmd.AddCommand(newLevelsCmd())
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newWatchlistCmd(app))
}

// fetchView validates symbol, fetches its quote and resolves it for display.
func (a *App) fetchView(ctx context.Context, raw string) (analysis.StockView, error) {
	symbol, err := security.ValidateSymbol(raw)
	if err != nil {
		return analysis.StockView{}, err
	}
	q, err := a.Feed().Quote(ctx, symbol)
	if err != nil {
		return analysis.StockView{}, err
	}
	view := analysis.Describe(q)
	logging.LogQuote(logging.WithSymbol(a.Logger, symbol), symbol, q.Source, q.CurrentPrice, string(view.Trend))
	return view, nil
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol>...",
		Short: "Show quotes with trend and 52-week position",
		Example: `  stockdesk quote AAPL
  stockdesk quote MSFT NVDA --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			views := make([]analysis.StockView, 0, len(args))
			for _, arg := range args {
				view, err := app.fetchView(cmd.Context(), arg)
				if err != nil {
					return err
				}
				views = append(views, view)
			}

			if output.IsJSON() {
				return output.JSON(views)
			}
			for i, view := range views {
				if i > 0 {
					output.Println()
				}
				printView(output, view)
			}
			printSession(output, time.Now())
			return nil
		},
	}
}

func printView(output *Output, view analysis.StockView) {
	output.Printf("%s %s\n", output.Cyan(view.Symbol), output.SourceTag(view.Source))
	fields := view.Fields()[1:]
	for i, f := range fields {
		if f[0] == "Trend" {
			fields[i][1] = output.Trend(view.Trend)
		}
	}
	output.KeyValues(fields)
	if view.Levels != nil {
		output.Dim("  %s", view.Levels.Zone.Suggestion())
	}
	if view.Source != quotes.SourceYahoo {
		output.Warning("  Live data unavailable, showing %s data", view.Source)
	}
}

// printSession notes the US market session, with the next open when the
// regular session is not running.
func printSession(output *Output, now time.Time) {
	session := utils.SessionAt(now)
	label := strings.ToLower(strings.ReplaceAll(string(session), "_", "-"))
	if session == utils.SessionOpen {
		output.Dim("US market %s", label)
		return
	}
	output.Dim("US market %s, next open %s", label, utils.NextMarketOpen(now).Local().Format("Mon Jan 2 15:04 MST"))
}

func newInsightsCmd(app *App) *cobra.Command {
	var rng, interval string

	cmd := &cobra.Command{
		Use:   "insights <symbol>",
		Short: "Summarize recent price action from OHLC bars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol, err := security.ValidateSymbol(args[0])
			if err != nil {
				return err
			}
			if rng == "" {
				rng = app.Config.Quotes.Range
			}
			if interval == "" {
				interval = app.Config.Quotes.Interval
			}

			bars, err := app.Feed().Bars(cmd.Context(), symbol, rng, interval)
			if err != nil {
				return err
			}
			insights := analysis.Synthesize(bars)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":    symbol,
					"range":     rng,
					"interval":  interval,
					"insights":  insights,
					"narrative": insights.Narrative(),
				})
			}

			output.Bold("%s insights (%s, %s bars)", symbol, rng, interval)
			if insights == nil {
				output.Warning("No chart data available")
				return nil
			}
			for _, in := range insights.Narrative() {
				output.Printf("  %s %s\n", sentimentMark(output, in.Sentiment), output.Cyan(in.Title+":"))
				output.Printf("    %s\n", in.Description)
			}
			output.Println()
			output.KeyValues([][2]string{
				{"Range", utils.FormatRange(insights.LowestLow, insights.HighestHigh)},
				{"Support", utils.FormatPrice(insights.SupportLevel)},
				{"Resistance", utils.FormatPrice(insights.ResistanceLevel)},
				{"Relative Strength", fmt.Sprintf("%.2f", insights.RelativeStrength)},
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&rng, "range", "", "history range (5d, 1mo, 3mo, 6mo, 1y)")
	cmd.Flags().StringVar(&interval, "interval", "", "bar interval (1d, 1wk)")
	return cmd
}

func sentimentMark(output *Output, sentiment string) string {
	switch sentiment {
	case string(analysis.Bullish), string(analysis.MomentumPositive):
		return output.Green("▲")
	case string(analysis.Bearish), string(analysis.MomentumNegative):
		return output.Red("▼")
	case "caution":
		return output.Yellow("!")
	}
	return output.DimText("•")
}

func newLevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels <price> <support> <resistance>",
		Short: "Locate a price between support and resistance",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			names := []string{"price", "support", "resistance"}
			values := make([]float64, 3)
			for i, raw := range args {
				v, err := security.ParseNumber(names[i], raw)
				if err != nil {
					return err
				}
				values[i] = v
			}

			levels, err := analysis.AnalyzeLevels(values[0], values[1], values[2])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(levels)
			}

			output.KeyValues([][2]string{
				{"Price", utils.FormatPrice(levels.Price)},
				{"Support", utils.FormatPrice(levels.Support)},
				{"Intermediate Support", utils.FormatPrice(levels.IntermediateSupport)},
				{"Intermediate Resistance", utils.FormatPrice(levels.IntermediateResistance)},
				{"Resistance", utils.FormatPrice(levels.Resistance)},
				{"Position", fmt.Sprintf("%.0f%%", levels.ClampedFraction()*100)},
				{"Bias", string(levels.Bias)},
				{"Zone", string(levels.Zone)},
			})
			output.Info("  %s", levels.Zone.Suggestion())
			return nil
		},
	}
}

// watchRow is a WatchResult resolved for display.
type watchRow struct {
	Symbol        string             `json:"symbol"`
	View          analysis.StockView `json:"quote"`
	SessionChange string             `json:"session_change"`
	Error         string             `json:"error,omitempty"`
	Refreshed     time.Time          `json:"refreshed"`
}

func toWatchRows(results []quotes.WatchResult) []watchRow {
	rows := make([]watchRow, len(results))
	for i, r := range results {
		rows[i] = watchRow{Symbol: r.Symbol, Refreshed: r.Refreshed}
		if r.Err != nil {
			rows[i].Error = r.Err.Error()
			continue
		}
		rows[i].View = analysis.Describe(r.Quote)
		rows[i].SessionChange = utils.NotAvailable
		if r.SessionChange != nil {
			rows[i].SessionChange = utils.FormatPercent(*r.SessionChange)
		}
	}
	return rows
}

func newWatchCmd(app *App) *cobra.Command {
	var once bool
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch [symbol]...",
		Short: "Refresh a watchlist on a schedule",
		Long: `Refresh quotes for the given symbols, or the saved watchlist when none
are given. Without --once the list is refreshed on a cron schedule
(seconds field included) until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbols, err := app.watchSymbols(cmd.Context(), args)
			if err != nil {
				return err
			}

			q := app.Config.Quotes
			watcher := quotes.NewWatcher(app.Feed(), q.Concurrency, q.Timeout, app.Logger)
			render := func(results []quotes.WatchResult) {
				rows := toWatchRows(results)
				if output.IsJSON() {
					if err := output.JSON(rows); err != nil {
						app.Logger.Warn().Err(err).Msg("Failed to write watch update")
					}
					return
				}
				printWatchRows(output, rows)
			}

			if once {
				render(watcher.Refresh(cmd.Context(), symbols))
				return nil
			}

			if schedule == "" {
				schedule = q.WatchSpec
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			render(watcher.Refresh(ctx, symbols))
			if err := watcher.Start(ctx, schedule, symbols, render); err != nil {
				return err
			}
			printSession(output, time.Now())
			output.Dim("Watching %d symbols (%s). Press Ctrl+C to stop.", len(symbols), schedule)
			<-ctx.Done()
			watcher.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "refresh once and exit")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule with seconds (default from config)")
	return cmd
}

func (a *App) watchSymbols(ctx context.Context, args []string) ([]string, error) {
	if len(args) == 0 {
		s, err := a.Store()
		if err != nil {
			return nil, err
		}
		saved, err := s.GetWatchlist(ctx, a.Config.User)
		if err != nil {
			return nil, err
		}
		if len(saved) == 0 {
			return nil, fmt.Errorf("watchlist is empty, add symbols with 'stockdesk watchlist add'")
		}
		return saved, nil
	}

	symbols := make([]string, 0, len(args))
	for _, arg := range args {
		symbol, err := security.ValidateSymbol(arg)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	return symbols, nil
}

func printWatchRows(output *Output, rows []watchRow) {
	table := NewTable(output, "SYMBOL", "PRICE", "CHANGE", "SESSION", "TREND", "52W", "SOURCE")
	for _, r := range rows {
		if r.Error != "" {
			table.AddRow(r.Symbol, "-", "-", "-", output.Red("error"), "-", TruncateString(r.Error, 40))
			continue
		}
		v := r.View
		table.AddRow(v.Symbol, v.Price, v.ChangePercent, r.SessionChange, output.Trend(v.Trend), v.YearPosition, output.SourceTag(v.Source))
	}
	table.Render()
	if len(rows) > 0 {
		output.Dim("Updated %s", rows[0].Refreshed.Local().Format("15:04:05"))
	}
}

func newWatchlistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage the saved watchlist",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <symbol>...",
		Short: "Add symbols to the watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}
			for _, arg := range args {
				symbol, err := security.ValidateSymbol(arg)
				if err != nil {
					return err
				}
				if err := s.AddToWatchlist(cmd.Context(), app.Config.User, symbol); err != nil {
					return err
				}
				if !output.IsJSON() {
					output.Success("✓ Added %s", symbol)
				}
			}
			return printWatchlist(cmd, app, output)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <symbol>",
		Aliases: []string{"rm"},
		Short:   "Remove a symbol from the watchlist",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol, err := security.ValidateSymbol(args[0])
			if err != nil {
				return err
			}
			s, err := app.Store()
			if err != nil {
				return err
			}
			if err := s.RemoveFromWatchlist(cmd.Context(), app.Config.User, symbol); err != nil {
				return err
			}
			if !output.IsJSON() {
				output.Success("✓ Removed %s", symbol)
			}
			return printWatchlist(cmd, app, output)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List watchlist symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printWatchlist(cmd, app, NewOutput(cmd))
		},
	})

	return cmd
}

func printWatchlist(cmd *cobra.Command, app *App, output *Output) error {
	s, err := app.Store()
	if err != nil {
		return err
	}
	symbols, err := s.GetWatchlist(cmd.Context(), app.Config.User)
	if err != nil {
		return err
	}
	if output.IsJSON() {
		return output.JSON(map[string][]string{"symbols": symbols})
	}
	if len(symbols) == 0 {
		output.Dim("Watchlist is empty")
		return nil
	}
	for _, s := range symbols {
		output.Printf("  %s\n", s)
	}
	return nil
}
