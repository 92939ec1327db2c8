package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stockdesk/internal/agents"
	"stockdesk/internal/analysis"
	"stockdesk/internal/logging"
	"stockdesk/internal/security"
)

// Ask modes.
const (
	askAnalysis = "analysis"
	askTrade    = "trade"
	askInsights = "insights"
)

// addAssistantCommands adds the AI assistant commands.
func addAssistantCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newChatCmd(app))
	rootCmd.AddCommand(newAskCmd(app))
}

func newChatCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [symbol]",
		Short: "Chat with the AI analyst",
		Long: `Start an interactive conversation with the AI analyst. When a symbol is
given its current quote is pinned as context for every answer.

Commands inside the chat:
  /reset     clear the conversation
  /history   show the conversation so far
  bye        leave the chat`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			client, err := app.LLM(ctx)
			if err != nil {
				return err
			}
			session := agents.NewChatSession(client, agents.SystemPrompt, app.Config.AI.MaxHistory)
			logger := logging.WithSession(app.userLogger(), session.ID)

			if len(args) == 1 {
				view, err := app.fetchView(ctx, args[0])
				if err != nil {
					return err
				}
				session.Focus(agents.StockAnalysisPrompt(view))
				output.Info("Discussing %s (%s %s)", view.Symbol, view.Price, view.ChangePercent)
			}
			output.Dim("Type your question, /reset to start over, bye to leave.")
			logger.Info().Msg("Chat session started")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				output.Printf("%s ", output.Cyan(">"))
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())

				switch strings.ToLower(line) {
				case "":
					continue
				case "bye", "exit", "quit", "/exit":
					output.Dim("Goodbye.")
					logger.Info().Int("messages", len(session.History())).Msg("Chat session ended")
					return nil
				case "/reset":
					session.Reset()
					output.Success("✓ Conversation cleared")
					continue
				case "/history":
					printHistory(output, session)
					continue
				}

				reply, err := session.Send(ctx, line)
				if err != nil {
					output.Error("Assistant unavailable: %v", err)
					continue
				}
				output.Markdown(reply)
			}
			return scanner.Err()
		},
	}
}

func printHistory(output *Output, session *agents.ChatSession) {
	history := session.History()
	if len(history) == 0 {
		output.Dim("No messages yet")
		return
	}
	for _, m := range history {
		output.Printf("%s %s\n", output.DimText(m.Timestamp.Local().Format("15:04")), output.Cyan(string(m.Role)+":"))
		output.Printf("  %s\n", TruncateString(strings.ReplaceAll(m.Content, "\n", " "), 200))
	}
}

func newAskCmd(app *App) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "ask <symbol> [question]",
		Short: "One-shot AI analysis of a stock",
		Example: `  stockdesk ask AAPL
  stockdesk ask MSFT --mode trade
  stockdesk ask NVDA --mode insights "is momentum fading?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			symbol, err := security.ValidateSymbol(args[0])
			if err != nil {
				return err
			}

			var prompt string
			switch mode {
			case askAnalysis, askTrade:
				view, err := app.fetchView(ctx, symbol)
				if err != nil {
					return err
				}
				if mode == askTrade {
					prompt = agents.TradeSuggestionPrompt(view, view.Levels)
				} else {
					prompt = agents.StockAnalysisPrompt(view)
				}
			case askInsights:
				bars, err := app.Feed().Bars(ctx, symbol, app.Config.Quotes.Range, app.Config.Quotes.Interval)
				if err != nil {
					return err
				}
				prompt = agents.InsightsPrompt(symbol, analysis.Synthesize(bars))
			default:
				return fmt.Errorf("unknown mode %q (use analysis, trade or insights)", mode)
			}

			if question := security.SanitizeText(strings.Join(args[1:], " ")); question != "" {
				if err := security.ValidateText("question", question, security.MaxTextLength); err != nil {
					return err
				}
				prompt += "\nAlso answer this question: " + question + "\n"
			}

			client, err := app.LLM(ctx)
			if err != nil {
				return err
			}
			reply, err := client.CompleteWithSystem(ctx, agents.SystemPrompt, prompt)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"symbol": symbol, "mode": mode, "answer": reply})
			}
			output.Markdown(reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", askAnalysis, "analysis, trade or insights")
	return cmd
}
