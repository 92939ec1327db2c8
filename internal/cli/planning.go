package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stockdesk/internal/agents"
	"stockdesk/internal/analysis"
	"stockdesk/internal/models"
	"stockdesk/internal/security"
	"stockdesk/pkg/utils"
)

// addPlanningCommands adds position sizing and trade planning commands.
func addPlanningCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newSizeCmd(app))
	rootCmd.AddCommand(newRRCmd())
	rootCmd.AddCommand(newPlanCmd(app))
}

// planFlags are the trade-planning form fields shared by size and plan.
type planFlags struct {
	account string
	risk    string
	entry   string
	stop    string
	target  string
}

func (f *planFlags) bind(cmd *cobra.Command, withTarget bool) {
	cmd.Flags().StringVar(&f.account, "account", "", "account size (default from config)")
	cmd.Flags().StringVar(&f.risk, "risk", "", "risk per trade in percent (default from config)")
	cmd.Flags().StringVar(&f.entry, "entry", "", "entry price")
	cmd.Flags().StringVar(&f.stop, "stop", "", "stop loss price")
	cmd.MarkFlagRequired("entry")
	cmd.MarkFlagRequired("stop")
	if withTarget {
		cmd.Flags().StringVar(&f.target, "target", "", "take profit price")
		cmd.MarkFlagRequired("target")
	}
}

// plan parses the form fields, filling account and risk from config.
func (f *planFlags) plan(app *App, withTarget bool) (models.RiskPlan, error) {
	p := models.RiskPlan{
		AccountSize: app.Config.Risk.AccountSize,
		RiskPercent: app.Config.Risk.RiskPercent,
	}
	var err error
	if f.account != "" {
		if p.AccountSize, err = security.ParsePositive("account", f.account); err != nil {
			return p, err
		}
	}
	if f.risk != "" {
		if p.RiskPercent, err = security.ParsePositive("risk", f.risk); err != nil {
			return p, err
		}
	}
	if p.EntryPrice, err = security.ParsePositive("entry", f.entry); err != nil {
		return p, err
	}
	if p.StopLoss, err = security.ParsePositive("stop", f.stop); err != nil {
		return p, err
	}
	if withTarget {
		if p.TakeProfit, err = security.ParsePositive("target", f.target); err != nil {
			return p, err
		}
	}
	return p, nil
}

func newSizeCmd(app *App) *cobra.Command {
	var flags planFlags

	cmd := &cobra.Command{
		Use:     "size",
		Short:   "Size a position from account risk",
		Example: `  stockdesk size --entry 50 --stop 48 --account 10000 --risk 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			p, err := flags.plan(app, false)
			if err != nil {
				return err
			}
			sizing, err := analysis.SizePosition(p.AccountSize, p.RiskPercent, p.EntryPrice, p.StopLoss)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(sizing)
			}

			cur := app.Config.UI.Currency
			output.KeyValues([][2]string{
				{"Account", FormatMoney(p.AccountSize, cur)},
				{"Risk", fmt.Sprintf("%.2f%%", p.RiskPercent)},
				{"Dollar Risk", FormatMoney(sizing.DollarRisk, cur)},
				{"Risk Per Share", FormatMoney(sizing.RiskPerShare, cur)},
				{"Shares", FormatQuantity(sizing.ShareQuantity)},
				{"Position Value", FormatMoney(sizing.ShareQuantity*p.EntryPrice, cur)},
			})
			return nil
		},
	}

	flags.bind(cmd, false)
	return cmd
}

func newRRCmd() *cobra.Command {
	var entry, stop, target string

	cmd := &cobra.Command{
		Use:   "rr",
		Short: "Compute a risk/reward ratio",
		Long: `Compute the risk/reward ratio |target - stop| / |entry - stop|.
Missing or non-numeric fields print "-" instead of failing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ratio, err := analysis.ParseRiskReward(entry, stop, target)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"risk_reward": ratio})
			}
			output.Printf("Risk/Reward: %s\n", ratio)
			return nil
		},
	}

	cmd.Flags().StringVar(&entry, "entry", "", "entry price")
	cmd.Flags().StringVar(&stop, "stop", "", "stop loss price")
	cmd.Flags().StringVar(&target, "target", "", "take profit price")
	return cmd
}

func newPlanCmd(app *App) *cobra.Command {
	var flags planFlags
	var review bool

	cmd := &cobra.Command{
		Use:     "plan",
		Short:   "Evaluate a full trade plan",
		Example: `  stockdesk plan --entry 50 --stop 48 --target 56 --review`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			p, err := flags.plan(app, true)
			if err != nil {
				return err
			}
			result, err := analysis.EvaluatePlan(p)
			if err != nil {
				return err
			}

			var feedback string
			if review {
				client, err := app.LLM(cmd.Context())
				if err != nil {
					return err
				}
				if feedback, err = client.CompleteWithSystem(cmd.Context(), agents.SystemPrompt, agents.RiskPlanPrompt(result)); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(struct {
					*analysis.PlanResult
					Review string `json:"review,omitempty"`
				}{result, feedback})
			}

			cur := app.Config.UI.Currency
			output.Bold("Trade Plan")
			output.KeyValues([][2]string{
				{"Entry", utils.FormatPrice(p.EntryPrice)},
				{"Stop Loss", utils.FormatPrice(p.StopLoss)},
				{"Take Profit", utils.FormatPrice(p.TakeProfit)},
				{"Dollar Risk", FormatMoney(result.DollarRisk, cur)},
				{"Shares", FormatQuantity(result.PositionSize)},
				{"Position Value", FormatMoney(result.PositionValue, cur)},
				{"Risk/Reward", result.RiskReward},
				{"Potential Profit", output.Signed(result.PotentialProfit, FormatPnL(result.PotentialProfit, cur))},
			})
			if result.RiskRewardRatio < 1 {
				output.Warning("  Reward is smaller than the risk")
			}
			if feedback != "" {
				output.Println()
				output.Markdown(feedback)
			}
			return nil
		},
	}

	flags.bind(cmd, true)
	cmd.Flags().BoolVar(&review, "review", false, "ask the AI assistant to review the plan")
	return cmd
}
