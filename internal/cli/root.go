// Package cli provides the command-line interface for the stock desk.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stockdesk/internal/agents"
	"stockdesk/internal/config"
	"stockdesk/internal/logging"
	"stockdesk/internal/quotes"
	"stockdesk/internal/resilience"
	"stockdesk/internal/security"
	"stockdesk/internal/store"
	"stockdesk/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-19"
)

// App holds the application dependencies. Collaborators are opened on
// first use so commands like version never touch the database or network.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Breakers *resilience.Registry

	store store.DataStore
	feed  quotes.Feed
	llm   agents.ChatClient
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{Config: cfg, Logger: logger})
}

func newRootCmd(app *App) *cobra.Command {
	if app.Breakers == nil {
		app.Breakers = resilience.NewRegistry(resilience.DefaultConfig())
	}

	rootCmd := &cobra.Command{
		Use:   "stockdesk",
		Short: "Stock desk - quotes, levels, risk planning and an AI analyst",
		Long: `stockdesk is a terminal stock-analysis desk.

It fetches quotes and price history, classifies trends, finds support and
resistance zones, sizes positions against a risk budget, and lets you ask
an AI assistant about what you are looking at. Portfolio, profile and
settings are kept in a local SQLite database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dir, _ := cmd.Flags().GetString("config"); dir != "" {
				cfg, err := config.Load(dir)
				if err != nil {
					return err
				}
				app.Config = cfg
			}
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stockdesk)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addMarketCommands(rootCmd, app)
	addPlanningCommands(rootCmd, app)
	addAssistantCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)
	addAccountCommands(rootCmd, app)

	return rootCmd
}

// Store opens the SQLite store on first use.
func (a *App) Store() (store.DataStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	path := a.Config.Store.Path
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	vault, err := a.vault()
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	s.SetSecretCodec(vault)
	a.Logger.Debug().Str("path", path).Msg("SQLite store initialized")
	a.store = s
	return s, nil
}

// vault seals account secrets with the configured passphrase, or with a
// generated key file when none is set.
func (a *App) vault() (*security.Vault, error) {
	key := a.Config.Credentials.Vault.SecretKey
	if key == "" {
		var err error
		if key, err = security.LoadOrCreateKey(a.Config.SecretKeyPath()); err != nil {
			return nil, err
		}
	}
	return security.NewVault(key)
}

// Feed builds the quote feed on first use: the configured provider behind
// a fallback to cached and synthetic data.
func (a *App) Feed() quotes.Feed {
	if a.feed != nil {
		return a.feed
	}
	q := a.Config.Quotes
	var primary quotes.Feed
	if a.Config.UseMockQuotes() {
		primary = quotes.NewMockFeed()
	} else {
		retry := utils.DefaultRetryConfig()
		retry.MaxAttempts = q.MaxRetries
		primary = quotes.NewYahooFeed(quotes.YahooConfig{
			BaseURL: q.BaseURL,
			Timeout: q.Timeout,
			Retry:   retry,
		}, a.Breakers.Get(quotes.SourceYahoo), a.Logger)
	}
	a.feed = quotes.NewFallbackFeed(primary, quotes.NewCache(q.CacheSize), a.Logger)
	return a.feed
}

// LLM builds the configured AI client on first use.
func (a *App) LLM(ctx context.Context) (agents.ChatClient, error) {
	if a.llm != nil {
		return a.llm, nil
	}
	provider := a.Config.AI.Provider
	client, err := agents.NewClient(ctx, provider, a.Config.AIKey(), a.Config.AI.Model)
	if err != nil {
		return nil, err
	}
	a.llm = agents.NewGuardedClient(client, provider, a.Breakers.Get(provider), a.Logger)
	a.Logger.Debug().Str("provider", provider).Str("model", a.Config.AI.Model).Msg("LLM client initialized")
	return a.llm, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// userLogger returns the logger scoped to the configured user.
func (a *App) userLogger() zerolog.Logger {
	return logging.WithUser(a.Logger, a.Config.User)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("stockdesk v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(configView(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir := app.Config.Dir
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

// configView is the configuration with credentials masked.
func configView(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"user":    cfg.User,
		"quotes":  cfg.Quotes,
		"ai":      cfg.AI,
		"risk":    cfg.Risk,
		"store":   cfg.Store,
		"ui":      cfg.UI,
		"logging": cfg.Logging,
		"credentials": map[string]string{
			"openai": security.MaskCredential(cfg.Credentials.OpenAI.APIKey),
			"gemini": security.MaskCredential(cfg.Credentials.Gemini.APIKey),
			"vault":  security.MaskCredential(cfg.Credentials.Vault.SecretKey),
		},
	}
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("General")
	output.KeyValues([][2]string{
		{"User", cfg.User},
		{"Config Dir", cfg.Dir},
		{"Database", cfg.Store.Path},
	})
	output.Println()

	output.Bold("Quotes")
	output.KeyValues([][2]string{
		{"Provider", cfg.Quotes.Provider},
		{"Base URL", cfg.Quotes.BaseURL},
		{"Timeout", cfg.Quotes.Timeout.String()},
		{"Retries", fmt.Sprint(cfg.Quotes.MaxRetries)},
		{"Watch Schedule", cfg.Quotes.WatchSpec},
		{"History", cfg.Quotes.Range + " @ " + cfg.Quotes.Interval},
	})
	output.Println()

	output.Bold("AI")
	output.KeyValues([][2]string{
		{"Provider", cfg.AI.Provider},
		{"Model", cfg.AI.Model},
		{"Max History", fmt.Sprint(cfg.AI.MaxHistory)},
		{"OpenAI Key", orDash(security.MaskCredential(cfg.Credentials.OpenAI.APIKey))},
		{"Gemini Key", orDash(security.MaskCredential(cfg.Credentials.Gemini.APIKey))},
	})
	output.Println()

	output.Bold("Risk")
	output.KeyValues([][2]string{
		{"Account Size", FormatMoney(cfg.Risk.AccountSize, cfg.UI.Currency)},
		{"Risk Per Trade", fmt.Sprintf("%.2f%%", cfg.Risk.RiskPercent)},
	})
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
