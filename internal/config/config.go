// Package config provides configuration management for the stockdesk application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	User        string            `mapstructure:"user"`
	Quotes      QuotesConfig      `mapstructure:"quotes"`
	AI          AIConfig          `mapstructure:"ai"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Store       StoreConfig       `mapstructure:"store"`
	UI          UIConfig          `mapstructure:"ui"`
	Logging     logging.LogConfig `mapstructure:"logging"`
	Credentials Credentials       `mapstructure:"-"` // Loaded separately
	Dir         string            `mapstructure:"-"`
}

// QuotesConfig holds market data feed configuration.
type QuotesConfig struct {
	Provider    string        `mapstructure:"provider"` // "yahoo", "mock"
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	CacheSize   int           `mapstructure:"cache_size"`
	WatchSpec   string        `mapstructure:"watch_spec"` // cron spec with seconds
	Concurrency int           `mapstructure:"concurrency"`
	Range       string        `mapstructure:"range"`
	Interval    string        `mapstructure:"interval"`
}

// AIConfig holds generative-AI configuration.
type AIConfig struct {
	Provider   string `mapstructure:"provider"` // "openai", "gemini"
	Model      string `mapstructure:"model"`
	MaxHistory int    `mapstructure:"max_history"`
	Render     bool   `mapstructure:"render"`
}

// RiskConfig holds position-sizing defaults.
type RiskConfig struct {
	AccountSize float64 `mapstructure:"account_size"`
	RiskPercent float64 `mapstructure:"risk_percent"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	Currency     string `mapstructure:"currency"`
	DateFormat   string `mapstructure:"date_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai"`
	Gemini GeminiCredentials `mapstructure:"gemini"`
	Vault  VaultCredentials  `mapstructure:"vault"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// GeminiCredentials holds Gemini API credentials.
type GeminiCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// VaultCredentials holds the passphrase for secrets stored in the database.
type VaultCredentials struct {
	SecretKey string `mapstructure:"secret_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stockdesk"
	}
	return filepath.Join(home, ".config", "stockdesk")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
// Missing files are created from templates and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{Dir: configDir}

	// Load main config
	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	logDefaults := logging.DefaultLogConfig()

	v.SetDefault("user", "local")

	v.SetDefault("quotes.provider", "yahoo")
	v.SetDefault("quotes.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("quotes.timeout", "10s")
	v.SetDefault("quotes.max_retries", 3)
	v.SetDefault("quotes.cache_size", 50)
	v.SetDefault("quotes.watch_spec", "*/30 * * * * *")
	v.SetDefault("quotes.concurrency", 4)
	v.SetDefault("quotes.range", "1mo")
	v.SetDefault("quotes.interval", "1d")

	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.max_history", 20)
	v.SetDefault("ai.render", true)

	v.SetDefault("risk.account_size", 10000.0)
	v.SetDefault("risk.risk_percent", 1.0)

	v.SetDefault("store.path", filepath.Join(configDir, "stockdesk.db"))

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.currency", "USD")
	v.SetDefault("ui.date_format", "2006-01-02")

	v.SetDefault("logging.level", logDefaults.Level)
	v.SetDefault("logging.console", false)
	v.SetDefault("logging.file", logDefaults.File)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "stockdesk.log"))
	v.SetDefault("logging.max_size", logDefaults.MaxSize)
	v.SetDefault("logging.max_backups", logDefaults.MaxBackups)
	v.SetDefault("logging.max_age", logDefaults.MaxAge)
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Config file not found, create template and continue on defaults
		if err := createTemplate(configDir, "config.toml", configTemplate, 0644); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Use restricted permissions for credentials file
		return createTemplate(configDir, "credentials.toml", credentialsTemplate, 0600)
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Credentials.Gemini.APIKey = v
	}
	if v := os.Getenv("STOCKDESK_SECRET_KEY"); v != "" {
		cfg.Credentials.Vault.SecretKey = v
	}
	if v := os.Getenv("STOCKDESK_USER"); v != "" {
		cfg.User = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.User == "" {
		return invalidf("user must not be empty")
	}

	switch c.Quotes.Provider {
	case "yahoo", "mock":
	default:
		return invalidf("invalid quotes provider: %s (must be 'yahoo' or 'mock')", c.Quotes.Provider)
	}
	if c.Quotes.CacheSize <= 0 {
		return invalidf("quotes.cache_size must be positive")
	}
	if c.Quotes.MaxRetries < 1 {
		return invalidf("quotes.max_retries must be at least 1")
	}
	if c.Quotes.Concurrency < 1 {
		return invalidf("quotes.concurrency must be at least 1")
	}

	switch c.AI.Provider {
	case "openai", "gemini":
	default:
		return invalidf("invalid ai provider: %s (must be 'openai' or 'gemini')", c.AI.Provider)
	}
	if c.AI.MaxHistory < 2 {
		return invalidf("ai.max_history must be at least 2")
	}

	if c.Risk.AccountSize < 0 {
		return invalidf("risk.account_size must be non-negative")
	}
	if c.Risk.RiskPercent < 0 || c.Risk.RiskPercent > 100 {
		return invalidf("risk.risk_percent must be between 0 and 100")
	}

	return nil
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", apperrors.ErrConfigInvalid, fmt.Sprintf(format, args...))
}

// AIKey returns the API key for the configured AI provider.
func (c *Config) AIKey() string {
	if c.AI.Provider == "gemini" {
		return c.Credentials.Gemini.APIKey
	}
	return c.Credentials.OpenAI.APIKey
}

// SecretKeyPath is where a generated vault passphrase is kept.
func (c *Config) SecretKeyPath() string {
	return filepath.Join(c.Dir, "secret.key")
}

// UseMockQuotes returns true if quotes come from the synthetic generator.
func (c *Config) UseMockQuotes() bool {
	return c.Quotes.Provider == "mock"
}
