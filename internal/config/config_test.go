package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "stockdesk/internal/errors"
)

func TestLoadCreatesTemplates(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("STOCKDESK_USER", "")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, name := range []string{"config.toml", "credentials.toml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be created: %v", name, err)
		}
	}
	info, err := os.Stat(filepath.Join(dir, "credentials.toml"))
	if err == nil && info.Mode().Perm() != 0600 {
		t.Errorf("credentials perm = %v, want 0600", info.Mode().Perm())
	}

	if cfg.User != "local" {
		t.Errorf("User = %q, want local", cfg.User)
	}
	if cfg.Quotes.Provider != "yahoo" || cfg.Quotes.Timeout != 10*time.Second {
		t.Errorf("unexpected quotes config %+v", cfg.Quotes)
	}
	if cfg.AI.MaxHistory != 20 {
		t.Errorf("MaxHistory = %d, want 20", cfg.AI.MaxHistory)
	}
	if cfg.Store.Path != filepath.Join(dir, "stockdesk.db") {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := `user = "alice"

[quotes]
provider = "mock"
cache_size = 5

[ai]
provider = "gemini"
model = "gemini-2.5-flash"
max_history = 6
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	creds := "[gemini]\napi_key = \"from-file\"\n"
	if err := os.WriteFile(filepath.Join(dir, "credentials.toml"), []byte(creds), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STOCKDESK_USER", "bob")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("STOCKDESK_SECRET_KEY", "vault-pass")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.User != "bob" {
		t.Errorf("env override not applied, User = %q", cfg.User)
	}
	if !cfg.UseMockQuotes() || cfg.Quotes.CacheSize != 5 {
		t.Errorf("unexpected quotes config %+v", cfg.Quotes)
	}
	if cfg.AIKey() != "from-file" {
		t.Errorf("AIKey() = %q, want from-file", cfg.AIKey())
	}
	if cfg.Credentials.OpenAI.APIKey != "sk-env" {
		t.Errorf("OpenAI key = %q", cfg.Credentials.OpenAI.APIKey)
	}
	if cfg.Credentials.Vault.SecretKey != "vault-pass" {
		t.Errorf("vault key = %q", cfg.Credentials.Vault.SecretKey)
	}
	if cfg.SecretKeyPath() != filepath.Join(dir, "secret.key") {
		t.Errorf("SecretKeyPath() = %q", cfg.SecretKeyPath())
	}
	if cfg.Quotes.Concurrency != 4 {
		t.Errorf("defaults should fill unset keys, Concurrency = %d", cfg.Quotes.Concurrency)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			User:   "local",
			Quotes: QuotesConfig{Provider: "yahoo", CacheSize: 10, MaxRetries: 3, Concurrency: 2},
			AI:     AIConfig{Provider: "openai", MaxHistory: 10},
			Risk:   RiskConfig{AccountSize: 1000, RiskPercent: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty user", func(c *Config) { c.User = "" }, "user"},
		{"bad provider", func(c *Config) { c.Quotes.Provider = "bloomberg" }, "quotes provider"},
		{"zero cache", func(c *Config) { c.Quotes.CacheSize = 0 }, "cache_size"},
		{"no retries", func(c *Config) { c.Quotes.MaxRetries = 0 }, "max_retries"},
		{"bad ai", func(c *Config) { c.AI.Provider = "llama" }, "ai provider"},
		{"short history", func(c *Config) { c.AI.MaxHistory = 1 }, "max_history"},
		{"risk too high", func(c *Config) { c.Risk.RiskPercent = 150 }, "risk_percent"},
		{"negative account", func(c *Config) { c.Risk.AccountSize = -1 }, "account_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
			if !apperrors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}
