package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Stockdesk Configuration

# Identifier used for portfolio, profile and settings rows
user = "local"

[quotes]
# Quote provider: "yahoo" or "mock"
provider = "yahoo"
base_url = "https://query1.finance.yahoo.com"
# Per-request timeout (e.g., "10s")
timeout = "10s"
max_retries = 3
# Snapshots kept per symbol for last-known fallback
cache_size = 50
# Refresh schedule for "watch" (cron with seconds)
watch_spec = "*/30 * * * * *"
concurrency = 4
# Chart range and interval for insights
range = "1mo"
interval = "1d"

[ai]
# Provider: "openai" or "gemini"
provider = "openai"
model = "gpt-4o-mini"
# Messages kept in a chat session before the oldest are dropped
max_history = 20
# Render markdown answers in the terminal
render = true

[risk]
# Defaults for size and plan commands
account_size = 10000.0
risk_percent = 1.0

[store]
# SQLite database path (defaults to stockdesk.db in this directory)
# path = ""

[ui]
color_enabled = true
currency = "USD"
date_format = "2006-01-02"

[logging]
level = "info"
console = false
file = true
`

const credentialsTemplate = `# Stockdesk Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[openai]
api_key = ""

[gemini]
api_key = ""

[vault]
# Passphrase for secrets stored in the database. When empty a random key
# is generated in secret.key next to this file.
secret_key = ""
`

func createTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}

	return nil
}
