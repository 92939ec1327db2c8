// stockdesk - a terminal stock-analysis desk
package main

import (
	"context"
	"fmt"
	"os"

	"stockdesk/internal/cli"
	"stockdesk/internal/config"
	"stockdesk/internal/logging"
)

func main() {
	dir := os.Getenv("STOCKDESK_CONFIG_DIR")
	if dir == "" {
		dir = config.DefaultConfigDir()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading configuration:", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(cfg.Logging)
	ctx := logging.WithLogger(context.Background(), logger)

	if err := cli.NewRootCmd(cfg, logger).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
