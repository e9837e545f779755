// Command portfolio is a terminal client for the portfolio tracker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"portfolio_tracker/internal/app/di"
	"portfolio_tracker/internal/config"
	"portfolio_tracker/internal/platform/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(buildApp).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildApp(ctx context.Context) (*deps, func(), error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	// 端末出力を汚さないよう、ログは警告以上のみ
	level := cfg.Log.Level
	if level == "info" || level == "debug" {
		level = "warn"
	}
	if err := logging.Setup(os.Stderr, level, cfg.Log.Format); err != nil {
		return nil, nil, err
	}

	app := di.NewApp(ctx, cfg)
	return &deps{quotes: app.Quotes, portfolios: app.Portfolios}, app.Close, nil
}
