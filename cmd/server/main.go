package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"portfolio_tracker/internal/app/di"
	"portfolio_tracker/internal/app/router"
	"portfolio_tracker/internal/config"
	portfoliohandler "portfolio_tracker/internal/feature/portfolio/transport/handler"
	quotehandler "portfolio_tracker/internal/feature/quotes/transport/handler"
	healthhandler "portfolio_tracker/internal/platform/http/handler"
	"portfolio_tracker/internal/platform/logging"
)

func main() {
	// .env が無い環境（本番など）では環境変数のみを使う
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] failed to load .env: %v", err)
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := di.NewApp(ctx, cfg)
	defer app.Close()

	r := router.NewRouter(
		quotehandler.NewQuoteHandler(app.Quotes),
		portfoliohandler.NewPortfolioHandler(app.Portfolios),
		healthhandler.Health(app.HealthInfo),
		router.Options{CORS: cfg.Server.CORS, JWTSecret: cfg.Server.JWTSecret},
	)

	if cfg.Server.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set; mutating routes are open")
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Server.Addr, "store", app.Store.Backend, "cache", app.Cache.StoreKind())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}
