// Command migrate creates the database schema and moves the file-backed
// portfolios into the database, the same way the server does at startup.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"portfolio_tracker/internal/config"
	"portfolio_tracker/internal/feature/portfolio/adapters"
	"portfolio_tracker/internal/platform/db"
	"portfolio_tracker/internal/platform/logging"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup runs before exit.
func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] failed to load .env: %v", err)
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	if err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Printf("logging: %v", err)
		return 1
	}
	if cfg.Database.URL == "" {
		log.Print("DATABASE_URL is not set")
		return 2
	}

	gdb, target, err := db.Open(cfg.Database.URL, cfg.Database.ConnectTimeout)
	if err != nil {
		log.Printf("failed to connect to %s: %v", db.Redact(cfg.Database.URL), err)
		return 1
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := adapters.Migrate(gdb); err != nil {
		log.Printf("schema migration failed: %v", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := adapters.MigrateFile(ctx, cfg.Storage.File, gdb)
	if err != nil {
		log.Printf("file migration failed: %v", err)
		return 1
	}
	log.Printf("migrate ok: driver=%s portfolios=%d", target.Driver, n)
	return 0
}
