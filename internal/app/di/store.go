package di

import (
	"context"
	"log/slog"

	"portfolio_tracker/internal/config"
	"portfolio_tracker/internal/feature/portfolio/adapters"
	"portfolio_tracker/internal/feature/portfolio/usecase"
	infradb "portfolio_tracker/internal/platform/db"
)

// Portfolio store backends.
const (
	BackendDatabase = "database"
	BackendFile     = "file"
)

// PortfolioStore is the backend chosen at startup. It does not change for the
// lifetime of the process.
type PortfolioStore struct {
	Repo    usecase.PortfolioRepository
	Backend string
	// Migrated is the number of portfolios moved from the file into the database on this start.
	Migrated int
	close    func() error
}

// Close releases the database connection, if any.
func (s *PortfolioStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewPortfolioStore selects the database backend when DATABASE_URL is set and
// reachable, and the file backend otherwise. When the database is chosen, any
// portfolios in the file are migrated once into an empty database.
func NewPortfolioStore(ctx context.Context, cfg *config.Config) *PortfolioStore {
	fileStore := func(reason string) *PortfolioStore {
		slog.Info("portfolio store selected", "backend", BackendFile, "path", cfg.Storage.File, "reason", reason)
		return &PortfolioStore{Repo: adapters.NewPortfolioFile(cfg.Storage.File), Backend: BackendFile}
	}

	if cfg.Database.URL == "" {
		return fileStore("DATABASE_URL not set")
	}

	db, target, err := infradb.Open(cfg.Database.URL, cfg.Database.ConnectTimeout)
	if err != nil {
		slog.Warn("database unavailable; falling back to file", "url", infradb.Redact(cfg.Database.URL), "error", err)
		return fileStore("database unavailable")
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Warn("database handle unavailable; falling back to file", "error", err)
		return fileStore("database unavailable")
	}
	if err := adapters.Migrate(db); err != nil {
		slog.Warn("database schema migration failed; falling back to file", "error", err)
		_ = sqlDB.Close()
		return fileStore("schema migration failed")
	}

	migrated, err := adapters.MigrateFile(ctx, cfg.Storage.File, db)
	if err != nil {
		slog.Warn("file migration failed; continuing with database", "path", cfg.Storage.File, "error", err)
	}

	slog.Info("portfolio store selected", "backend", BackendDatabase, "driver", target.Driver, "migrated", migrated)
	return &PortfolioStore{
		Repo:     adapters.NewPortfolioGorm(db),
		Backend:  BackendDatabase,
		Migrated: migrated,
		close:    sqlDB.Close,
	}
}
