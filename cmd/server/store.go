package main

import (
	"context"
	"fmt"

	"neurema-cms/internal/config"
	"neurema-cms/internal/database"
	"neurema-cms/internal/logger"
)

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}

// openStore connects the configured database and applies pending migrations.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (database.Store, error) {
	var store database.Store
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("PostgreSQL connection failed: %w", err)
		}
		store = database.NewPostgresStore(pool)
	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("SQLite connection failed: %w", err)
		}
		store = database.NewSQLiteStore(db)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	log.Info("database connected", "driver", cfg.DatabaseDriver)

	applied, err := database.RunMigrations(ctx, store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	log.Info("database migrations applied", "applied", applied)
	return store, nil
}
