package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"

	"datatrail/internal/platform/config"
	"datatrail/internal/platform/logger"
	"datatrail/internal/platform/postgres"
)

var errNoDatabase = errors.New("no database configured (set DATABASE_DSN or database.dsn)")

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath, true)
	}
	return config.Load()
}

// cliLogger writes warnings and errors to stderr so stdout stays parseable.
func cliLogger(cfg *config.Config) *slog.Logger {
	return logger.NewWithWriter(os.Stderr, config.LogConfig{Level: "warn", Format: cfg.Log.Format})
}

func withDB(ctx context.Context, fn func(cfg *config.Config, db *sql.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return errNoDatabase
	}
	db, err := postgres.OpenDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(cfg, db)
}

var stdout io.Writer = os.Stdout
