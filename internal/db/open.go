package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/heat"
)

// Open connects to the configured backend, migrates it and returns the
// heat store with its close function.
func Open(ctx context.Context, cfg config.DatabaseConfig) (heat.Store, func(), error) {
	switch cfg.Dialect {
	case config.DialectPostgres:
		dsn := cfg.DSN()
		if err := RunMigrations(ctx, cfg.Dialect, dsn); err != nil {
			return nil, nil, fmt.Errorf("migrating postgres: %w", err)
		}
		database, err := New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("database connected", "dialect", cfg.Dialect, "host", cfg.Host, "db", cfg.DBName)
		return NewPgStore(database.Pool()), database.Close, nil

	case config.DialectSQLite:
		store, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("database connected", "dialect", cfg.Dialect, "path", cfg.SQLitePath)
		return store, func() { _ = store.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database dialect %q", cfg.Dialect)
	}
}
