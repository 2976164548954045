package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/db/migrations"
)

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// DriverName maps a config dialect to its database/sql driver.
func DriverName(dialect string) (string, error) {
	switch dialect {
	case config.DialectPostgres:
		return "pgx", nil
	case config.DialectSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database dialect %q", dialect)
	}
}

// RunMigrations opens dsn with the dialect's driver and applies migrations.
func RunMigrations(ctx context.Context, dialect, dsn string) error {
	driver, err := DriverName(dialect)
	if err != nil {
		return err
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	return Migrate(ctx, sqlDB, dialect)
}

// Migrate applies the dialect's embedded migrations to an open database.
func Migrate(ctx context.Context, sqlDB *sql.DB, dialect string) error {
	gooseDialect := "postgres"
	if dialect == config.DialectSQLite {
		gooseDialect = "sqlite3"
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, dialect); err != nil {
		return fmt.Errorf("running %s migrations: %w", dialect, err)
	}
	return nil
}
