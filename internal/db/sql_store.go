package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/model"
)

// SQLStore persists heat and reputation through database/sql. It serves the
// sqlite dialect and postgres through the pgx stdlib driver.
type SQLStore struct {
	dialect string
	db      *sql.DB
}

var _ heat.Store = (*SQLStore)(nil)

// OpenSQLite opens (creating if needed) a sqlite database file and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	return OpenSQL(ctx, config.DialectSQLite, path)
}

// OpenSQL opens dsn with the dialect's driver, pings it and applies migrations.
func OpenSQL(ctx context.Context, dialect, dsn string) (*SQLStore, error) {
	driver, err := DriverName(dialect)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == config.DialectSQLite {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}
	if err := Migrate(ctx, sqlDB, dialect); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &SQLStore{dialect: dialect, db: sqlDB}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) bind(pos int) string {
	if s.dialect == config.DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

func (s *SQLStore) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.bind(i + 1)
	}
	return strings.Join(ph, ", ")
}

// LoadReputation loads every zone row for a citizen.
func (s *SQLStore) LoadReputation(ctx context.Context, citizenID model.CitizenID) ([]heat.ReputationRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT zone_id, reputation, total_sales, total_earned, last_sale_at
		 FROM zone_reputation WHERE citizen_id = `+s.bind(1), string(citizenID))
	if err != nil {
		return nil, fmt.Errorf("query zone_reputation %s: %w", citizenID, err)
	}
	defer rows.Close()

	var result []heat.ReputationRow
	for rows.Next() {
		row := heat.ReputationRow{CitizenID: citizenID}
		var lastSale int64
		if err := rows.Scan(&row.ZoneID, &row.Reputation, &row.TotalSales, &row.TotalEarned, &lastSale); err != nil {
			return nil, fmt.Errorf("scan zone_reputation: %w", err)
		}
		row.LastSaleAt = fromMillis(lastSale)
		result = append(result, row)
	}
	return result, rows.Err()
}

// UpsertReputation writes rows in one transaction.
func (s *SQLStore) UpsertReputation(ctx context.Context, rows []heat.ReputationRow) error {
	if len(rows) == 0 {
		return nil
	}
	query := `INSERT INTO zone_reputation
		 (citizen_id, zone_id, reputation, total_sales, total_earned, last_sale_at)
		 VALUES (` + s.placeholders(6) + `)
		 ON CONFLICT (citizen_id, zone_id) DO UPDATE SET
		   reputation   = excluded.reputation,
		   total_sales  = excluded.total_sales,
		   total_earned = excluded.total_earned,
		   last_sale_at = excluded.last_sale_at`

	return s.inTx(ctx, "zone_reputation", query, len(rows), func(stmt *sql.Stmt, i int) error {
		r := rows[i]
		_, err := stmt.ExecContext(ctx, string(r.CitizenID), r.ZoneID, r.Reputation,
			r.TotalSales, r.TotalEarned, toMillis(r.LastSaleAt))
		return err
	})
}

// LoadZoneHeat loads every zone heat row.
func (s *SQLStore) LoadZoneHeat(ctx context.Context) ([]heat.ZoneHeatRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT zone_id, heat, lockdown_until FROM zone_heat`)
	if err != nil {
		return nil, fmt.Errorf("query zone_heat: %w", err)
	}
	defer rows.Close()

	var result []heat.ZoneHeatRow
	for rows.Next() {
		var row heat.ZoneHeatRow
		var until int64
		if err := rows.Scan(&row.ZoneID, &row.Heat, &until); err != nil {
			return nil, fmt.Errorf("scan zone_heat: %w", err)
		}
		row.LockdownUntil = fromMillis(until)
		result = append(result, row)
	}
	return result, rows.Err()
}

// UpsertZoneHeat writes rows in one transaction.
func (s *SQLStore) UpsertZoneHeat(ctx context.Context, rows []heat.ZoneHeatRow) error {
	if len(rows) == 0 {
		return nil
	}
	query := `INSERT INTO zone_heat (zone_id, heat, lockdown_until)
		 VALUES (` + s.placeholders(3) + `)
		 ON CONFLICT (zone_id) DO UPDATE SET
		   heat           = excluded.heat,
		   lockdown_until = excluded.lockdown_until`

	return s.inTx(ctx, "zone_heat", query, len(rows), func(stmt *sql.Stmt, i int) error {
		r := rows[i]
		_, err := stmt.ExecContext(ctx, r.ZoneID, r.Heat, toMillis(r.LockdownUntil))
		return err
	})
}

func (s *SQLStore) inTx(ctx context.Context, table, query string, n int, exec func(*sql.Stmt, int) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s upsert: %w", table, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare %s upsert: %w", table, err)
	}
	defer stmt.Close()

	for i := range n {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("upsert %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s upsert: %w", table, err)
	}
	return nil
}
