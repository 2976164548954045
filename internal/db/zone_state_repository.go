package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/model"
)

const (
	upsertReputationPg = `INSERT INTO zone_reputation
		 (citizen_id, zone_id, reputation, total_sales, total_earned, last_sale_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (citizen_id, zone_id) DO UPDATE SET
		   reputation   = EXCLUDED.reputation,
		   total_sales  = EXCLUDED.total_sales,
		   total_earned = EXCLUDED.total_earned,
		   last_sale_at = EXCLUDED.last_sale_at`

	upsertZoneHeatPg = `INSERT INTO zone_heat (zone_id, heat, lockdown_until)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (zone_id) DO UPDATE SET
		   heat           = EXCLUDED.heat,
		   lockdown_until = EXCLUDED.lockdown_until`
)

// PgStore persists heat and reputation in PostgreSQL through a pgx pool.
type PgStore struct {
	pool *pgxpool.Pool
}

var _ heat.Store = (*PgStore)(nil)

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// LoadReputation loads every zone row for a citizen.
func (s *PgStore) LoadReputation(ctx context.Context, citizenID model.CitizenID) ([]heat.ReputationRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT zone_id, reputation, total_sales, total_earned, last_sale_at
		 FROM zone_reputation WHERE citizen_id = $1`, string(citizenID))
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
func (s *PgStore) UpsertReputation(ctx context.Context, rows []heat.ReputationRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(upsertReputationPg,
			string(r.CitizenID), r.ZoneID, r.Reputation, r.TotalSales, r.TotalEarned, toMillis(r.LastSaleAt))
	}
	return s.sendBatch(ctx, batch, "zone_reputation")
}

// LoadZoneHeat loads every zone heat row.
func (s *PgStore) LoadZoneHeat(ctx context.Context) ([]heat.ZoneHeatRow, error) {
	rows, err := s.pool.Query(ctx, `SELECT zone_id, heat, lockdown_until FROM zone_heat`)
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
func (s *PgStore) UpsertZoneHeat(ctx context.Context, rows []heat.ZoneHeatRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(upsertZoneHeatPg, r.ZoneID, r.Heat, toMillis(r.LockdownUntil))
	}
	return s.sendBatch(ctx, batch, "zone_heat")
}

func (s *PgStore) sendBatch(ctx context.Context, batch *pgx.Batch, table string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s upsert: %w", table, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	br := tx.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := br.Exec(); err != nil {
			br.Close() //nolint:errcheck
			return fmt.Errorf("upsert %s: %w", table, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close %s batch: %w", table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s upsert: %w", table, err)
	}
	return nil
}
