package heat

import (
	"context"
	"time"

	"github.com/udisondev/hotzone/internal/model"
)

// ReputationRow is the durable form of one (citizen, zone) reputation record.
type ReputationRow struct {
	CitizenID   model.CitizenID
	ZoneID      string
	Reputation  float64
	TotalSales  int64
	TotalEarned int64
	LastSaleAt  time.Time // zero when no sale yet
}

// ZoneHeatRow is the durable form of one zone's heat.
type ZoneHeatRow struct {
	ZoneID        string
	Heat          float64
	LockdownUntil time.Time // zero when no lockdown
}

// Store persists heat and reputation. Upserts are keyed by natural key and
// must be idempotent.
type Store interface {
	LoadReputation(ctx context.Context, citizenID model.CitizenID) ([]ReputationRow, error)
	UpsertReputation(ctx context.Context, rows []ReputationRow) error
	LoadZoneHeat(ctx context.Context) ([]ZoneHeatRow, error)
	UpsertZoneHeat(ctx context.Context, rows []ZoneHeatRow) error
}
