package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/db"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/testutil"
)

// exerciseStore runs the same contract checks against any heat.Store.
func exerciseStore(t *testing.T, store heat.Store) {
	t.Helper()
	ctx := context.Background()
	sale := time.Date(2026, 3, 1, 22, 15, 0, 0, time.UTC)

	rows := []heat.ReputationRow{
		{CitizenID: "c1", ZoneID: "grove_street", Reputation: 4, TotalSales: 1, TotalEarned: 300, LastSaleAt: sale},
		{CitizenID: "c1", ZoneID: "vinewood_hills", Reputation: 10},
		{CitizenID: "c2", ZoneID: "grove_street", Reputation: 1},
	}
	require.NoError(t, store.UpsertReputation(ctx, rows))
	// Same rows twice: idempotent.
	require.NoError(t, store.UpsertReputation(ctx, rows))

	got, err := store.LoadReputation(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	byZone := map[string]heat.ReputationRow{}
	for _, r := range got {
		byZone[r.ZoneID] = r
	}
	assert.Equal(t, rows[0], byZone["grove_street"])
	assert.True(t, byZone["vinewood_hills"].LastSaleAt.IsZero())

	// Update overwrites.
	upd := rows[0]
	upd.Reputation = 6
	upd.TotalSales = 2
	require.NoError(t, store.UpsertReputation(ctx, []heat.ReputationRow{upd}))
	got, err = store.LoadReputation(ctx, "c1")
	require.NoError(t, err)
	for _, r := range got {
		if r.ZoneID == "grove_street" {
			assert.Equal(t, 6.0, r.Reputation)
			assert.Equal(t, int64(2), r.TotalSales)
		}
	}

	none, err := store.LoadReputation(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	until := sale.Add(10 * time.Minute)
	require.NoError(t, store.UpsertZoneHeat(ctx, []heat.ZoneHeatRow{
		{ZoneID: "grove_street", Heat: 88, LockdownUntil: until},
		{ZoneID: "humane_labs", Heat: 12},
	}))
	require.NoError(t, store.UpsertZoneHeat(ctx, []heat.ZoneHeatRow{{ZoneID: "humane_labs", Heat: 10}}))

	zones, err := store.LoadZoneHeat(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 2)
	for _, z := range zones {
		switch z.ZoneID {
		case "grove_street":
			assert.Equal(t, 88.0, z.Heat)
			assert.True(t, until.Equal(z.LockdownUntil))
		case "humane_labs":
			assert.Equal(t, 10.0, z.Heat)
			assert.True(t, z.LockdownUntil.IsZero())
		}
	}

	require.NoError(t, store.UpsertReputation(ctx, nil))
	require.NoError(t, store.UpsertZoneHeat(ctx, nil))
}

func TestSQLStore_SQLite(t *testing.T) {
	exerciseStore(t, testutil.SetupSQLite(t))
}

func TestSQLStore_SQLiteMigrationsRerun(t *testing.T) {
	path := t.TempDir() + "/zones.sqlite"
	ctx := context.Background()

	first, err := db.OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.UpsertZoneHeat(ctx, []heat.ZoneHeatRow{{ZoneID: "z", Heat: 3}}))
	require.NoError(t, first.Close())

	second, err := db.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer second.Close()
	zones, err := second.LoadZoneHeat(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 1)
}

func TestPgStore(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	exerciseStore(t, db.NewPgStore(pool))
}

func TestHeatManager_PersistsThroughSQLite(t *testing.T) {
	store := testutil.SetupSQLite(t)
	ctx := context.Background()

	m := heat.NewManager(config.DefaultHeat(), config.DefaultReputation(), store, nil)
	m.AddReputation("c1", "grove_street", 4)
	m.RecordSale("c1", "grove_street", 300)
	m.AddHeat("grove_street", 90)
	require.NoError(t, m.FlushAll(ctx))

	fresh := heat.NewManager(config.DefaultHeat(), config.DefaultReputation(), store, nil)
	require.NoError(t, fresh.LoadZones(ctx))
	require.NoError(t, fresh.LoadForPlayer(ctx, "c1"))
	assert.Equal(t, 4.0, fresh.GetReputation("c1", "grove_street"))
	assert.Equal(t, int64(1), fresh.Record("c1", "grove_street").TotalSales)
	assert.Equal(t, 90.0, fresh.GetHeat("grove_street"))
	assert.True(t, fresh.IsLockdown("grove_street"))
}

func TestDriverName(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
		wantErr bool
	}{
		{config.DialectPostgres, "pgx", false},
		{config.DialectSQLite, "sqlite", false},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		got, err := db.DriverName(tt.dialect)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
