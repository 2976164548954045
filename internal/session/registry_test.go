package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/game/negotiation"
	"github.com/udisondev/hotzone/internal/game/risk"
	"github.com/udisondev/hotzone/internal/game/roll"
	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/inventory"
	"github.com/udisondev/hotzone/internal/model"
	"github.com/udisondev/hotzone/internal/world"
)

const citizen = model.CitizenID("citizen-1")

type recordingDropper struct {
	mu      sync.Mutex
	dropped []model.CitizenID
}

func (d *recordingDropper) Drop(c model.CitizenID) {
	d.mu.Lock()
	d.dropped = append(d.dropped, c)
	d.mu.Unlock()
}

// failingStore loads fine and refuses every write.
type failingStore struct{ *heat.MemoryStore }

func (*failingStore) UpsertReputation(context.Context, []heat.ReputationRow) error {
	return errors.New("db down")
}

type fixture struct {
	catalog *data.Registry
	reg     *Registry
	store   *heat.MemoryStore
	heat    *heat.Manager
	zones   *zone.Manager
	dropper *recordingDropper

	mu     sync.Mutex
	enters []string
	exits  []string
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := &data.Catalog{
		Items:  []data.ItemDef{{ID: "meth", BasePrice: 100, RiskModifier: 1}},
		Buyers: []data.BuyerArchetype{{ID: "tester", SpawnWeight: 1, PriceMultiplier: 1, WalkAwayThreshold: 0.5, MaxQuantity: 5}},
		Zones: []data.ZoneDef{{
			ID: "corner", Kind: data.KindBuyer, Shape: data.ShapeCylinder,
			Nodes: []model.Location{{}}, Radius: 50,
			Items: []data.ZoneItem{{ItemID: "meth"}},
		}},
	}
	require.NoError(t, cat.Build())

	f := &fixture{
		catalog: data.NewStaticRegistry(cat),
		store:   heat.NewMemoryStore(),
		zones:   zone.NewManager(cat),
		dropper: &recordingDropper{},
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.heat = heat.NewManager(config.DefaultHeat(), config.DefaultReputation(), f.store, nil)
	f.zones.Subscribe(data.KindBuyer, zone.ListenerFuncs{
		Enter: func(z *zone.Zone, _ model.PlayerSnapshot) {
			f.mu.Lock()
			f.enters = append(f.enters, z.ID())
			f.mu.Unlock()
		},
		Exit: func(z *zone.Zone, _ model.CitizenID) {
			f.mu.Lock()
			f.exits = append(f.exits, z.ID())
			f.mu.Unlock()
		},
	})
	f.reg = NewRegistry(f.heat, f.zones, f.dropper)
	f.reg.SetClock(func() time.Time { return f.now })
	return f
}

func TestConnect_LoadsReputationAndEntersZones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertReputation(ctx, []heat.ReputationRow{
		{CitizenID: citizen, ZoneID: "corner", Reputation: 42, TotalSales: 3},
	}))

	f.reg.Connect(ctx, model.PlayerSnapshot{CitizenID: citizen, Location: model.Location{X: 10}, Group: "families"})

	assert.True(t, f.heat.IsLoaded(citizen))
	assert.Equal(t, 42.0, f.heat.GetReputation(citizen, "corner"))
	assert.Equal(t, []string{"corner"}, f.enters)
	assert.Equal(t, 1, f.reg.Count())

	info, ok := f.reg.Get(citizen)
	require.True(t, ok)
	assert.Equal(t, "families", info.Group)
	assert.Equal(t, f.now, info.ConnectedAt)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.reg.Update(model.PlayerSnapshot{CitizenID: citizen}), "not connected")

	f.reg.Connect(ctx, model.PlayerSnapshot{CitizenID: citizen, Location: model.Location{X: 500}})
	assert.Empty(t, f.enters)

	f.now = f.now.Add(time.Minute)
	require.True(t, f.reg.Update(model.PlayerSnapshot{CitizenID: citizen, Location: model.Location{X: 5}}))
	assert.Equal(t, []string{"corner"}, f.enters)

	info, _ := f.reg.Get(citizen)
	assert.Equal(t, model.Location{X: 5}, info.Location)
	assert.Equal(t, f.now, info.LastSeen)
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reg.Connect(ctx, model.PlayerSnapshot{CitizenID: citizen, Location: model.Location{X: 10}})
	f.heat.AddReputation(citizen, "corner", 7)

	f.reg.Disconnect(ctx, citizen)

	assert.Equal(t, []model.CitizenID{citizen}, f.dropper.dropped)
	assert.Equal(t, []string{"corner"}, f.exits)
	assert.False(t, f.heat.IsLoaded(citizen))
	assert.Zero(t, f.reg.Count())

	rows, err := f.store.LoadReputation(ctx, citizen)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7.0, rows[0].Reputation, "flushed on disconnect")

	f.reg.Disconnect(ctx, citizen)
	assert.Len(t, f.dropper.dropped, 1, "second disconnect is a no-op")
}

func TestDisconnect_FlushFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.heat = heat.NewManager(config.DefaultHeat(), config.DefaultReputation(), &failingStore{MemoryStore: heat.NewMemoryStore()}, nil)
	f.reg = NewRegistry(f.heat, f.zones)

	f.reg.Connect(ctx, model.PlayerSnapshot{CitizenID: citizen})
	f.heat.AddReputation(citizen, "corner", 7)
	f.reg.Disconnect(ctx, citizen)

	assert.Equal(t, 7.0, f.heat.GetReputation(citizen, "corner"), "dirty record survives a failed flush")
	reps, _ := f.heat.DirtyCount()
	assert.Equal(t, 1, reps)
}

// gatedAuthority parks RemoveItem until gate is closed.
type gatedAuthority struct {
	*inventory.Memory
	entered chan struct{}
	gate    chan struct{}
}

func (a *gatedAuthority) RemoveItem(ctx context.Context, player model.CitizenID, itemID string, qty int) (bool, error) {
	close(a.entered)
	<-a.gate
	return a.Memory.RemoveItem(ctx, player, itemID, qty)
}

func TestDisconnect_DuringSaleKeepsStoredReputation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertReputation(ctx, []heat.ReputationRow{
		{CitizenID: citizen, ZoneID: "corner", Reputation: 50, TotalSales: 40, TotalEarned: 4000},
	}))

	inv := inventory.NewMemory(0)
	inv.Give(citizen, "meth", 1)
	auth := &gatedAuthority{Memory: inv, entered: make(chan struct{}), gate: make(chan struct{})}

	negCfg := config.DefaultNegotiation()
	negCfg.PriceVariance = 0
	resolver := risk.NewResolver(config.DefaultRisk(), f.catalog, f.heat, auth, nil, roll.NewSequence([]float64{0.99}))
	engine := negotiation.NewEngine(negCfg, f.catalog, f.heat, resolver, auth, nil, nil, roll.NewSequence([]float64{0.5}))
	f.reg = NewRegistry(f.heat, f.zones, engine)

	f.reg.Connect(ctx, model.PlayerSnapshot{CitizenID: citizen, Location: model.Location{X: 10}})
	_, err := engine.Start(ctx, negotiation.StartRequest{CitizenID: citizen, ZoneID: "corner", ArchetypeID: "tester", ItemID: "meth", Quantity: 1})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := engine.Complete(ctx, citizen)
		done <- err
	}()
	<-auth.entered

	f.reg.Disconnect(ctx, citizen)
	require.False(t, f.heat.IsLoaded(citizen))

	close(auth.gate)
	require.NoError(t, <-done)
	require.NoError(t, f.heat.FlushAll(ctx))

	rows, err := f.store.LoadReputation(ctx, citizen)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 50+config.DefaultReputation().SaleGain(1), rows[0].Reputation)
	assert.Equal(t, int64(41), rows[0].TotalSales)
	assert.Greater(t, rows[0].TotalEarned, int64(4000))

	// Reconnect sees the merged record.
	f.reg.Connect(ctx, model.PlayerSnapshot{CitizenID: citizen})
	assert.Equal(t, rows[0].Reputation, f.heat.GetReputation(citizen, "corner"))
}

func TestCleanIdle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reg.Connect(ctx, model.PlayerSnapshot{CitizenID: citizen, Location: model.Location{X: 10}})
	f.reg.Connect(ctx, model.PlayerSnapshot{CitizenID: "citizen-2", Location: model.Location{X: 10}})

	f.now = f.now.Add(4 * time.Minute)
	f.reg.Update(model.PlayerSnapshot{CitizenID: "citizen-2", Location: model.Location{X: 11}})
	f.now = f.now.Add(2 * time.Minute)

	assert.Equal(t, 1, f.reg.CleanIdle(ctx, 5*time.Minute))
	_, ok := f.reg.Get(citizen)
	assert.False(t, ok)
	_, ok = f.reg.Get("citizen-2")
	assert.True(t, ok)
}

func TestTracker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := world.NewStatic()
	f.reg.SetTracker(w)

	f.reg.Connect(ctx, model.PlayerSnapshot{CitizenID: citizen, Location: model.Location{X: 10}})
	f.reg.Update(model.PlayerSnapshot{CitizenID: citizen, Location: model.Location{X: 20}})

	snap, ok := w.Snapshot(citizen)
	require.True(t, ok)
	assert.Equal(t, 20.0, snap.Location.X)

	f.reg.Disconnect(ctx, citizen)
	_, ok = w.Snapshot(citizen)
	assert.False(t, ok)
}
