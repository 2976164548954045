package negotiation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/events"
	"github.com/udisondev/hotzone/internal/game/reject"
	"github.com/udisondev/hotzone/internal/game/risk"
	"github.com/udisondev/hotzone/internal/game/roll"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/inventory"
	"github.com/udisondev/hotzone/internal/inventory/mocks"
	"github.com/udisondev/hotzone/internal/ledger"
	"github.com/udisondev/hotzone/internal/model"
)

const (
	zone    = "corner"
	citizen = model.CitizenID("citizen-1")
)

func testCatalog(t *testing.T) *data.Registry {
	t.Helper()
	c := &data.Catalog{
		Items: []data.ItemDef{{ID: "meth", BasePrice: 100, RiskModifier: 1}},
		Buyers: []data.BuyerArchetype{
			{ID: "tester", SpawnWeight: 1, PriceMultiplier: 1, WalkAwayThreshold: 0.5, HaggleChance: 0.5, MaxQuantity: 5},
			{ID: "greedy", SpawnWeight: 1, PriceMultiplier: 1, WalkAwayThreshold: 0.9, HaggleChance: 0, MaxQuantity: 5},
			{ID: "boss", SpawnWeight: 1, PriceMultiplier: 1, WalkAwayThreshold: 0.5, MinReputation: 50},
		},
		RiskOutcomes: []data.RiskOutcomeDef{
			{ID: "robbery", Weight: 1, RemovesItems: true, Hostile: true},
		},
		Zones: []data.ZoneDef{{
			ID: zone, Kind: data.KindBuyer, Shape: data.ShapeCylinder,
			Nodes: []model.Location{{}}, Radius: 50,
			Items: []data.ZoneItem{{ItemID: "meth"}},
		}},
	}
	require.NoError(t, c.Build())
	return data.NewStaticRegistry(c)
}

type fixture struct {
	engine *Engine
	heat   *heat.Manager
	inv    *inventory.Memory
	events *events.Recorder
	ledger *countingLedger
	now    time.Time
	mu     sync.Mutex
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type countingLedger struct {
	mu    sync.Mutex
	calls int
}

func (l *countingLedger) Notify(context.Context, string, string, int) error {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return errors.New("ledger offline")
}

// newFixture builds an engine with zero price variance. engineDraws feed the
// engine (first draw: price variance, then haggle rolls); riskDraws feed the
// risk resolver.
func newFixture(t *testing.T, engineDraws, riskDraws []float64, auth inventory.Authority) *fixture {
	t.Helper()
	cfg := config.DefaultNegotiation()
	cfg.PriceVariance = 0

	reg := testCatalog(t)
	hm := heat.NewManager(config.DefaultHeat(), config.DefaultReputation(), heat.NewMemoryStore(), nil)
	inv := inventory.NewMemory(0)
	if auth == nil {
		auth = inv
	}
	rec := &events.Recorder{}
	lg := &countingLedger{}
	if riskDraws == nil {
		riskDraws = []float64{0.99}
	}
	f := &fixture{heat: hm, inv: inv, events: rec, ledger: lg, now: time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)}
	resolver := risk.NewResolver(config.DefaultRisk(), reg, hm, auth, rec, roll.NewSequence(riskDraws))
	resolver.SetClock(f.clock)
	f.engine = NewEngine(cfg, reg, hm, resolver, auth, ledger.NewBestEffort(lg, time.Second), rec, roll.NewSequence(engineDraws))
	f.engine.SetClock(f.clock)
	return f
}

func startReq(archetype string, qty int) StartRequest {
	return StartRequest{
		CitizenID:   citizen,
		Group:       "families",
		ZoneID:      zone,
		ArchetypeID: archetype,
		ItemID:      "meth",
		Quantity:    qty,
	}
}

func TestStart_OpeningOffer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	f.inv.Give(citizen, "meth", 3)

	s, err := f.engine.Start(context.Background(), startReq("tester", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(100), s.FairPrice)
	assert.Equal(t, int64(75), s.CurrentOffer)
	assert.Equal(t, StateOpened, s.State)
	assert.Equal(t, f.now.Add(90*time.Second), s.ExpiresAt)

	active, ok := f.engine.Active(citizen)
	require.True(t, ok)
	assert.Equal(t, s.ID, active.ID)
}

func TestCounter_AtFairPriceAccepts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 1)

	s, err := f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)

	reply, err := f.engine.Counter(ctx, citizen, s.FairPrice)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, reply.Outcome)
	assert.Equal(t, s.FairPrice, reply.Price)

	sale, err := f.engine.Complete(ctx, citizen)
	require.NoError(t, err)
	assert.Nil(t, sale.Risk)
	assert.Equal(t, int64(100), sale.Price)
	assert.Equal(t, 2.0, sale.Reputation)

	money, _ := f.inv.GetMoney(ctx, citizen)
	assert.Equal(t, int64(100), money)
	left, _ := f.inv.GetItemCount(ctx, citizen, "meth")
	assert.Zero(t, left)
	assert.Equal(t, int64(1), f.heat.Record(citizen, zone).TotalSales)
	assert.InDelta(t, 2.0, f.heat.GetHeat(zone), 1e-9, "1.5 per sale + 0.5 per unit")
	assert.Equal(t, 1, f.ledger.calls, "ledger failure does not block the sale")
	assert.True(t, f.events.Has(events.KindSale))

	_, ok := f.engine.Active(citizen)
	assert.False(t, ok)
}

func TestCounter_BulkSaleReputation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 3)

	s, err := f.engine.Start(ctx, startReq("tester", 3))
	require.NoError(t, err)
	_, err = f.engine.Counter(ctx, citizen, s.FairPrice)
	require.NoError(t, err)

	sale, err := f.engine.Complete(ctx, citizen)
	require.NoError(t, err)
	assert.Equal(t, 4.0, sale.Reputation)
}

func TestCounter_WalkAway(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 1)
	f.heat.SetReputation(citizen, zone, 10)

	_, err := f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)

	reply, err := f.engine.Counter(ctx, citizen, 200)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWalkedAway, reply.Outcome)
	assert.Equal(t, 7.0, f.heat.GetReputation(citizen, zone))

	_, err = f.engine.Counter(ctx, citizen, 100)
	assert.True(t, reject.Is(err, reject.CodeNoSession))
}

func TestCounter_Haggle(t *testing.T) {
	t.Parallel()

	// variance draw, then haggle hit (0.1 < 0.5)
	f := newFixture(t, []float64{0.5, 0.1}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 1)

	_, err := f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)

	reply, err := f.engine.Counter(ctx, citizen, 140)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCountered, reply.Outcome)
	assert.Equal(t, int64(108), reply.Price, "midpoint of 75 and 140")
	assert.Equal(t, 1, reply.Round)
}

func TestCounter_NoHaggleAcceptsProposal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5, 0.9}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 1)

	_, err := f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)

	reply, err := f.engine.Counter(ctx, citizen, 130)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, reply.Outcome)
	assert.Equal(t, int64(130), reply.Price)

	_, err = f.engine.Counter(ctx, citizen, 120)
	assert.True(t, reject.Is(err, reject.CodeInvalidPrice))
}

func TestCounter_FinalOffer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		afterward int64
		want      Outcome
	}{
		{"accept at or under final", 130, OutcomeAccepted},
		{"push past final walks", 133, OutcomeWalkedAway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// haggle always hits after the variance draw
			f := newFixture(t, []float64{0.5, 0.0}, nil, nil)
			ctx := context.Background()
			f.inv.Give(citizen, "meth", 1)

			_, err := f.engine.Start(ctx, startReq("tester", 1))
			require.NoError(t, err)

			var last Reply
			for range 3 {
				last, err = f.engine.Counter(ctx, citizen, 140)
				require.NoError(t, err)
				require.Equal(t, OutcomeCountered, last.Outcome)
			}
			// 75 → 108 → 124 → 132
			assert.Equal(t, int64(132), last.Price)

			final, err := f.engine.Counter(ctx, citizen, 140)
			require.NoError(t, err)
			assert.Equal(t, OutcomeFinalOffer, final.Outcome)
			assert.Equal(t, int64(132), final.Price, "buyer never goes below a previous offer")

			reply, err := f.engine.Counter(ctx, citizen, tt.afterward)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply.Outcome)
		})
	}
}

func TestComplete_PriceCeiling(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 1)

	_, err := f.engine.Start(ctx, startReq("greedy", 1))
	require.NoError(t, err)
	reply, err := f.engine.Counter(ctx, citizen, 180)
	require.NoError(t, err)
	require.Equal(t, OutcomeAccepted, reply.Outcome)

	sale, err := f.engine.Complete(ctx, citizen)
	require.NoError(t, err)
	assert.Equal(t, int64(150), sale.Price)
}

func TestComplete_StandingOffer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 1)

	_, err := f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)

	sale, err := f.engine.Complete(ctx, citizen)
	require.NoError(t, err)
	assert.Equal(t, int64(75), sale.Price, "taking the opening offer")
}

func TestComplete_RiskEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, []float64{0.0}, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 2)
	f.heat.SetReputation(citizen, zone, 20)

	_, err := f.engine.Start(ctx, startReq("tester", 2))
	require.NoError(t, err)

	sale, err := f.engine.Complete(ctx, citizen)
	require.NoError(t, err)
	require.NotNil(t, sale.Risk)
	assert.Equal(t, "robbery", sale.Risk.ID)
	assert.Equal(t, 2, sale.ItemsTaken)
	assert.Zero(t, sale.Price)

	money, _ := f.inv.GetMoney(ctx, citizen)
	assert.Zero(t, money)
	assert.Equal(t, 15.0, f.heat.GetReputation(citizen, zone))
	assert.Equal(t, int64(0), f.heat.Record(citizen, zone).TotalSales)

	_, ok := f.engine.Active(citizen)
	assert.False(t, ok)
}

func TestComplete_CloseCarriesRiskOutcome(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, []float64{0.0}, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 1)
	f.heat.SetReputation(citizen, zone, 20)

	var infos []CloseInfo
	f.engine.OnClose(func(_ Session, info CloseInfo) { infos = append(infos, info) })

	_, err := f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)
	_, err = f.engine.Complete(ctx, citizen)
	require.NoError(t, err)

	require.Len(t, infos, 1)
	assert.Equal(t, CloseRisk, infos[0].Reason)
	require.NotNil(t, infos[0].Risk)
	assert.Equal(t, "robbery", infos[0].Risk.ID)
	assert.True(t, infos[0].Risk.Hostile)

	var riskAt []time.Time
	for _, e := range f.events.Events() {
		if e.Kind == events.KindRisk {
			riskAt = append(riskAt, e.At)
		}
	}
	assert.Equal(t, []time.Time{f.clock()}, riskAt, "risk event uses the engine clock")
}

func TestComplete_SaleCloseHasNoRisk(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 1)

	var infos []CloseInfo
	f.engine.OnClose(func(_ Session, info CloseInfo) { infos = append(infos, info) })

	_, err := f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)
	_, err = f.engine.Complete(ctx, citizen)
	require.NoError(t, err)

	require.Len(t, infos, 1)
	assert.Equal(t, CloseSold, infos[0].Reason)
	assert.Nil(t, infos[0].Risk)
}

func TestComplete_ItemsGoneMeanwhile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 3)

	_, err := f.engine.Start(ctx, startReq("tester", 3))
	require.NoError(t, err)
	_, err = f.inv.RemoveItem(ctx, citizen, "meth", 2)
	require.NoError(t, err)

	_, err = f.engine.Complete(ctx, citizen)
	rj, ok := reject.As(err)
	require.True(t, ok)
	assert.Equal(t, reject.CodeMissingItem, rj.Code)
	assert.Equal(t, 2, rj.Shortfall)

	_, ok = f.engine.Active(citizen)
	assert.True(t, ok, "validation failure keeps the session")
}

func TestStart_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(f *fixture)
		req   StartRequest
		code  reject.Code
	}{
		{
			name: "missing item with shortfall",
			setup: func(f *fixture) {
				f.inv.Give(citizen, "meth", 1)
			},
			req:  startReq("tester", 3),
			code: reject.CodeMissingItem,
		},
		{
			name: "unknown zone",
			req:  StartRequest{CitizenID: citizen, ZoneID: "nowhere", ArchetypeID: "tester", ItemID: "meth", Quantity: 1},
			code: reject.CodeInvalidZone,
		},
		{
			name: "unknown archetype",
			req:  startReq("ghost", 1),
			code: reject.CodeInvalidArchetype,
		},
		{
			name: "quantity over archetype max",
			req:  startReq("tester", 6),
			code: reject.CodeInvalidItem,
		},
		{
			name: "lockdown",
			setup: func(f *fixture) {
				f.inv.Give(citizen, "meth", 1)
				f.heat.SetHeat(zone, 90)
			},
			req:  startReq("tester", 1),
			code: reject.CodeLockdown,
		},
		{
			name: "reputation gate",
			setup: func(f *fixture) {
				f.inv.Give(citizen, "meth", 1)
			},
			req:  startReq("boss", 1),
			code: reject.CodeAccessDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, []float64{0.5}, nil, nil)
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := f.engine.Start(context.Background(), tt.req)
			assert.True(t, reject.Is(err, tt.code), "got %v", err)

			_, ok := f.engine.Active(citizen)
			assert.False(t, ok, "rejected start leaves no session")
		})
	}
}

func TestStart_SecondSessionRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 5)

	first, err := f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)

	_, err = f.engine.Start(ctx, startReq("tester", 2))
	rj, ok := reject.As(err)
	require.True(t, ok)
	assert.Equal(t, reject.KindConflict, rj.Kind)

	active, ok := f.engine.Active(citizen)
	require.True(t, ok)
	assert.Equal(t, first.ID, active.ID, "first session is not superseded")
}

func TestStart_ConcurrentClaimsOneWins(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	f.inv.Give(citizen, "meth", 5)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.Start(context.Background(), startReq("tester", 1)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestSession_LazyExpiry(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 1)

	var reasons []CloseReason
	f.engine.OnClose(func(_ Session, info CloseInfo) { reasons = append(reasons, info.Reason) })

	_, err := f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)

	f.advance(91 * time.Second)
	_, err = f.engine.Counter(ctx, citizen, 100)
	assert.True(t, reject.Is(err, reject.CodeSessionExpired))

	_, err = f.engine.Counter(ctx, citizen, 100)
	assert.True(t, reject.Is(err, reject.CodeNoSession))
	assert.Equal(t, []CloseReason{CloseExpired}, reasons)

	// A fresh session can start right away.
	_, err = f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)
}

func TestExpireStale(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	f.inv.Give(citizen, "meth", 1)
	_, err := f.engine.Start(context.Background(), startReq("tester", 1))
	require.NoError(t, err)

	assert.Zero(t, f.engine.ExpireStale())
	f.advance(2 * time.Minute)
	assert.Equal(t, 1, f.engine.ExpireStale())
}

func TestRefuseAndDrop(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []float64{0.5}, nil, nil)
	ctx := context.Background()
	f.inv.Give(citizen, "meth", 2)
	f.heat.SetReputation(citizen, zone, 5)

	var reasons []CloseReason
	f.engine.OnClose(func(_ Session, info CloseInfo) { reasons = append(reasons, info.Reason) })

	_, err := f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)
	require.NoError(t, f.engine.Refuse(ctx, citizen))
	assert.Equal(t, 4.0, f.heat.GetReputation(citizen, zone))
	assert.True(t, reject.Is(f.engine.Refuse(ctx, citizen), reject.CodeNoSession))

	_, err = f.engine.Start(ctx, startReq("tester", 1))
	require.NoError(t, err)
	f.engine.Drop(citizen)
	assert.Equal(t, 4.0, f.heat.GetReputation(citizen, zone), "drop has no penalty")

	assert.Equal(t, []CloseReason{CloseRefused, CloseDropped}, reasons)
}

func TestComplete_PaymentFailureRestoresItems(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthority(ctrl)
	boom := errors.New("authority timeout")

	gomock.InOrder(
		auth.EXPECT().GetItemCount(gomock.Any(), citizen, "meth").Return(2, nil),
		auth.EXPECT().GetItemCount(gomock.Any(), citizen, "meth").Return(2, nil),
		auth.EXPECT().RemoveItem(gomock.Any(), citizen, "meth", 2).Return(true, nil),
		auth.EXPECT().AddMoney(gomock.Any(), citizen, int64(150), gomock.Any()).Return(boom),
		auth.EXPECT().AddItem(gomock.Any(), citizen, "meth", 2).Return(true, nil),
	)

	f := newFixture(t, []float64{0.5}, nil, auth)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, startReq("tester", 2))
	require.NoError(t, err)

	_, err = f.engine.Complete(ctx, citizen)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, f.heat.GetReputation(citizen, zone), "nothing committed")

	_, ok := f.engine.Active(citizen)
	assert.True(t, ok, "player may retry")
}
