// Package heat is the authoritative in-memory store for zone heat and
// per-player zone reputation, flushed to durable storage on a debounce.
package heat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/events"
	"github.com/udisondev/hotzone/internal/model"
)

// shutdownFlushTimeout bounds the final flush after the loop context is gone.
const shutdownFlushTimeout = 10 * time.Second

// Reputation is a snapshot of one (citizen, zone) record.
type Reputation struct {
	Reputation  float64
	TotalSales  int64
	TotalEarned int64
	LastSaleAt  time.Time
}

// Summary describes a zone's heat state for admin and observer surfaces.
type Summary struct {
	ZoneID          string    `json:"zone_id"`
	Heat            float64   `json:"heat"`
	Lockdown        bool      `json:"lockdown"`
	LockdownUntil   time.Time `json:"lockdown_until,omitzero"`
	SpawnMultiplier float64   `json:"spawn_multiplier"`
}

type zoneEntry struct {
	mu            sync.Mutex
	heat          float64
	lockdown      bool
	lockdownUntil time.Time
	dirty         bool
}

type repKey struct {
	citizen model.CitizenID
	zone    string
}

// repEntry created for a citizen that is not loaded starts from zero; its
// changes are tracked in delta and applied on top of the stored row before
// the first write.
type repEntry struct {
	mu     sync.Mutex
	rec    Reputation
	dirty  bool
	based  bool
	repSet bool
	delta  Reputation
}

// rebase applies the pending delta on top of the stored row. found is false
// when storage holds no row. Must be called with e.mu held.
func (e *repEntry) rebase(r ReputationRow, found bool, maxRep float64) {
	if e.based {
		return
	}
	if found {
		if !e.repSet {
			e.rec.Reputation = clamp(r.Reputation+e.delta.Reputation, 0, maxRep)
		}
		e.rec.TotalSales = r.TotalSales + e.delta.TotalSales
		e.rec.TotalEarned = r.TotalEarned + e.delta.TotalEarned
		if r.LastSaleAt.After(e.rec.LastSaleAt) {
			e.rec.LastSaleAt = r.LastSaleAt
		}
	}
	e.based = true
	e.repSet = false
	e.delta = Reputation{}
}

// Manager owns heat and reputation. Every mutation runs under the entry's own
// mutex; the map lock only guards entry creation and removal.
type Manager struct {
	heatCfg config.Heat
	repCfg  config.Reputation
	store   Store
	events  events.Sink
	now     func() time.Time

	mu     sync.RWMutex
	zones  map[string]*zoneEntry
	reps   map[repKey]*repEntry
	loaded map[model.CitizenID]struct{}

	loads singleflight.Group

	// flushMu serializes writers so an older snapshot never lands last.
	flushMu sync.Mutex
}

// NewManager creates a heat manager over store. sink may be nil.
func NewManager(heatCfg config.Heat, repCfg config.Reputation, store Store, sink events.Sink) *Manager {
	return &Manager{
		heatCfg: heatCfg,
		repCfg:  repCfg,
		store:   store,
		events:  events.OrNop(sink),
		now:     time.Now,
		zones:   make(map[string]*zoneEntry, 64),
		reps:    make(map[repKey]*repEntry, 1024),
		loaded:  make(map[model.CitizenID]struct{}, 256),
	}
}

// SetClock replaces the time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// HeatConfig returns heat tuning.
func (m *Manager) HeatConfig() config.Heat { return m.heatCfg }

// ReputationConfig returns reputation tuning.
func (m *Manager) ReputationConfig() config.Reputation { return m.repCfg }

func (m *Manager) zone(id string) *zoneEntry {
	m.mu.RLock()
	e, ok := m.zones[id]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok = m.zones[id]; !ok {
		e = &zoneEntry{}
		m.zones[id] = e
	}
	return e
}

func (m *Manager) rep(citizen model.CitizenID, zone string) *repEntry {
	k := repKey{citizen, zone}
	m.mu.RLock()
	e, ok := m.reps[k]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok = m.reps[k]; !ok {
		_, loaded := m.loaded[citizen]
		e = &repEntry{based: loaded}
		m.reps[k] = e
	}
	return e
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// --- heat ---

// GetHeat returns the zone's current heat.
func (m *Manager) GetHeat(zone string) float64 {
	e := m.zone(zone)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.heat
}

// AddHeat adds amount (may be negative) and clamps to [0, MaxHeat]. Crossing
// the lockdown threshold starts a lockdown unless one is already in force.
func (m *Manager) AddHeat(zone string, amount float64) float64 {
	if amount == 0 {
		return m.GetHeat(zone)
	}
	e := m.zone(zone)
	e.mu.Lock()
	prev := e.heat
	e.heat = clamp(e.heat+amount, 0, m.heatCfg.MaxHeat)
	e.dirty = e.dirty || e.heat != prev
	started := m.maybeStartLockdown(e)
	heat, until := e.heat, e.lockdownUntil
	e.mu.Unlock()

	if started {
		m.lockdownStarted(zone, heat, until)
	}
	return heat
}

// maybeStartLockdown must be called with e.mu held.
func (m *Manager) maybeStartLockdown(e *zoneEntry) bool {
	if e.lockdown || e.heat < m.heatCfg.LockdownThreshold {
		return false
	}
	e.lockdown = true
	e.lockdownUntil = m.now().Add(m.heatCfg.LockdownDuration)
	e.dirty = true
	return true
}

func (m *Manager) lockdownStarted(zone string, heat float64, until time.Time) {
	slog.Warn("zone lockdown started", "zone", zone, "heat", heat, "until", until.Format(time.RFC3339))
	m.events.Publish(events.Event{
		Kind:   events.KindLockdown,
		ZoneID: zone,
		At:     m.now(),
		Data:   map[string]any{"heat": heat, "until": until},
	})
}

// SetHeat sets heat to an explicit value. Values under the lockdown
// threshold clear an active lockdown; values at or above it start one.
func (m *Manager) SetHeat(zone string, value float64) float64 {
	e := m.zone(zone)
	e.mu.Lock()
	e.heat = clamp(value, 0, m.heatCfg.MaxHeat)
	e.dirty = true
	cleared := false
	if e.lockdown && e.heat < m.heatCfg.LockdownThreshold {
		e.lockdown = false
		e.lockdownUntil = time.Time{}
		cleared = true
	}
	started := m.maybeStartLockdown(e)
	heat, until := e.heat, e.lockdownUntil
	e.mu.Unlock()

	slog.Info("zone heat set", "zone", zone, "heat", heat, "lockdownCleared", cleared)
	m.events.Publish(events.Event{
		Kind:   events.KindHeatSet,
		ZoneID: zone,
		At:     m.now(),
		Data:   map[string]any{"heat": heat},
	})
	if started {
		m.lockdownStarted(zone, heat, until)
	}
	return heat
}

// IsLockdown reports whether the zone is in lockdown.
func (m *Manager) IsLockdown(zone string) bool {
	e := m.zone(zone)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lockdown
}

// LockdownUntil returns the lockdown expiry, zero when no lockdown is active.
func (m *Manager) LockdownUntil(zone string) time.Time {
	e := m.zone(zone)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lockdownUntil
}

// SpawnMultiplier scales buyer spawn probability by zone heat.
func (m *Manager) SpawnMultiplier(zone string) float64 {
	e := m.zone(zone)
	e.mu.Lock()
	defer e.mu.Unlock()
	return m.spawnMultiplier(e)
}

func (m *Manager) spawnMultiplier(e *zoneEntry) float64 {
	switch {
	case e.lockdown:
		return 0
	case e.heat >= m.heatCfg.DangerousThreshold:
		return 0.25
	case e.heat >= m.heatCfg.ReducedThreshold:
		return 0.5
	default:
		return 1
	}
}

// IsDangerous reports whether heat has reached the dangerous threshold.
func (m *Manager) IsDangerous(zone string) bool {
	return m.GetHeat(zone) >= m.heatCfg.DangerousThreshold
}

// Summary returns a snapshot of the zone's heat state.
func (m *Manager) Summary(zone string) Summary {
	e := m.zone(zone)
	e.mu.Lock()
	defer e.mu.Unlock()
	return Summary{
		ZoneID:          zone,
		Heat:            e.heat,
		Lockdown:        e.lockdown,
		LockdownUntil:   e.lockdownUntil,
		SpawnMultiplier: m.spawnMultiplier(e),
	}
}

// DecayTick lowers every zone's heat by DecayStep and clears lockdowns that
// have both expired and cooled below the reduced threshold. A cleared zone
// lands on exactly ReducedThreshold. Returns the number of zones changed.
func (m *Manager) DecayTick(now time.Time) int {
	m.mu.RLock()
	ids := make([]string, 0, len(m.zones))
	entries := make([]*zoneEntry, 0, len(m.zones))
	for id, e := range m.zones {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	changed := 0
	for i, e := range entries {
		e.mu.Lock()
		prev := e.heat
		if e.heat > 0 {
			e.heat = max(0, e.heat-m.heatCfg.DecayStep)
		}
		cleared := false
		if e.lockdown && e.heat < m.heatCfg.ReducedThreshold && !now.Before(e.lockdownUntil) {
			e.lockdown = false
			e.lockdownUntil = time.Time{}
			e.heat = m.heatCfg.ReducedThreshold
			e.dirty = true
			cleared = true
		}
		if e.heat != prev {
			e.dirty = true
		}
		if e.heat != prev || cleared {
			changed++
		}
		heat := e.heat
		e.mu.Unlock()

		if cleared {
			slog.Info("zone lockdown cleared", "zone", ids[i], "heat", heat)
			m.events.Publish(events.Event{
				Kind:   events.KindLockdownCleared,
				ZoneID: ids[i],
				At:     now,
				Data:   map[string]any{"heat": heat},
			})
		}
	}
	return changed
}

// LoadZones restores persisted zone heat. Zones already mutated in memory
// keep their live value.
func (m *Manager) LoadZones(ctx context.Context) error {
	rows, err := m.store.LoadZoneHeat(ctx)
	if err != nil {
		return fmt.Errorf("loading zone heat: %w", err)
	}
	for _, r := range rows {
		e := m.zone(r.ZoneID)
		e.mu.Lock()
		if !e.dirty {
			e.heat = clamp(r.Heat, 0, m.heatCfg.MaxHeat)
			e.lockdownUntil = r.LockdownUntil
			e.lockdown = !r.LockdownUntil.IsZero()
		}
		e.mu.Unlock()
	}
	slog.Info("zone heat loaded", "zones", len(rows))
	return nil
}

// --- reputation ---

// LoadForPlayer bulk-loads a citizen's reputation rows. Concurrent calls for
// the same citizen share one store read. Records mutated before the load
// completes keep their in-memory value.
func (m *Manager) LoadForPlayer(ctx context.Context, citizen model.CitizenID) error {
	m.mu.RLock()
	_, done := m.loaded[citizen]
	m.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := m.loads.Do(string(citizen), func() (any, error) {
		if m.IsLoaded(citizen) {
			return nil, nil
		}
		rows, err := m.store.LoadReputation(ctx, citizen)
		if err != nil {
			return nil, fmt.Errorf("loading reputation for %s: %w", citizen, err)
		}
		stored := make(map[string]struct{}, len(rows))
		for _, r := range rows {
			stored[r.ZoneID] = struct{}{}
			e := m.rep(citizen, r.ZoneID)
			e.mu.Lock()
			switch {
			case !e.based:
				e.rebase(r, true, m.repCfg.MaxReputation)
			case !e.dirty:
				e.rec = Reputation{
					Reputation:  clamp(r.Reputation, 0, m.repCfg.MaxReputation),
					TotalSales:  r.TotalSales,
					TotalEarned: r.TotalEarned,
					LastSaleAt:  r.LastSaleAt,
				}
			}
			e.mu.Unlock()
		}

		m.mu.Lock()
		for k, e := range m.reps {
			if k.citizen != citizen {
				continue
			}
			if _, ok := stored[k.zone]; ok {
				continue
			}
			e.mu.Lock()
			e.rebase(ReputationRow{}, false, m.repCfg.MaxReputation)
			e.mu.Unlock()
		}
		m.loaded[citizen] = struct{}{}
		m.mu.Unlock()

		slog.Debug("reputation loaded", "citizen", citizen, "zones", len(rows))
		return nil, nil
	})
	return err
}

// IsLoaded reports whether LoadForPlayer completed for citizen.
func (m *Manager) IsLoaded(citizen model.CitizenID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.loaded[citizen]
	return ok
}

// UnloadPlayer flushes the citizen's dirty records and evicts them from the
// cache. Records that failed to flush stay cached for the next tick. Changes
// arriving after the unload (a sale settling after disconnect) are merged
// into the stored row on the next flush.
func (m *Manager) UnloadPlayer(ctx context.Context, citizen model.CitizenID) error {
	err := m.FlushDirty(ctx, citizen)

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.reps {
		if k.citizen != citizen {
			continue
		}
		e.mu.Lock()
		dirty := e.dirty
		e.mu.Unlock()
		if !dirty {
			delete(m.reps, k)
		}
	}
	delete(m.loaded, citizen)
	return err
}

// GetReputation returns the citizen's reputation in zone.
func (m *Manager) GetReputation(citizen model.CitizenID, zone string) float64 {
	e := m.rep(citizen, zone)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Reputation
}

// Record returns a snapshot of the citizen's record in zone.
func (m *Manager) Record(citizen model.CitizenID, zone string) Reputation {
	e := m.rep(citizen, zone)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec
}

// AddReputation adds amount and clamps to [0, MaxReputation].
func (m *Manager) AddReputation(citizen model.CitizenID, zone string, amount float64) float64 {
	e := m.rep(citizen, zone)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec.Reputation = clamp(e.rec.Reputation+amount, 0, m.repCfg.MaxReputation)
	if !e.based {
		e.delta.Reputation += amount
	}
	e.dirty = true
	return e.rec.Reputation
}

// RemoveReputation subtracts amount and clamps to [0, MaxReputation].
func (m *Manager) RemoveReputation(citizen model.CitizenID, zone string, amount float64) float64 {
	return m.AddReputation(citizen, zone, -amount)
}

// SetReputation sets reputation to an explicit clamped value.
func (m *Manager) SetReputation(citizen model.CitizenID, zone string, value float64) float64 {
	e := m.rep(citizen, zone)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec.Reputation = clamp(value, 0, m.repCfg.MaxReputation)
	e.repSet = true
	e.dirty = true
	return e.rec.Reputation
}

// RecordSale bumps the sale counters for (citizen, zone).
func (m *Manager) RecordSale(citizen model.CitizenID, zone string, amount int64) {
	e := m.rep(citizen, zone)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec.TotalSales++
	e.rec.TotalEarned += amount
	e.rec.LastSaleAt = m.now()
	if !e.based {
		e.delta.TotalSales++
		e.delta.TotalEarned += amount
	}
	e.dirty = true
}

// --- persistence ---

// FlushDirty writes the citizen's dirty records. On failure the records are
// re-marked dirty and the error is returned for logging.
func (m *Manager) FlushDirty(ctx context.Context, citizen model.CitizenID) error {
	return m.flushReputation(ctx, func(k repKey) bool { return k.citizen == citizen })
}

// FlushAll writes every dirty reputation record and zone heat row.
func (m *Manager) FlushAll(ctx context.Context) error {
	return errors.Join(
		m.flushReputation(ctx, func(repKey) bool { return true }),
		m.flushZones(ctx),
	)
}

func (m *Manager) flushReputation(ctx context.Context, match func(repKey) bool) error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	var errs []error
	for citizen, entries := range m.unbased(match) {
		if err := m.rebaseFromStore(ctx, citizen, entries); err != nil {
			errs = append(errs, err)
		}
	}

	m.mu.RLock()
	var (
		rows    []ReputationRow
		flushed []*repEntry
	)
	for k, e := range m.reps {
		if !match(k) {
			continue
		}
		e.mu.Lock()
		if e.dirty && e.based {
			rows = append(rows, ReputationRow{
				CitizenID:   k.citizen,
				ZoneID:      k.zone,
				Reputation:  e.rec.Reputation,
				TotalSales:  e.rec.TotalSales,
				TotalEarned: e.rec.TotalEarned,
				LastSaleAt:  e.rec.LastSaleAt,
			})
			flushed = append(flushed, e)
			e.dirty = false
		}
		e.mu.Unlock()
	}
	m.mu.RUnlock()

	if len(rows) == 0 {
		return errors.Join(errs...)
	}
	if err := m.store.UpsertReputation(ctx, rows); err != nil {
		for _, e := range flushed {
			e.mu.Lock()
			e.dirty = true
			e.mu.Unlock()
		}
		errs = append(errs, fmt.Errorf("flushing %d reputation rows: %w", len(rows), err))
	}
	return errors.Join(errs...)
}

// unbased groups dirty entries that still wait for their stored row.
func (m *Manager) unbased(match func(repKey) bool) map[model.CitizenID]map[string]*repEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out map[model.CitizenID]map[string]*repEntry
	for k, e := range m.reps {
		if !match(k) {
			continue
		}
		e.mu.Lock()
		pending := e.dirty && !e.based
		e.mu.Unlock()
		if !pending {
			continue
		}
		if out == nil {
			out = make(map[model.CitizenID]map[string]*repEntry)
		}
		if out[k.citizen] == nil {
			out[k.citizen] = make(map[string]*repEntry)
		}
		out[k.citizen][k.zone] = e
	}
	return out
}

// rebaseFromStore reads the citizen's stored rows and folds pending deltas
// into them. On a read error the entries stay dirty for the next flush.
func (m *Manager) rebaseFromStore(ctx context.Context, citizen model.CitizenID, entries map[string]*repEntry) error {
	rows, err := m.store.LoadReputation(ctx, citizen)
	if err != nil {
		return fmt.Errorf("loading stored reputation for %s: %w", citizen, err)
	}
	byZone := make(map[string]ReputationRow, len(rows))
	for _, r := range rows {
		byZone[r.ZoneID] = r
	}
	for zone, e := range entries {
		r, found := byZone[zone]
		e.mu.Lock()
		e.rebase(r, found, m.repCfg.MaxReputation)
		e.mu.Unlock()
	}
	slog.Debug("merged reputation changes for unloaded citizen", "citizen", citizen, "zones", len(entries))
	return nil
}

func (m *Manager) flushZones(ctx context.Context) error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	m.mu.RLock()
	var (
		rows    []ZoneHeatRow
		flushed []*zoneEntry
	)
	for id, e := range m.zones {
		e.mu.Lock()
		if e.dirty {
			rows = append(rows, ZoneHeatRow{ZoneID: id, Heat: e.heat, LockdownUntil: e.lockdownUntil})
			flushed = append(flushed, e)
			e.dirty = false
		}
		e.mu.Unlock()
	}
	m.mu.RUnlock()

	if len(rows) == 0 {
		return nil
	}
	if err := m.store.UpsertZoneHeat(ctx, rows); err != nil {
		for _, e := range flushed {
			e.mu.Lock()
			e.dirty = true
			e.mu.Unlock()
		}
		return fmt.Errorf("flushing %d zone heat rows: %w", len(rows), err)
	}
	return nil
}

// DirtyCount returns the number of dirty reputation records and zones.
func (m *Manager) DirtyCount() (reps, zones int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.reps {
		e.mu.Lock()
		if e.dirty {
			reps++
		}
		e.mu.Unlock()
	}
	for _, e := range m.zones {
		e.mu.Lock()
		if e.dirty {
			zones++
		}
		e.mu.Unlock()
	}
	return reps, zones
}

// RunFlushLoop flushes dirty state every FlushInterval and once more on
// shutdown. Blocks until ctx is canceled.
func (m *Manager) RunFlushLoop(ctx context.Context) error {
	ticker := time.NewTicker(m.heatCfg.FlushInterval)
	defer ticker.Stop()

	slog.Info("heat flush loop started", "interval", m.heatCfg.FlushInterval)

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			if err := m.FlushAll(final); err != nil {
				slog.Error("final heat flush", "error", err)
			}
			cancel()
			slog.Info("heat flush loop stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := m.FlushAll(ctx); err != nil {
				slog.Error("heat flush", "error", err)
			}
		}
	}
}

// RunDecayLoop applies DecayTick every DecayInterval and checkpoints zone
// heat after each tick that changed something. Blocks until ctx is canceled.
func (m *Manager) RunDecayLoop(ctx context.Context) error {
	ticker := time.NewTicker(m.heatCfg.DecayInterval)
	defer ticker.Stop()

	slog.Info("heat decay loop started", "interval", m.heatCfg.DecayInterval, "step", m.heatCfg.DecayStep)

	for {
		select {
		case <-ctx.Done():
			slog.Info("heat decay loop stopping")
			return ctx.Err()
		case <-ticker.C:
			if m.DecayTick(m.now()) == 0 {
				continue
			}
			if err := m.flushZones(ctx); err != nil {
				slog.Error("heat decay checkpoint", "error", err)
			}
		}
	}
}
