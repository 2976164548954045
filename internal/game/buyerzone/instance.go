package buyerzone

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/events"
	"github.com/udisondev/hotzone/internal/game/negotiation"
	"github.com/udisondev/hotzone/internal/game/roll"
	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/model"
	"github.com/udisondev/hotzone/internal/world"
)

// Instance is the runtime of one active buyer zone.
type Instance struct {
	ctl  *Controller
	zone *zone.Zone

	mu        sync.Mutex
	actors    map[model.ActorID]*Actor
	lastSpawn time.Time

	// Причины закрытия сделок от движка, разбираются на следующем тике.
	pmu     sync.Mutex
	pending map[model.ActorID]negotiation.CloseInfo

	gmu   sync.Mutex
	grace *time.Timer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newInstance(c *Controller, z *zone.Zone) *Instance {
	return &Instance{
		ctl:     c,
		zone:    z,
		actors:  make(map[model.ActorID]*Actor),
		pending: make(map[model.ActorID]negotiation.CloseInfo),
	}
}

// ZoneID returns the zone this instance runs.
func (in *Instance) ZoneID() string { return in.zone.ID() }

func (in *Instance) def() *data.ZoneDef {
	if d := in.ctl.catalog.Current().Zone(in.zone.ID()); d != nil {
		return d
	}
	return in.zone.Def()
}

func (in *Instance) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	in.cancel = cancel

	in.wg.Add(2)
	go func() {
		defer in.wg.Done()
		in.tickLoop(ctx)
	}()
	go func() {
		defer in.wg.Done()
		in.spawnLoop(ctx)
	}()

	slog.Info("buyer zone activated", "zone", in.zone.ID())
	in.ctl.events.Publish(events.Event{Kind: events.KindZoneActivated, ZoneID: in.zone.ID(), At: in.ctl.now()})
}

func (in *Instance) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(in.ctl.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			in.Tick(in.ctl.now())
		}
	}
}

func (in *Instance) spawnLoop(ctx context.Context) {
	ticker := time.NewTicker(in.ctl.cfg.SpawnInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := in.TrySpawn(ctx); err != nil {
				slog.Warn("buyer spawn failed", "zone", in.zone.ID(), "error", err)
			}
		}
	}
}

// shutdown stops both loops and despawns every actor.
func (in *Instance) shutdown() {
	in.cancelGrace()
	if in.cancel != nil {
		in.cancel()
	}
	in.wg.Wait()

	in.mu.Lock()
	ids := make([]model.ActorID, 0, len(in.actors))
	for id := range in.actors {
		ids = append(ids, id)
		delete(in.actors, id)
	}
	in.mu.Unlock()

	for _, id := range ids {
		in.ctl.world.Despawn(id)
	}
	slog.Info("buyer zone deactivated", "zone", in.zone.ID(), "despawned", len(ids))
	in.ctl.events.Publish(events.Event{Kind: events.KindZoneDeactivated, ZoneID: in.zone.ID(), At: in.ctl.now()})
}

func (in *Instance) scheduleGrace(d time.Duration, fn func()) {
	in.gmu.Lock()
	defer in.gmu.Unlock()
	if in.grace != nil {
		in.grace.Stop()
	}
	in.grace = time.AfterFunc(d, fn)
}

func (in *Instance) cancelGrace() {
	in.gmu.Lock()
	defer in.gmu.Unlock()
	if in.grace != nil {
		in.grace.Stop()
		in.grace = nil
	}
}

// SpawnChance is the probability that one spawn attempt succeeds right now.
func (in *Instance) SpawnChance(now time.Time) float64 {
	cfg := in.ctl.cfg
	return cfg.BaseSpawnChance * cfg.TimeMultiplier(now.Hour()) * in.ctl.heat.SpawnMultiplier(in.zone.ID())
}

// TrySpawn makes one spawn attempt. It returns the new actor when a buyer
// appeared.
func (in *Instance) TrySpawn(ctx context.Context) (Actor, bool, error) {
	now := in.ctl.now()
	def := in.def()
	players := in.zone.PlayersInside()
	if len(players) == 0 {
		return Actor{}, false, nil
	}

	in.mu.Lock()
	live := 0
	for _, a := range in.actors {
		if a.live() {
			live++
		}
	}
	cooling := !in.lastSpawn.IsZero() && now.Sub(in.lastSpawn) < in.ctl.cfg.SpawnCooldown
	in.mu.Unlock()
	if live >= maxActors(def) || cooling {
		return Actor{}, false, nil
	}

	if !roll.Chance(in.ctl.rnd, in.SpawnChance(now)) {
		return Actor{}, false, nil
	}

	// Best reputation among the players present gates the pool.
	rep := 0.0
	for _, p := range players {
		rep = max(rep, in.ctl.heat.GetReputation(p, def.ID))
	}
	cat := in.ctl.catalog.Current()
	arch, ok := PickArchetype(in.ctl.rnd, cat, def, rep, in.ctl.heat.IsDangerous(def.ID))
	if !ok {
		return Actor{}, false, nil
	}

	home := def.Center()
	if n := len(def.DropPoints); n > 0 {
		home = def.DropPoints[in.ctl.rnd.IntN(n)]
	}
	id, err := in.ctl.world.Spawn(ctx, world.SpawnRequest{
		ZoneID:      def.ID,
		ArchetypeID: arch.ID,
		Model:       arch.Model,
		Location:    home,
		Armed:       arch.Armed,
	})
	if err != nil {
		return Actor{}, false, fmt.Errorf("spawning %s in %s: %w", arch.ID, def.ID, err)
	}

	a := &Actor{ID: id, ArchetypeID: arch.ID, Home: home, SpawnedAt: now}
	a.set(StateIdle, now)

	in.mu.Lock()
	in.actors[id] = a
	in.lastSpawn = now
	snap := *a
	in.mu.Unlock()

	slog.Debug("buyer spawned", "zone", def.ID, "actor", id, "archetype", arch.ID)
	in.ctl.events.Publish(events.Event{
		Kind:   events.KindBuyerSpawn,
		ZoneID: def.ID,
		At:     now,
		Data:   map[string]any{"actor": id, "archetype": arch.ID},
	})
	return snap, true, nil
}

// Tick advances every actor's state machine.
func (in *Instance) Tick(now time.Time) {
	closed := in.drainClosed()
	def := in.def()
	cfg := in.ctl.cfg
	w := in.ctl.world

	var gone []Actor
	in.mu.Lock()
	for id, a := range in.actors {
		if info, ok := closed[id]; ok && a.State == StateNegotiating {
			if info.Reason == negotiation.CloseRisk {
				a.Hostile = info.Risk != nil && info.Risk.Hostile
				a.set(StateRisk, now)
			} else {
				in.leave(a, now, string(info.Reason))
			}
		}

		switch a.State {
		case StateIdle:
			if p, ok := in.nearestPlayer(a, def.ApproachRadius); ok {
				a.Target = p.CitizenID
				a.set(StateApproaching, now)
				w.MoveTo(a.ID, p.Location)
			}

		case StateApproaching:
			p, ok := w.Snapshot(a.Target)
			pos, okPos := w.Location(a.ID)
			switch {
			case !ok || !okPos || !in.zone.Has(a.Target):
				in.leave(a, now, "target_lost")
			case pos.Distance2D(p.Location) > def.ApproachRadius*cfg.LeaveFactor:
				in.leave(a, now, "target_left")
			case pos.Distance2D(p.Location) <= def.InteractRadius:
				a.set(StateWaiting, now)
			default:
				w.MoveTo(a.ID, p.Location)
			}

		case StateWaiting:
			if s, ok := in.ctl.engine.Active(a.Target); ok && s.ActorID == a.ID {
				a.set(StateNegotiating, now)
				continue
			}
			if now.Sub(a.StateSince) >= cfg.PatienceTimeout {
				in.leave(a, now, "patience")
			}

		case StateNegotiating:
			if s, ok := in.ctl.engine.Active(a.Target); !ok || s.ActorID != a.ID {
				in.leave(a, now, "session_closed")
			}

		case StateRisk:
			if a.Hostile {
				w.Engage(a.ID, a.Target)
				in.leave(a, now, "hostile")
			} else {
				in.leave(a, now, "risk")
			}

		case StateLeaving:
			if now.Sub(a.StateSince) >= cfg.LeaveDuration {
				gone = append(gone, *a)
				delete(in.actors, id)
			}
		}
	}
	in.mu.Unlock()

	for _, a := range gone {
		w.Despawn(a.ID)
	}
}

// leave must be called with in.mu held.
func (in *Instance) leave(a *Actor, now time.Time, reason string) {
	a.set(StateLeaving, now)
	in.ctl.world.MoveTo(a.ID, a.Home)
	in.ctl.events.Publish(events.Event{
		Kind:      events.KindBuyerLeave,
		ZoneID:    in.zone.ID(),
		CitizenID: a.Target,
		At:        now,
		Data:      map[string]any{"actor": a.ID, "reason": reason},
	})
}

// nearestPlayer returns the closest player inside the zone within r of the
// actor who is not already being served by another actor.
func (in *Instance) nearestPlayer(a *Actor, r float64) (model.PlayerSnapshot, bool) {
	pos, ok := in.ctl.world.Location(a.ID)
	if !ok {
		return model.PlayerSnapshot{}, false
	}
	taken := make(map[model.CitizenID]bool, len(in.actors))
	for _, other := range in.actors {
		if other.Target != "" && other.State != StateLeaving && other.State != StateIdle {
			taken[other.Target] = true
		}
	}

	var best model.PlayerSnapshot
	bestDist := math.Inf(1)
	for _, id := range in.zone.PlayersInside() {
		if taken[id] {
			continue
		}
		p, ok := in.ctl.world.Snapshot(id)
		if !ok {
			continue
		}
		if d := pos.Distance2D(p.Location); d <= r && d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

func (in *Instance) markNegotiating(id model.ActorID, citizen model.CitizenID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if a, ok := in.actors[id]; ok && a.Target == citizen {
		a.set(StateNegotiating, in.ctl.now())
	}
}

func (in *Instance) queueClose(id model.ActorID, info negotiation.CloseInfo) {
	in.pmu.Lock()
	in.pending[id] = info
	in.pmu.Unlock()
}

func (in *Instance) drainClosed() map[model.ActorID]negotiation.CloseInfo {
	in.pmu.Lock()
	defer in.pmu.Unlock()
	if len(in.pending) == 0 {
		return nil
	}
	out := in.pending
	in.pending = make(map[model.ActorID]negotiation.CloseInfo)
	return out
}

// Actor returns a snapshot of one actor.
func (in *Instance) Actor(id model.ActorID) (Actor, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	a, ok := in.actors[id]
	if !ok {
		return Actor{}, false
	}
	return *a, true
}

// Actors returns snapshots of every actor.
func (in *Instance) Actors() []Actor {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]Actor, 0, len(in.actors))
	for _, a := range in.actors {
		out = append(out, *a)
	}
	return out
}
