package security

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/events"
	"github.com/udisondev/hotzone/internal/game/reject"
	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/model"
	"github.com/udisondev/hotzone/internal/world"
)

// maxTickGap caps dt so a stalled loop does not dump suspicion in one tick.
const maxTickGap = 2 * time.Second

type radioCall struct {
	at     time.Time
	guards []model.ActorID
}

// Status is a read-only summary of an instance.
type Status struct {
	ZoneID     string     `json:"zone_id"`
	Level      AlertLevel `json:"level"`
	LevelName  string     `json:"level_name"`
	Suspicion  float64    `json:"suspicion"`
	GuardsLive int        `json:"guards_live"`
	GuardsDead int        `json:"guards_dead"`
	WavesFired int        `json:"waves_fired"`
}

// Instance is the runtime of one active security zone.
type Instance struct {
	ctl  *Controller
	zone *zone.Zone

	mu        sync.Mutex
	machine   *Machine
	guards    map[model.ActorID]*Guard
	dead      int
	pool      float64
	lastKnown model.Location
	target    model.CitizenID
	waves     *WaveScheduler
	radio     []radioCall
	keycards  map[model.CitizenID]time.Time
	lastTick  time.Time
	// exitPending: зона пуста, но идёт бой; teardown ждёт конца боя.
	exitPending bool

	gmu   sync.Mutex
	grace *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newInstance(c *Controller, z *zone.Zone) *Instance {
	now := c.now()
	def := z.Def()
	return &Instance{
		ctl:      c,
		zone:     z,
		machine:  NewMachine(c.cfg, now),
		guards:   make(map[model.ActorID]*Guard),
		waves:    NewWaveScheduler(def.Waves, def.ContinuousWaves, c.cfg.ContinuousWaveInterval),
		keycards: make(map[model.CitizenID]time.Time),
		lastTick: now,
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
	in.ctx, in.cancel = context.WithCancel(parent)
	in.spawnPosts(in.ctx)

	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		in.loop(in.ctx)
	}()

	slog.Info("security zone activated", "zone", in.zone.ID(), "guards", len(in.guards))
	in.ctl.events.Publish(events.Event{Kind: events.KindZoneActivated, ZoneID: in.zone.ID(), At: in.ctl.now()})
}

func (in *Instance) spawnPosts(ctx context.Context) {
	def := in.def()
	cat := in.ctl.catalog.Current()
	for _, post := range def.Guards {
		arch := cat.Guard(post.ArchetypeID)
		req := world.SpawnRequest{ZoneID: def.ID, ArchetypeID: post.ArchetypeID, Location: post.Location}
		if arch != nil {
			req.Model, req.Armed = arch.Model, arch.Armed
		}
		id, err := in.ctl.world.Spawn(ctx, req)
		if err != nil {
			slog.Error("spawning guard", "zone", def.ID, "archetype", post.ArchetypeID, "error", err)
			continue
		}
		in.mu.Lock()
		in.guards[id] = newGuard(id, post, arch, def.DetectionRadius)
		in.mu.Unlock()
	}
}

// loop reschedules itself at the current level's poll interval.
func (in *Instance) loop(ctx context.Context) {
	timer := time.NewTimer(in.PollInterval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			in.Tick(in.ctl.now())
			timer.Reset(in.PollInterval())
		}
	}
}

// PollInterval returns the evaluation interval for the current level.
func (in *Instance) PollInterval() time.Duration {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.machine.Settings().PollInterval
}

func (in *Instance) shutdown() {
	in.cancelGrace()
	if in.cancel != nil {
		in.cancel()
	}
	in.wg.Wait()

	in.mu.Lock()
	ids := make([]model.ActorID, 0, len(in.guards))
	for id := range in.guards {
		ids = append(ids, id)
		delete(in.guards, id)
	}
	in.mu.Unlock()

	for _, id := range ids {
		in.ctl.world.Despawn(id)
	}
	slog.Info("security zone deactivated", "zone", in.zone.ID(), "despawned", len(ids))
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

// Tick runs one evaluation: radio, perception, escalation or decay,
// objective rediscovery, morale, patrols and reinforcement waves.
func (in *Instance) Tick(now time.Time) {
	def := in.def()
	cfg := in.ctl.cfg

	in.mu.Lock()
	dt := now.Sub(in.lastTick)
	if dt < 0 {
		dt = 0
	}
	dt = min(dt, maxTickGap)
	in.lastTick = now

	in.dispatchRadio(now)
	detected := in.perceive(def, dt, now)
	if detected {
		in.machine.Detected(now)
	}
	in.updatePool()

	wasCombat := in.machine.Level() == LevelCombat
	threshold := in.machine.Settings().SuspicionThreshold
	if old := in.machine.Level(); old < LevelCombat && threshold > 0 && in.pool >= threshold {
		if in.machine.TransitionTo(old+1, now) {
			in.carrySuspicion()
			in.onLevelChange(old, "suspicion", now)
		}
	} else if !detected {
		if in.machine.Decay(now) {
			in.onLevelChange(old, "decay", now)
		}
	}

	if in.rediscover(def, now) {
		in.escalate(TriggerObjectiveDiscovered, now)
	}
	in.updateMorale(def, dt)
	in.patrol()

	due := in.waves.Due(now)
	fired := in.waves.Fired()
	combatEnded := wasCombat && in.machine.Level() < LevelCombat
	exitPending := in.exitPending
	in.mu.Unlock()

	if len(due) > 0 {
		in.spawnWaves(def, due, fired-len(due), now)
	}
	if combatEnded && exitPending && in.zone.PlayerCount() == 0 {
		in.ctl.scheduleTeardown(in, cfg.ExitGrace)
	}
}

// perceive updates every guard's suspicion from the players inside. Must
// hold in.mu. Returns whether any guard registered a detection.
func (in *Instance) perceive(def *data.ZoneDef, dt time.Duration, now time.Time) bool {
	cfg := in.ctl.cfg
	w := in.ctl.world
	level := in.machine.Level()

	type seen struct {
		p      model.PlayerSnapshot
		factor float64
	}
	var players []seen
	for _, id := range in.zone.PlayersInside() {
		p, ok := w.Snapshot(id)
		if !ok {
			continue
		}
		a := ResolveAccess(def.Access, p, in.keycards[id], now)
		players = append(players, seen{p: p, factor: BuildFactor(cfg, a, p.Posture)})
	}

	detected := false
	for _, g := range in.guards {
		if !g.participating() {
			continue
		}
		pos, ok := w.Location(g.ActorID)
		if !ok {
			continue
		}
		best := -cfg.DecayRate * dt.Seconds()
		var who *model.PlayerSnapshot
		for i := range players {
			s := &players[i]
			rng := DetectionRange(cfg, g.baseRange, level, s.p.Posture)
			dist := pos.Distance(s.p.Location)
			perc := PerceiveNone
			if dist <= rng {
				los := w.LineOfSight(pos, s.p.Location)
				perc = Perceive(cfg, dist, rng, los, los && w.IsFacing(g.ActorID, s.p.Location))
			}
			if d := SuspicionDelta(cfg, perc, dt, s.factor); d > best {
				best, who = d, &s.p
			}
		}
		g.Suspicion = min(max(g.Suspicion+best, 0), cfg.MaxSuspicion)
		if best > 0 && who != nil {
			detected = true
			in.lastKnown = who.Location
			in.target = who.CitizenID
		}
	}
	return detected
}

// updatePool sets the zone pool to the highest suspicion of any
// participating guard. Must hold in.mu.
func (in *Instance) updatePool() {
	pool := 0.0
	for _, g := range in.guards {
		if g.participating() {
			pool = max(pool, g.Suspicion)
		}
	}
	in.pool = pool
}

func (in *Instance) carrySuspicion() {
	f := in.ctl.cfg.CarryFraction
	for _, g := range in.guards {
		g.Suspicion *= f
	}
	in.pool *= f
}

// escalate applies an instant trigger. Must hold in.mu.
func (in *Instance) escalate(t Trigger, now time.Time) bool {
	old := in.machine.Level()
	if !in.machine.Escalate(t.Target(), now) {
		in.machine.Detected(now)
		return false
	}
	in.onLevelChange(old, t.String(), now)
	return true
}

// onLevelChange reacts to a level change. Must hold in.mu.
func (in *Instance) onLevelChange(old AlertLevel, cause string, now time.Time) {
	level := in.machine.Level()
	slog.Info("alert level changed",
		"zone", in.zone.ID(),
		"from", old,
		"to", level,
		"cause", cause,
		"suspicion", in.pool)
	in.ctl.events.Publish(events.Event{
		Kind:      events.KindAlert,
		ZoneID:    in.zone.ID(),
		CitizenID: in.target,
		At:        now,
		Data:      map[string]any{"from": old.String(), "to": level.String(), "cause": cause},
	})

	switch {
	case level > old && level >= LevelAlert:
		var delayed []model.ActorID
		for _, g := range in.guards {
			if !g.participating() {
				continue
			}
			if g.Role == data.RolePost || g.Alerted {
				in.alertGuard(g)
			} else {
				delayed = append(delayed, g.ActorID)
			}
		}
		if len(delayed) > 0 {
			in.radio = append(in.radio, radioCall{at: now.Add(in.ctl.cfg.RadioDelay), guards: delayed})
		}
	case level < LevelAlert:
		in.radio = nil
		for _, g := range in.guards {
			if g.Alerted && g.participating() {
				in.ctl.world.MoveTo(g.ActorID, g.Post)
			}
			g.Alerted = false
		}
	}

	if level == LevelCombat && old < LevelCombat {
		in.waves.Start(now)
	}
	if old == LevelCombat && level < LevelCombat {
		in.waves.Stop()
	}
}

// alertGuard sends a guard after the threat. Must hold in.mu.
func (in *Instance) alertGuard(g *Guard) {
	g.Alerted = true
	if in.machine.Level() == LevelCombat && in.target != "" {
		in.ctl.world.Engage(g.ActorID, in.target)
		return
	}
	in.ctl.world.MoveTo(g.ActorID, in.lastKnown)
}

// dispatchRadio alerts guards whose radio delay has elapsed. Must hold in.mu.
func (in *Instance) dispatchRadio(now time.Time) {
	if len(in.radio) == 0 {
		return
	}
	keep := in.radio[:0]
	for _, call := range in.radio {
		if now.Before(call.at) {
			keep = append(keep, call)
			continue
		}
		if in.machine.Level() < LevelAlert {
			continue
		}
		for _, id := range call.guards {
			if g, ok := in.guards[id]; ok && g.participating() {
				in.alertGuard(g)
			}
		}
	}
	in.radio = keep
}

// updateMorale advances every guard's morale. Must hold in.mu.
func (in *Instance) updateMorale(def *data.ZoneDef, dt time.Duration) {
	w := in.ctl.world
	for _, g := range in.guards {
		before := g.Status
		after := g.UpdateMorale(in.ctl.cfg.Morale, in.dead, dt)
		if after == before || !g.alive {
			continue
		}
		pos, _ := w.Location(g.ActorID)
		switch after {
		case StatusRetreating:
			if cover, ok := nearest(pos, def.DefensivePositions); ok {
				w.MoveTo(g.ActorID, cover)
			}
		case StatusFleeing:
			w.MoveTo(g.ActorID, fleeTarget(def, in.lastKnown, g.Post))
		case StatusEngaged:
			if in.machine.Level() >= LevelAlert {
				in.alertGuard(g)
			}
		}
		slog.Debug("guard morale status", "zone", def.ID, "guard", g.ActorID, "status", after, "morale", g.Morale)
	}
}

// fleeTarget is the defensive position farthest from the threat, or the
// guard's post.
func fleeTarget(def *data.ZoneDef, threat, post model.Location) model.Location {
	best, bestD := post, -1.0
	for _, p := range def.DefensivePositions {
		if d := p.DistanceSquared(threat); d > bestD {
			best, bestD = p, d
		}
	}
	return best
}

// patrol walks routes while the zone is calm. Must hold in.mu.
func (in *Instance) patrol() {
	level := in.machine.Level()
	if level >= LevelAlert {
		return
	}
	w := in.ctl.world
	var investigator *Guard
	for _, g := range in.guards {
		if !g.participating() {
			continue
		}
		if level == LevelSuspicious && (investigator == nil || g.Suspicion > investigator.Suspicion) {
			investigator = g
		}
		if g.Role != data.RolePatrol {
			continue
		}
		if pos, ok := w.Location(g.ActorID); ok {
			if next, ok := g.nextWaypoint(pos); ok {
				w.MoveTo(g.ActorID, next)
			}
		}
	}
	if investigator != nil && investigator.Suspicion > 0 {
		w.MoveTo(investigator.ActorID, in.lastKnown)
	}
}

func (in *Instance) spawnWaves(def *data.ZoneDef, due []data.WaveDef, firstIndex int, now time.Time) {
	cat := in.ctl.catalog.Current()
	for i, wave := range due {
		at := wave.SpawnAt
		if at == (model.Location{}) {
			at = def.Center()
		}
		arch := cat.Guard(wave.ArchetypeID)
		req := world.SpawnRequest{ZoneID: def.ID, ArchetypeID: wave.ArchetypeID, Location: at}
		if arch != nil {
			req.Model, req.Armed = arch.Model, arch.Armed
		}

		spawned := 0
		for range wave.Count {
			id, err := in.ctl.world.Spawn(in.ctx, req)
			if err != nil {
				slog.Error("spawning reinforcement", "zone", def.ID, "archetype", wave.ArchetypeID, "error", err)
				continue
			}
			g := newGuard(id, data.GuardPost{ArchetypeID: wave.ArchetypeID, Role: data.RoleReinforcement, Location: at}, arch, def.DetectionRadius)
			in.mu.Lock()
			in.guards[id] = g
			if in.machine.Level() >= LevelAlert {
				in.alertGuard(g)
			}
			in.mu.Unlock()
			spawned++
		}

		slog.Info("reinforcement wave", "zone", def.ID, "wave", firstIndex+i+1, "guards", spawned)
		in.ctl.events.Publish(events.Event{
			Kind:   events.KindWave,
			ZoneID: def.ID,
			At:     now,
			Data:   map[string]any{"wave": firstIndex + i + 1, "guards": spawned, "archetype": wave.ArchetypeID},
		})
	}
}

// Trigger applies an instant-escalation stimulus at a location. Gunshots
// and noise only count when a guard is within earshot. Returns whether the
// level changed.
func (in *Instance) Trigger(t Trigger, at model.Location, citizen model.CitizenID) bool {
	now := in.ctl.now()
	in.mu.Lock()
	defer in.mu.Unlock()

	if (t == TriggerGunshot || t == TriggerNoise) && !in.withinEarshot(at) {
		return false
	}
	in.lastKnown = at
	if citizen != "" {
		in.target = citizen
	}
	return in.escalate(t, now)
}

func (in *Instance) withinEarshot(at model.Location) bool {
	cfg := in.ctl.cfg
	for _, g := range in.guards {
		if !g.participating() {
			continue
		}
		pos, ok := in.ctl.world.Location(g.ActorID)
		if !ok {
			continue
		}
		r := DetectionRange(cfg, g.baseRange, in.machine.Level(), model.Posture{}) * cfg.HearingMultiplier
		if pos.Distance(at) <= r {
			return true
		}
	}
	return false
}

// GuardKilled marks a guard dead and escalates to combat.
func (in *Instance) GuardKilled(id model.ActorID, by model.CitizenID) bool {
	now := in.ctl.now()
	in.mu.Lock()
	defer in.mu.Unlock()

	g, ok := in.guards[id]
	if !ok || !g.alive {
		return false
	}
	g.kill()
	in.dead++
	in.updatePool()
	if by != "" {
		in.target = by
	}
	if pos, ok := in.ctl.world.Location(id); ok {
		in.lastKnown = pos
	}
	return in.escalate(TriggerGuardKilled, now)
}

// GuardShotAt records that a guard came under fire.
func (in *Instance) GuardShotAt(id model.ActorID) {
	in.stimulus(id, func(g *Guard) { g.shotAt += in.ctl.cfg.Morale.ShotAt })
}

// GuardWounded records that a guard was hit.
func (in *Instance) GuardWounded(id model.ActorID) {
	in.stimulus(id, func(g *Guard) { g.wounded += in.ctl.cfg.Morale.Wounded })
}

// GuardHitPlayer records that a guard landed a hit on the player.
func (in *Instance) GuardHitPlayer(id model.ActorID) {
	in.stimulus(id, func(g *Guard) { g.hits += in.ctl.cfg.Morale.HitPlayer })
}

func (in *Instance) stimulus(id model.ActorID, fn func(*Guard)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if g, ok := in.guards[id]; ok && g.alive {
		fn(g)
	}
}

// GrantKeycard records a keycard swipe. The card must be one the zone
// accepts and the player must hold it.
func (in *Instance) GrantKeycard(ctx context.Context, citizen model.CitizenID, itemID string) (time.Time, error) {
	def := in.def()
	accepted := false
	for _, k := range def.Access.Keycards {
		if k == itemID {
			accepted = true
			break
		}
	}
	if !accepted {
		rj := reject.Newf(reject.CodeAccessDenied, "%s does not open %s", itemID, def.ID)
		rj.Required = "keycard"
		return time.Time{}, rj
	}
	ok, err := in.ctl.auth.CheckAccessItem(ctx, citizen, itemID)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, reject.MissingItem(itemID, 1, 0)
	}

	until := in.ctl.now().Add(in.ctl.cfg.KeycardGrant)
	in.mu.Lock()
	in.keycards[citizen] = until
	in.mu.Unlock()
	return until, nil
}

// Level returns the current alert level.
func (in *Instance) Level() AlertLevel {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.machine.Level()
}

// Guards returns snapshots of every guard.
func (in *Instance) Guards() []Guard {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]Guard, 0, len(in.guards))
	for _, g := range in.guards {
		out = append(out, *g)
	}
	return out
}

// Guard returns one guard snapshot.
func (in *Instance) Guard(id model.ActorID) (Guard, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	g, ok := in.guards[id]
	if !ok {
		return Guard{}, false
	}
	return *g, true
}

// Status summarizes the instance.
func (in *Instance) Status() Status {
	in.mu.Lock()
	defer in.mu.Unlock()
	live := 0
	for _, g := range in.guards {
		if g.participating() {
			live++
		}
	}
	lvl := in.machine.Level()
	return Status{
		ZoneID:     in.zone.ID(),
		Level:      lvl,
		LevelName:  lvl.String(),
		Suspicion:  math.Round(in.pool*100) / 100,
		GuardsLive: live,
		GuardsDead: in.dead,
		WavesFired: in.waves.Fired(),
	}
}
