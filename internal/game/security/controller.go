package security

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/events"
	"github.com/udisondev/hotzone/internal/game/reject"
	"github.com/udisondev/hotzone/internal/game/roll"
	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/inventory"
	"github.com/udisondev/hotzone/internal/ledger"
	"github.com/udisondev/hotzone/internal/model"
	"github.com/udisondev/hotzone/internal/world"
)

// Controller owns one Instance per active security zone.
type Controller struct {
	cfg     config.Security
	catalog *data.Registry
	zones   *zone.Manager
	auth    inventory.Authority
	world   world.World
	ledger  *ledger.BestEffort
	events  events.Sink
	rnd     roll.Source
	now     func() time.Time

	mu        sync.Mutex
	base      context.Context
	instances map[string]*Instance

	// omu guards steps; taken after Instance.mu, never before.
	omu   sync.Mutex
	steps map[stepKey]*StepState
}

// NewController creates a controller and subscribes it to security zone
// crossings.
func NewController(
	cfg config.Security,
	catalog *data.Registry,
	zones *zone.Manager,
	auth inventory.Authority,
	w world.World,
	lg *ledger.BestEffort,
	sink events.Sink,
	rnd roll.Source,
) *Controller {
	if rnd == nil {
		rnd = roll.Default()
	}
	c := &Controller{
		cfg:       cfg,
		catalog:   catalog,
		zones:     zones,
		auth:      auth,
		world:     w,
		ledger:    lg,
		events:    events.OrNop(sink),
		rnd:       rnd,
		now:       time.Now,
		base:      context.Background(),
		instances: make(map[string]*Instance),
		steps:     make(map[stepKey]*StepState),
	}
	zones.Subscribe(data.KindSecurity, c)
	return c
}

// SetClock replaces the time source. Tests only.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// Run binds instance lifetimes to ctx and blocks until it is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	c.base = ctx
	c.mu.Unlock()

	slog.Info("security controller started")
	<-ctx.Done()

	c.mu.Lock()
	all := make([]*Instance, 0, len(c.instances))
	for id, inst := range c.instances {
		all = append(all, inst)
		delete(c.instances, id)
	}
	c.mu.Unlock()

	for _, inst := range all {
		inst.shutdown()
	}
	slog.Info("security controller stopped", "instances", len(all))
	return ctx.Err()
}

// OnEnter activates the zone, or cancels its pending teardown.
func (c *Controller) OnEnter(z *zone.Zone, p model.PlayerSnapshot) {
	c.mu.Lock()
	inst, ok := c.instances[z.ID()]
	if !ok {
		inst = newInstance(c, z)
		c.instances[z.ID()] = inst
		inst.start(c.base)
	}
	c.mu.Unlock()

	if ok {
		inst.cancelGrace()
		inst.mu.Lock()
		inst.exitPending = false
		inst.mu.Unlock()
	}
	slog.Debug("player entered security zone", "zone", z.ID(), "citizen", p.CitizenID)
}

// OnExit schedules teardown once the zone is empty. A zone in combat
// lingers for the longer combat grace.
func (c *Controller) OnExit(z *zone.Zone, citizen model.CitizenID) {
	inst := c.Instance(z.ID())
	if inst == nil || z.PlayerCount() > 0 {
		return
	}

	grace := c.cfg.ExitGrace
	inst.mu.Lock()
	if inst.machine.Level() == LevelCombat {
		grace = c.cfg.CombatExitGrace
		inst.exitPending = true
	}
	inst.mu.Unlock()

	slog.Debug("security zone empty", "zone", z.ID(), "last", citizen, "grace", grace)
	c.scheduleTeardown(inst, grace)
}

func (c *Controller) scheduleTeardown(inst *Instance, d time.Duration) {
	inst.scheduleGrace(d, func() { c.deactivate(inst.zone.ID(), inst) })
}

func (c *Controller) deactivate(zoneID string, inst *Instance) {
	c.mu.Lock()
	if cur, ok := c.instances[zoneID]; !ok || cur != inst {
		c.mu.Unlock()
		return
	}
	if inst.zone.PlayerCount() > 0 {
		c.mu.Unlock()
		return
	}
	delete(c.instances, zoneID)
	c.mu.Unlock()

	inst.shutdown()
}

// Instance returns the active instance for zoneID, or nil.
func (c *Controller) Instance(zoneID string) *Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instances[zoneID]
}

// ActiveZones returns the IDs of active security zones.
func (c *Controller) ActiveZones() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.instances))
	for id := range c.instances {
		out = append(out, id)
	}
	return out
}

// Reload restarts every active instance against the current catalog.
// Alert state is not carried over; objective progress is.
func (c *Controller) Reload() {
	c.mu.Lock()
	old := c.instances
	c.instances = make(map[string]*Instance, len(old))
	c.mu.Unlock()

	for id, inst := range old {
		inst.shutdown()
		z := c.zones.Zone(id)
		if z == nil || z.Kind() != data.KindSecurity || z.PlayerCount() == 0 {
			continue
		}
		c.mu.Lock()
		if _, taken := c.instances[id]; !taken {
			ni := newInstance(c, z)
			c.instances[id] = ni
			ni.start(c.base)
		}
		c.mu.Unlock()
	}
	slog.Info("security zones reloaded", "restarted", len(c.ActiveZones()))
}

func (c *Controller) active(zoneID string) (*Instance, error) {
	inst := c.Instance(zoneID)
	if inst == nil {
		return nil, reject.Newf(reject.CodeInvalidZone, "security zone %q is not active", zoneID)
	}
	return inst, nil
}

// AttemptObjective tries to open one step of an objective.
func (c *Controller) AttemptObjective(ctx context.Context, citizen model.CitizenID, zoneID, objectiveID string, step int) (StepResult, error) {
	inst, err := c.active(zoneID)
	if err != nil {
		return StepResult{}, err
	}
	return inst.AttemptStep(ctx, citizen, objectiveID, step)
}

// PresentKeycard grants the player keycard access to the zone.
func (c *Controller) PresentKeycard(ctx context.Context, citizen model.CitizenID, zoneID, itemID string) (time.Time, error) {
	inst, err := c.active(zoneID)
	if err != nil {
		return time.Time{}, err
	}
	return inst.GrantKeycard(ctx, citizen, itemID)
}

// Trigger applies an instant stimulus to the zone.
func (c *Controller) Trigger(zoneID string, t Trigger, at model.Location, citizen model.CitizenID) (bool, error) {
	inst, err := c.active(zoneID)
	if err != nil {
		return false, err
	}
	return inst.Trigger(t, at, citizen), nil
}

// GuardKilled reports a guard death.
func (c *Controller) GuardKilled(zoneID string, id model.ActorID, by model.CitizenID) error {
	inst, err := c.active(zoneID)
	if err != nil {
		return err
	}
	inst.GuardKilled(id, by)
	return nil
}

// Level returns the zone's alert level. Inactive zones are at patrol.
func (c *Controller) Level(zoneID string) AlertLevel {
	if inst := c.Instance(zoneID); inst != nil {
		return inst.Level()
	}
	return LevelPatrol
}

// Statuses summarizes every active instance.
func (c *Controller) Statuses() []Status {
	c.mu.Lock()
	all := make([]*Instance, 0, len(c.instances))
	for _, inst := range c.instances {
		all = append(all, inst)
	}
	c.mu.Unlock()

	out := make([]Status, 0, len(all))
	for _, inst := range all {
		out = append(out, inst.Status())
	}
	return out
}
