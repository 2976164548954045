// Package buyerzone runs buyer encounter zones: it spawns simulated buyers
// while players are inside, walks each buyer through its approach and
// patience states and hands negotiations to the negotiation engine.
package buyerzone

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/events"
	"github.com/udisondev/hotzone/internal/game/negotiation"
	"github.com/udisondev/hotzone/internal/game/reject"
	"github.com/udisondev/hotzone/internal/game/roll"
	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/model"
	"github.com/udisondev/hotzone/internal/world"
)

// Controller owns one Instance per active buyer zone.
type Controller struct {
	cfg     config.Buyer
	catalog *data.Registry
	zones   *zone.Manager
	heat    *heat.Manager
	engine  *negotiation.Engine
	world   world.World
	events  events.Sink
	rnd     roll.Source
	now     func() time.Time

	mu        sync.Mutex
	base      context.Context
	instances map[string]*Instance
}

// NewController creates a controller and subscribes it to buyer zone
// crossings. It also takes the negotiation engine's close hook.
func NewController(
	cfg config.Buyer,
	catalog *data.Registry,
	zones *zone.Manager,
	hm *heat.Manager,
	engine *negotiation.Engine,
	w world.World,
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
		heat:      hm,
		engine:    engine,
		world:     w,
		events:    events.OrNop(sink),
		rnd:       rnd,
		now:       time.Now,
		base:      context.Background(),
		instances: make(map[string]*Instance),
	}
	zones.Subscribe(data.KindBuyer, c)
	engine.OnClose(c.sessionClosed)
	return c
}

// SetClock replaces the time source. Tests only.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// Run binds instance lifetimes to ctx and blocks until it is cancelled, then
// tears every instance down.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	c.base = ctx
	c.mu.Unlock()

	slog.Info("buyer zone controller started")
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
	slog.Info("buyer zone controller stopped", "instances", len(all))
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
	}
	slog.Debug("player entered buyer zone", "zone", z.ID(), "citizen", p.CitizenID)
}

// OnExit drops the player's open deal in this zone and schedules teardown
// once the zone is empty.
func (c *Controller) OnExit(z *zone.Zone, citizen model.CitizenID) {
	if s, ok := c.engine.Active(citizen); ok && s.ZoneID == z.ID() {
		c.engine.Drop(citizen)
	}

	c.mu.Lock()
	inst, ok := c.instances[z.ID()]
	c.mu.Unlock()
	if !ok {
		return
	}
	if z.PlayerCount() == 0 {
		inst.scheduleGrace(c.cfg.ExitGrace, func() { c.deactivate(z.ID(), inst) })
	}
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

// ActiveZones returns the IDs of active buyer zones.
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
func (c *Controller) Reload() {
	c.mu.Lock()
	old := c.instances
	c.instances = make(map[string]*Instance, len(old))
	c.mu.Unlock()

	for id, inst := range old {
		inst.shutdown()
		z := c.zones.Zone(id)
		if z == nil || z.Kind() != data.KindBuyer || z.PlayerCount() == 0 {
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
	slog.Info("buyer zones reloaded", "restarted", len(c.ActiveZones()))
}

// StartNegotiation opens a deal between the player and a waiting buyer.
func (c *Controller) StartNegotiation(ctx context.Context, citizen model.CitizenID, zoneID string, actorID model.ActorID, itemID string, qty int) (negotiation.Session, error) {
	inst := c.Instance(zoneID)
	if inst == nil {
		return negotiation.Session{}, reject.Newf(reject.CodeInvalidZone, "buyer zone %q is not active", zoneID)
	}
	a, ok := inst.Actor(actorID)
	if !ok || a.State != StateWaiting || a.Target != citizen {
		return negotiation.Session{}, reject.New(reject.CodeNotInRange, "no buyer is waiting for you")
	}

	var group string
	if snap, ok := c.world.Snapshot(citizen); ok {
		group = snap.Group
	}
	s, err := c.engine.Start(ctx, negotiation.StartRequest{
		CitizenID:   citizen,
		Group:       group,
		ZoneID:      zoneID,
		ActorID:     actorID,
		ArchetypeID: a.ArchetypeID,
		ItemID:      itemID,
		Quantity:    qty,
	})
	if err != nil {
		return negotiation.Session{}, err
	}
	inst.markNegotiating(actorID, citizen)
	return s, nil
}

// sessionClosed is the negotiation close hook. It runs on arbitrary
// goroutines and only queues the outcome for the owning instance.
func (c *Controller) sessionClosed(s negotiation.Session, info negotiation.CloseInfo) {
	if s.ActorID == 0 {
		return
	}
	if inst := c.Instance(s.ZoneID); inst != nil {
		inst.queueClose(s.ActorID, info)
	}
}
