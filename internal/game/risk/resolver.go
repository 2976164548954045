// Package risk decides whether a completed transaction goes wrong and how.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/events"
	"github.com/udisondev/hotzone/internal/game/reject"
	"github.com/udisondev/hotzone/internal/game/roll"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/inventory"
	"github.com/udisondev/hotzone/internal/model"
)

// Outcome is a resolved adverse event.
type Outcome struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	RemovesItems bool    `json:"removes_items"`
	Hostile      bool    `json:"hostile"`
	WantedLevel  int     `json:"wanted_level"`
	Chance       float64 `json:"chance"`
}

// Resolver rolls risk events against zone heat and player reputation.
type Resolver struct {
	cfg     config.Risk
	catalog *data.Registry
	heat    *heat.Manager
	auth    inventory.Authority
	events  events.Sink
	rnd     roll.Source
	now     func() time.Time
}

// NewResolver creates a Resolver. rnd and sink may be nil.
func NewResolver(cfg config.Risk, catalog *data.Registry, hm *heat.Manager, auth inventory.Authority, sink events.Sink, rnd roll.Source) *Resolver {
	if rnd == nil {
		rnd = roll.Default()
	}
	return &Resolver{
		cfg:     cfg,
		catalog: catalog,
		heat:    hm,
		auth:    auth,
		events:  events.OrNop(sink),
		rnd:     rnd,
		now:     time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (r *Resolver) SetClock(now func() time.Time) { r.now = now }

// EffectiveChance returns the probability that a transaction of itemID in
// zone triggers any risk event for citizen.
func (r *Resolver) EffectiveChance(zoneID, itemID string, citizen model.CitizenID) float64 {
	hc := r.heat.HeatConfig()
	rc := r.heat.ReputationConfig()

	heatFactor := 1 + r.heat.GetHeat(zoneID)/hc.MaxHeat*r.cfg.HeatScale
	chance := r.cfg.BaseChance * r.catalog.Current().RiskModifier(itemID) * heatFactor
	chance -= r.heat.GetReputation(citizen, zoneID) / rc.MaxReputation * r.cfg.MaxReputationDiscount
	return max(chance, r.cfg.MinChance)
}

// Roll returns the risk event for this transaction, or nil for none. When
// the probability roll hits but no outcome is eligible, the result is nil.
func (r *Resolver) Roll(_ context.Context, zoneID, itemID string, citizen model.CitizenID) (*Outcome, error) {
	cat := r.catalog.Current()
	if cat.Zone(zoneID) == nil {
		return nil, reject.Newf(reject.CodeInvalidZone, "zone %q", zoneID)
	}

	chance := r.EffectiveChance(zoneID, itemID, citizen)
	if !roll.Chance(r.rnd, chance) {
		return nil, nil
	}

	heatNow := r.heat.GetHeat(zoneID)
	rep := r.heat.GetReputation(citizen, zoneID)
	eligible := make([]*data.RiskOutcomeDef, 0, len(cat.RiskOutcomes))
	for i := range cat.RiskOutcomes {
		o := &cat.RiskOutcomes[i]
		if heatNow >= o.MinHeat && rep >= o.MinReputation {
			eligible = append(eligible, o)
		}
	}

	i, ok := roll.Weighted(r.rnd, eligible, func(o *data.RiskOutcomeDef) float64 { return o.Weight })
	if !ok {
		slog.Debug("risk roll hit with no eligible outcome", "zone", zoneID, "heat", heatNow, "reputation", rep)
		return nil, nil
	}
	def := eligible[i]
	return &Outcome{
		ID:           def.ID,
		Label:        def.Label,
		RemovesItems: def.RemovesItems,
		Hostile:      def.Hostile,
		WantedLevel:  def.WantedLevel,
		Chance:       chance,
	}, nil
}

// Apply commits an outcome's consequences: items taken when the outcome says
// so, reputation penalty and heat. Returns how many items were taken.
func (r *Resolver) Apply(ctx context.Context, o *Outcome, citizen model.CitizenID, zoneID, itemID string, qty int) (int, error) {
	taken := 0
	if o.RemovesItems && qty > 0 {
		ok, err := r.auth.RemoveItem(ctx, citizen, itemID, qty)
		if err != nil {
			return 0, fmt.Errorf("removing items for risk %s: %w", o.ID, err)
		}
		if ok {
			taken = qty
		}
	}

	r.heat.RemoveReputation(citizen, zoneID, r.heat.ReputationConfig().RiskPenalty)
	r.heat.AddHeat(zoneID, r.heat.HeatConfig().PerRiskEvent)

	slog.Info("risk event",
		"zone", zoneID,
		"citizen", citizen,
		"outcome", o.ID,
		"itemsTaken", taken,
		"wanted", o.WantedLevel)
	r.events.Publish(events.Event{
		Kind:      events.KindRisk,
		ZoneID:    zoneID,
		CitizenID: citizen,
		At:        r.now(),
		Data: map[string]any{
			"outcome":     o.ID,
			"item":        itemID,
			"items_taken": taken,
			"hostile":     o.Hostile,
			"wanted":      o.WantedLevel,
		},
	})
	return taken, nil
}
