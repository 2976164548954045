// Package negotiation runs the multi-round haggling protocol between a
// player and a simulated buyer. The server owns the fair price; the player
// only ever sees offers.
package negotiation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/events"
	"github.com/udisondev/hotzone/internal/game/reject"
	"github.com/udisondev/hotzone/internal/game/risk"
	"github.com/udisondev/hotzone/internal/game/roll"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/inventory"
	"github.com/udisondev/hotzone/internal/ledger"
	"github.com/udisondev/hotzone/internal/model"
)

// StartRequest opens a negotiation.
type StartRequest struct {
	CitizenID   model.CitizenID
	Group       string
	ZoneID      string
	ActorID     model.ActorID
	ArchetypeID string
	ItemID      string
	Quantity    int
}

// Sale is the result of Complete.
type Sale struct {
	SessionID uuid.UUID     `json:"session_id"`
	Price     int64         `json:"price"`
	Quantity  int           `json:"quantity"`
	Risk      *risk.Outcome `json:"risk,omitempty"`
	// ItemsTaken is set when a risk outcome confiscated the goods.
	ItemsTaken int     `json:"items_taken,omitempty"`
	Reputation float64 `json:"reputation"`
}

// CloseInfo describes how a session ended. Risk is set only for CloseRisk.
type CloseInfo struct {
	Reason CloseReason
	Risk   *risk.Outcome
}

// CloseHook observes sessions as they end.
type CloseHook func(s Session, info CloseInfo)

// Engine holds at most one session per player.
type Engine struct {
	cfg     config.Negotiation
	catalog *data.Registry
	heat    *heat.Manager
	risk    *risk.Resolver
	auth    inventory.Authority
	ledger  *ledger.BestEffort
	events  events.Sink
	rnd     roll.Source
	now     func() time.Time

	mu       sync.Mutex
	sessions map[model.CitizenID]*Session
	onClose  CloseHook
}

// NewEngine creates a negotiation engine. lg, sink and rnd may be nil.
func NewEngine(
	cfg config.Negotiation,
	catalog *data.Registry,
	hm *heat.Manager,
	resolver *risk.Resolver,
	auth inventory.Authority,
	lg *ledger.BestEffort,
	sink events.Sink,
	rnd roll.Source,
) *Engine {
	if lg == nil {
		lg = ledger.NewBestEffort(nil, 0)
	}
	if rnd == nil {
		rnd = roll.Default()
	}
	return &Engine{
		cfg:      cfg,
		catalog:  catalog,
		heat:     hm,
		risk:     resolver,
		auth:     auth,
		ledger:   lg,
		events:   events.OrNop(sink),
		rnd:      rnd,
		now:      time.Now,
		sessions: make(map[model.CitizenID]*Session, 64),
	}
}

// SetClock replaces the time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// OnClose registers a hook called after a session ends. Not safe to call
// concurrently with session traffic.
func (e *Engine) OnClose(h CloseHook) { e.onClose = h }

// Start validates the request, claims the player's session slot and returns
// the buyer's opening offer.
func (e *Engine) Start(ctx context.Context, req StartRequest) (Session, error) {
	cat := e.catalog.Current()
	zone := cat.Zone(req.ZoneID)
	if zone == nil || zone.Kind != data.KindBuyer {
		return Session{}, reject.Newf(reject.CodeInvalidZone, "buyer zone %q", req.ZoneID)
	}
	arch := cat.Buyer(req.ArchetypeID)
	if arch == nil {
		return Session{}, reject.Newf(reject.CodeInvalidArchetype, "archetype %q", req.ArchetypeID)
	}
	base, ok := cat.ZonePrice(zone, req.ItemID)
	if !ok {
		return Session{}, reject.Newf(reject.CodeInvalidItem, "%q is not traded in %s", req.ItemID, req.ZoneID)
	}
	if req.Quantity < 1 || (arch.MaxQuantity > 0 && req.Quantity > arch.MaxQuantity) {
		return Session{}, reject.Newf(reject.CodeInvalidItem, "quantity %d out of range for %s", req.Quantity, arch.ID)
	}
	if e.heat.IsLockdown(req.ZoneID) {
		return Session{}, reject.New(reject.CodeLockdown, req.ZoneID)
	}
	rep := e.heat.GetReputation(req.CitizenID, req.ZoneID)
	if rep < arch.MinReputation {
		rj := reject.Newf(reject.CodeAccessDenied, "%s deals only above reputation %.0f", arch.ID, arch.MinReputation)
		rj.Required = fmt.Sprintf("reputation %.0f", arch.MinReputation)
		return Session{}, rj
	}

	now := e.now()
	s := &Session{
		ID:          uuid.New(),
		CitizenID:   req.CitizenID,
		Group:       req.Group,
		ZoneID:      req.ZoneID,
		ActorID:     req.ActorID,
		ArchetypeID: req.ArchetypeID,
		ItemID:      req.ItemID,
		Quantity:    req.Quantity,
		MaxRounds:   e.cfg.MaxRounds,
		State:       StateOpened,
		StartedAt:   now,
		ExpiresAt:   now.Add(e.cfg.SessionTTL),
		busy:        true,
	}
	if err := e.claim(s); err != nil {
		return Session{}, err
	}

	have, err := e.auth.GetItemCount(ctx, req.CitizenID, req.ItemID)
	if err != nil {
		e.release(s)
		return Session{}, fmt.Errorf("checking %s stock for %s: %w", req.ItemID, req.CitizenID, err)
	}
	if have < req.Quantity {
		e.release(s)
		return Session{}, reject.MissingItem(req.ItemID, req.Quantity, have)
	}

	fair := e.FairPrice(base, arch, rep, e.heat.GetHeat(req.ZoneID), req.Quantity)

	e.mu.Lock()
	s.FairPrice = fair
	s.CurrentOffer = roundPrice(float64(fair) * e.cfg.OpeningFraction)
	s.busy = false
	snap := *s
	e.mu.Unlock()

	slog.Debug("negotiation started",
		"citizen", req.CitizenID,
		"zone", req.ZoneID,
		"archetype", req.ArchetypeID,
		"item", req.ItemID,
		"qty", req.Quantity,
		"fair", fair,
		"offer", snap.CurrentOffer)
	return snap, nil
}

// claim atomically takes the player's slot. Expired sessions are evicted.
func (e *Engine) claim(s *Session) error {
	e.mu.Lock()
	var stale *Session
	old, ok := e.sessions[s.CitizenID]
	if ok && !old.busy && old.expired(e.now()) {
		stale, ok = old, false
	}
	if ok {
		e.mu.Unlock()
		return reject.New(reject.CodeSessionOpen, "a negotiation is already open")
	}
	e.sessions[s.CitizenID] = s
	e.mu.Unlock()

	if stale != nil {
		e.closed(*stale, CloseExpired)
	}
	return nil
}

func (e *Engine) release(s *Session) {
	e.mu.Lock()
	if cur, ok := e.sessions[s.CitizenID]; ok && cur == s {
		delete(e.sessions, s.CitizenID)
	}
	e.mu.Unlock()
}

// FairPrice is the server-side valuation of a lot.
func (e *Engine) FairPrice(base int64, arch *data.BuyerArchetype, rep, heatNow float64, qty int) int64 {
	variance := 1 + e.cfg.PriceVariance*(2*e.rnd.Float64()-1)
	repBonus := 1 + rep/e.heat.ReputationConfig().MaxReputation*e.cfg.ReputationBonus
	heatPenalty := 1 - heatNow/e.heat.HeatConfig().MaxHeat*e.cfg.HeatPenalty

	unit := float64(base) * variance * arch.PriceMultiplier * repBonus * heatPenalty
	return max(1, roundPrice(unit*float64(qty)))
}

func roundPrice(v float64) int64 {
	return int64(math.Round(v))
}

// lookup returns the live session under e.mu, evicting it when expired.
// Must be called with e.mu held; returns the evicted session for the hook.
func (e *Engine) lookup(citizen model.CitizenID) (*Session, *Session, error) {
	s, ok := e.sessions[citizen]
	if !ok {
		return nil, nil, reject.New(reject.CodeNoSession, "no open negotiation")
	}
	if s.busy {
		return nil, nil, reject.New(reject.CodeSessionOpen, "negotiation is being settled")
	}
	if s.expired(e.now()) {
		delete(e.sessions, citizen)
		return nil, s, reject.New(reject.CodeSessionExpired, "the buyer lost interest")
	}
	return s, nil, nil
}

// Counter answers the player's proposed price.
func (e *Engine) Counter(_ context.Context, citizen model.CitizenID, proposed int64) (Reply, error) {
	if proposed <= 0 {
		return Reply{}, reject.Newf(reject.CodeInvalidPrice, "%d", proposed)
	}

	e.mu.Lock()
	s, evicted, err := e.lookup(citizen)
	if err != nil {
		e.mu.Unlock()
		if evicted != nil {
			e.closed(*evicted, CloseExpired)
		}
		return Reply{}, err
	}
	if s.State == StateAccepted {
		e.mu.Unlock()
		return Reply{}, reject.New(reject.CodeInvalidPrice, "offer already accepted")
	}

	reply := Reply{SessionID: s.ID, Round: s.Round}
	walk := false

	switch {
	case s.State == StateFinalOffer:
		if proposed <= s.CurrentOffer {
			s.State = StateAccepted
			s.CurrentOffer = proposed
			reply.Outcome, reply.Price = OutcomeAccepted, proposed
		} else {
			walk = true
		}

	case greed(proposed, s.FairPrice) > e.walkAwayThreshold(s.ArchetypeID):
		walk = true

	case proposed <= s.FairPrice:
		s.State = StateAccepted
		s.CurrentOffer = proposed
		reply.Outcome, reply.Price = OutcomeAccepted, proposed

	default:
		s.Round++
		reply.Round = s.Round
		switch {
		case s.Round > s.MaxRounds:
			final := roundPrice(float64(s.FairPrice) * e.cfg.FinalOfferFraction)
			s.CurrentOffer = max(s.CurrentOffer, final)
			s.State = StateFinalOffer
			reply.Outcome, reply.Price = OutcomeFinalOffer, s.CurrentOffer
		case roll.Chance(e.rnd, e.haggleChance(s.ArchetypeID)):
			mid := roundPrice(float64(s.CurrentOffer+proposed) / 2)
			s.CurrentOffer = max(s.CurrentOffer, mid)
			s.State = StateCountered
			reply.Outcome, reply.Price = OutcomeCountered, s.CurrentOffer
		default:
			s.CurrentOffer = proposed
			s.State = StateAccepted
			reply.Outcome, reply.Price = OutcomeAccepted, proposed
		}
	}

	if walk {
		delete(e.sessions, citizen)
		snap := *s
		e.mu.Unlock()

		rep := e.heat.RemoveReputation(citizen, snap.ZoneID, e.heat.ReputationConfig().WalkAwayPenalty)
		slog.Info("buyer walked away",
			"citizen", citizen,
			"zone", snap.ZoneID,
			"proposed", proposed,
			"reputation", rep)
		e.events.Publish(events.Event{
			Kind:      events.KindWalkAway,
			ZoneID:    snap.ZoneID,
			CitizenID: citizen,
			At:        e.now(),
			Data:      map[string]any{"proposed": proposed, "archetype": snap.ArchetypeID},
		})
		e.closed(snap, CloseWalkedOff)
		return Reply{SessionID: snap.ID, Outcome: OutcomeWalkedAway, Round: snap.Round}, nil
	}

	e.mu.Unlock()
	return reply, nil
}

func greed(proposed, fair int64) float64 {
	return float64(proposed-fair) / float64(fair)
}

func (e *Engine) walkAwayThreshold(archetypeID string) float64 {
	if a := e.catalog.Current().Buyer(archetypeID); a != nil {
		return a.WalkAwayThreshold
	}
	return 0
}

func (e *Engine) haggleChance(archetypeID string) float64 {
	if a := e.catalog.Current().Buyer(archetypeID); a != nil {
		return a.HaggleChance
	}
	return 0
}

// Complete settles the session at the buyer's standing offer. Inventory is
// re-checked and a risk event is rolled before any money moves.
func (e *Engine) Complete(ctx context.Context, citizen model.CitizenID) (Sale, error) {
	e.mu.Lock()
	s, evicted, err := e.lookup(citizen)
	if err != nil {
		e.mu.Unlock()
		if evicted != nil {
			e.closed(*evicted, CloseExpired)
		}
		return Sale{}, err
	}
	s.busy = true
	snap := *s
	e.mu.Unlock()

	sale, reason, err := e.settle(ctx, snap)
	if err != nil {
		e.mu.Lock()
		s.busy = false
		e.mu.Unlock()
		return Sale{}, err
	}

	e.release(s)
	e.notifyClosed(snap, CloseInfo{Reason: reason, Risk: sale.Risk})
	return sale, nil
}

func (e *Engine) settle(ctx context.Context, s Session) (Sale, CloseReason, error) {
	have, err := e.auth.GetItemCount(ctx, s.CitizenID, s.ItemID)
	if err != nil {
		return Sale{}, "", fmt.Errorf("rechecking %s stock for %s: %w", s.ItemID, s.CitizenID, err)
	}
	if have < s.Quantity {
		return Sale{}, "", reject.MissingItem(s.ItemID, s.Quantity, have)
	}

	outcome, err := e.risk.Roll(ctx, s.ZoneID, s.ItemID, s.CitizenID)
	if err != nil {
		return Sale{}, "", fmt.Errorf("rolling risk: %w", err)
	}
	if outcome != nil {
		taken, err := e.risk.Apply(ctx, outcome, s.CitizenID, s.ZoneID, s.ItemID, s.Quantity)
		if err != nil {
			slog.Error("applying risk outcome", "citizen", s.CitizenID, "outcome", outcome.ID, "error", err)
		}
		return Sale{
			SessionID:  s.ID,
			Quantity:   s.Quantity,
			Risk:       outcome,
			ItemsTaken: taken,
			Reputation: e.heat.GetReputation(s.CitizenID, s.ZoneID),
		}, CloseRisk, nil
	}

	price := min(s.CurrentOffer, roundPrice(float64(s.FairPrice)*e.cfg.PriceCeiling))

	removed, err := e.auth.RemoveItem(ctx, s.CitizenID, s.ItemID, s.Quantity)
	if err != nil {
		return Sale{}, "", fmt.Errorf("removing %d %s from %s: %w", s.Quantity, s.ItemID, s.CitizenID, err)
	}
	if !removed {
		return Sale{}, "", reject.MissingItem(s.ItemID, s.Quantity, 0)
	}
	memo := fmt.Sprintf("sale %s x%d in %s", s.ItemID, s.Quantity, s.ZoneID)
	if err := e.auth.AddMoney(ctx, s.CitizenID, price, memo); err != nil {
		// Hand the goods back; the player keeps the session and may retry.
		if _, rerr := e.auth.AddItem(ctx, s.CitizenID, s.ItemID, s.Quantity); rerr != nil {
			slog.Error("restoring items after failed payment",
				"citizen", s.CitizenID, "item", s.ItemID, "qty", s.Quantity, "error", rerr)
		}
		return Sale{}, "", fmt.Errorf("paying %d to %s: %w", price, s.CitizenID, err)
	}

	rep := e.heat.AddReputation(s.CitizenID, s.ZoneID, e.heat.ReputationConfig().SaleGain(s.Quantity))
	e.heat.RecordSale(s.CitizenID, s.ZoneID, price)
	e.heat.AddHeat(s.ZoneID, e.heat.HeatConfig().SaleHeat(s.Quantity))
	e.ledger.Notify(ctx, s.Group, ledger.ActivitySale, s.Quantity)

	slog.Info("sale completed",
		"citizen", s.CitizenID,
		"zone", s.ZoneID,
		"item", s.ItemID,
		"qty", s.Quantity,
		"price", price,
		"reputation", rep)
	e.events.Publish(events.Event{
		Kind:      events.KindSale,
		ZoneID:    s.ZoneID,
		CitizenID: s.CitizenID,
		At:        e.now(),
		Data: map[string]any{
			"item":      s.ItemID,
			"qty":       s.Quantity,
			"price":     price,
			"archetype": s.ArchetypeID,
			"rounds":    s.Round,
		},
	})

	return Sale{SessionID: s.ID, Price: price, Quantity: s.Quantity, Reputation: rep}, CloseSold, nil
}

// Refuse ends the session without a sale at a small reputation cost.
func (e *Engine) Refuse(_ context.Context, citizen model.CitizenID) error {
	e.mu.Lock()
	s, evicted, err := e.lookup(citizen)
	if err != nil {
		e.mu.Unlock()
		if evicted != nil {
			e.closed(*evicted, CloseExpired)
		}
		return err
	}
	delete(e.sessions, citizen)
	snap := *s
	e.mu.Unlock()

	e.heat.RemoveReputation(citizen, snap.ZoneID, e.heat.ReputationConfig().RefusePenalty)
	e.events.Publish(events.Event{
		Kind:      events.KindRefuse,
		ZoneID:    snap.ZoneID,
		CitizenID: citizen,
		At:        e.now(),
	})
	e.closed(snap, CloseRefused)
	return nil
}

// Active returns the player's live session.
func (e *Engine) Active(citizen model.CitizenID) (Session, bool) {
	e.mu.Lock()
	s, ok := e.sessions[citizen]
	if !ok {
		e.mu.Unlock()
		return Session{}, false
	}
	if !s.busy && s.expired(e.now()) {
		delete(e.sessions, citizen)
		snap := *s
		e.mu.Unlock()
		e.closed(snap, CloseExpired)
		return Session{}, false
	}
	snap := *s
	e.mu.Unlock()
	return snap, true
}

// Drop discards the player's session without penalty (disconnect).
func (e *Engine) Drop(citizen model.CitizenID) {
	e.mu.Lock()
	s, ok := e.sessions[citizen]
	if !ok || s.busy {
		e.mu.Unlock()
		return
	}
	delete(e.sessions, citizen)
	snap := *s
	e.mu.Unlock()
	e.closed(snap, CloseDropped)
}

// ExpireStale evicts every expired session. Returns how many were removed.
func (e *Engine) ExpireStale() int {
	now := e.now()
	var stale []Session
	e.mu.Lock()
	for id, s := range e.sessions {
		if !s.busy && s.expired(now) {
			stale = append(stale, *s)
			delete(e.sessions, id)
		}
	}
	e.mu.Unlock()

	for _, s := range stale {
		e.closed(s, CloseExpired)
	}
	return len(stale)
}

func (e *Engine) closed(s Session, reason CloseReason) {
	e.notifyClosed(s, CloseInfo{Reason: reason})
}

func (e *Engine) notifyClosed(s Session, info CloseInfo) {
	if e.onClose != nil {
		e.onClose(s, info)
	}
}
