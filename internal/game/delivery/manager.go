// Package delivery generates time-boxed delivery contacts and runs the one
// delivery a player may have in flight.
package delivery

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
	"github.com/udisondev/hotzone/internal/world"
)

// Manager owns every player's offers and active delivery.
type Manager struct {
	cfg     config.Delivery
	catalog *data.Registry
	heat    *heat.Manager
	risk    *risk.Resolver
	auth    inventory.Authority
	players world.Players
	ledger  *ledger.BestEffort
	events  events.Sink
	rnd     roll.Source
	now     func() time.Time

	mu       sync.Mutex
	offers   map[model.CitizenID]*offers
	sessions map[model.CitizenID]*Session
	// lastGen is kept apart from offers so Drop does not reset the cooldown.
	lastGen map[model.CitizenID]time.Time
}

// NewManager creates a delivery manager. lg, sink and rnd may be nil.
func NewManager(
	cfg config.Delivery,
	catalog *data.Registry,
	hm *heat.Manager,
	resolver *risk.Resolver,
	auth inventory.Authority,
	players world.Players,
	lg *ledger.BestEffort,
	sink events.Sink,
	rnd roll.Source,
) *Manager {
	if lg == nil {
		lg = ledger.NewBestEffort(nil, 0)
	}
	if rnd == nil {
		rnd = roll.Default()
	}
	return &Manager{
		cfg:      cfg,
		catalog:  catalog,
		heat:     hm,
		risk:     resolver,
		auth:     auth,
		players:  players,
		ledger:   lg,
		events:   events.OrNop(sink),
		rnd:      rnd,
		now:      time.Now,
		offers:   make(map[model.CitizenID]*offers, 64),
		sessions: make(map[model.CitizenID]*Session, 64),
		lastGen:  make(map[model.CitizenID]time.Time, 64),
	}
}

// SetClock replaces the time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

type candidate struct {
	zone *data.ZoneDef
	at   model.Location
}

// GenerateContacts draws a fresh set of contacts around the player.
// Generation is rate limited per player and replaces earlier offers.
func (m *Manager) GenerateContacts(_ context.Context, citizen model.CitizenID) ([]Contact, error) {
	now := m.now()

	m.mu.Lock()
	if s, ok := m.sessions[citizen]; ok && (s.busy || !s.expired(now)) {
		m.mu.Unlock()
		return nil, reject.New(reject.CodeDeliveryOpen, "finish the current delivery first")
	}
	if last, ok := m.lastGen[citizen]; ok {
		if ready := last.Add(m.cfg.Cooldown); now.Before(ready) {
			m.mu.Unlock()
			return nil, reject.Cooldown(ready.Sub(now))
		}
	}
	m.mu.Unlock()

	p, ok := m.players.Snapshot(citizen)
	if !ok {
		return nil, reject.New(reject.CodeNoContacts, "player position unknown")
	}

	cat := m.catalog.Current()
	picked := m.pickLocations(cat, p.Location)
	if len(picked) == 0 {
		return nil, reject.New(reject.CodeNoContacts, "nobody is buying around here")
	}

	contacts := make([]Contact, 0, len(picked))
	for _, c := range picked {
		orders, payment := m.drawOrders(cat, c.zone)
		if len(orders) == 0 {
			continue
		}
		contacts = append(contacts, Contact{
			ID:        uuid.New(),
			Name:      contactName(m.rnd),
			ZoneID:    c.zone.ID,
			Orders:    orders,
			Location:  c.at,
			Payment:   payment,
			ExpiresAt: now.Add(m.cfg.OfferTTL),
		})
	}
	if len(contacts) == 0 {
		return nil, reject.New(reject.CodeNoContacts, "nobody is buying around here")
	}

	m.mu.Lock()
	if last, ok := m.lastGen[citizen]; ok && now.Before(last.Add(m.cfg.Cooldown)) {
		m.mu.Unlock()
		return nil, reject.Cooldown(last.Add(m.cfg.Cooldown).Sub(now))
	}
	m.lastGen[citizen] = now
	m.offers[citizen] = &offers{contacts: contacts, generatedAt: now}
	m.mu.Unlock()

	slog.Debug("delivery contacts generated", "citizen", citizen, "count", len(contacts))
	return cloneContacts(contacts), nil
}

// pickLocations selects drop points of open buyer zones within the distance
// band around from, at least MinSeparation apart.
func (m *Manager) pickLocations(cat *data.Catalog, from model.Location) []candidate {
	var pool []candidate
	for _, z := range cat.ZonesByKind(data.KindBuyer) {
		if len(z.Items) == 0 || m.heat.IsLockdown(z.ID) {
			continue
		}
		for _, dp := range z.DropPoints {
			d := from.Distance(dp)
			if d >= m.cfg.MinDistance && d <= m.cfg.MaxDistance {
				pool = append(pool, candidate{zone: z, at: dp})
			}
		}
	}

	for i := len(pool) - 1; i > 0; i-- {
		j := m.rnd.IntN(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}

	picked := make([]candidate, 0, m.cfg.ContactCount)
	for _, c := range pool {
		if len(picked) == m.cfg.ContactCount {
			break
		}
		if separated(c.at, picked, m.cfg.MinSeparation) {
			picked = append(picked, c)
		}
	}
	return picked
}

func separated(at model.Location, picked []candidate, minSep float64) bool {
	for _, p := range picked {
		if at.Distance(p.at) < minSep {
			return false
		}
	}
	return true
}

// drawOrders picks distinct items from the zone with random quantities.
func (m *Manager) drawOrders(cat *data.Catalog, z *data.ZoneDef) ([]Order, int64) {
	items := make([]string, 0, len(z.Items))
	for _, zi := range z.Items {
		items = append(items, zi.ItemID)
	}
	for i := len(items) - 1; i > 0; i-- {
		j := m.rnd.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}

	n := min(roll.IntBetween(m.rnd, m.cfg.MinOrders, m.cfg.MaxOrders), len(items))
	orders := make([]Order, 0, n)
	var total float64
	for _, id := range items[:n] {
		base, ok := cat.ZonePrice(z, id)
		if !ok {
			continue
		}
		qty := roll.IntBetween(m.rnd, m.cfg.MinQuantity, m.cfg.MaxQuantity)
		orders = append(orders, Order{ItemID: id, Quantity: qty, UnitPrice: base})
		total += float64(base) * float64(qty)
	}
	return orders, int64(math.Round(total * m.cfg.PaymentMultiplier))
}

// Contacts returns the player's unexpired offers.
func (m *Manager) Contacts(citizen model.CitizenID) []Contact {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[citizen]
	if !ok {
		return nil
	}
	live := o.contacts[:0]
	for _, c := range o.contacts {
		if now.Before(c.ExpiresAt) {
			live = append(live, c)
		}
	}
	o.contacts = live
	if len(live) == 0 {
		delete(m.offers, citizen)
		return nil
	}
	return cloneContacts(live)
}

func cloneContacts(in []Contact) []Contact {
	out := make([]Contact, len(in))
	for i, c := range in {
		c.Orders = append([]Order(nil), c.Orders...)
		out[i] = c
	}
	return out
}

// lookup returns the player's live session, evicting it when expired. Must
// hold m.mu.
func (m *Manager) lookup(citizen model.CitizenID) (*Session, error) {
	s, ok := m.sessions[citizen]
	if !ok {
		return nil, reject.New(reject.CodeNoSession, "no delivery in progress")
	}
	if s.busy {
		return nil, reject.New(reject.CodeDeliveryOpen, "delivery is being settled")
	}
	if s.expired(m.now()) {
		delete(m.sessions, citizen)
		return nil, reject.New(reject.CodeSessionExpired, "the contact stopped waiting")
	}
	return s, nil
}

// Accept takes one of the player's offers. The player must carry the whole
// order at acceptance; Complete checks again.
func (m *Manager) Accept(ctx context.Context, citizen model.CitizenID, contactID uuid.UUID, group string) (Session, error) {
	now := m.now()

	m.mu.Lock()
	if s, ok := m.sessions[citizen]; ok {
		if s.busy || !s.expired(now) {
			m.mu.Unlock()
			return Session{}, reject.New(reject.CodeDeliveryOpen, "a delivery is already in progress")
		}
		delete(m.sessions, citizen)
	}
	contact, err := m.offer(citizen, contactID, now)
	m.mu.Unlock()
	if err != nil {
		return Session{}, err
	}

	if m.heat.IsLockdown(contact.ZoneID) {
		return Session{}, reject.New(reject.CodeLockdown, contact.ZoneID)
	}
	if err := m.verifyStock(ctx, citizen, contact.Orders); err != nil {
		return Session{}, err
	}

	s := &Session{
		Contact:   contact,
		CitizenID: citizen,
		Group:     group,
		StartedAt: now,
		ExpiresAt: now.Add(m.cfg.DeliveryTTL),
	}

	m.mu.Lock()
	if _, taken := m.sessions[citizen]; taken {
		m.mu.Unlock()
		return Session{}, reject.New(reject.CodeDeliveryOpen, "a delivery is already in progress")
	}
	if _, err := m.offer(citizen, contactID, now); err != nil {
		m.mu.Unlock()
		return Session{}, err
	}
	m.sessions[citizen] = s
	delete(m.offers, citizen)
	snap := *s
	m.mu.Unlock()

	slog.Info("delivery accepted",
		"citizen", citizen,
		"contact", contact.ID,
		"zone", contact.ZoneID,
		"payment", contact.Payment)
	m.events.Publish(events.Event{
		Kind:      events.KindDeliveryAccept,
		ZoneID:    contact.ZoneID,
		CitizenID: citizen,
		At:        now,
		Data:      map[string]any{"contact": contact.ID.String(), "payment": contact.Payment, "orders": len(contact.Orders)},
	})
	return snap, nil
}

// offer finds an unexpired offer. Must hold m.mu.
func (m *Manager) offer(citizen model.CitizenID, id uuid.UUID, now time.Time) (Contact, error) {
	o, ok := m.offers[citizen]
	if !ok {
		return Contact{}, reject.New(reject.CodeInvalidContact, id.String())
	}
	for _, c := range o.contacts {
		if c.ID != id {
			continue
		}
		if !now.Before(c.ExpiresAt) {
			return Contact{}, reject.New(reject.CodeSessionExpired, "the offer has expired")
		}
		c.Orders = append([]Order(nil), c.Orders...)
		return c, nil
	}
	return Contact{}, reject.New(reject.CodeInvalidContact, id.String())
}

func (m *Manager) verifyStock(ctx context.Context, citizen model.CitizenID, orders []Order) error {
	for _, o := range orders {
		have, err := m.auth.GetItemCount(ctx, citizen, o.ItemID)
		if err != nil {
			return fmt.Errorf("checking %s stock for %s: %w", o.ItemID, citizen, err)
		}
		if have < o.Quantity {
			return reject.MissingItem(o.ItemID, o.Quantity, have)
		}
	}
	return nil
}

// Complete hands the goods over at the contact's location.
func (m *Manager) Complete(ctx context.Context, citizen model.CitizenID) (Result, error) {
	m.mu.Lock()
	s, err := m.lookup(citizen)
	if err != nil {
		m.mu.Unlock()
		return Result{}, err
	}
	p, ok := m.players.Snapshot(citizen)
	if !ok || p.Location.Distance(s.Contact.Location) > m.cfg.CompletionRadius {
		m.mu.Unlock()
		return Result{}, reject.New(reject.CodeNotInRange, s.Contact.Name)
	}
	s.busy = true
	snap := *s
	m.mu.Unlock()

	res, closed, err := m.settle(ctx, snap)
	m.mu.Lock()
	if closed {
		if cur, ok := m.sessions[citizen]; ok && cur == s {
			delete(m.sessions, citizen)
		}
	} else {
		s.busy = false
	}
	m.mu.Unlock()
	return res, err
}

// settle runs the handover. closed reports whether the session is over.
func (m *Manager) settle(ctx context.Context, s Session) (Result, bool, error) {
	c := s.Contact
	if err := m.verifyStock(ctx, s.CitizenID, c.Orders); err != nil {
		return Result{}, false, err
	}

	primary := m.riskiest(c.Orders)
	outcome, err := m.risk.Roll(ctx, c.ZoneID, primary.ItemID, s.CitizenID)
	if err != nil {
		return Result{}, false, fmt.Errorf("rolling risk: %w", err)
	}
	if outcome != nil {
		taken, err := m.risk.Apply(ctx, outcome, s.CitizenID, c.ZoneID, primary.ItemID, primary.Quantity)
		if err != nil {
			slog.Error("applying risk outcome", "citizen", s.CitizenID, "outcome", outcome.ID, "error", err)
		}
		if outcome.RemovesItems {
			for _, o := range c.Orders {
				if o.ItemID == primary.ItemID {
					continue
				}
				if ok, err := m.auth.RemoveItem(ctx, s.CitizenID, o.ItemID, o.Quantity); err != nil {
					slog.Error("confiscating delivery goods", "citizen", s.CitizenID, "item", o.ItemID, "error", err)
				} else if ok {
					taken += o.Quantity
				}
			}
		}
		return Result{
			ContactID:  c.ID,
			Risk:       outcome,
			ItemsTaken: taken,
			Reputation: m.heat.GetReputation(s.CitizenID, c.ZoneID),
		}, true, nil
	}

	var removed []Order
	for _, o := range c.Orders {
		ok, err := m.auth.RemoveItem(ctx, s.CitizenID, o.ItemID, o.Quantity)
		if err == nil && !ok {
			err = reject.MissingItem(o.ItemID, o.Quantity, 0)
		}
		if err != nil {
			m.restore(ctx, s.CitizenID, removed)
			if _, isReject := reject.As(err); isReject {
				return Result{}, false, err
			}
			return Result{}, false, fmt.Errorf("removing %d %s from %s: %w", o.Quantity, o.ItemID, s.CitizenID, err)
		}
		removed = append(removed, o)
	}

	memo := fmt.Sprintf("delivery %s to %s", c.ID, c.Name)
	if err := m.auth.AddMoney(ctx, s.CitizenID, c.Payment, memo); err != nil {
		m.restore(ctx, s.CitizenID, removed)
		return Result{}, false, fmt.Errorf("paying %d to %s: %w", c.Payment, s.CitizenID, err)
	}

	units := 0
	for _, o := range c.Orders {
		units += o.Quantity
	}
	rep := m.heat.AddReputation(s.CitizenID, c.ZoneID, m.heat.ReputationConfig().DeliveryGain)
	m.heat.RecordSale(s.CitizenID, c.ZoneID, c.Payment)
	m.heat.AddHeat(c.ZoneID, m.cfg.HeatPerDelivery)
	m.ledger.Notify(ctx, s.Group, ledger.ActivityDelivery, units)

	slog.Info("delivery completed",
		"citizen", s.CitizenID,
		"contact", c.ID,
		"zone", c.ZoneID,
		"payment", c.Payment,
		"reputation", rep)
	m.events.Publish(events.Event{
		Kind:      events.KindDeliveryDone,
		ZoneID:    c.ZoneID,
		CitizenID: s.CitizenID,
		At:        m.now(),
		Data:      map[string]any{"contact": c.ID.String(), "payment": c.Payment, "units": units},
	})
	return Result{ContactID: c.ID, Payment: c.Payment, Reputation: rep}, true, nil
}

func (m *Manager) riskiest(orders []Order) Order {
	cat := m.catalog.Current()
	best := orders[0]
	for _, o := range orders[1:] {
		if cat.RiskModifier(o.ItemID) > cat.RiskModifier(best.ItemID) {
			best = o
		}
	}
	return best
}

func (m *Manager) restore(ctx context.Context, citizen model.CitizenID, orders []Order) {
	for _, o := range orders {
		if _, err := m.auth.AddItem(ctx, citizen, o.ItemID, o.Quantity); err != nil {
			slog.Error("restoring delivery goods", "citizen", citizen, "item", o.ItemID, "qty", o.Quantity, "error", err)
		}
	}
}

// Cancel abandons the active delivery at a reputation cost.
func (m *Manager) Cancel(_ context.Context, citizen model.CitizenID) error {
	m.mu.Lock()
	s, err := m.lookup(citizen)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	delete(m.sessions, citizen)
	snap := *s
	m.mu.Unlock()

	rep := m.heat.RemoveReputation(citizen, snap.Contact.ZoneID, m.heat.ReputationConfig().CancelPenalty)
	slog.Info("delivery cancelled", "citizen", citizen, "contact", snap.Contact.ID, "reputation", rep)
	m.events.Publish(events.Event{
		Kind:      events.KindDeliveryCancel,
		ZoneID:    snap.Contact.ZoneID,
		CitizenID: citizen,
		At:        m.now(),
		Data:      map[string]any{"contact": snap.Contact.ID.String()},
	})
	return nil
}

// Active returns the player's live delivery.
func (m *Manager) Active(citizen model.CitizenID) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[citizen]
	if !ok {
		return Session{}, false
	}
	if !s.busy && s.expired(m.now()) {
		delete(m.sessions, citizen)
		return Session{}, false
	}
	return *s, true
}

// Drop forgets the player's offers and delivery without penalty
// (disconnect). The generation cooldown survives.
func (m *Manager) Drop(citizen model.CitizenID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.offers, citizen)
	if s, ok := m.sessions[citizen]; ok && !s.busy {
		delete(m.sessions, citizen)
	}
}

// ExpireStale evicts expired deliveries and offers. Returns how many
// deliveries were removed.
func (m *Manager) ExpireStale() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if !s.busy && s.expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	for id, o := range m.offers {
		if now.Sub(o.generatedAt) >= m.cfg.OfferTTL {
			delete(m.offers, id)
		}
	}
	for id, last := range m.lastGen {
		if now.Sub(last) >= m.cfg.Cooldown {
			delete(m.lastGen, id)
		}
	}
	return n
}
