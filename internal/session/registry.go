// Package session tracks connected players and runs the connect and
// disconnect hooks the zone core depends on.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/model"
)

// Dropper discards a player's open per-player state without penalty.
// Negotiation and delivery implement it.
type Dropper interface {
	Drop(citizen model.CitizenID)
}

// Tracker mirrors connected players into a world that answers
// Players.Snapshot from its own table. world.Static implements it.
type Tracker interface {
	SetPlayer(p model.PlayerSnapshot)
	RemovePlayer(id model.CitizenID)
}

// Info describes one connected player.
type Info struct {
	CitizenID   model.CitizenID `json:"citizen_id"`
	Group       string          `json:"group,omitempty"`
	Location    model.Location  `json:"location"`
	ConnectedAt time.Time       `json:"connected_at"`
	LastSeen    time.Time       `json:"last_seen"`
}

// Registry управляет сессиями игроков. Thread-safe через sync.Map.
type Registry struct {
	heat     *heat.Manager
	zones    *zone.Manager
	droppers []Dropper
	tracker  Tracker
	now      func() time.Time

	sessions sync.Map // map[model.CitizenID]*Info
}

// NewRegistry creates a registry. droppers are called on disconnect.
func NewRegistry(hm *heat.Manager, zones *zone.Manager, droppers ...Dropper) *Registry {
	return &Registry{heat: hm, zones: zones, droppers: droppers, now: time.Now}
}

// SetTracker mirrors every connect, update and disconnect into t.
func (r *Registry) SetTracker(t Tracker) { r.tracker = t }

// SetClock replaces the time source. Tests only.
func (r *Registry) SetClock(now func() time.Time) { r.now = now }

// Connect registers the player, loads their reputation and places them in
// the zones at their position. A failed reputation load is logged and
// retried on the next connect; the player continues on cached values.
func (r *Registry) Connect(ctx context.Context, p model.PlayerSnapshot) {
	now := r.now()
	info := &Info{
		CitizenID:   p.CitizenID,
		Group:       p.Group,
		Location:    p.Location,
		ConnectedAt: now,
		LastSeen:    now,
	}
	if prev, ok := r.sessions.Load(p.CitizenID); ok {
		info.ConnectedAt = prev.(*Info).ConnectedAt
	}
	r.sessions.Store(p.CitizenID, info)
	if r.tracker != nil {
		r.tracker.SetPlayer(p)
	}

	if err := r.heat.LoadForPlayer(ctx, p.CitizenID); err != nil {
		slog.Error("loading reputation on connect", "citizen", p.CitizenID, "error", err)
	}
	r.zones.Revalidate(p)
	slog.Info("player connected", "citizen", p.CitizenID, "group", p.Group)
}

// Update records a position change and re-evaluates zone membership.
// Returns false for players that are not connected.
func (r *Registry) Update(p model.PlayerSnapshot) bool {
	v, ok := r.sessions.Load(p.CitizenID)
	if !ok {
		return false
	}
	info := *v.(*Info)
	info.Location = p.Location
	info.LastSeen = r.now()
	if p.Group != "" {
		info.Group = p.Group
	}
	r.sessions.Store(p.CitizenID, &info)
	if r.tracker != nil {
		r.tracker.SetPlayer(p)
	}

	r.zones.Revalidate(p)
	return true
}

// Disconnect drops the player's open sessions, removes them from every zone
// and flushes their reputation. Safe to call more than once.
func (r *Registry) Disconnect(ctx context.Context, citizen model.CitizenID) {
	if _, ok := r.sessions.LoadAndDelete(citizen); !ok {
		return
	}

	for _, d := range r.droppers {
		d.Drop(citizen)
	}
	r.zones.RemoveFromAll(citizen)
	if r.tracker != nil {
		r.tracker.RemovePlayer(citizen)
	}

	if err := r.heat.UnloadPlayer(ctx, citizen); err != nil {
		// Грязные записи остаются в кэше, flush loop подберёт их.
		slog.Error("flushing reputation on disconnect", "citizen", citizen, "error", err)
	}
	slog.Info("player disconnected", "citizen", citizen)
}

// Get returns the session of a connected player.
func (r *Registry) Get(citizen model.CitizenID) (Info, bool) {
	v, ok := r.sessions.Load(citizen)
	if !ok {
		return Info{}, false
	}
	return *v.(*Info), true
}

// Count returns the number of connected players.
func (r *Registry) Count() int {
	count := 0
	r.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// CleanIdle disconnects players not seen for longer than ttl. Returns how
// many were removed.
func (r *Registry) CleanIdle(ctx context.Context, ttl time.Duration) int {
	now := r.now()
	var idle []model.CitizenID
	r.sessions.Range(func(key, value any) bool {
		if now.Sub(value.(*Info).LastSeen) > ttl {
			idle = append(idle, key.(model.CitizenID))
		}
		return true
	})
	for _, id := range idle {
		r.Disconnect(ctx, id)
	}
	return len(idle)
}

// RunIdleLoop sweeps idle sessions every interval until ctx is cancelled.
func (r *Registry) RunIdleLoop(ctx context.Context, ttl, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := r.CleanIdle(ctx, ttl); n > 0 {
				slog.Info("idle sessions removed", "count", n)
			}
		}
	}
}
