// Package events carries zone activity to passive consumers such as the
// audit journal and the observer stream.
package events

import (
	"time"

	"github.com/udisondev/hotzone/internal/model"
)

// Kind names an event type.
type Kind string

const (
	KindSale            Kind = "sale"
	KindWalkAway        Kind = "walk_away"
	KindRefuse          Kind = "refuse"
	KindRisk            Kind = "risk"
	KindLockdown        Kind = "lockdown"
	KindLockdownCleared Kind = "lockdown_cleared"
	KindHeatSet         Kind = "heat_set"
	KindBuyerSpawn      Kind = "buyer_spawn"
	KindBuyerLeave      Kind = "buyer_leave"
	KindAlert           Kind = "alert"
	KindWave            Kind = "wave"
	KindObjectiveOpened Kind = "objective_opened"
	KindObjectiveLocked Kind = "objective_locked"
	KindDeliveryAccept  Kind = "delivery_accept"
	KindDeliveryDone    Kind = "delivery_done"
	KindDeliveryCancel  Kind = "delivery_cancel"
	KindZoneActivated   Kind = "zone_activated"
	KindZoneDeactivated Kind = "zone_deactivated"
)

// Event is one zone occurrence.
type Event struct {
	Kind      Kind            `json:"kind"`
	ZoneID    string          `json:"zone_id,omitempty"`
	CitizenID model.CitizenID `json:"citizen_id,omitempty"`
	At        time.Time       `json:"at"`
	Data      map[string]any  `json:"data,omitempty"`
}

// Sink receives events. Publish must not block the caller.
type Sink interface {
	Publish(Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(Event) {}

// Fanout delivers each event to every sink in order.
type Fanout []Sink

func (f Fanout) Publish(e Event) {
	for _, s := range f {
		s.Publish(e)
	}
}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}
