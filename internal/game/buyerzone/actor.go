package buyerzone

import (
	"time"

	"github.com/udisondev/hotzone/internal/model"
)

// ActorState is where a buyer is in its encounter with a player.
type ActorState int

const (
	StateIdle ActorState = iota
	StateApproaching
	StateWaiting
	StateNegotiating
	// StateRisk holds an actor for one tick after its deal went wrong.
	StateRisk
	StateLeaving
)

// String returns human-readable state name
func (s ActorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateApproaching:
		return "approaching"
	case StateWaiting:
		return "waiting"
	case StateNegotiating:
		return "negotiating"
	case StateRisk:
		return "risk"
	case StateLeaving:
		return "leaving"
	default:
		return "unknown"
	}
}

// Actor is a spawned buyer.
type Actor struct {
	ID          model.ActorID   `json:"id"`
	ArchetypeID string          `json:"archetype_id"`
	State       ActorState      `json:"state"`
	Target      model.CitizenID `json:"target,omitempty"`
	Home        model.Location  `json:"home"`
	SpawnedAt   time.Time       `json:"spawned_at"`
	// StateSince is when the actor entered its current state.
	StateSince time.Time `json:"state_since"`
	// Hostile is set when the risk outcome that ended the deal turns the
	// buyer on the player.
	Hostile bool `json:"hostile,omitempty"`
}

func (a *Actor) set(s ActorState, now time.Time) {
	a.State = s
	a.StateSince = now
}

// live reports whether the actor counts toward the zone population.
func (a *Actor) live() bool {
	return a.State != StateLeaving
}
