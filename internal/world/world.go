// Package world declares the capabilities the zone core consumes from the
// physical game world. Geometry queries and actor movement are executed by the
// host engine; the core never re-implements them.
package world

import (
	"context"

	"github.com/udisondev/hotzone/internal/model"
)

// Geometry answers spatial questions about the loaded map.
type Geometry interface {
	// LineOfSight reports whether the segment from→to is unobstructed.
	LineOfSight(from, to model.Location) bool
	// IsFacing reports whether actor's view cone contains target.
	IsFacing(actor model.ActorID, target model.Location) bool
}

// SpawnRequest describes an actor the core wants the host to create.
type SpawnRequest struct {
	ZoneID      string
	ArchetypeID string
	Model       string
	Location    model.Location
	Armed       bool
}

// Actors drives transient actors. Implementations execute pathfinding and
// animation; the core only issues intents.
type Actors interface {
	Spawn(ctx context.Context, req SpawnRequest) (model.ActorID, error)
	Despawn(id model.ActorID)
	MoveTo(id model.ActorID, dst model.Location)
	Location(id model.ActorID) (model.Location, bool)
	// Engage switches the actor to hostile combat behavior against the player.
	Engage(id model.ActorID, target model.CitizenID)
}

// Players exposes the current snapshot of an online player.
type Players interface {
	Snapshot(id model.CitizenID) (model.PlayerSnapshot, bool)
}

// World bundles the three capabilities. Hosts usually implement all of them on
// one adapter.
type World interface {
	Geometry
	Actors
	Players
}
