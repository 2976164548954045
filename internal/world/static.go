package world

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/udisondev/hotzone/internal/model"
)

// Static is an in-process World used by the dev server and tests. Actors teleport
// to their destination, line of sight is always clear unless a blocker is
// registered, and facing is answered from an explicit table.
type Static struct {
	nextID atomic.Uint32

	mu       sync.RWMutex
	actors   map[model.ActorID]model.Location
	facing   map[model.ActorID]bool
	blocked  map[model.ActorID]bool
	players  map[model.CitizenID]model.PlayerSnapshot
	engaged  map[model.ActorID]model.CitizenID
	blockAll bool
}

var _ World = (*Static)(nil)

// NewStatic creates an empty static world.
func NewStatic() *Static {
	return &Static{
		actors:  make(map[model.ActorID]model.Location),
		facing:  make(map[model.ActorID]bool),
		blocked: make(map[model.ActorID]bool),
		players: make(map[model.CitizenID]model.PlayerSnapshot),
		engaged: make(map[model.ActorID]model.CitizenID),
	}
}

// SetPlayer stores or replaces a player snapshot.
func (w *Static) SetPlayer(s model.PlayerSnapshot) {
	w.mu.Lock()
	w.players[s.CitizenID] = s
	w.mu.Unlock()
}

// RemovePlayer forgets a player snapshot.
func (w *Static) RemovePlayer(id model.CitizenID) {
	w.mu.Lock()
	delete(w.players, id)
	w.mu.Unlock()
}

// SetFacing marks whether an actor currently faces whatever it is asked about.
func (w *Static) SetFacing(id model.ActorID, facing bool) {
	w.mu.Lock()
	w.facing[id] = facing
	w.mu.Unlock()
}

// SetOccluded blocks line of sight from the given actor's location.
func (w *Static) SetOccluded(id model.ActorID, occluded bool) {
	w.mu.Lock()
	w.blocked[id] = occluded
	w.mu.Unlock()
}

// SetBlockAll blocks every line-of-sight query.
func (w *Static) SetBlockAll(block bool) {
	w.mu.Lock()
	w.blockAll = block
	w.mu.Unlock()
}

func (w *Static) LineOfSight(from, _ model.Location) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.blockAll {
		return false
	}
	for id, loc := range w.actors {
		if loc == from && w.blocked[id] {
			return false
		}
	}
	return true
}

func (w *Static) IsFacing(actor model.ActorID, _ model.Location) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.facing[actor]
}

func (w *Static) Spawn(_ context.Context, req SpawnRequest) (model.ActorID, error) {
	id := model.ActorID(w.nextID.Add(1))
	w.mu.Lock()
	w.actors[id] = req.Location
	w.mu.Unlock()
	return id, nil
}

func (w *Static) Despawn(id model.ActorID) {
	w.mu.Lock()
	delete(w.actors, id)
	delete(w.facing, id)
	delete(w.blocked, id)
	delete(w.engaged, id)
	w.mu.Unlock()
}

func (w *Static) MoveTo(id model.ActorID, dst model.Location) {
	w.mu.Lock()
	if _, ok := w.actors[id]; ok {
		w.actors[id] = dst
	}
	w.mu.Unlock()
}

func (w *Static) Location(id model.ActorID) (model.Location, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	loc, ok := w.actors[id]
	return loc, ok
}

func (w *Static) Engage(id model.ActorID, target model.CitizenID) {
	w.mu.Lock()
	w.engaged[id] = target
	w.mu.Unlock()
}

// Engaged reports who the actor was told to fight, for tests.
func (w *Static) Engaged(id model.ActorID) (model.CitizenID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.engaged[id]
	return c, ok
}

// ActorCount returns the number of live actors.
func (w *Static) ActorCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.actors)
}

func (w *Static) Snapshot(id model.CitizenID) (model.PlayerSnapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.players[id]
	return s, ok
}
