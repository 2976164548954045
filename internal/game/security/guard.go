package security

import (
	"math"
	"time"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/model"
)

// GuardStatus is a guard's combat disposition, driven by morale.
type GuardStatus int

const (
	StatusEngaged GuardStatus = iota
	StatusRetreating
	// StatusFleeing guards no longer take part in the zone.
	StatusFleeing
)

// String returns human-readable status name
func (s GuardStatus) String() string {
	switch s {
	case StatusEngaged:
		return "engaged"
	case StatusRetreating:
		return "retreating"
	case StatusFleeing:
		return "fleeing"
	default:
		return "unknown"
	}
}

const fullMorale = 100.0

// Guard is the runtime state of one guard actor.
type Guard struct {
	ActorID     model.ActorID  `json:"actor_id"`
	ArchetypeID string         `json:"archetype_id"`
	Role        string         `json:"role"`
	Post        model.Location `json:"post"`
	Suspicion   float64        `json:"suspicion"`
	Alerted     bool           `json:"alerted"`
	Morale      float64        `json:"morale"`
	Status      GuardStatus    `json:"status"`

	route      []model.Location
	routeIdx   int
	alive      bool
	baseRange  float64
	baseMorale float64

	// Стимулы морали, затухают со временем.
	shotAt  float64
	wounded float64
	hits    float64
}

func newGuard(id model.ActorID, post data.GuardPost, arch *data.GuardArchetype, fallbackRange float64) *Guard {
	g := &Guard{
		ActorID:     id,
		ArchetypeID: post.ArchetypeID,
		Role:        post.Role,
		Post:        post.Location,
		route:       post.Route,
		alive:       true,
		baseRange:   fallbackRange,
		baseMorale:  fullMorale,
	}
	if arch != nil {
		if arch.DetectionRange > 0 {
			g.baseRange = arch.DetectionRange
		}
		if arch.BaseMorale > 0 {
			g.baseMorale = arch.BaseMorale
		}
	}
	g.Morale = g.baseMorale
	return g
}

// Alive reports whether the guard is alive. Death is permanent.
func (g *Guard) Alive() bool { return g.alive }

// participating guards perceive, count toward the suspicion pool and fight.
func (g *Guard) participating() bool {
	return g.alive && g.Status != StatusFleeing
}

func (g *Guard) kill() {
	g.alive = false
	g.Suspicion = 0
	g.Alerted = false
}

// MoraleTarget is where the guard's morale is heading given the number of
// dead colleagues and its decaying stimuli.
func (g *Guard) MoraleTarget(cfg config.Morale, deadColleagues int) float64 {
	t := g.baseMorale - cfg.DeadColleague*float64(deadColleagues) - g.shotAt - g.wounded + g.hits
	return min(max(t, 0), fullMorale)
}

// UpdateMorale moves morale toward its target and updates Status. Fleeing
// is permanent.
func (g *Guard) UpdateMorale(cfg config.Morale, deadColleagues int, dt time.Duration) GuardStatus {
	if !g.alive || g.Status == StatusFleeing {
		return g.Status
	}
	sec := dt.Seconds()
	decay := cfg.StimulusDecay * sec
	g.shotAt = max(0, g.shotAt-decay)
	g.wounded = max(0, g.wounded-decay)
	g.hits = max(0, g.hits-decay)

	target := g.MoraleTarget(cfg, deadColleagues)
	step := cfg.Rate * sec
	if d := target - g.Morale; math.Abs(d) <= step {
		g.Morale = target
	} else if d > 0 {
		g.Morale += step
	} else {
		g.Morale -= step
	}

	switch {
	case g.Morale < cfg.FleeThreshold:
		g.Status = StatusFleeing
		g.Alerted = false
	case g.Morale < cfg.RetreatThreshold:
		g.Status = StatusRetreating
	case g.Status == StatusRetreating && g.Morale >= cfg.RecoverThreshold:
		g.Status = StatusEngaged
	}
	return g.Status
}

// nextWaypoint advances the patrol route when the guard has reached its
// current waypoint. Returns false for guards without a route.
func (g *Guard) nextWaypoint(at model.Location) (model.Location, bool) {
	if len(g.route) == 0 {
		return model.Location{}, false
	}
	if at.Distance2D(g.route[g.routeIdx]) <= 1 {
		g.routeIdx = (g.routeIdx + 1) % len(g.route)
	}
	return g.route[g.routeIdx], true
}

func nearest(from model.Location, points []model.Location) (model.Location, bool) {
	if len(points) == 0 {
		return model.Location{}, false
	}
	best := points[0]
	bestD := from.DistanceSquared(best)
	for _, p := range points[1:] {
		if d := from.DistanceSquared(p); d < bestD {
			best, bestD = p, d
		}
	}
	return best, true
}
