package zone

import (
	"sync"

	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/model"
)

// Zone is one encounter zone: its static definition, precomputed bounds and
// the set of players currently inside.
type Zone struct {
	def *data.ZoneDef

	minX, maxX float64
	minY, maxY float64

	// Игроки внутри зоны. Key: model.CitizenID.
	players sync.Map
}

func newZone(def *data.ZoneDef) *Zone {
	z := &Zone{def: def}
	z.minX, z.minY, z.maxX, z.maxY = bounds(def)
	return z
}

func bounds(def *data.ZoneDef) (minX, minY, maxX, maxY float64) {
	if len(def.Nodes) == 0 {
		return 0, 0, 0, 0
	}
	if def.Shape == data.ShapeCylinder {
		c := def.Nodes[0]
		return c.X - def.Radius, c.Y - def.Radius, c.X + def.Radius, c.Y + def.Radius
	}
	minX, maxX = def.Nodes[0].X, def.Nodes[0].X
	minY, maxY = def.Nodes[0].Y, def.Nodes[0].Y
	for _, n := range def.Nodes[1:] {
		minX = min(minX, n.X)
		maxX = max(maxX, n.X)
		minY = min(minY, n.Y)
		maxY = max(maxY, n.Y)
	}
	return minX, minY, maxX, maxY
}

// ID returns the zone identifier.
func (z *Zone) ID() string { return z.def.ID }

// Kind returns data.KindBuyer or data.KindSecurity.
func (z *Zone) Kind() string { return z.def.Kind }

// Def returns the static definition. Callers must not modify it.
func (z *Zone) Def() *data.ZoneDef { return z.def }

// Contains reports whether loc is inside the zone geometry. A zone with
// MinZ == MaxZ == 0 has no vertical bound.
func (z *Zone) Contains(loc model.Location) bool {
	if (z.def.MinZ != 0 || z.def.MaxZ != 0) && (loc.Z < z.def.MinZ || loc.Z > z.def.MaxZ) {
		return false
	}
	if len(z.def.Nodes) == 0 {
		return false
	}

	switch z.def.Shape {
	case data.ShapeCylinder:
		return z.containsCylinder(loc)
	case data.ShapeCuboid:
		return z.containsCuboid(loc)
	default:
		return z.containsNPoly(loc)
	}
}

func (z *Zone) containsCuboid(loc model.Location) bool {
	if len(z.def.Nodes) < 2 {
		return false
	}
	return loc.X >= z.minX && loc.X <= z.maxX && loc.Y >= z.minY && loc.Y <= z.maxY
}

func (z *Zone) containsCylinder(loc model.Location) bool {
	if z.def.Radius <= 0 {
		return false
	}
	c := z.def.Nodes[0]
	dx := loc.X - c.X
	dy := loc.Y - c.Y
	return dx*dx+dy*dy <= z.def.Radius*z.def.Radius
}

// containsNPoly: ray casting, точка на границе считается внутри.
func (z *Zone) containsNPoly(loc model.Location) bool {
	nodes := z.def.Nodes
	n := len(nodes)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := range n {
		yi, yj := nodes[i].Y, nodes[j].Y
		if (yi > loc.Y) != (yj > loc.Y) {
			slope := (loc.X-nodes[i].X)*(yj-yi) - (nodes[j].X-nodes[i].X)*(loc.Y-yi)
			if slope == 0 {
				return true
			}
			if (slope < 0) != (yj < yi) {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// revalidate updates membership for p. Returns whether p just entered or
// just left.
func (z *Zone) revalidate(p model.PlayerSnapshot) (entered, exited bool) {
	if z.Contains(p.Location) {
		_, loaded := z.players.LoadOrStore(p.CitizenID, struct{}{})
		return !loaded, false
	}
	return false, z.remove(p.CitizenID)
}

func (z *Zone) remove(citizen model.CitizenID) bool {
	_, loaded := z.players.LoadAndDelete(citizen)
	return loaded
}

// Has reports whether the player is tracked inside the zone.
func (z *Zone) Has(citizen model.CitizenID) bool {
	_, ok := z.players.Load(citizen)
	return ok
}

// PlayersInside returns the players currently tracked in this zone.
func (z *Zone) PlayersInside() []model.CitizenID {
	var out []model.CitizenID
	z.players.Range(func(k, _ any) bool {
		out = append(out, k.(model.CitizenID))
		return true
	})
	return out
}

// PlayerCount returns the number of players tracked in this zone.
func (z *Zone) PlayerCount() int {
	n := 0
	z.players.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
