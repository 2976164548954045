package buyerzone

import (
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/game/roll"
)

// defaultMaxActors applies when a zone does not set max_actors.
const defaultMaxActors = 3

// Eligible returns the archetypes that may spawn in z for a player with
// reputation rep. Risky archetypes are removed when the zone is dangerous.
func Eligible(cat *data.Catalog, z *data.ZoneDef, rep float64, dangerous bool) []*data.BuyerArchetype {
	out := make([]*data.BuyerArchetype, 0, len(cat.Buyers))
	for i := range cat.Buyers {
		a := &cat.Buyers[i]
		if rep < a.MinReputation {
			continue
		}
		if dangerous && a.Risky {
			continue
		}
		if cat.BuyerWeight(z, a) <= 0 {
			continue
		}
		out = append(out, a)
	}
	return out
}

// PickArchetype draws one eligible archetype by zone-adjusted spawn weight.
func PickArchetype(src roll.Source, cat *data.Catalog, z *data.ZoneDef, rep float64, dangerous bool) (*data.BuyerArchetype, bool) {
	pool := Eligible(cat, z, rep, dangerous)
	i, ok := roll.Weighted(src, pool, func(a *data.BuyerArchetype) float64 { return cat.BuyerWeight(z, a) })
	if !ok {
		return nil, false
	}
	return pool[i], true
}

func maxActors(z *data.ZoneDef) int {
	if z.MaxActors > 0 {
		return z.MaxActors
	}
	return defaultMaxActors
}
