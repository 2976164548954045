package observer

import (
	"slices"
	"strings"

	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/game/buyerzone"
	"github.com/udisondev/hotzone/internal/game/security"
	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/heat"
)

// ZoneState is one row of the zone snapshot.
type ZoneState struct {
	ZoneID   string           `json:"zone_id"`
	Kind     string           `json:"kind"`
	Players  int              `json:"players"`
	Active   bool             `json:"active"`
	Heat     heat.Summary     `json:"heat"`
	Buyers   int              `json:"buyers,omitempty"`
	Security *security.Status `json:"security,omitempty"`
}

// Board builds zone snapshots from the live managers. Either controller may
// be nil.
type Board struct {
	zones    *zone.Manager
	heat     *heat.Manager
	buyers   *buyerzone.Controller
	security *security.Controller
}

var _ Source = (*Board)(nil)

// NewBoard creates a Board.
func NewBoard(zones *zone.Manager, hm *heat.Manager, buyers *buyerzone.Controller, sec *security.Controller) *Board {
	return &Board{zones: zones, heat: hm, buyers: buyers, security: sec}
}

// Zones returns every known zone sorted by ID.
func (b *Board) Zones() []ZoneState {
	var statuses map[string]security.Status
	if b.security != nil {
		all := b.security.Statuses()
		statuses = make(map[string]security.Status, len(all))
		for _, st := range all {
			statuses[st.ZoneID] = st
		}
	}

	var out []ZoneState
	for _, kind := range []string{data.KindBuyer, data.KindSecurity} {
		for _, z := range b.zones.ZonesByKind(kind) {
			st := ZoneState{
				ZoneID:  z.ID(),
				Kind:    kind,
				Players: z.PlayerCount(),
				Heat:    b.heat.Summary(z.ID()),
			}
			switch kind {
			case data.KindBuyer:
				if b.buyers != nil {
					if inst := b.buyers.Instance(z.ID()); inst != nil {
						st.Active = true
						st.Buyers = len(inst.Actors())
					}
				}
			case data.KindSecurity:
				if s, ok := statuses[z.ID()]; ok {
					st.Active = true
					st.Security = &s
				}
			}
			out = append(out, st)
		}
	}

	slices.SortFunc(out, func(a, b ZoneState) int { return strings.Compare(a.ZoneID, b.ZoneID) })
	return out
}
