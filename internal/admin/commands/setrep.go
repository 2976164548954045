package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/udisondev/hotzone/internal/admin"
	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/model"
)

// SetRep handles //setrep <citizen> <zone> <value>.
type SetRep struct {
	heat  *heat.Manager
	zones *zone.Manager
}

// NewSetRep creates the setrep command handler.
func NewSetRep(hm *heat.Manager, zones *zone.Manager) *SetRep {
	return &SetRep{heat: hm, zones: zones}
}

func (c *SetRep) Names() []string            { return []string{"setrep"} }
func (c *SetRep) RequiredAccessLevel() int32 { return admin.LevelGameMaster }

func (c *SetRep) Handle(ctx context.Context, _ admin.Operator, args []string) (string, error) {
	if len(args) != 4 {
		return "", fmt.Errorf("usage: //setrep <citizen> <zone> <value>")
	}
	citizen := model.CitizenID(args[1])
	if c.zones.Zone(args[2]) == nil {
		return "", fmt.Errorf("zone %q not found", args[2])
	}
	value, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return "", fmt.Errorf("invalid reputation %q", args[3])
	}

	// Офлайн-игрока подгружаем, иначе следующий логин затрёт значение из БД.
	if !c.heat.IsLoaded(citizen) {
		if err := c.heat.LoadForPlayer(ctx, citizen); err != nil {
			return "", fmt.Errorf("loading reputation of %s: %w", citizen, err)
		}
	}

	got := c.heat.SetReputation(citizen, args[2], value)
	return fmt.Sprintf("Reputation of %s in %s set to %.1f", citizen, args[2], got), nil
}
