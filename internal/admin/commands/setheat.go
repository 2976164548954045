package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/udisondev/hotzone/internal/admin"
	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/heat"
)

// SetHeat handles //setheat <zone> <value>.
type SetHeat struct {
	heat  *heat.Manager
	zones *zone.Manager
}

// NewSetHeat creates the setheat command handler.
func NewSetHeat(hm *heat.Manager, zones *zone.Manager) *SetHeat {
	return &SetHeat{heat: hm, zones: zones}
}

func (c *SetHeat) Names() []string            { return []string{"setheat"} }
func (c *SetHeat) RequiredAccessLevel() int32 { return admin.LevelGameMaster }

func (c *SetHeat) Handle(_ context.Context, _ admin.Operator, args []string) (string, error) {
	if len(args) != 3 {
		return "", fmt.Errorf("usage: //setheat <zone> <value>")
	}
	if c.zones.Zone(args[1]) == nil {
		return "", fmt.Errorf("zone %q not found", args[1])
	}
	value, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return "", fmt.Errorf("invalid heat %q", args[2])
	}

	got := c.heat.SetHeat(args[1], value)
	reply := fmt.Sprintf("Heat of %s set to %.1f", args[1], got)
	if c.heat.IsLockdown(args[1]) {
		reply += " (lockdown)"
	}
	return reply, nil
}
