package commands

import (
	"context"
	"fmt"

	"github.com/udisondev/hotzone/internal/admin"
	"github.com/udisondev/hotzone/internal/heat"
)

// Rep handles /rep <zone>: shows the caller's standing in a zone.
type Rep struct {
	heat *heat.Manager
}

// NewRep creates the rep user command.
func NewRep(hm *heat.Manager) *Rep { return &Rep{heat: hm} }

func (c *Rep) Names() []string { return []string{"rep", "reputation"} }

func (c *Rep) Handle(_ context.Context, op admin.Operator, params string) (string, error) {
	if params == "" {
		return "", fmt.Errorf("usage: /rep <zone>")
	}
	r := c.heat.Record(op.CitizenID, params)
	return fmt.Sprintf("%s: reputation %.1f, %d sales, %d earned", params, r.Reputation, r.TotalSales, r.TotalEarned), nil
}

// Heat handles /heat <zone>.
type Heat struct {
	heat *heat.Manager
}

// NewHeat creates the heat user command.
func NewHeat(hm *heat.Manager) *Heat { return &Heat{heat: hm} }

func (c *Heat) Names() []string { return []string{"heat"} }

func (c *Heat) Handle(_ context.Context, _ admin.Operator, params string) (string, error) {
	if params == "" {
		return "", fmt.Errorf("usage: /heat <zone>")
	}
	s := c.heat.Summary(params)
	switch {
	case s.Lockdown:
		return fmt.Sprintf("%s is locked down", params), nil
	case c.heat.IsDangerous(params):
		return fmt.Sprintf("%s is dangerous (heat %.0f)", params, s.Heat), nil
	default:
		return fmt.Sprintf("%s heat %.0f", params, s.Heat), nil
	}
}
