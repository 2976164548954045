package commands

import (
	"context"
	"fmt"

	"github.com/udisondev/hotzone/internal/admin"
	"github.com/udisondev/hotzone/internal/game/zone"
)

// ReloadZones handles //reloadzones: re-reads the catalog, rebuilds zone
// geometry and restarts active instances.
type ReloadZones struct {
	catalog     CatalogSource
	zones       *zone.Manager
	controllers []Reloadable
}

// NewReloadZones creates the reloadzones command handler.
func NewReloadZones(catalog CatalogSource, zones *zone.Manager, controllers ...Reloadable) *ReloadZones {
	return &ReloadZones{catalog: catalog, zones: zones, controllers: controllers}
}

func (c *ReloadZones) Names() []string            { return []string{"reloadzones"} }
func (c *ReloadZones) RequiredAccessLevel() int32 { return admin.LevelAdministrator }

func (c *ReloadZones) Handle(_ context.Context, _ admin.Operator, _ []string) (string, error) {
	if err := c.catalog.Reload(); err != nil {
		return "", err
	}
	cat := c.catalog.Current()
	c.zones.Load(cat)
	for _, ctl := range c.controllers {
		ctl.Reload()
	}
	return fmt.Sprintf("Reloaded %d zones", len(cat.Zones)), nil
}
