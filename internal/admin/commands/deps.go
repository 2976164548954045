package commands

import (
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/observer"
)

// CatalogSource is the reloadable zone catalog.
type CatalogSource interface {
	Reload() error
	Current() *data.Catalog
}

// Reloadable restarts its active state against the current catalog.
// Buyer and security controllers implement it.
type Reloadable interface {
	Reload()
}

// Deps bundles what the command set needs.
type Deps struct {
	Heat        *heat.Manager
	Zones       *zone.Manager
	Catalog     CatalogSource
	Controllers []Reloadable
	Snapshot    observer.Source
}
