package commands

import "github.com/udisondev/hotzone/internal/admin"

// RegisterAll registers all admin and user commands into the handler.
func RegisterAll(h *admin.Handler, d Deps) {
	// Admin commands (// prefix)
	h.RegisterAdmin(NewSetHeat(d.Heat, d.Zones))
	h.RegisterAdmin(NewSetRep(d.Heat, d.Zones))
	h.RegisterAdmin(NewReloadZones(d.Catalog, d.Zones, d.Controllers...))
	h.RegisterAdmin(NewZoneInfo(d.Snapshot))

	// User commands (/ prefix)
	h.RegisterUser(NewRep(d.Heat))
	h.RegisterUser(NewHeat(d.Heat))
}
