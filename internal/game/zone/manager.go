package zone

import (
	"log/slog"
	"math"
	"sync"

	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/model"
)

const gridSize = 512.0 // мировые единицы на ячейку сетки

type gridKey struct {
	gx, gy int64
}

type crossing struct {
	zone    *Zone
	entered bool
}

// Manager indexes zones spatially and fires enter/exit notifications.
type Manager struct {
	mu     sync.RWMutex
	byID   map[string]*Zone
	byKind map[string][]*Zone
	grid   map[gridKey][]*Zone
	// Зоны, в которых сейчас находится игрок.
	inside map[model.CitizenID]map[string]*Zone

	lmu       sync.RWMutex
	listeners map[string][]Listener
}

// NewManager creates a Manager populated from cat. A nil catalog yields an
// empty manager.
func NewManager(cat *data.Catalog) *Manager {
	m := &Manager{
		byID:      make(map[string]*Zone),
		byKind:    make(map[string][]*Zone),
		grid:      make(map[gridKey][]*Zone),
		inside:    make(map[model.CitizenID]map[string]*Zone),
		listeners: make(map[string][]Listener),
	}
	if cat != nil {
		m.Load(cat)
	}
	return m
}

// Subscribe registers l for crossings of zones of the given kind.
func (m *Manager) Subscribe(kind string, l Listener) {
	m.lmu.Lock()
	m.listeners[kind] = append(m.listeners[kind], l)
	m.lmu.Unlock()
}

// Load replaces the zone set with the zones of cat and rebuilds the grid.
// Players tracked in zones that no longer exist receive an exit; membership
// in surviving zones carries over.
func (m *Manager) Load(cat *data.Catalog) {
	byID := make(map[string]*Zone, len(cat.Zones))
	byKind := make(map[string][]*Zone, 2)
	for i := range cat.Zones {
		def := &cat.Zones[i]
		if len(def.Nodes) == 0 {
			slog.Warn("skip zone with no nodes", "zone", def.ID)
			continue
		}
		z := newZone(def)
		byID[def.ID] = z
		byKind[def.Kind] = append(byKind[def.Kind], z)
	}

	var exits []crossing
	var exitCitizens []model.CitizenID

	m.mu.Lock()
	for citizen, set := range m.inside {
		for id, old := range set {
			nz, ok := byID[id]
			if !ok {
				delete(set, id)
				exits = append(exits, crossing{zone: old})
				exitCitizens = append(exitCitizens, citizen)
				continue
			}
			nz.players.Store(citizen, struct{}{})
			set[id] = nz
		}
		if len(set) == 0 {
			delete(m.inside, citizen)
		}
	}
	m.byID = byID
	m.byKind = byKind
	m.grid = buildGrid(byID)
	cells := len(m.grid)
	m.mu.Unlock()

	for i, c := range exits {
		m.notify(c, model.PlayerSnapshot{CitizenID: exitCitizens[i]})
	}

	slog.Info("zone manager initialized",
		"zones", len(byID),
		"buyer", len(byKind[data.KindBuyer]),
		"security", len(byKind[data.KindSecurity]),
		"grid_cells", cells)
}

// Zone returns a zone by its identifier, or nil if not found.
func (m *Manager) Zone(id string) *Zone {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byID[id]
}

// ZonesByKind returns all zones of the given kind.
func (m *Manager) ZonesByKind(kind string) []*Zone {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Zone(nil), m.byKind[kind]...)
}

// ZonesAt returns all zones containing loc.
func (m *Manager) ZonesAt(loc model.Location) []*Zone {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Zone
	for _, z := range m.grid[keyOf(loc)] {
		if z.Contains(loc) {
			out = append(out, z)
		}
	}
	return out
}

// ZonesOf returns the zones the player is currently tracked in.
func (m *Manager) ZonesOf(citizen model.CitizenID) []*Zone {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Zone, 0, len(m.inside[citizen]))
	for _, z := range m.inside[citizen] {
		out = append(out, z)
	}
	return out
}

// Revalidate checks the player's position against nearby zones and against
// every zone the player was inside, then fires enter and exit notifications.
// Called when a player moves.
func (m *Manager) Revalidate(p model.PlayerSnapshot) {
	var changes []crossing

	m.mu.Lock()
	set := m.inside[p.CitizenID]
	for _, z := range m.grid[keyOf(p.Location)] {
		entered, exited := z.revalidate(p)
		switch {
		case entered:
			if set == nil {
				set = make(map[string]*Zone, 2)
				m.inside[p.CitizenID] = set
			}
			set[z.ID()] = z
			changes = append(changes, crossing{zone: z, entered: true})
		case exited:
			delete(set, z.ID())
			changes = append(changes, crossing{zone: z})
		}
	}
	// Зоны, из ячейки которых игрок ушёл целиком, в grid-кандидатах не видны.
	for id, z := range set {
		if _, exited := z.revalidate(p); exited {
			delete(set, id)
			changes = append(changes, crossing{zone: z})
		}
	}
	if set != nil && len(set) == 0 {
		delete(m.inside, p.CitizenID)
	}
	m.mu.Unlock()

	for _, c := range changes {
		m.notify(c, p)
	}
}

// RemoveFromAll removes a player from every zone, firing exits.
// Called on disconnect or teleport.
func (m *Manager) RemoveFromAll(citizen model.CitizenID) {
	var changes []crossing

	m.mu.Lock()
	for _, z := range m.inside[citizen] {
		if z.remove(citizen) {
			changes = append(changes, crossing{zone: z})
		}
	}
	delete(m.inside, citizen)
	m.mu.Unlock()

	for _, c := range changes {
		m.notify(c, model.PlayerSnapshot{CitizenID: citizen})
	}
}

func (m *Manager) notify(c crossing, p model.PlayerSnapshot) {
	m.lmu.RLock()
	ls := m.listeners[c.zone.Kind()]
	m.lmu.RUnlock()

	for _, l := range ls {
		if c.entered {
			slog.Debug("zone enter", "zone", c.zone.ID(), "citizen", p.CitizenID)
			l.OnEnter(c.zone, p)
		} else {
			slog.Debug("zone exit", "zone", c.zone.ID(), "citizen", p.CitizenID)
			l.OnExit(c.zone, p.CitizenID)
		}
	}
}

// buildGrid регистрирует каждую зону во всех ячейках сетки,
// которые пересекает её bounding box.
func buildGrid(zones map[string]*Zone) map[gridKey][]*Zone {
	grid := make(map[gridKey][]*Zone)
	for _, z := range zones {
		gxMin, gxMax := cell(z.minX), cell(z.maxX)
		gyMin, gyMax := cell(z.minY), cell(z.maxY)
		for gx := gxMin; gx <= gxMax; gx++ {
			for gy := gyMin; gy <= gyMax; gy++ {
				key := gridKey{gx: gx, gy: gy}
				grid[key] = append(grid[key], z)
			}
		}
	}
	return grid
}

func keyOf(loc model.Location) gridKey {
	return gridKey{gx: cell(loc.X), gy: cell(loc.Y)}
}

// cell округляет к -inf, отрицательные координаты попадают в свою ячейку.
func cell(v float64) int64 {
	return int64(math.Floor(v / gridSize))
}
