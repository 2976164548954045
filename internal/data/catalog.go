package data

import (
	"errors"
	"fmt"
	"slices"
)

// Catalog is the read-only set of archetypes, items and zone definitions.
// A Catalog is never mutated after Build; reloading produces a new one.
type Catalog struct {
	Items        []ItemDef        `yaml:"items"`
	Buyers       []BuyerArchetype `yaml:"buyers"`
	Guards       []GuardArchetype `yaml:"guards"`
	RiskOutcomes []RiskOutcomeDef `yaml:"risk_outcomes"`
	Tools        []ToolDef        `yaml:"tools"`
	Zones        []ZoneDef        `yaml:"zones"`

	items  map[string]*ItemDef
	buyers map[string]*BuyerArchetype
	guards map[string]*GuardArchetype
	zones  map[string]*ZoneDef
	byKind map[string][]*ZoneDef
}

// Build indexes the catalog and checks cross references.
func (c *Catalog) Build() error {
	c.items = make(map[string]*ItemDef, len(c.Items))
	c.buyers = make(map[string]*BuyerArchetype, len(c.Buyers))
	c.guards = make(map[string]*GuardArchetype, len(c.Guards))
	c.zones = make(map[string]*ZoneDef, len(c.Zones))
	c.byKind = make(map[string][]*ZoneDef, 2)

	var errs []error
	for i := range c.Items {
		it := &c.Items[i]
		if _, dup := c.items[it.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate item %q", it.ID))
		}
		c.items[it.ID] = it
	}
	for i := range c.Buyers {
		c.buyers[c.Buyers[i].ID] = &c.Buyers[i]
	}
	for i := range c.Guards {
		c.guards[c.Guards[i].ID] = &c.Guards[i]
	}

	// Best tool first: tool resolution scans this order.
	slices.SortStableFunc(c.Tools, func(a, b ToolDef) int { return b.Tier - a.Tier })

	for i := range c.Zones {
		z := &c.Zones[i]
		if _, dup := c.zones[z.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate zone %q", z.ID))
			continue
		}
		c.zones[z.ID] = z
		c.byKind[z.Kind] = append(c.byKind[z.Kind], z)
		errs = append(errs, c.checkZone(z))
	}

	return errors.Join(errs...)
}

func (c *Catalog) checkZone(z *ZoneDef) error {
	var errs []error
	if len(z.Nodes) == 0 {
		errs = append(errs, fmt.Errorf("zone %q: no nodes", z.ID))
	}
	for _, zi := range z.Items {
		if _, ok := c.items[zi.ItemID]; !ok {
			errs = append(errs, fmt.Errorf("zone %q: unknown item %q", z.ID, zi.ItemID))
		}
	}
	for id := range z.ArchetypeWeights {
		if _, ok := c.buyers[id]; !ok {
			errs = append(errs, fmt.Errorf("zone %q: weight override for unknown buyer archetype %q", z.ID, id))
		}
	}
	for _, g := range z.Guards {
		if _, ok := c.guards[g.ArchetypeID]; !ok {
			errs = append(errs, fmt.Errorf("zone %q: unknown guard archetype %q", z.ID, g.ArchetypeID))
		}
	}
	for i, w := range z.Waves {
		if _, ok := c.guards[w.ArchetypeID]; !ok {
			errs = append(errs, fmt.Errorf("zone %q: wave %d: unknown guard archetype %q", z.ID, i, w.ArchetypeID))
		}
	}
	for _, o := range z.Objectives {
		if len(o.Steps) == 0 {
			errs = append(errs, fmt.Errorf("zone %q: objective %q has no steps", z.ID, o.ID))
		}
	}
	return errors.Join(errs...)
}

// Item returns an item definition, or nil.
func (c *Catalog) Item(id string) *ItemDef { return c.items[id] }

// Buyer returns a buyer archetype, or nil.
func (c *Catalog) Buyer(id string) *BuyerArchetype { return c.buyers[id] }

// Guard returns a guard archetype, or nil.
func (c *Catalog) Guard(id string) *GuardArchetype { return c.guards[id] }

// Zone returns a zone definition, or nil.
func (c *Catalog) Zone(id string) *ZoneDef { return c.zones[id] }

// ZonesByKind returns all zones of the given kind.
func (c *Catalog) ZonesByKind(kind string) []*ZoneDef { return c.byKind[kind] }

// ZonePrice returns the base price of item in zone, honoring the zone override.
func (c *Catalog) ZonePrice(z *ZoneDef, itemID string) (int64, bool) {
	it := c.items[itemID]
	if it == nil {
		return 0, false
	}
	for _, zi := range z.Items {
		if zi.ItemID != itemID {
			continue
		}
		if zi.BasePrice > 0 {
			return zi.BasePrice, true
		}
		return it.BasePrice, true
	}
	return 0, false
}

// RiskModifier returns the item's risk modifier, 1 when unset.
func (c *Catalog) RiskModifier(itemID string) float64 {
	if it := c.items[itemID]; it != nil && it.RiskModifier > 0 {
		return it.RiskModifier
	}
	return 1
}

// BuyerWeight returns the spawn weight of an archetype inside a zone.
func (c *Catalog) BuyerWeight(z *ZoneDef, a *BuyerArchetype) float64 {
	if w, ok := z.ArchetypeWeights[a.ID]; ok {
		return w
	}
	return a.SpawnWeight
}
