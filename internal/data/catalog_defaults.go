package data

import (
	"time"

	"github.com/udisondev/hotzone/internal/model"
)

// DefaultCatalog returns the built-in catalog used when no catalog file is
// configured. The returned catalog is already built.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Items:        defaultItems(),
		Buyers:       defaultBuyers(),
		Guards:       defaultGuards(),
		RiskOutcomes: defaultRiskOutcomes(),
		Tools:        defaultTools(),
		Zones:        defaultZones(),
	}
	if err := c.Build(); err != nil {
		// Go-литералы: ошибка здесь означает баг в таблицах ниже.
		panic("default catalog: " + err.Error())
	}
	return c
}

func defaultItems() []ItemDef {
	return []ItemDef{
		{ID: "weed", Label: "Weed", BasePrice: 40, RiskModifier: 0.8},
		{ID: "pills", Label: "Pills", BasePrice: 60, RiskModifier: 1.0},
		{ID: "meth", Label: "Meth", BasePrice: 100, RiskModifier: 1.3},
		{ID: "coke", Label: "Cocaine", BasePrice: 150, RiskModifier: 1.5},
		{ID: "gold_bar", Label: "Gold bar", BasePrice: 500},
		{ID: "cash_stack", Label: "Cash stack", BasePrice: 250},
		{ID: "lockpick", Label: "Lockpick"},
		{ID: "drill", Label: "Drill"},
		{ID: "thermite", Label: "Thermite"},
	}
}

func defaultBuyers() []BuyerArchetype {
	return []BuyerArchetype{
		{
			ID: "junkie", Model: "a_m_m_tramp_01", SpawnWeight: 40,
			PriceMultiplier: 0.8, WalkAwayThreshold: 0.3, HaggleChance: 0.2,
			MaxQuantity: 2,
		},
		{
			ID: "student", Model: "a_m_y_hipster_01", SpawnWeight: 30,
			PriceMultiplier: 0.9, WalkAwayThreshold: 0.4, HaggleChance: 0.5,
			MaxQuantity: 3,
		},
		{
			ID: "businessman", Model: "a_m_m_business_01", SpawnWeight: 20,
			PriceMultiplier: 1.2, WalkAwayThreshold: 0.6, HaggleChance: 0.6,
			MinReputation: 20, MaxQuantity: 5,
		},
		{
			ID: "dealer", Model: "g_m_y_ballasout_01", SpawnWeight: 10,
			PriceMultiplier: 1.4, WalkAwayThreshold: 0.5, HaggleChance: 0.8,
			MinReputation: 50, MaxQuantity: 10, Risky: true, Armed: true,
		},
	}
}

func defaultGuards() []GuardArchetype {
	return []GuardArchetype{
		{ID: "rent_a_cop", Model: "s_m_m_security_01", SpawnWeight: 50, DetectionRange: 20, Accuracy: 0.3, BaseMorale: 60, Armed: true},
		{ID: "merc", Model: "s_m_y_blackops_01", SpawnWeight: 35, DetectionRange: 30, Accuracy: 0.6, BaseMorale: 85, Armed: true},
		{ID: "swat", Model: "s_m_y_swat_01", SpawnWeight: 15, DetectionRange: 35, Accuracy: 0.75, BaseMorale: 100, Armed: true},
	}
}

func defaultRiskOutcomes() []RiskOutcomeDef {
	return []RiskOutcomeDef{
		{ID: "robbery", Label: "Robbed", Weight: 40, RemovesItems: true, Hostile: true},
		{ID: "informant", Label: "Informant", Weight: 30, WantedLevel: 1},
		{ID: "ambush", Label: "Ambush", Weight: 20, MinHeat: 30, Hostile: true},
		{ID: "sting", Label: "Police sting", Weight: 10, MinHeat: 50, MinReputation: 10, RemovesItems: true, WantedLevel: 3},
	}
}

func defaultTools() []ToolDef {
	return []ToolDef{
		{ItemID: "lockpick", Tier: 1, ConsumeChance: 0.5},
		{ItemID: "drill", Tier: 2, ConsumeChance: 0.25},
		{ItemID: "thermite", Tier: 3, ConsumeChance: 1},
	}
}

func defaultZones() []ZoneDef {
	return []ZoneDef{
		{
			ID: "grove_street", Name: "Grove Street corner", Kind: KindBuyer,
			Shape:  ShapeCylinder,
			Nodes:  []model.Location{{X: 100, Y: -1900, Z: 20}},
			Radius: 80, MinZ: -10, MaxZ: 60,
			ApproachRadius: 25, InteractRadius: 3, DetectionRadius: 40,
			Items: []ZoneItem{{ItemID: "weed"}, {ItemID: "pills"}, {ItemID: "meth"}, {ItemID: "coke", BasePrice: 170}},
			DropPoints: []model.Location{
				{X: 130, Y: -1880, Z: 20},
				{X: 70, Y: -1930, Z: 20},
				{X: 300, Y: -1700, Z: 22},
				{X: -250, Y: -2100, Z: 18},
				{X: 900, Y: -1500, Z: 30},
				{X: -600, Y: -2500, Z: 12},
			},
			ArchetypeWeights: map[string]float64{"junkie": 50, "dealer": 5},
			MaxActors:        4,
		},
		{
			ID: "vinewood_hills", Name: "Vinewood Hills", Kind: KindBuyer,
			Shape: ShapeCuboid,
			Nodes: []model.Location{{X: 400, Y: 500}, {X: 700, Y: 900}},
			MinZ:  100, MaxZ: 250,
			ApproachRadius: 20, InteractRadius: 3, DetectionRadius: 30,
			Items: []ZoneItem{{ItemID: "coke"}, {ItemID: "pills"}},
			DropPoints: []model.Location{
				{X: 450, Y: 550, Z: 150},
				{X: 650, Y: 850, Z: 180},
				{X: 1500, Y: 1200, Z: 200},
			},
			MaxActors: 3,
		},
		{
			ID: "humane_labs", Name: "Humane Labs", Kind: KindSecurity,
			Shape: ShapeNPoly,
			Nodes: []model.Location{
				{X: 3500, Y: 3600}, {X: 3650, Y: 3600}, {X: 3650, Y: 3800}, {X: 3500, Y: 3800},
			},
			MinZ: 20, MaxZ: 80,
			DetectionRadius: 60,
			Guards: []GuardPost{
				{ArchetypeID: "merc", Role: RolePost, Location: model.Location{X: 3520, Y: 3620, Z: 35}},
				{ArchetypeID: "merc", Role: RolePost, Location: model.Location{X: 3630, Y: 3780, Z: 35}},
				{
					ArchetypeID: "rent_a_cop", Role: RolePatrol,
					Location: model.Location{X: 3550, Y: 3650, Z: 35},
					Route: []model.Location{
						{X: 3550, Y: 3650, Z: 35}, {X: 3600, Y: 3650, Z: 35},
						{X: 3600, Y: 3750, Z: 35}, {X: 3550, Y: 3750, Z: 35},
					},
				},
			},
			Objectives: []ObjectiveDef{
				{
					ID: "vault", Label: "Research vault",
					Location: model.Location{X: 3580, Y: 3710, Z: 30},
					Steps: []StepDef{
						{Label: "outer door", RequiredTier: 1, MaxAlert: "suspicious", Cooldown: 2 * time.Minute},
						{Label: "vault door", RequiredTier: 2, MaxAlert: "alert", Cooldown: 5 * time.Minute},
						{
							Label: "safe", RequiredTier: 3, MaxAlert: "combat", Cooldown: 10 * time.Minute,
							RewardItem: "gold_bar", RewardQty: 2, RewardMoney: 1500,
						},
					},
				},
				{
					ID: "office", Label: "Security office",
					Location: model.Location{X: 3630, Y: 3620, Z: 35},
					Steps: []StepDef{
						{Label: "desk", MaxAlert: "suspicious", Cooldown: 5 * time.Minute, RewardItem: "cash_stack", RewardQty: 1},
					},
				},
			},
			Waves: []WaveDef{
				{Delay: 15 * time.Second, Count: 2, ArchetypeID: "merc", SpawnAt: model.Location{X: 3480, Y: 3590, Z: 30}},
				{Delay: 45 * time.Second, Count: 3, ArchetypeID: "swat", SpawnAt: model.Location{X: 3480, Y: 3590, Z: 30}},
			},
			ContinuousWaves: true,
			DefensivePositions: []model.Location{
				{X: 3510, Y: 3610, Z: 35},
				{X: 3640, Y: 3790, Z: 35},
			},
			Access: AccessDef{
				Outfits:  []string{"lab_coat", "hazmat"},
				Keycards: []string{"humane_keycard"},
				Vehicles: []string{"pony"},
			},
		},
	}
}
