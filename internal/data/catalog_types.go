package data

import (
	"time"

	"github.com/udisondev/hotzone/internal/model"
)

// Zone kinds.
const (
	KindBuyer    = "buyer"
	KindSecurity = "security"
)

// Zone shapes. Geometry semantics follow the world zone tables: cylinder uses
// the first node as center, cuboid the bounding box of all nodes, npoly the
// polygon through all nodes.
const (
	ShapeCylinder = "cylinder"
	ShapeCuboid   = "cuboid"
	ShapeNPoly    = "npoly"
)

// Guard roles.
const (
	RolePost          = "post"
	RolePatrol        = "patrol"
	RoleReinforcement = "reinforcement"
)

// ItemDef describes a sellable item.
type ItemDef struct {
	ID           string  `yaml:"id"`
	Label        string  `yaml:"label"`
	BasePrice    int64   `yaml:"base_price"`
	RiskModifier float64 `yaml:"risk_modifier"`
}

// BuyerArchetype describes a category of simulated buyer.
type BuyerArchetype struct {
	ID              string  `yaml:"id"`
	Model           string  `yaml:"model"`
	SpawnWeight     float64 `yaml:"spawn_weight"`
	PriceMultiplier float64 `yaml:"price_multiplier"`
	// WalkAwayThreshold is the greed ratio (proposed-fair)/fair past which the buyer leaves.
	WalkAwayThreshold float64 `yaml:"walk_away_threshold"`
	HaggleChance      float64 `yaml:"haggle_chance"`
	MinReputation     float64 `yaml:"min_reputation"`
	MaxQuantity       int     `yaml:"max_quantity"`
	// Risky archetypes vanish from the pool when a zone runs dangerously hot.
	Risky bool `yaml:"risky"`
	Armed bool `yaml:"armed"`
}

// GuardArchetype describes a category of guard.
type GuardArchetype struct {
	ID             string  `yaml:"id"`
	Model          string  `yaml:"model"`
	SpawnWeight    float64 `yaml:"spawn_weight"`
	DetectionRange float64 `yaml:"detection_range"`
	Accuracy       float64 `yaml:"accuracy"`
	BaseMorale     float64 `yaml:"base_morale"`
	Armed          bool    `yaml:"armed"`
}

// RiskOutcomeDef is one adverse event a transaction may trigger.
type RiskOutcomeDef struct {
	ID            string  `yaml:"id"`
	Label         string  `yaml:"label"`
	Weight        float64 `yaml:"weight"`
	MinHeat       float64 `yaml:"min_heat"`
	MinReputation float64 `yaml:"min_reputation"`
	RemovesItems  bool    `yaml:"removes_items"`
	Hostile       bool    `yaml:"hostile"`
	WantedLevel   int     `yaml:"wanted_level"`
}

// ToolDef is equipment usable on objective steps. Higher tiers open
// everything lower tiers can.
type ToolDef struct {
	ItemID        string  `yaml:"item_id"`
	Tier          int     `yaml:"tier"`
	ConsumeChance float64 `yaml:"consume_chance"`
}

// ZoneItem binds an item to a zone, optionally overriding the base price.
type ZoneItem struct {
	ItemID    string `yaml:"item_id"`
	BasePrice int64  `yaml:"base_price"`
}

// GuardPost is a guard placement.
type GuardPost struct {
	ArchetypeID string           `yaml:"archetype_id"`
	Role        string           `yaml:"role"`
	Location    model.Location   `yaml:"location"`
	Route       []model.Location `yaml:"route"`
}

// WaveDef is one scheduled reinforcement wave.
type WaveDef struct {
	Delay       time.Duration  `yaml:"delay"`
	Count       int            `yaml:"count"`
	ArchetypeID string         `yaml:"archetype_id"`
	SpawnAt     model.Location `yaml:"spawn_at"`
}

// StepDef is one step of a multi-step objective.
type StepDef struct {
	Label        string        `yaml:"label"`
	RequiredTier int           `yaml:"required_tier"`
	MaxAlert     string        `yaml:"max_alert"`
	Cooldown     time.Duration `yaml:"cooldown"`
	RewardItem   string        `yaml:"reward_item"`
	RewardQty    int           `yaml:"reward_qty"`
	RewardMoney  int64         `yaml:"reward_money"`
}

// ObjectiveDef is a lootable target guarded by a security zone.
type ObjectiveDef struct {
	ID       string         `yaml:"id"`
	Label    string         `yaml:"label"`
	Location model.Location `yaml:"location"`
	Steps    []StepDef      `yaml:"steps"`
}

// AccessDef lists what lets a player pass unchallenged.
type AccessDef struct {
	Outfits  []string `yaml:"outfits"`
	Keycards []string `yaml:"keycards"`
	Vehicles []string `yaml:"vehicles"`
}

// ZoneDef is the immutable static definition of one zone.
type ZoneDef struct {
	ID     string           `yaml:"id"`
	Name   string           `yaml:"name"`
	Kind   string           `yaml:"kind"`
	Shape  string           `yaml:"shape"`
	Nodes  []model.Location `yaml:"nodes"`
	Radius float64          `yaml:"radius"`
	MinZ   float64          `yaml:"min_z"`
	MaxZ   float64          `yaml:"max_z"`

	ApproachRadius  float64 `yaml:"approach_radius"`
	InteractRadius  float64 `yaml:"interact_radius"`
	DetectionRadius float64 `yaml:"detection_radius"`

	Items            []ZoneItem         `yaml:"items"`
	DropPoints       []model.Location   `yaml:"drop_points"`
	ArchetypeWeights map[string]float64 `yaml:"archetype_weights"`
	MaxActors        int                `yaml:"max_actors"`

	// Security zones only.
	Guards             []GuardPost      `yaml:"guards"`
	Objectives         []ObjectiveDef   `yaml:"objectives"`
	Waves              []WaveDef        `yaml:"waves"`
	ContinuousWaves    bool             `yaml:"continuous_waves"`
	DefensivePositions []model.Location `yaml:"defensive_positions"`
	Access             AccessDef        `yaml:"access"`
}

// Center returns the first node, used as the zone's anchor point.
func (z *ZoneDef) Center() model.Location {
	if len(z.Nodes) == 0 {
		return model.Location{}
	}
	return z.Nodes[0]
}

// Objective returns the objective with the given ID, or nil.
func (z *ZoneDef) Objective(id string) *ObjectiveDef {
	for i := range z.Objectives {
		if z.Objectives[i].ID == id {
			return &z.Objectives[i]
		}
	}
	return nil
}
