package config

import (
	"errors"
	"fmt"
	"time"
)

// TimeWindow scales buyer spawn chance between FromHour (inclusive) and
// ToHour (exclusive). Windows may wrap midnight (22 → 4).
type TimeWindow struct {
	FromHour   int     `yaml:"from_hour"`
	ToHour     int     `yaml:"to_hour"`
	Multiplier float64 `yaml:"multiplier"`
}

// Contains reports whether hour falls inside the window.
func (w TimeWindow) Contains(hour int) bool {
	if w.FromHour <= w.ToHour {
		return hour >= w.FromHour && hour < w.ToHour
	}
	return hour >= w.FromHour || hour < w.ToHour
}

// Buyer tunes buyer zone controllers.
type Buyer struct {
	TickInterval    time.Duration `yaml:"tick_interval"`
	SpawnInterval   time.Duration `yaml:"spawn_interval"`
	SpawnCooldown   time.Duration `yaml:"spawn_cooldown"`
	BaseSpawnChance float64       `yaml:"base_spawn_chance"`
	PatienceTimeout time.Duration `yaml:"patience_timeout"`
	// LeaveFactor × approach radius is how far the player may drift while a
	// buyer is approaching before the buyer gives up.
	LeaveFactor   float64       `yaml:"leave_factor"`
	LeaveDuration time.Duration `yaml:"leave_duration"`
	ExitGrace     time.Duration `yaml:"exit_grace"`
	TimeOfDay     []TimeWindow  `yaml:"time_of_day"`
}

// DefaultBuyer returns buyer zone defaults.
func DefaultBuyer() Buyer {
	return Buyer{
		TickInterval:    time.Second,
		SpawnInterval:   5 * time.Second,
		SpawnCooldown:   8 * time.Second,
		BaseSpawnChance: 0.6,
		PatienceTimeout: 45 * time.Second,
		LeaveFactor:     1.5,
		LeaveDuration:   10 * time.Second,
		ExitGrace:       20 * time.Second,
		TimeOfDay: []TimeWindow{
			{FromHour: 22, ToHour: 4, Multiplier: 1.5},
			{FromHour: 4, ToHour: 9, Multiplier: 0.5},
		},
	}
}

// TimeMultiplier returns the first matching window multiplier, or 1.
func (b Buyer) TimeMultiplier(hour int) float64 {
	for _, w := range b.TimeOfDay {
		if w.Contains(hour) {
			return w.Multiplier
		}
	}
	return 1
}

func (b Buyer) validate() error {
	var errs []error
	if b.TickInterval <= 0 || b.SpawnInterval <= 0 {
		errs = append(errs, errors.New("buyer.tick_interval and buyer.spawn_interval must be positive"))
	}
	for i, w := range b.TimeOfDay {
		if w.FromHour < 0 || w.FromHour > 23 || w.ToHour < 0 || w.ToHour > 24 || w.Multiplier < 0 {
			errs = append(errs, fmt.Errorf("buyer.time_of_day[%d] out of range: %+v", i, w))
		}
	}
	return errors.Join(errs...)
}

// AlertTuning holds per-alert-level parameters.
type AlertTuning struct {
	RangeMultiplier float64       `yaml:"range_multiplier"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	// SuspicionThreshold escalates to the next level when the suspicion pool reaches it.
	SuspicionThreshold float64 `yaml:"suspicion_threshold"`
	// DecayAfter steps down one level after this long without a detection.
	DecayAfter time.Duration `yaml:"decay_after"`
}

// Stealth scales detection range by player posture.
type Stealth struct {
	Crouching float64 `yaml:"crouching"`
	Running   float64 `yaml:"running"`
	Armed     float64 `yaml:"armed"`
	InVehicle float64 `yaml:"in_vehicle"`
}

// Morale tunes guard morale.
type Morale struct {
	Rate             float64 `yaml:"rate"`
	DeadColleague    float64 `yaml:"dead_colleague"`
	ShotAt           float64 `yaml:"shot_at"`
	Wounded          float64 `yaml:"wounded"`
	HitPlayer        float64 `yaml:"hit_player"`
	StimulusDecay    float64 `yaml:"stimulus_decay"`
	FleeThreshold    float64 `yaml:"flee_threshold"`
	RetreatThreshold float64 `yaml:"retreat_threshold"`
	RecoverThreshold float64 `yaml:"recover_threshold"`
}

// Security tunes security zone controllers.
type Security struct {
	Patrol     AlertTuning `yaml:"patrol"`
	Suspicious AlertTuning `yaml:"suspicious"`
	Alert      AlertTuning `yaml:"alert"`
	Combat     AlertTuning `yaml:"combat"`

	BuildRate          float64 `yaml:"build_rate"`
	DecayRate          float64 `yaml:"decay_rate"`
	PeripheralFraction float64 `yaml:"peripheral_fraction"`
	OccludedFraction   float64 `yaml:"occluded_fraction"`
	// OccludedRange is the fraction of detection range within which an
	// occluded player is still sensed.
	OccludedRange    float64 `yaml:"occluded_range"`
	CarryFraction    float64 `yaml:"carry_fraction"`
	DisguiseLeakRate float64 `yaml:"disguise_leak_rate"`
	MaxSuspicion     float64 `yaml:"max_suspicion"`

	Stealth Stealth `yaml:"stealth"`
	Morale  Morale  `yaml:"morale"`

	RadioDelay             time.Duration `yaml:"radio_delay"`
	ExitGrace              time.Duration `yaml:"exit_grace"`
	CombatExitGrace        time.Duration `yaml:"combat_exit_grace"`
	ContinuousWaveInterval time.Duration `yaml:"continuous_wave_interval"`
	DiscoveryRange         float64       `yaml:"discovery_range"`
	HearingMultiplier      float64       `yaml:"hearing_multiplier"`
	KeycardGrant           time.Duration `yaml:"keycard_grant"`
	InteractRange          float64       `yaml:"interact_range"`
}

// DefaultSecurity returns security zone defaults.
func DefaultSecurity() Security {
	return Security{
		Patrol:     AlertTuning{RangeMultiplier: 1.0, PollInterval: time.Second, SuspicionThreshold: 100, DecayAfter: 0},
		Suspicious: AlertTuning{RangeMultiplier: 1.25, PollInterval: 750 * time.Millisecond, SuspicionThreshold: 100, DecayAfter: 20 * time.Second},
		Alert:      AlertTuning{RangeMultiplier: 1.5, PollInterval: 500 * time.Millisecond, SuspicionThreshold: 100, DecayAfter: 30 * time.Second},
		Combat:     AlertTuning{RangeMultiplier: 2.0, PollInterval: 250 * time.Millisecond, SuspicionThreshold: 0, DecayAfter: 45 * time.Second},

		BuildRate:          25,
		DecayRate:          10,
		PeripheralFraction: 0.1,
		OccludedFraction:   0.35,
		OccludedRange:      0.5,
		CarryFraction:      0.3,
		DisguiseLeakRate:   0.25,
		MaxSuspicion:       100,

		Stealth: Stealth{Crouching: 0.6, Running: 1.3, Armed: 1.2, InVehicle: 1.1},
		Morale: Morale{
			Rate:             10,
			DeadColleague:    15,
			ShotAt:           10,
			Wounded:          20,
			HitPlayer:        5,
			StimulusDecay:    2,
			FleeThreshold:    20,
			RetreatThreshold: 40,
			RecoverThreshold: 55,
		},

		RadioDelay:             2 * time.Second,
		ExitGrace:              30 * time.Second,
		CombatExitGrace:        120 * time.Second,
		ContinuousWaveInterval: 45 * time.Second,
		DiscoveryRange:         15,
		HearingMultiplier:      3,
		KeycardGrant:           5 * time.Minute,
		InteractRange:          3,
	}
}

func (s Security) validate() error {
	var errs []error
	for name, lt := range map[string]AlertTuning{"patrol": s.Patrol, "suspicious": s.Suspicious, "alert": s.Alert, "combat": s.Combat} {
		if lt.PollInterval <= 0 || lt.RangeMultiplier <= 0 {
			errs = append(errs, fmt.Errorf("security.%s: poll_interval and range_multiplier must be positive", name))
		}
	}
	if !(s.Patrol.PollInterval >= s.Suspicious.PollInterval && s.Suspicious.PollInterval >= s.Alert.PollInterval && s.Alert.PollInterval >= s.Combat.PollInterval) {
		errs = append(errs, errors.New("security poll intervals must not grow with alert level"))
	}
	if s.CarryFraction < 0 || s.CarryFraction >= 1 {
		errs = append(errs, fmt.Errorf("security.carry_fraction must be in [0, 1), got %v", s.CarryFraction))
	}
	if s.Morale.FleeThreshold >= s.Morale.RetreatThreshold {
		errs = append(errs, fmt.Errorf("security.morale: flee threshold %v must be below retreat threshold %v",
			s.Morale.FleeThreshold, s.Morale.RetreatThreshold))
	}
	return errors.Join(errs...)
}

// Delivery tunes the contact/delivery session manager.
type Delivery struct {
	Cooldown          time.Duration `yaml:"cooldown"`
	ContactCount      int           `yaml:"contact_count"`
	MinOrders         int           `yaml:"min_orders"`
	MaxOrders         int           `yaml:"max_orders"`
	MinQuantity       int           `yaml:"min_quantity"`
	MaxQuantity       int           `yaml:"max_quantity"`
	PaymentMultiplier float64       `yaml:"payment_multiplier"`
	MinSeparation     float64       `yaml:"min_separation"`
	MinDistance       float64       `yaml:"min_distance"`
	MaxDistance       float64       `yaml:"max_distance"`
	OfferTTL          time.Duration `yaml:"offer_ttl"`
	DeliveryTTL       time.Duration `yaml:"delivery_ttl"`
	CompletionRadius  float64       `yaml:"completion_radius"`
	HeatPerDelivery   float64       `yaml:"heat_per_delivery"`
}

// DefaultDelivery returns delivery defaults.
func DefaultDelivery() Delivery {
	return Delivery{
		Cooldown:          5 * time.Minute,
		ContactCount:      3,
		MinOrders:         1,
		MaxOrders:         3,
		MinQuantity:       1,
		MaxQuantity:       5,
		PaymentMultiplier: 1.2,
		MinSeparation:     50,
		MinDistance:       100,
		MaxDistance:       1500,
		OfferTTL:          10 * time.Minute,
		DeliveryTTL:       20 * time.Minute,
		CompletionRadius:  5,
		HeatPerDelivery:   2,
	}
}

func (d Delivery) validate() error {
	var errs []error
	if d.ContactCount < 1 {
		errs = append(errs, fmt.Errorf("delivery.contact_count must be at least 1, got %d", d.ContactCount))
	}
	if d.MinOrders < 1 || d.MaxOrders < d.MinOrders {
		errs = append(errs, fmt.Errorf("delivery orders range invalid: %d..%d", d.MinOrders, d.MaxOrders))
	}
	if d.MinQuantity < 1 || d.MaxQuantity < d.MinQuantity {
		errs = append(errs, fmt.Errorf("delivery quantity range invalid: %d..%d", d.MinQuantity, d.MaxQuantity))
	}
	if d.MinDistance > d.MaxDistance {
		errs = append(errs, fmt.Errorf("delivery distance range invalid: %v..%v", d.MinDistance, d.MaxDistance))
	}
	return errors.Join(errs...)
}
