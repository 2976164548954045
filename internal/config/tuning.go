package config

import (
	"errors"
	"fmt"
	"time"
)

// Heat tunes zone heat, lockdown and decay.
type Heat struct {
	MaxHeat            float64 `yaml:"max_heat"`
	LockdownThreshold  float64 `yaml:"lockdown_threshold"`
	DangerousThreshold float64 `yaml:"dangerous_threshold"`
	// ReducedThreshold is where spawns start thinning out. Lockdown clears only
	// once heat decays below it, and heat is then pinned to exactly this value.
	ReducedThreshold float64       `yaml:"reduced_threshold"`
	LockdownDuration time.Duration `yaml:"lockdown_duration"`
	DecayInterval    time.Duration `yaml:"decay_interval"`
	DecayStep        float64       `yaml:"decay_step"`
	PerSale          float64       `yaml:"per_sale"`
	PerUnit          float64       `yaml:"per_unit"`
	PerRiskEvent     float64       `yaml:"per_risk_event"`
	FlushInterval    time.Duration `yaml:"flush_interval"`
}

// DefaultHeat returns heat tuning defaults.
func DefaultHeat() Heat {
	return Heat{
		MaxHeat:            100,
		LockdownThreshold:  85,
		DangerousThreshold: 70,
		ReducedThreshold:   40,
		LockdownDuration:   10 * time.Minute,
		DecayInterval:      60 * time.Second,
		DecayStep:          2,
		PerSale:            1.5,
		PerUnit:            0.5,
		PerRiskEvent:       10,
		FlushInterval:      30 * time.Second,
	}
}

// SaleHeat returns the heat a sale of qty units adds to its zone.
func (h Heat) SaleHeat(qty int) float64 {
	return h.PerSale + float64(max(qty, 0))*h.PerUnit
}

func (h Heat) validate() error {
	var errs []error
	if h.MaxHeat <= 0 {
		errs = append(errs, fmt.Errorf("heat.max_heat must be positive, got %v", h.MaxHeat))
	}
	if !(h.ReducedThreshold < h.DangerousThreshold && h.DangerousThreshold < h.LockdownThreshold && h.LockdownThreshold <= h.MaxHeat) {
		errs = append(errs, fmt.Errorf("heat thresholds must satisfy reduced < dangerous < lockdown <= max (%v < %v < %v <= %v)",
			h.ReducedThreshold, h.DangerousThreshold, h.LockdownThreshold, h.MaxHeat))
	}
	if h.DecayInterval <= 0 || h.FlushInterval <= 0 {
		errs = append(errs, errors.New("heat.decay_interval and heat.flush_interval must be positive"))
	}
	if h.DecayStep < 0 {
		errs = append(errs, fmt.Errorf("heat.decay_step must not be negative, got %v", h.DecayStep))
	}
	return errors.Join(errs...)
}

// Reputation tunes per-player-per-zone reputation.
type Reputation struct {
	MaxReputation    float64 `yaml:"max_reputation"`
	GainPerSale      float64 `yaml:"gain_per_sale"`
	BonusPerBulkUnit float64 `yaml:"bonus_per_bulk_unit"`
	WalkAwayPenalty  float64 `yaml:"walk_away_penalty"`
	RefusePenalty    float64 `yaml:"refuse_penalty"`
	RiskPenalty      float64 `yaml:"risk_penalty"`
	DeliveryGain     float64 `yaml:"delivery_gain"`
	CancelPenalty    float64 `yaml:"cancel_penalty"`
}

// DefaultReputation returns reputation tuning defaults.
func DefaultReputation() Reputation {
	return Reputation{
		MaxReputation:    100,
		GainPerSale:      2,
		BonusPerBulkUnit: 1,
		WalkAwayPenalty:  3,
		RefusePenalty:    1,
		RiskPenalty:      5,
		DeliveryGain:     3,
		CancelPenalty:    2,
	}
}

// SaleGain returns the reputation gained by selling qty units in one sale.
func (r Reputation) SaleGain(qty int) float64 {
	if qty < 1 {
		qty = 1
	}
	return r.GainPerSale + float64(qty-1)*r.BonusPerBulkUnit
}

func (r Reputation) validate() error {
	if r.MaxReputation <= 0 {
		return fmt.Errorf("reputation.max_reputation must be positive, got %v", r.MaxReputation)
	}
	return nil
}

// Negotiation tunes the haggling protocol.
type Negotiation struct {
	OpeningFraction    float64       `yaml:"opening_fraction"`
	MaxRounds          int           `yaml:"max_rounds"`
	FinalOfferFraction float64       `yaml:"final_offer_fraction"`
	PriceCeiling       float64       `yaml:"price_ceiling"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	PriceVariance      float64       `yaml:"price_variance"`
	ReputationBonus    float64       `yaml:"reputation_bonus"`
	HeatPenalty        float64       `yaml:"heat_penalty"`
}

// DefaultNegotiation returns negotiation tuning defaults.
func DefaultNegotiation() Negotiation {
	return Negotiation{
		OpeningFraction:    0.75,
		MaxRounds:          3,
		FinalOfferFraction: 0.95,
		PriceCeiling:       1.5,
		SessionTTL:         90 * time.Second,
		PriceVariance:      0.1,
		ReputationBonus:    0.2,
		HeatPenalty:        0.15,
	}
}

func (n Negotiation) validate() error {
	var errs []error
	if n.OpeningFraction <= 0 || n.OpeningFraction > 1 {
		errs = append(errs, fmt.Errorf("negotiation.opening_fraction must be in (0, 1], got %v", n.OpeningFraction))
	}
	if n.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("negotiation.max_rounds must be at least 1, got %d", n.MaxRounds))
	}
	if n.PriceCeiling < 1 {
		errs = append(errs, fmt.Errorf("negotiation.price_ceiling must be >= 1, got %v", n.PriceCeiling))
	}
	if n.PriceVariance < 0 || n.PriceVariance >= 1 {
		errs = append(errs, fmt.Errorf("negotiation.price_variance must be in [0, 1), got %v", n.PriceVariance))
	}
	if n.SessionTTL <= 0 {
		errs = append(errs, errors.New("negotiation.session_ttl must be positive"))
	}
	return errors.Join(errs...)
}

// Risk tunes the adverse outcome probability.
type Risk struct {
	BaseChance            float64 `yaml:"base_chance"`
	HeatScale             float64 `yaml:"heat_scale"`
	MaxReputationDiscount float64 `yaml:"max_reputation_discount"`
	MinChance             float64 `yaml:"min_chance"`
}

// DefaultRisk returns risk tuning defaults.
func DefaultRisk() Risk {
	return Risk{
		BaseChance:            0.08,
		HeatScale:             2,
		MaxReputationDiscount: 0.05,
		MinChance:             0.02,
	}
}

func (r Risk) validate() error {
	if r.MinChance < 0 || r.MinChance > 1 || r.BaseChance < 0 {
		return fmt.Errorf("risk chances out of range: base %v, min %v", r.BaseChance, r.MinChance)
	}
	return nil
}
