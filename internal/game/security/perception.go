package security

import (
	"slices"
	"time"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/model"
)

// Perception is how well a guard perceives a player this tick.
type Perception int

const (
	PerceiveNone Perception = iota
	// PerceiveOccluded: close by, behind cover.
	PerceiveOccluded
	// PerceivePeripheral: line of sight, not facing.
	PerceivePeripheral
	// PerceiveFacing: line of sight and facing.
	PerceiveFacing
)

// String returns human-readable perception name
func (p Perception) String() string {
	switch p {
	case PerceiveOccluded:
		return "occluded"
	case PerceivePeripheral:
		return "peripheral"
	case PerceiveFacing:
		return "facing"
	default:
		return "none"
	}
}

// Access is the kind of bypass a player currently holds.
type Access int

const (
	AccessNone Access = iota
	AccessDisguise
	AccessVehicle
	AccessKeycard
)

// String returns human-readable access name
func (a Access) String() string {
	switch a {
	case AccessDisguise:
		return "disguise"
	case AccessVehicle:
		return "vehicle"
	case AccessKeycard:
		return "keycard"
	default:
		return "none"
	}
}

// ResolveAccess returns the strongest bypass the player holds. keycardUntil
// is the end of the player's keycard grant, zero if none.
func ResolveAccess(def data.AccessDef, p model.PlayerSnapshot, keycardUntil, now time.Time) Access {
	switch {
	case !keycardUntil.IsZero() && now.Before(keycardUntil):
		return AccessKeycard
	case p.Posture.InVehicle && p.VehicleModel != "" && slices.Contains(def.Vehicles, p.VehicleModel):
		return AccessVehicle
	case p.Outfit != "" && slices.Contains(def.Outfits, p.Outfit):
		return AccessDisguise
	default:
		return AccessNone
	}
}

// BuildFactor scales suspicion buildup for a player holding access. A
// disguise fools passive observation but leaks when the player acts
// suspiciously.
func BuildFactor(cfg config.Security, a Access, posture model.Posture) float64 {
	switch a {
	case AccessKeycard, AccessVehicle:
		return 0
	case AccessDisguise:
		if posture.Suspicious() {
			return cfg.DisguiseLeakRate
		}
		return 0
	default:
		return 1
	}
}

// DetectionRange scales a guard's base range by alert level and posture.
func DetectionRange(cfg config.Security, base float64, level AlertLevel, posture model.Posture) float64 {
	r := base * Tuning(cfg, level).RangeMultiplier
	if posture.Crouching {
		r *= cfg.Stealth.Crouching
	}
	if posture.Running {
		r *= cfg.Stealth.Running
	}
	if posture.Armed {
		r *= cfg.Stealth.Armed
	}
	if posture.InVehicle {
		r *= cfg.Stealth.InVehicle
	}
	return r
}

// Perceive classifies a guard's view of a target at distance dist.
func Perceive(cfg config.Security, dist, rng float64, los, facing bool) Perception {
	switch {
	case dist > rng:
		return PerceiveNone
	case los && facing:
		return PerceiveFacing
	case los:
		return PerceivePeripheral
	case dist <= rng*cfg.OccludedRange:
		return PerceiveOccluded
	default:
		return PerceiveNone
	}
}

// SuspicionDelta is the change to a guard's suspicion over dt. factor is
// the access build factor; a fully suppressed player only lets suspicion
// decay.
func SuspicionDelta(cfg config.Security, p Perception, dt time.Duration, factor float64) float64 {
	sec := dt.Seconds()
	var rate float64
	switch p {
	case PerceiveFacing:
		rate = cfg.BuildRate
	case PerceivePeripheral:
		rate = cfg.BuildRate * cfg.PeripheralFraction
	case PerceiveOccluded:
		rate = cfg.BuildRate * cfg.OccludedFraction
	}
	if rate == 0 || factor <= 0 {
		return -cfg.DecayRate * sec
	}
	return rate * factor * sec
}
