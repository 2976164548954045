// Package security runs guarded zones: per-guard suspicion feeding a
// zone-wide alert state machine, reinforcement waves, guard morale and
// multi-step objectives players can break into.
package security

import (
	"fmt"
	"time"

	"github.com/udisondev/hotzone/internal/config"
)

// AlertLevel is a zone's alert state. Levels are strictly ordered.
type AlertLevel int

const (
	LevelPatrol AlertLevel = iota
	LevelSuspicious
	LevelAlert
	LevelCombat
)

// String returns human-readable level name
func (l AlertLevel) String() string {
	switch l {
	case LevelPatrol:
		return "patrol"
	case LevelSuspicious:
		return "suspicious"
	case LevelAlert:
		return "alert"
	case LevelCombat:
		return "combat"
	default:
		return "unknown"
	}
}

// ParseAlertLevel parses a catalog level name. Empty means combat, i.e. no
// restriction.
func ParseAlertLevel(s string) (AlertLevel, error) {
	switch s {
	case "patrol":
		return LevelPatrol, nil
	case "suspicious":
		return LevelSuspicious, nil
	case "alert":
		return LevelAlert, nil
	case "combat", "":
		return LevelCombat, nil
	default:
		return 0, fmt.Errorf("unknown alert level %q", s)
	}
}

// Tuning returns the per-level parameters from cfg.
func Tuning(cfg config.Security, l AlertLevel) config.AlertTuning {
	switch l {
	case LevelSuspicious:
		return cfg.Suspicious
	case LevelAlert:
		return cfg.Alert
	case LevelCombat:
		return cfg.Combat
	default:
		return cfg.Patrol
	}
}

// Machine is the alert state machine of one zone. Not safe for concurrent
// use; the owning instance serializes access.
type Machine struct {
	cfg          config.Security
	level        AlertLevel
	changedAt    time.Time
	lastDetected time.Time
}

// NewMachine returns a machine at Patrol.
func NewMachine(cfg config.Security, now time.Time) *Machine {
	return &Machine{cfg: cfg, changedAt: now, lastDetected: now}
}

// Level returns the current level.
func (m *Machine) Level() AlertLevel { return m.level }

// ChangedAt returns when the level last changed.
func (m *Machine) ChangedAt() time.Time { return m.changedAt }

// Settings returns the tuning of the current level.
func (m *Machine) Settings() config.AlertTuning { return Tuning(m.cfg, m.level) }

// Detected records a detection, resetting the decay timer.
func (m *Machine) Detected(now time.Time) { m.lastDetected = now }

// TransitionTo moves forward exactly one level. Any other target is refused.
func (m *Machine) TransitionTo(target AlertLevel, now time.Time) bool {
	if target != m.level+1 || target > LevelCombat {
		return false
	}
	m.set(target, now)
	return true
}

// Escalate jumps straight to target when it is above the current level.
// It never moves backward.
func (m *Machine) Escalate(target AlertLevel, now time.Time) bool {
	if target <= m.level || target > LevelCombat {
		return false
	}
	m.set(target, now)
	return true
}

// Decay steps down one level once nothing has been detected for the current
// level's DecayAfter. Patrol does not decay.
func (m *Machine) Decay(now time.Time) bool {
	if m.level == LevelPatrol {
		return false
	}
	if now.Sub(m.lastDetected) < m.Settings().DecayAfter {
		return false
	}
	m.set(m.level-1, now)
	return true
}

func (m *Machine) set(l AlertLevel, now time.Time) {
	m.level = l
	m.changedAt = now
	m.lastDetected = now
}

// Trigger is an instant-escalation stimulus.
type Trigger int

const (
	TriggerGunshot Trigger = iota + 1
	TriggerNoise
	TriggerGuardKilled
	TriggerObjectiveDiscovered
	TriggerDisguisePierced
)

// String returns human-readable trigger name
func (t Trigger) String() string {
	switch t {
	case TriggerGunshot:
		return "gunshot"
	case TriggerNoise:
		return "noise"
	case TriggerGuardKilled:
		return "guard_killed"
	case TriggerObjectiveDiscovered:
		return "objective_discovered"
	case TriggerDisguisePierced:
		return "disguise_pierced"
	default:
		return "unknown"
	}
}

// Target returns the level a trigger escalates to.
func (t Trigger) Target() AlertLevel {
	switch t {
	case TriggerGunshot, TriggerGuardKilled:
		return LevelCombat
	default:
		return LevelAlert
	}
}
