package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/hotzone/internal/config"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMachine_TransitionOnlyToNextLevel(t *testing.T) {
	m := NewMachine(config.DefaultSecurity(), t0)

	assert.False(t, m.TransitionTo(LevelAlert, t0), "cannot skip suspicious")
	assert.False(t, m.TransitionTo(LevelPatrol, t0))
	require.True(t, m.TransitionTo(LevelSuspicious, t0))
	require.True(t, m.TransitionTo(LevelAlert, t0))
	require.True(t, m.TransitionTo(LevelCombat, t0))
	assert.False(t, m.TransitionTo(LevelCombat+1, t0))
	assert.Equal(t, LevelCombat, m.Level())
}

func TestMachine_EscalateNeverMovesBackward(t *testing.T) {
	m := NewMachine(config.DefaultSecurity(), t0)
	require.True(t, m.Escalate(TriggerNoise.Target(), t0))
	assert.Equal(t, LevelAlert, m.Level())

	assert.False(t, m.Escalate(LevelSuspicious, t0))
	assert.False(t, m.Escalate(TriggerDisguisePierced.Target(), t0), "already at alert")
	require.True(t, m.Escalate(TriggerGunshot.Target(), t0))
	assert.Equal(t, LevelCombat, m.Level())
	assert.False(t, m.Escalate(TriggerGuardKilled.Target(), t0))
}

func TestMachine_DecayStepsDownOneLevel(t *testing.T) {
	m := NewMachine(config.DefaultSecurity(), t0)
	require.True(t, m.Escalate(LevelCombat, t0))

	assert.False(t, m.Decay(t0.Add(44*time.Second)))
	require.True(t, m.Decay(t0.Add(45*time.Second)))
	assert.Equal(t, LevelAlert, m.Level(), "combat decays to alert, never straight to patrol")

	assert.False(t, m.Decay(t0.Add(74*time.Second)), "alert waits its own decay time")
	require.True(t, m.Decay(t0.Add(75*time.Second)))
	assert.Equal(t, LevelSuspicious, m.Level())

	require.True(t, m.Decay(t0.Add(95*time.Second)))
	assert.Equal(t, LevelPatrol, m.Level())
	assert.False(t, m.Decay(t0.Add(time.Hour)), "patrol is the floor")
}

func TestMachine_DetectionHoldsLevel(t *testing.T) {
	m := NewMachine(config.DefaultSecurity(), t0)
	require.True(t, m.TransitionTo(LevelSuspicious, t0))

	m.Detected(t0.Add(15 * time.Second))
	assert.False(t, m.Decay(t0.Add(25*time.Second)))
	assert.True(t, m.Decay(t0.Add(35*time.Second)))
}

func TestParseAlertLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    AlertLevel
		wantErr bool
	}{
		{"patrol", LevelPatrol, false},
		{"suspicious", LevelSuspicious, false},
		{"alert", LevelAlert, false},
		{"combat", LevelCombat, false},
		{"", LevelCombat, false},
		{"panic", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlertLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrigger_Target(t *testing.T) {
	assert.Equal(t, LevelCombat, TriggerGunshot.Target())
	assert.Equal(t, LevelCombat, TriggerGuardKilled.Target())
	assert.Equal(t, LevelAlert, TriggerNoise.Target())
	assert.Equal(t, LevelAlert, TriggerObjectiveDiscovered.Target())
	assert.Equal(t, LevelAlert, TriggerDisguisePierced.Target())
}
