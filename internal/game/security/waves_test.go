package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/hotzone/internal/data"
)

func testWaves() []data.WaveDef {
	return []data.WaveDef{
		{Delay: 10 * time.Second, Count: 2, ArchetypeID: "swat"},
		{Delay: 30 * time.Second, Count: 4, ArchetypeID: "swat"},
	}
}

func TestWaveScheduler_Scheduled(t *testing.T) {
	w := NewWaveScheduler(testWaves(), false, time.Minute)
	assert.Empty(t, w.Due(t0.Add(time.Hour)), "not armed before combat")

	w.Start(t0)
	assert.Empty(t, w.Due(t0.Add(9*time.Second)))
	due := w.Due(t0.Add(10 * time.Second))
	require.Len(t, due, 1)
	assert.Equal(t, 2, due[0].Count)

	w.Start(t0.Add(20 * time.Second))
	assert.Equal(t, 1, w.Fired(), "restarting a running schedule is a no-op")

	assert.Len(t, w.Due(t0.Add(30*time.Second)), 1)
	assert.Empty(t, w.Due(t0.Add(time.Hour)), "no continuous waves")
	assert.Equal(t, w.MaxWaves(), w.Fired())
}

func TestWaveScheduler_CatchUp(t *testing.T) {
	w := NewWaveScheduler(testWaves(), false, time.Minute)
	w.Start(t0)
	assert.Len(t, w.Due(t0.Add(40*time.Second)), 2)
}

func TestWaveScheduler_Continuous(t *testing.T) {
	w := NewWaveScheduler(testWaves(), true, 45*time.Second)
	w.Start(t0)
	w.Due(t0.Add(30 * time.Second))
	require.Equal(t, 2, w.Fired())

	assert.Empty(t, w.Due(t0.Add(74*time.Second)))
	due := w.Due(t0.Add(75 * time.Second))
	require.Len(t, due, 1)
	assert.Equal(t, 4, due[0].Count, "last wave repeats")
	assert.Empty(t, w.Due(t0.Add(100*time.Second)))
	assert.Len(t, w.Due(t0.Add(120*time.Second)), 1)
	assert.Equal(t, 4, w.Fired())
}

func TestWaveScheduler_StopAndRestart(t *testing.T) {
	w := NewWaveScheduler(testWaves(), false, time.Minute)
	w.Start(t0)
	w.Due(t0.Add(10 * time.Second))
	w.Stop()
	assert.False(t, w.Running())
	assert.Empty(t, w.Due(t0.Add(time.Minute)))

	w.Start(t0.Add(2 * time.Minute))
	assert.Zero(t, w.Fired(), "a new combat starts the schedule over")
	assert.Len(t, w.Due(t0.Add(2*time.Minute+10*time.Second)), 1)
}
