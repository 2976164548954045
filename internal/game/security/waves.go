package security

import (
	"time"

	"github.com/udisondev/hotzone/internal/data"
)

// WaveScheduler releases reinforcement waves at fixed delays after combat
// starts. Once the scheduled waves are spent, continuous mode repeats the
// last wave every interval while combat lasts.
type WaveScheduler struct {
	waves      []data.WaveDef
	continuous bool
	interval   time.Duration

	started   bool
	start     time.Time
	fired     int
	lastExtra time.Time
}

// NewWaveScheduler creates a scheduler. waves must be ordered by Delay.
func NewWaveScheduler(waves []data.WaveDef, continuous bool, interval time.Duration) *WaveScheduler {
	return &WaveScheduler{waves: waves, continuous: continuous, interval: interval}
}

// Start arms the schedule at combat start. A running schedule is left alone.
func (w *WaveScheduler) Start(now time.Time) {
	if w.started {
		return
	}
	w.started = true
	w.start = now
	w.fired = 0
	w.lastExtra = time.Time{}
}

// Stop disarms the schedule when combat ends.
func (w *WaveScheduler) Stop() { w.started = false }

// Running reports whether combat waves are armed.
func (w *WaveScheduler) Running() bool { return w.started }

// Fired returns how many waves were released since Start.
func (w *WaveScheduler) Fired() int { return w.fired }

// MaxWaves is the number of scheduled waves.
func (w *WaveScheduler) MaxWaves() int { return len(w.waves) }

// Due returns the waves to release now.
func (w *WaveScheduler) Due(now time.Time) []data.WaveDef {
	if !w.started {
		return nil
	}
	var out []data.WaveDef
	for w.fired < len(w.waves) && now.Sub(w.start) >= w.waves[w.fired].Delay {
		out = append(out, w.waves[w.fired])
		w.fired++
		if w.fired == len(w.waves) {
			w.lastExtra = now
		}
	}
	if w.fired < len(w.waves) || !w.continuous || len(w.waves) == 0 || w.interval <= 0 {
		return out
	}
	if len(out) == 0 && now.Sub(w.lastExtra) >= w.interval {
		out = append(out, w.waves[len(w.waves)-1])
		w.fired++
		w.lastExtra = now
	}
	return out
}
