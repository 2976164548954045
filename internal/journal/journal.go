package journal

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/udisondev/hotzone/internal/events"
)

// DefaultKinds are journaled when New gets no kinds. Spawn and activation
// churn is left to the observer stream.
var DefaultKinds = []events.Kind{
	events.KindSale,
	events.KindWalkAway,
	events.KindRisk,
	events.KindLockdown,
	events.KindLockdownCleared,
	events.KindHeatSet,
	events.KindAlert,
	events.KindWave,
	events.KindObjectiveOpened,
	events.KindDeliveryAccept,
	events.KindDeliveryDone,
	events.KindDeliveryCancel,
}

const (
	queueSize     = 1024
	flushInterval = 5 * time.Second
)

// Journal is an events.Sink that writes selected kinds through a Writer
// on its own goroutine. Publish never blocks; a full queue drops the event.
type Journal struct {
	w     *Writer
	kinds map[events.Kind]struct{}
	queue chan events.Event

	dropped atomic.Int64
}

var _ events.Sink = (*Journal)(nil)

// New creates a journal over w recording the given kinds, DefaultKinds if empty.
func New(w *Writer, kinds ...events.Kind) *Journal {
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}
	set := make(map[events.Kind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return &Journal{w: w, kinds: set, queue: make(chan events.Event, queueSize)}
}

// Publish enqueues e if its kind is journaled.
func (j *Journal) Publish(e events.Event) {
	if _, ok := j.kinds[e.Kind]; !ok {
		return
	}
	select {
	case j.queue <- e:
	default:
		j.dropped.Add(1)
	}
}

// Dropped returns how many events were lost to a full queue.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Run drains the queue into the writer until ctx is cancelled, then writes
// what is still queued and closes the file.
func (j *Journal) Run(ctx context.Context) error {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.drain()
			if err := j.w.Close(); err != nil {
				slog.Error("closing journal", "error", err)
			}
			return ctx.Err()
		case e := <-j.queue:
			j.write(e)
		case <-ticker.C:
			if err := j.w.Flush(); err != nil {
				slog.Error("flushing journal", "error", err)
			}
			if n := j.dropped.Swap(0); n > 0 {
				slog.Warn("journal queue overflow", "dropped", n)
			}
		}
	}
}

func (j *Journal) drain() {
	for {
		select {
		case e := <-j.queue:
			j.write(e)
		default:
			return
		}
	}
}

func (j *Journal) write(e events.Event) {
	if err := j.w.Write(e); err != nil {
		slog.Error("writing journal entry", "kind", e.Kind, "zone", e.ZoneID, "error", err)
	}
}
