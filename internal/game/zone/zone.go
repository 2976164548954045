// Package zone tracks which encounter zones each player is standing in. Zones
// are built from catalog definitions and indexed on a coarse spatial grid so a
// position update only tests nearby zones.
package zone

import (
	"github.com/udisondev/hotzone/internal/model"
)

// Listener is notified when a player crosses a zone boundary. Callbacks run
// on the goroutine that called Revalidate and must not block.
type Listener interface {
	OnEnter(z *Zone, p model.PlayerSnapshot)
	OnExit(z *Zone, citizen model.CitizenID)
}

// ListenerFuncs adapts two functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Enter func(z *Zone, p model.PlayerSnapshot)
	Exit  func(z *Zone, citizen model.CitizenID)
}

func (l ListenerFuncs) OnEnter(z *Zone, p model.PlayerSnapshot) {
	if l.Enter != nil {
		l.Enter(z, p)
	}
}

func (l ListenerFuncs) OnExit(z *Zone, citizen model.CitizenID) {
	if l.Exit != nil {
		l.Exit(z, citizen)
	}
}
