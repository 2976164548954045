package delivery

import (
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/hotzone/internal/game/risk"
	"github.com/udisondev/hotzone/internal/game/roll"
	"github.com/udisondev/hotzone/internal/model"
)

// Order is one line of a contact's order.
type Order struct {
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Contact is a delivery offer: who wants what, where and for how much.
type Contact struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	ZoneID    string         `json:"zone_id"`
	Orders    []Order        `json:"orders"`
	Location  model.Location `json:"location"`
	Payment   int64          `json:"payment"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Session is an accepted delivery. A player holds at most one.
type Session struct {
	Contact   Contact         `json:"contact"`
	CitizenID model.CitizenID `json:"citizen_id"`
	Group     string          `json:"group,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	ExpiresAt time.Time       `json:"expires_at"`

	busy bool
}

func (s *Session) expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Result is the outcome of Complete.
type Result struct {
	ContactID  uuid.UUID     `json:"contact_id"`
	Payment    int64         `json:"payment"`
	Risk       *risk.Outcome `json:"risk,omitempty"`
	ItemsTaken int           `json:"items_taken,omitempty"`
	Reputation float64       `json:"reputation"`
}

// offers are the contacts generated for one player.
type offers struct {
	contacts    []Contact
	generatedAt time.Time
}

var (
	namePrefixes = []string{"Big", "Lil", "Slim", "Old", "Crazy", "Quiet", "Fast", "Lucky", "Cold", "Sweet"}
	nameRoots    = []string{"Tony", "Dre", "Mack", "Lou", "Vic", "Ray", "Benny", "Jules", "Rico", "Marv", "Sal", "Nico"}
)

func contactName(src roll.Source) string {
	return namePrefixes[src.IntN(len(namePrefixes))] + " " + nameRoots[src.IntN(len(nameRoots))]
}
