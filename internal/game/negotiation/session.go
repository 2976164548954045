package negotiation

import (
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/hotzone/internal/model"
)

// State is where a session stands in the haggling protocol.
type State int

const (
	StateOpened State = iota
	StateCountered
	StateFinalOffer
	StateAccepted
)

func (s State) String() string {
	switch s {
	case StateOpened:
		return "opened"
	case StateCountered:
		return "countered"
	case StateFinalOffer:
		return "final_offer"
	case StateAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// Outcome is the buyer's answer to a counter-offer.
type Outcome int

const (
	OutcomeCountered Outcome = iota + 1
	OutcomeAccepted
	OutcomeWalkedAway
	OutcomeFinalOffer
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCountered:
		return "countered"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeWalkedAway:
		return "walked_away"
	case OutcomeFinalOffer:
		return "final_offer"
	default:
		return "unknown"
	}
}

// CloseReason says why a session ended.
type CloseReason string

const (
	CloseSold      CloseReason = "sold"
	CloseRisk      CloseReason = "risk"
	CloseWalkedOff CloseReason = "walked_away"
	CloseRefused   CloseReason = "refused"
	CloseExpired   CloseReason = "expired"
	CloseDropped   CloseReason = "dropped"
)

// Session is one player's open negotiation.
type Session struct {
	ID          uuid.UUID       `json:"id"`
	CitizenID   model.CitizenID `json:"citizen_id"`
	Group       string          `json:"group,omitempty"`
	ZoneID      string          `json:"zone_id"`
	ActorID     model.ActorID   `json:"actor_id,omitempty"`
	ArchetypeID string          `json:"archetype_id"`
	ItemID      string          `json:"item_id"`
	Quantity    int             `json:"quantity"`

	FairPrice    int64 `json:"-"`
	CurrentOffer int64 `json:"current_offer"`
	Round        int   `json:"round"`
	MaxRounds    int   `json:"max_rounds"`
	State        State `json:"state"`

	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// busy is set while Complete talks to the authority.
	busy bool
}

func (s *Session) expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Reply is the buyer's response to a counter-offer.
type Reply struct {
	SessionID uuid.UUID `json:"session_id"`
	Outcome   Outcome   `json:"outcome"`
	Price     int64     `json:"price"`
	Round     int       `json:"round"`
}
