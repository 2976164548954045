// Package reject defines the typed reasons returned to a player when an action
// is refused. Every rejection leaves state untouched; the presentation layer
// renders Code and the structured detail fields.
package reject

import (
	"errors"
	"fmt"
	"time"
)

// Kind groups rejections by cause.
type Kind int

const (
	// KindValidation: missing item, unknown identifier, absent or expired session.
	KindValidation Kind = iota + 1
	// KindAuthorization: alert level too high, access not met, cooldown active.
	KindAuthorization
	// KindConflict: a session or delivery is already open for the player.
	KindConflict
)

// String returns human-readable kind name
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Code is a stable machine-readable reason.
type Code string

const (
	CodeNoSession         Code = "no_session"
	CodeSessionExpired    Code = "session_expired"
	CodeMissingItem       Code = "missing_item"
	CodeInvalidZone       Code = "invalid_zone"
	CodeInvalidArchetype  Code = "invalid_archetype"
	CodeInvalidItem       Code = "invalid_item"
	CodeInvalidObjective  Code = "invalid_objective"
	CodeInvalidStep       Code = "invalid_step"
	CodeInvalidContact    Code = "invalid_contact"
	CodeInvalidPrice      Code = "invalid_price"
	CodeNotInRange        Code = "not_in_range"
	CodeAlertTooHigh      Code = "alert_too_high"
	CodeAccessDenied      Code = "access_denied"
	CodeCooldown          Code = "cooldown"
	CodeLockdown          Code = "lockdown"
	CodeSessionOpen       Code = "session_open"
	CodeDeliveryOpen      Code = "delivery_open"
	CodeInventoryFull     Code = "inventory_full"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeNoContacts        Code = "no_contacts"
	CodeStepLocked        Code = "step_locked"
)

var codeKinds = map[Code]Kind{
	CodeNoSession:         KindValidation,
	CodeSessionExpired:    KindValidation,
	CodeMissingItem:       KindValidation,
	CodeInvalidZone:       KindValidation,
	CodeInvalidArchetype:  KindValidation,
	CodeInvalidItem:       KindValidation,
	CodeInvalidObjective:  KindValidation,
	CodeInvalidStep:       KindValidation,
	CodeInvalidContact:    KindValidation,
	CodeInvalidPrice:      KindValidation,
	CodeNotInRange:        KindValidation,
	CodeNoContacts:        KindValidation,
	CodeStepLocked:        KindValidation,
	CodeAlertTooHigh:      KindAuthorization,
	CodeAccessDenied:      KindAuthorization,
	CodeCooldown:          KindAuthorization,
	CodeLockdown:          KindAuthorization,
	CodeInventoryFull:     KindAuthorization,
	CodeInsufficientFunds: KindAuthorization,
	CodeSessionOpen:       KindConflict,
	CodeDeliveryOpen:      KindConflict,
}

// Error is a structured rejection. Only the fields relevant to Code are set.
type Error struct {
	Kind   Kind
	Code   Code
	Detail string

	ItemID    string        // CodeMissingItem
	Shortfall int           // CodeMissingItem: how many more are needed
	Remaining time.Duration // CodeCooldown, CodeLockdown
	Required  string        // CodeAlertTooHigh (max level), CodeAccessDenied (item/tier)
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("rejected (%s): %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("rejected (%s): %s: %s", e.Kind, e.Code, e.Detail)
}

// New creates a rejection for code with a free-form detail.
func New(code Code, detail string) *Error {
	return &Error{Kind: codeKinds[code], Code: code, Detail: detail}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// MissingItem reports that the player holds have of itemID but need was required.
func MissingItem(itemID string, need, have int) *Error {
	e := Newf(CodeMissingItem, "need %d %s, have %d", need, itemID, have)
	e.ItemID = itemID
	e.Shortfall = need - have
	return e
}

// Cooldown reports an active cooldown with the time left.
func Cooldown(remaining time.Duration) *Error {
	e := Newf(CodeCooldown, "%s remaining", remaining.Round(time.Second))
	e.Remaining = remaining
	return e
}

// AlertTooHigh reports that the zone alert level exceeds the allowed maximum.
func AlertTooHigh(current, allowed string) *Error {
	e := Newf(CodeAlertTooHigh, "alert level %s, allowed up to %s", current, allowed)
	e.Required = allowed
	return e
}

// As extracts a rejection from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is a rejection with the given code.
func Is(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}
