// Package inventory is the request/response contract with the authoritative
// process that owns player items and money. The zone core never stores
// either; it asks, and the authority answers.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/udisondev/hotzone/internal/model"
)

//go:generate go tool mockgen -destination=./mocks/authority_mock.go -package=mocks . Authority

// Authority is one RPC boundary regardless of transport.
type Authority interface {
	CheckAccessItem(ctx context.Context, player model.CitizenID, itemID string) (bool, error)
	ConsumeAccessItem(ctx context.Context, player model.CitizenID, itemID string) (bool, error)

	GetItemCount(ctx context.Context, player model.CitizenID, itemID string) (int, error)
	RemoveItem(ctx context.Context, player model.CitizenID, itemID string, qty int) (bool, error)
	AddItem(ctx context.Context, player model.CitizenID, itemID string, qty int) (bool, error)
	CanCarryItem(ctx context.Context, player model.CitizenID, itemID string, qty int) (bool, error)

	AddMoney(ctx context.Context, player model.CitizenID, amount int64, memo string) error
	RemoveMoney(ctx context.Context, player model.CitizenID, amount int64, memo string) (bool, error)
	GetMoney(ctx context.Context, player model.CitizenID) (int64, error)
}

// timeoutAuthority bounds every call with a deadline so an unresponsive
// authority suspends only the caller that asked.
type timeoutAuthority struct {
	next    Authority
	timeout time.Duration
}

// WithTimeout wraps an Authority so that each call gets its own deadline.
// A non-positive timeout returns next unchanged.
func WithTimeout(next Authority, timeout time.Duration) Authority {
	if timeout <= 0 {
		return next
	}
	return &timeoutAuthority{next: next, timeout: timeout}
}

func (a *timeoutAuthority) CheckAccessItem(ctx context.Context, player model.CitizenID, itemID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	ok, err := a.next.CheckAccessItem(ctx, player, itemID)
	if err != nil {
		return false, fmt.Errorf("check access item %s: %w", itemID, err)
	}
	return ok, nil
}

func (a *timeoutAuthority) ConsumeAccessItem(ctx context.Context, player model.CitizenID, itemID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	ok, err := a.next.ConsumeAccessItem(ctx, player, itemID)
	if err != nil {
		return false, fmt.Errorf("consume access item %s: %w", itemID, err)
	}
	return ok, nil
}

func (a *timeoutAuthority) GetItemCount(ctx context.Context, player model.CitizenID, itemID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	n, err := a.next.GetItemCount(ctx, player, itemID)
	if err != nil {
		return 0, fmt.Errorf("get item count %s: %w", itemID, err)
	}
	return n, nil
}

func (a *timeoutAuthority) RemoveItem(ctx context.Context, player model.CitizenID, itemID string, qty int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	ok, err := a.next.RemoveItem(ctx, player, itemID, qty)
	if err != nil {
		return false, fmt.Errorf("remove item %s x%d: %w", itemID, qty, err)
	}
	return ok, nil
}

func (a *timeoutAuthority) AddItem(ctx context.Context, player model.CitizenID, itemID string, qty int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	ok, err := a.next.AddItem(ctx, player, itemID, qty)
	if err != nil {
		return false, fmt.Errorf("add item %s x%d: %w", itemID, qty, err)
	}
	return ok, nil
}

func (a *timeoutAuthority) CanCarryItem(ctx context.Context, player model.CitizenID, itemID string, qty int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	ok, err := a.next.CanCarryItem(ctx, player, itemID, qty)
	if err != nil {
		return false, fmt.Errorf("can carry item %s x%d: %w", itemID, qty, err)
	}
	return ok, nil
}

func (a *timeoutAuthority) AddMoney(ctx context.Context, player model.CitizenID, amount int64, memo string) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if err := a.next.AddMoney(ctx, player, amount, memo); err != nil {
		return fmt.Errorf("add money %d: %w", amount, err)
	}
	return nil
}

func (a *timeoutAuthority) RemoveMoney(ctx context.Context, player model.CitizenID, amount int64, memo string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	ok, err := a.next.RemoveMoney(ctx, player, amount, memo)
	if err != nil {
		return false, fmt.Errorf("remove money %d: %w", amount, err)
	}
	return ok, nil
}

func (a *timeoutAuthority) GetMoney(ctx context.Context, player model.CitizenID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	n, err := a.next.GetMoney(ctx, player)
	if err != nil {
		return 0, fmt.Errorf("get money: %w", err)
	}
	return n, nil
}
