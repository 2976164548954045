// Package ledger is the optional reputation-sharing integration. Local
// transactions never depend on it succeeding.
package ledger

import (
	"context"
	"log/slog"
	"time"
)

// Activity types reported to the ledger.
const (
	ActivitySale      = "sale"
	ActivityDelivery  = "delivery"
	ActivityObjective = "objective"
)

// Ledger receives (group, activity, quantity) notifications.
type Ledger interface {
	Notify(ctx context.Context, group, activity string, quantity int) error
}

// Nop is the ledger used when no integration is configured.
type Nop struct{}

func (Nop) Notify(context.Context, string, string, int) error { return nil }

// BestEffort wraps a Ledger so failures are logged and swallowed.
type BestEffort struct {
	next    Ledger
	timeout time.Duration
}

// NewBestEffort wraps next. A nil next behaves like Nop.
func NewBestEffort(next Ledger, timeout time.Duration) *BestEffort {
	if next == nil {
		next = Nop{}
	}
	return &BestEffort{next: next, timeout: timeout}
}

// Notify forwards to the wrapped ledger. Players without a group are skipped.
func (b *BestEffort) Notify(ctx context.Context, group, activity string, quantity int) {
	if group == "" {
		return
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	if err := b.next.Notify(ctx, group, activity, quantity); err != nil {
		slog.Warn("reputation ledger notify failed",
			"group", group,
			"activity", activity,
			"quantity", quantity,
			"error", err)
	}
}
