package domain

import (
	"context"
	"fmt"

	"github.com/zhirschtritt/account-ledger/internal/events"
)

// Ledger is the single write entry point: callers never touch the event log
// or the account store directly. Append and rebuild run sequentially and are
// not transactional; when a rebuild fails the event is already durable and
// the projection lags until the account is rebuilt again.
type Ledger struct {
	log     EventLog
	builder *Builder
}

func NewLedger(log EventLog, builder *Builder) *Ledger {
	return &Ledger{log: log, builder: builder}
}

func (l *Ledger) Send(ctx context.Context, event events.Event) error {
	if err := l.log.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to append event %s: %w", event.ID, err)
	}

	if _, err := l.builder.Rebuild(ctx, event.Payload.AccountID()); err != nil {
		return fmt.Errorf("event %s appended but projection rebuild failed: %w", event.ID, err)
	}

	return nil
}

// SendBatch appends a batch of events in one write and rebuilds each
// affected account once, in first-seen order. All events for one account
// must flow through a single batch stream to keep its fold deterministic.
func (l *Ledger) SendBatch(ctx context.Context, evs []events.Event) error {
	if len(evs) == 0 {
		return nil
	}

	if err := l.log.AppendAll(ctx, evs); err != nil {
		return fmt.Errorf("failed to append %d events: %w", len(evs), err)
	}

	seen := make(map[string]bool, len(evs))
	for _, ev := range evs {
		accountID := ev.Payload.AccountID()
		if seen[accountID] {
			continue
		}
		seen[accountID] = true

		if _, err := l.builder.Rebuild(ctx, accountID); err != nil {
			return fmt.Errorf("batch appended but projection rebuild failed for account %s: %w", accountID, err)
		}
	}

	return nil
}
