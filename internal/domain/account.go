package domain

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/zhirschtritt/account-ledger/internal/events"
)

// Customer is the owner details carried on an account projection.
type Customer struct {
	Email string `json:"email"`
}

// Account is a read model derived from an account's event history. It is a
// cache of a fold over the event log and never the source of truth: every
// field is recomputable by replaying the account's events in arrival order.
type Account struct {
	ID       string          `json:"id"`
	Balance  decimal.Decimal `json:"balance"`
	Customer Customer        `json:"customer"`
}

// EventLog is the append-only canonical record of domain events. There are
// no update or delete operations. Appending never rejects a duplicate event
// id; FindByID returns the first stored match.
type EventLog interface {
	Append(ctx context.Context, event events.Event) error
	AppendAll(ctx context.Context, evs []events.Event) error
	// FindByID returns the first stored event with the given id, or nil
	// when no such event exists.
	FindByID(ctx context.Context, eventID string) (*events.Event, error)
	// FindAllByAccount returns the account's events in append order. The
	// same stored state always yields the same sequence.
	FindAllByAccount(ctx context.Context, accountID string) ([]events.Event, error)
}

// AccountStore holds materialized account projections keyed by account id.
// Save upserts the current projection for its id. Absence is a normal
// outcome: lookups return nil, not an error.
type AccountStore interface {
	Save(ctx context.Context, account Account) error
	FindByID(ctx context.Context, accountID string) (*Account, error)
	FindAllByEmail(ctx context.Context, email string) ([]Account, error)
}
