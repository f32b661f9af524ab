package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/zhirschtritt/account-ledger/internal/events"
)

// Builder folds an account's event history into a single Account projection
// and persists it. The derivation logic lives here, not in the store.
type Builder struct {
	log      EventLog
	accounts AccountStore
}

func NewBuilder(log EventLog, accounts AccountStore) *Builder {
	return &Builder{log: log, accounts: accounts}
}

// Rebuild replays all events for the account and saves the resulting
// projection. Events of unrecognized kinds are skipped so producers can
// introduce new kinds ahead of this build. When no recognized event exists
// for the account nothing is saved and a nil account is returned.
func (b *Builder) Rebuild(ctx context.Context, accountID string) (*Account, error) {
	evs, err := b.log.FindAllByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for account %s: %w", accountID, err)
	}

	var account Account
	applied := false
	for _, ev := range evs {
		next, ok := apply(account, ev)
		if !ok {
			continue
		}
		account = next
		applied = true
	}

	if !applied {
		return nil, nil
	}

	if err := b.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save projection for account %s: %w", accountID, err)
	}

	return &account, nil
}

// apply is one fold step. Each recognized event replaces the accumulator
// wholesale: id, balance and email are assigned, never accumulated, so the
// balance reflects the most recent deposit amount rather than a running sum.
// Payload fields are folded as-is; validation is the producer's job.
func apply(account Account, ev events.Event) (Account, bool) {
	switch p := ev.Payload.(type) {
	case events.AccountCreated:
		return Account{
			ID:       p.Account,
			Balance:  decimal.Zero,
			Customer: Customer{Email: p.Email},
		}, true
	case events.DepositConfirmed:
		return Account{
			ID:       p.Account,
			Balance:  p.Amount,
			Customer: Customer{Email: p.Email},
		}, true
	default:
		return account, false
	}
}
