package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/zhirschtritt/account-ledger/internal/domain"
	"github.com/zhirschtritt/account-ledger/internal/events"
)

func created(id, accountID, email string) events.Event {
	return events.Event{
		ID:      id,
		Type:    events.TypeAccountCreated,
		Payload: events.AccountCreated{Account: accountID, Email: email},
	}
}

func deposit(id, accountID string, amount int64) events.Event {
	return events.Event{
		ID:   id,
		Type: events.TypeDepositConfirmed,
		Payload: events.DepositConfirmed{
			Account: accountID,
			Amount:  decimal.NewFromInt(amount),
		},
	}
}

func TestMemoryEventLogAppendOrder(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryEventLog()

	require.NoError(t, log.Append(ctx, created("evt-1", "123", "olu@example.com")))
	require.NoError(t, log.Append(ctx, deposit("evt-2", "999", 50)))
	require.NoError(t, log.Append(ctx, deposit("evt-3", "123", 100)))

	evs, err := log.FindAllByAccount(ctx, "123")
	require.NoError(t, err)
	require.Len(t, evs, 2)
	require.Equal(t, "evt-1", evs[0].ID)
	require.Equal(t, "evt-3", evs[1].ID)

	// repeated reads of unchanged state yield the same sequence
	again, err := log.FindAllByAccount(ctx, "123")
	require.NoError(t, err)
	require.Equal(t, evs, again)
}

func TestMemoryEventLogFindByIDReturnsFirstMatch(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryEventLog()

	// duplicate event ids are never rejected
	require.NoError(t, log.Append(ctx, deposit("evt-1", "123", 100)))
	require.NoError(t, log.Append(ctx, deposit("evt-1", "123", 999)))

	found, err := log.FindByID(ctx, "evt-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	payload := found.Payload.(events.DepositConfirmed)
	require.True(t, payload.Amount.Equal(decimal.NewFromInt(100)))
}

func TestMemoryEventLogFindByIDAbsent(t *testing.T) {
	log := NewMemoryEventLog()

	found, err := log.FindByID(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestMemoryEventLogAppendAll(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryEventLog()

	require.NoError(t, log.AppendAll(ctx, []events.Event{
		created("evt-1", "123", "olu@example.com"),
		deposit("evt-2", "123", 100),
	}))

	evs, err := log.FindAllByAccount(ctx, "123")
	require.NoError(t, err)
	require.Len(t, evs, 2)
}

func TestMemoryAccountStoreUpsertsByID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAccountStore()

	require.NoError(t, store.Save(ctx, domain.Account{
		ID:       "123",
		Balance:  decimal.Zero,
		Customer: domain.Customer{Email: "olu@example.com"},
	}))
	require.NoError(t, store.Save(ctx, domain.Account{
		ID:       "123",
		Balance:  decimal.NewFromInt(100),
		Customer: domain.Customer{Email: "olu@example.com"},
	}))

	account, err := store.FindByID(ctx, "123")
	require.NoError(t, err)
	require.NotNil(t, account)
	require.True(t, account.Balance.Equal(decimal.NewFromInt(100)))

	accounts, err := store.FindAllByEmail(ctx, "olu@example.com")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}

func TestMemoryAccountStoreFindAllByEmailKeepsInsertOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAccountStore()

	require.NoError(t, store.Save(ctx, domain.Account{ID: "b", Customer: domain.Customer{Email: "shared@example.com"}}))
	require.NoError(t, store.Save(ctx, domain.Account{ID: "a", Customer: domain.Customer{Email: "shared@example.com"}}))
	require.NoError(t, store.Save(ctx, domain.Account{ID: "c", Customer: domain.Customer{Email: "other@example.com"}}))

	accounts, err := store.FindAllByEmail(ctx, "shared@example.com")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, "b", accounts[0].ID)
	require.Equal(t, "a", accounts[1].ID)
}

func TestMemoryAccountStoreFindByIDAbsent(t *testing.T) {
	store := NewMemoryAccountStore()

	account, err := store.FindByID(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, account)
}
