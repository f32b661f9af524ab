package repository

import (
	"context"
	"sync"

	"github.com/zhirschtritt/account-ledger/internal/domain"
	"github.com/zhirschtritt/account-ledger/internal/events"
)

// typecheck
var (
	_ domain.EventLog     = new(DBEventLog)
	_ domain.AccountStore = new(DBAccountStore)
	_ domain.EventLog     = new(MemoryEventLog)
	_ domain.AccountStore = new(MemoryAccountStore)
)

// MemoryEventLog is an in-memory EventLog with the same observable behavior
// as the database-backed log. Used by tests and by STORAGE=memory.
type MemoryEventLog struct {
	mu     sync.RWMutex
	events []events.Event
}

func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{}
}

func (l *MemoryEventLog) Append(ctx context.Context, event events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)
	return nil
}

func (l *MemoryEventLog) AppendAll(ctx context.Context, evs []events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, evs...)
	return nil
}

func (l *MemoryEventLog) FindByID(ctx context.Context, eventID string) (*events.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, ev := range l.events {
		if ev.ID == eventID {
			found := ev
			return &found, nil
		}
	}
	return nil, nil
}

func (l *MemoryEventLog) FindAllByAccount(ctx context.Context, accountID string) ([]events.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []events.Event
	for _, ev := range l.events {
		if ev.Payload.AccountID() == accountID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// MemoryAccountStore keys projections by account id and keeps first-insert
// order for email lookups.
type MemoryAccountStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Account
	order []string
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		byID: make(map[string]domain.Account),
	}
}

func (s *MemoryAccountStore) Save(ctx context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[account.ID]; !ok {
		s.order = append(s.order, account.ID)
	}
	s.byID[account.ID] = account
	return nil
}

func (s *MemoryAccountStore) FindByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byID[accountID]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

func (s *MemoryAccountStore) FindAllByEmail(ctx context.Context, email string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Account
	for _, id := range s.order {
		if account := s.byID[id]; account.Customer.Email == email {
			out = append(out, account)
		}
	}
	return out, nil
}
