package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhirschtritt/account-ledger/internal/domain"
)

// DBAccountStore keeps one current projection row per account id. The pos
// column preserves first-insertion order for email lookups.
type DBAccountStore struct {
	db *pgxpool.Pool
}

func NewDBAccountStore(db *pgxpool.Pool) *DBAccountStore {
	return &DBAccountStore{
		db: db,
	}
}

func (r *DBAccountStore) Save(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (id, balance, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance, email = EXCLUDED.email
	`

	_, err := r.db.Exec(ctx, query,
		account.ID, account.Balance, account.Customer.Email)

	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	return nil
}

func (r *DBAccountStore) FindByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `
		SELECT id, balance, email
		FROM accounts
		WHERE id = $1
	`

	var account domain.Account
	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&account.ID, &account.Balance, &account.Customer.Email)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}

	return &account, nil
}

func (r *DBAccountStore) FindAllByEmail(ctx context.Context, email string) ([]domain.Account, error) {
	query := `
		SELECT id, balance, email
		FROM accounts
		WHERE email = $1
		ORDER BY pos
	`

	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by email: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(&account.ID, &account.Balance, &account.Customer.Email); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read account rows: %w", err)
	}

	return accounts, nil
}
