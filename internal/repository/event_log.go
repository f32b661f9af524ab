package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhirschtritt/account-ledger/internal/events"
)

// DBEventLog stores events in Postgres. The seq column is a bigserial, so
// append order is authoritative and FindAllByAccount is deterministic.
type DBEventLog struct {
	db *pgxpool.Pool
}

func NewDBEventLog(db *pgxpool.Pool) *DBEventLog {
	return &DBEventLog{
		db: db,
	}
}

func (r *DBEventLog) Append(ctx context.Context, event events.Event) error {
	payload, err := events.EncodePayload(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	query := `
		INSERT INTO events (event_id, event_type, account_id, payload)
		VALUES ($1, $2, $3, $4)
	`

	_, err = r.db.Exec(ctx, query,
		event.ID, event.Type, event.Payload.AccountID(), payload)

	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

func (r *DBEventLog) AppendAll(ctx context.Context, evs []events.Event) error {
	if len(evs) == 0 {
		return nil
	}

	query := `
		INSERT INTO events (event_id, event_type, account_id, payload)
		VALUES
	`

	values := make([]string, len(evs))
	args := make([]interface{}, 0, len(evs)*4)
	argIndex := 1

	for i, event := range evs {
		payload, err := events.EncodePayload(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode event payload: %w", err)
		}

		values[i] = fmt.Sprintf("($%d, $%d, $%d, $%d)",
			argIndex, argIndex+1, argIndex+2, argIndex+3)

		args = append(args, event.ID, event.Type, event.Payload.AccountID(), payload)
		argIndex += 4
	}

	query += strings.Join(values, ", ")

	_, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to bulk insert events: %w", err)
	}

	return nil
}

func (r *DBEventLog) FindByID(ctx context.Context, eventID string) (*events.Event, error) {
	query := `
		SELECT event_id, event_type, payload
		FROM events
		WHERE event_id = $1
		ORDER BY seq
		LIMIT 1
	`

	var (
		event   events.Event
		payload []byte
	)
	err := r.db.QueryRow(ctx, query, eventID).Scan(&event.ID, &event.Type, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event by ID: %w", err)
	}

	event.Payload, err = events.DecodePayload(event.Type, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode event payload: %w", err)
	}

	return &event, nil
}

func (r *DBEventLog) FindAllByAccount(ctx context.Context, accountID string) ([]events.Event, error) {
	query := `
		SELECT event_id, event_type, payload
		FROM events
		WHERE account_id = $1
		ORDER BY seq
	`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by account: %w", err)
	}
	defer rows.Close()

	var evs []events.Event
	for rows.Next() {
		var (
			event   events.Event
			payload []byte
		)
		if err := rows.Scan(&event.ID, &event.Type, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		event.Payload, err = events.DecodePayload(event.Type, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode event payload: %w", err)
		}

		evs = append(evs, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event rows: %w", err)
	}

	return evs, nil
}
