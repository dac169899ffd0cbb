// Package postgres persists audit events in an append-only table.
//
// Schema:
//
//	CREATE TABLE audit_events (
//	    id          BIGSERIAL PRIMARY KEY,
//	    category    TEXT        NOT NULL,
//	    occurred_at TIMESTAMPTZ NOT NULL,
//	    action      TEXT        NOT NULL,
//	    account_id  UUID        NOT NULL,
//	    actor_id    UUID        NOT NULL,
//	    field       TEXT        NOT NULL DEFAULT '',
//	    value       TEXT        NOT NULL DEFAULT '',
//	    amount      BIGINT      NOT NULL DEFAULT 0,
//	    request_id  TEXT        NOT NULL DEFAULT ''
//	);
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "assetgate/pkg/domain"
	audit "assetgate/pkg/platform/audit"
)

// Store is a PostgreSQL-backed append-only audit store.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (category, occurred_at, action, account_id, actor_id, field, value, amount, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(event.Category),
		event.Timestamp,
		event.Action,
		uuid.UUID(event.Account),
		uuid.UUID(event.Actor),
		event.Field,
		event.Value,
		event.Amount,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByAccount(ctx context.Context, accountID string) ([]audit.Event, error) {
	query := `
		SELECT category, occurred_at, action, account_id, actor_id, field, value, amount, request_id
		FROM audit_events
		WHERE account_id = $1
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list audit events by account: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, occurred_at, action, account_id, actor_id, field, value, amount, request_id
		FROM (
			SELECT * FROM audit_events ORDER BY id DESC LIMIT $1
		) recent
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event     audit.Event
			category  string
			accountID uuid.UUID
			actorID   uuid.UUID
		)
		if err := rows.Scan(&category, &event.Timestamp, &event.Action, &accountID, &actorID,
			&event.Field, &event.Value, &event.Amount, &event.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.Account = id.AccountID(accountID)
		event.Actor = id.ActorID(actorID)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
