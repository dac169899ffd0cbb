// Package postgres persists verification records in PostgreSQL.
//
// Counters are not stored: the totals and per-jurisdiction counts are
// aggregates over the records table, so the sum invariant holds by
// construction.
//
// Schema:
//
//	CREATE TABLE verification_records (
//	    account_id   UUID PRIMARY KEY,
//	    jurisdiction TEXT        NOT NULL,
//	    verified_at  TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX verification_records_jurisdiction_idx
//	    ON verification_records (jurisdiction);
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assetgate/internal/registry/models"
	id "assetgate/pkg/domain"
)

// Store is a PostgreSQL-backed registry store.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed registry store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, account id.AccountID) (*models.VerificationRecord, error) {
	var (
		jurisdiction string
		verifiedAt   time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT jurisdiction, verified_at FROM verification_records WHERE account_id = $1`,
		uuid.UUID(account),
	).Scan(&jurisdiction, &verifiedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get verification record: %w", err)
	}
	return &models.VerificationRecord{
		Account:      account,
		Verified:     true,
		Jurisdiction: jurisdiction,
		VerifiedAt:   verifiedAt,
	}, nil
}

func (s *Store) Upsert(ctx context.Context, account id.AccountID, jurisdiction string, verifiedAt time.Time) error {
	if err := upsert(ctx, s.db, account, jurisdiction, verifiedAt); err != nil {
		return fmt.Errorf("upsert verification record: %w", err)
	}
	return nil
}

func (s *Store) UpsertBatch(ctx context.Context, requests []models.VerificationRequest, verifiedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch verify: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, req := range requests {
		if err := upsert(ctx, tx, req.Account, req.Jurisdiction, verifiedAt); err != nil {
			return fmt.Errorf("batch verify %s: %w", req.Account, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch verify: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, account id.AccountID, jurisdiction string, verifiedAt time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO verification_records (account_id, jurisdiction, verified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE SET
			jurisdiction = EXCLUDED.jurisdiction,
			verified_at = EXCLUDED.verified_at
	`, uuid.UUID(account), jurisdiction, verifiedAt)
	return err
}

func (s *Store) Remove(ctx context.Context, account id.AccountID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM verification_records WHERE account_id = $1`,
		uuid.UUID(account),
	)
	if err != nil {
		return fmt.Errorf("remove verification record: %w", err)
	}
	return nil
}

func (s *Store) JurisdictionCount(ctx context.Context, jurisdiction string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_records WHERE jurisdiction = $1`,
		jurisdiction,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count jurisdiction: %w", err)
	}
	return count, nil
}

func (s *Store) TotalVerified(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verification_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count verified accounts: %w", err)
	}
	return count, nil
}
