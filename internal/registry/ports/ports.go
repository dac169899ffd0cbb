// Package ports defines the storage interface behind the identity registry.
package ports

import (
	"context"
	"time"

	"assetgate/internal/registry/models"
	id "assetgate/pkg/domain"
)

// Store persists verification records and the derived jurisdiction counters.
//
// Implementations must keep the counters consistent with the records within
// each call: Upsert moves an account's jurisdiction count atomically when the
// jurisdiction changes, Remove decrements, and UpsertBatch applies all
// elements or none. Decrements floor at zero to tolerate prior inconsistency
// rather than propagate it.
type Store interface {
	// Get returns the record for an account, or nil if none exists.
	Get(ctx context.Context, account id.AccountID) (*models.VerificationRecord, error)

	// Upsert writes a verified record. A new account increments the total
	// and its jurisdiction count; a jurisdiction change moves the count;
	// re-verification with the same jurisdiction touches no counter.
	Upsert(ctx context.Context, account id.AccountID, jurisdiction string, verifiedAt time.Time) error

	// UpsertBatch applies Upsert semantics to every element atomically.
	UpsertBatch(ctx context.Context, requests []models.VerificationRequest, verifiedAt time.Time) error

	// Remove deletes the record and decrements the counters. Removing an
	// absent account is a no-op at the store level; the service enforces
	// NotFound before calling.
	Remove(ctx context.Context, account id.AccountID) error

	// JurisdictionCount returns the number of verified accounts in the
	// jurisdiction.
	JurisdictionCount(ctx context.Context, jurisdiction string) (int64, error)

	// TotalVerified returns the number of accounts with an active record.
	TotalVerified(ctx context.Context) (int64, error)
}
