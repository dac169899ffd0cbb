// Package ports defines the storage interface behind the compliance engine's
// quota bookkeeping.
package ports

import (
	"context"

	id "assetgate/pkg/domain"
)

// UsageStore tracks cumulative transferred volume per (account, day bucket).
//
// Usage is monotonically non-decreasing within a day and entries are never
// deleted; one entry per account per active day is an accepted trade-off of
// the design.
type UsageStore interface {
	// Add increments the volume for an account's day bucket.
	Add(ctx context.Context, account id.AccountID, day int64, amount int64) error

	// Get returns the cumulative volume for an account's day bucket,
	// zero if nothing was recorded.
	Get(ctx context.Context, account id.AccountID, day int64) (int64, error)
}
