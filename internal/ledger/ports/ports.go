// Package ports defines what the ledger needs from the compliance engine.
package ports

import (
	"context"

	id "assetgate/pkg/domain"
)

// ComplianceEngine is the boundary contract the ledger honors: ask before
// any balance change, record after a committed transfer. The engine trusts
// the ledger to call both in the correct order and exactly once.
type ComplianceEngine interface {
	IsAllowed(ctx context.Context, from, to id.AccountID, amount int64) (bool, error)
	RecordTransfer(ctx context.Context, from id.AccountID, amount int64) error
}
