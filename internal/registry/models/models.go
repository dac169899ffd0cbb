// Package models holds the identity registry's data model.
package models

import (
	"time"

	id "assetgate/pkg/domain"
)

// VerificationRecord is the per-account verification state. A record with
// Verified false carries no meaningful jurisdiction (always the empty
// string).
type VerificationRecord struct {
	Account      id.AccountID
	Verified     bool
	Jurisdiction string
	VerifiedAt   time.Time
}

// VerificationRequest is one element of a verify or batch-verify call.
type VerificationRequest struct {
	Account      id.AccountID
	Jurisdiction string
}
