// Package domain holds the typed identifiers shared across modules.
//
// IDs are distinct named UUID types so the compiler rejects cross-type
// assignment (an AccountID can never be passed where an ActorID is
// expected). Parsing enforces the invariant that externally supplied IDs
// are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "assetgate/pkg/domain-errors"
)

// AccountID identifies a holder of the asset. The nil UUID is reserved as
// the null-account sentinel used for issuance and redemption; ParseAccountID
// rejects it at trust boundaries, and NullAccount constructs it explicitly.
type AccountID uuid.UUID

// ActorID identifies the caller of an administrative operation.
type ActorID uuid.UUID

// NullAccount returns the sentinel account representing mint/burn.
func NullAccount() AccountID {
	return AccountID(uuid.Nil)
}

// IsNil reports whether the account is the null-account sentinel.
func (a AccountID) IsNil() bool {
	return uuid.UUID(a) == uuid.Nil
}

func (a AccountID) String() string {
	return uuid.UUID(a).String()
}

// IsNil reports whether the actor ID is unset.
func (a ActorID) IsNil() bool {
	return uuid.UUID(a) == uuid.Nil
}

func (a ActorID) String() string {
	return uuid.UUID(a).String()
}

// ParseAccountID parses an externally supplied account identifier.
// The null account is rejected here; callers that accept the sentinel
// (issuance, redemption) construct it via NullAccount instead.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

// ParseActorID parses an externally supplied actor identifier.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ActorID{}, err
	}
	return ActorID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
