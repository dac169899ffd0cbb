// Package models holds the compliance engine's data model.
package models

import "time"

// NoLimit disables a cap. Both transfer caps treat zero as "no limit".
const NoLimit int64 = 0

// SecondsPerDay fixes the quota window: day buckets are 24-hour UTC
// windows, never reset and never smoothed across boundaries.
const SecondsPerDay = 86_400

// DayIndex converts an instant to its quota day bucket.
func DayIndex(t time.Time) int64 {
	return t.Unix() / SecondsPerDay
}

// PolicySettings is the engine's mutable configuration. It is owned
// exclusively by the compliance service; only the controlling authority
// changes it.
type PolicySettings struct {
	CountryRestrictionsEnabled bool
	BlacklistEnabled           bool
	MaxTransferAmount          int64
	DailyTransferLimit         int64
}

// Deny reasons surfaced on decisions. The wire values are stable: they are
// used as metric labels and in audit events.
const (
	ReasonBlacklisted        = "blacklisted"
	ReasonUnverified         = "unverified"
	ReasonJurisdiction       = "jurisdiction_not_allowed"
	ReasonExceedsMaxTransfer = "exceeds_max_transfer"
	ReasonExceedsDailyLimit  = "exceeds_daily_limit"
)

// Decision is the outcome of a compliance check. Reason is empty when
// Allowed is true.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the positive decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny is a negative decision with its reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}
