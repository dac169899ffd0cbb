// Package audit defines the append-only audit trail shared by all modules.
//
// Every administrative mutation and every recorded transfer emits one Event.
// The trail is the only observability surface the core guarantees: external
// auditors consume it instead of polling state.
package audit

import (
	"time"

	id "assetgate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: verification changes, policy changes, recorded transfers.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: blacklist changes, denied admin calls.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string

	// Account the event is about; the null account for policy-wide changes.
	Account id.AccountID
	// Actor is the authority that performed the change; zero for events
	// produced by the transfer path rather than an admin call.
	Actor id.ActorID

	// Field/Value carry the changed policy field and its new value for
	// administrative events, so auditors never need to poll state.
	Field string
	Value string

	// Amount is set for transfer-volume events.
	Amount int64

	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
}

type AuditEvent string

const (
	// Identity registry events
	EventAccountVerified AuditEvent = "account_verified"
	EventAccountRevoked  AuditEvent = "account_revoked"

	// Compliance policy events
	EventJurisdictionRuleSet        AuditEvent = "jurisdiction_rule_set"
	EventJurisdictionChecksToggled  AuditEvent = "jurisdiction_checks_toggled"
	EventBlacklistEntrySet          AuditEvent = "blacklist_entry_set"
	EventBlacklistChecksToggled     AuditEvent = "blacklist_checks_toggled"
	EventMaxTransferAmountSet       AuditEvent = "max_transfer_amount_set"
	EventDailyTransferLimitSet      AuditEvent = "daily_transfer_limit_set"

	// Transfer events
	EventTransferRecorded AuditEvent = "transfer_recorded"
	EventTransferDenied   AuditEvent = "transfer_denied"

	// Ledger events
	EventTokensMinted      AuditEvent = "tokens_minted"
	EventTokensBurned      AuditEvent = "tokens_burned"
	EventTokensTransferred AuditEvent = "tokens_transferred"
)

// eventCategories maps each audit event to its category.
// Compliance: legal/regulatory significance, long retention required.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	EventAccountVerified:       CategoryCompliance,
	EventAccountRevoked:        CategoryCompliance,
	EventJurisdictionRuleSet:   CategoryCompliance,
	EventMaxTransferAmountSet:  CategoryCompliance,
	EventDailyTransferLimitSet: CategoryCompliance,
	EventTransferRecorded:      CategoryCompliance,
	EventTokensMinted:          CategoryCompliance,
	EventTokensBurned:          CategoryCompliance,

	EventBlacklistEntrySet:         CategorySecurity,
	EventBlacklistChecksToggled:    CategorySecurity,
	EventJurisdictionChecksToggled: CategorySecurity,
	EventTransferDenied:            CategorySecurity,

	EventTokensTransferred: CategoryOperations,
}

// CategoryFor returns the category an event routes to, defaulting to
// operations for events that were never classified.
func CategoryFor(event AuditEvent) EventCategory {
	if category, ok := eventCategories[event]; ok {
		return category
	}
	return CategoryOperations
}
