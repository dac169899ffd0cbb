// Package ports defines shared interfaces consumed by multiple modules.
// Interfaces are placed here when consumed by more than one service to
// avoid duplication.
package ports

import (
	"context"
	"log/slog"

	id "assetgate/pkg/domain"
	audit "assetgate/pkg/platform/audit"
	"assetgate/pkg/requestcontext"
)

// Authorizer decides whether a caller is the controlling authority for
// administrative mutations. Services consult it before any state change;
// the HTTP edge only authenticates.
type Authorizer interface {
	IsAuthorized(ctx context.Context, actor id.ActorID) bool
}

// AuditPublisher emits audit events for state-changing operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// IdentityReader is the narrow read-only view of the identity registry the
// compliance engine is allowed to see. Keeping it this small prevents any
// mutation path that bypasses the registry's counter invariants.
type IdentityReader interface {
	// IsVerified reports whether the account currently holds an active
	// verification record.
	IsVerified(ctx context.Context, account id.AccountID) (bool, error)

	// JurisdictionOf returns the stored jurisdiction, or the empty string
	// for unverified accounts.
	JurisdictionOf(ctx context.Context, account id.AccountID) (string, error)
}

// LogAudit is a shared helper for emitting audit events across services.
// It logs to the structured logger and forwards a typed event to the
// publisher if one is configured.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event, attrs ...any) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Category == "" {
		event.Category = audit.CategoryFor(audit.AuditEvent(event.Action))
	}

	args := append(attrs, "event", event.Action, "log_type", "audit")
	if event.RequestID != "" {
		args = append(args, "request_id", event.RequestID)
	}

	if logger != nil {
		logger.InfoContext(ctx, event.Action, args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
