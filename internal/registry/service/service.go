// Package service implements the identity registry: the single source of
// truth for which accounts may hold or move the asset, and in which
// jurisdiction.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"assetgate/internal/ports"
	"assetgate/internal/registry/metrics"
	"assetgate/internal/registry/models"
	registryports "assetgate/internal/registry/ports"
	id "assetgate/pkg/domain"
	dErrors "assetgate/pkg/domain-errors"
	audit "assetgate/pkg/platform/audit"
	"assetgate/pkg/requestcontext"
)

const (
	// MaxJurisdictionLen bounds stored jurisdiction codes.
	MaxJurisdictionLen = 50
	// MaxBatchSize bounds batch verification calls.
	MaxBatchSize = 100
)

// Type aliases for shared interfaces.
type (
	Store          = registryports.Store
	Authorizer     = ports.Authorizer
	AuditPublisher = ports.AuditPublisher
)

type Service struct {
	store          Store
	authorizer     Authorizer
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, authorizer Authorizer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("registry store is required")
	}
	if authorizer == nil {
		return nil, fmt.Errorf("authorizer is required")
	}

	svc := &Service{
		store:      store,
		authorizer: authorizer,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Verify marks an account as verified in the given jurisdiction. Re-verifying
// an already-verified account updates the record in place; a jurisdiction
// change moves the aggregate counts, and an unchanged jurisdiction leaves
// them untouched.
func (s *Service) Verify(ctx context.Context, account id.AccountID, jurisdiction string) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}
	if err := validateVerification(account, jurisdiction); err != nil {
		return err
	}

	if err := s.store.Upsert(ctx, account, jurisdiction, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification")
	}

	s.afterVerification(ctx, account, jurisdiction)
	return nil
}

// BatchVerify applies Verify semantics to every element as a unit: all
// elements are validated before any mutation, and the store applies them
// atomically.
func (s *Service) BatchVerify(ctx context.Context, accounts []id.AccountID, jurisdictions []string) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}

	if len(accounts) != len(jurisdictions) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "batch length mismatch: %d accounts, %d jurisdictions",
			len(accounts), len(jurisdictions))
	}
	if len(accounts) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "batch is empty")
	}
	if len(accounts) > MaxBatchSize {
		return dErrors.Newf(dErrors.CodeInvalidInput, "batch size %d exceeds bound %d", len(accounts), MaxBatchSize)
	}

	requests := make([]models.VerificationRequest, len(accounts))
	for i, account := range accounts {
		if err := validateVerification(account, jurisdictions[i]); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("batch element %d", i))
		}
		requests[i] = models.VerificationRequest{Account: account, Jurisdiction: jurisdictions[i]}
	}

	if err := s.store.UpsertBatch(ctx, requests, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store batch verification")
	}

	for _, req := range requests {
		s.afterVerification(ctx, req.Account, req.Jurisdiction)
	}
	return nil
}

// Revoke clears an account's verification. Revoking an account that is not
// verified is NotFound.
func (s *Service) Revoke(ctx context.Context, account id.AccountID) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}
	if account.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}

	record, err := s.store.Get(ctx, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
	}
	if record == nil || !record.Verified {
		return dErrors.Newf(dErrors.CodeNotFound, "account %s is not verified", account)
	}

	if err := s.store.Remove(ctx, account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove verification record")
	}

	if s.metrics != nil {
		s.metrics.IncrementRevocations()
		s.updateVerifiedGauge(ctx)
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventAccountRevoked),
		Account: account,
		Actor:   requestcontext.Actor(ctx),
		Field:   "jurisdiction",
		Value:   record.Jurisdiction,
	},
		"account", account,
		"jurisdiction", record.Jurisdiction,
	)
	return nil
}

// IsVerified reports whether the account holds an active verification
// record. Pure lookup, always available.
func (s *Service) IsVerified(ctx context.Context, account id.AccountID) (bool, error) {
	record, err := s.store.Get(ctx, account)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
	}
	return record != nil && record.Verified, nil
}

// JurisdictionOf returns the stored jurisdiction, or the empty string for
// unverified accounts. This is the lenient lookup the compliance engine
// uses; external callers that need a guaranteed answer use
// RequireJurisdiction.
func (s *Service) JurisdictionOf(ctx context.Context, account id.AccountID) (string, error) {
	record, err := s.store.Get(ctx, account)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
	}
	if record == nil || !record.Verified {
		return "", nil
	}
	return record.Jurisdiction, nil
}

// RequireJurisdiction is the strict variant of JurisdictionOf: it fails
// with NotFound for unverified accounts.
func (s *Service) RequireJurisdiction(ctx context.Context, account id.AccountID) (string, error) {
	record, err := s.store.Get(ctx, account)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
	}
	if record == nil || !record.Verified {
		return "", dErrors.Newf(dErrors.CodeNotFound, "account %s is not verified", account)
	}
	return record.Jurisdiction, nil
}

// JurisdictionCount returns the number of verified accounts in a
// jurisdiction.
func (s *Service) JurisdictionCount(ctx context.Context, jurisdiction string) (int64, error) {
	count, err := s.store.JurisdictionCount(ctx, jurisdiction)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count jurisdiction")
	}
	return count, nil
}

// TotalVerified returns the number of verified accounts.
func (s *Service) TotalVerified(ctx context.Context) (int64, error) {
	count, err := s.store.TotalVerified(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count verified accounts")
	}
	return count, nil
}

func (s *Service) requireAuthority(ctx context.Context) error {
	if !s.authorizer.IsAuthorized(ctx, requestcontext.Actor(ctx)) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the controlling authority")
	}
	return nil
}

func validateVerification(account id.AccountID, jurisdiction string) error {
	if account.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	if jurisdiction == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "jurisdiction is required")
	}
	if len(jurisdiction) > MaxJurisdictionLen {
		return dErrors.Newf(dErrors.CodeInvalidInput, "jurisdiction exceeds %d characters", MaxJurisdictionLen)
	}
	return nil
}

func (s *Service) afterVerification(ctx context.Context, account id.AccountID, jurisdiction string) {
	if s.metrics != nil {
		s.metrics.IncrementVerifications()
		s.updateVerifiedGauge(ctx)
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventAccountVerified),
		Account: account,
		Actor:   requestcontext.Actor(ctx),
		Field:   "jurisdiction",
		Value:   jurisdiction,
	},
		"account", account,
		"jurisdiction", jurisdiction,
	)
}

func (s *Service) updateVerifiedGauge(ctx context.Context) {
	if total, err := s.store.TotalVerified(ctx); err == nil {
		s.metrics.SetVerifiedAccounts(total)
	}
}
