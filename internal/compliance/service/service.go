// Package service implements the compliance engine: the single decision
// point consulted before every movement of value, and the administrative
// surface that configures the policy it applies.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"assetgate/internal/compliance/metrics"
	"assetgate/internal/compliance/models"
	complianceports "assetgate/internal/compliance/ports"
	"assetgate/internal/ports"
	id "assetgate/pkg/domain"
	dErrors "assetgate/pkg/domain-errors"
	audit "assetgate/pkg/platform/audit"
	"assetgate/pkg/requestcontext"
)

const (
	// MaxJurisdictionLen bounds allow-list codes, matching the registry.
	MaxJurisdictionLen = 50
	// MaxJurisdictionBatch bounds batch allow-list updates.
	MaxJurisdictionBatch = 50
	// MaxBlacklistBatch bounds batch blacklist updates.
	MaxBlacklistBatch = 100
)

// Type aliases for shared interfaces.
type (
	UsageStore     = complianceports.UsageStore
	IdentityReader = ports.IdentityReader
	Authorizer     = ports.Authorizer
	AuditPublisher = ports.AuditPublisher
)

var tracer = otel.Tracer("assetgate/compliance")

// Service evaluates transfer permissibility. Policy state (settings,
// allow-list, blacklist) is owned exclusively by this service behind one
// mutex; quota usage lives in the injected UsageStore; identity is read
// through the narrow IdentityReader so registry invariants cannot be
// bypassed.
type Service struct {
	identity   IdentityReader
	usage      UsageStore
	authorizer Authorizer

	mu                   sync.RWMutex
	settings             models.PolicySettings
	allowedJurisdictions map[string]bool
	blacklist            map[id.AccountID]bool

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

// WithSettings seeds the initial policy. Both caps default to no limit and
// both rule sets default to disabled otherwise.
func WithSettings(settings models.PolicySettings) Option {
	return func(s *Service) {
		s.settings = settings
	}
}

func New(identity IdentityReader, usage UsageStore, authorizer Authorizer, opts ...Option) (*Service, error) {
	if identity == nil {
		return nil, fmt.Errorf("identity reader is required")
	}
	if usage == nil {
		return nil, fmt.Errorf("usage store is required")
	}
	if authorizer == nil {
		return nil, fmt.Errorf("authorizer is required")
	}

	svc := &Service{
		identity:             identity,
		usage:                usage,
		authorizer:           authorizer,
		allowedJurisdictions: make(map[string]bool),
		blacklist:            make(map[id.AccountID]bool),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Check evaluates whether a transfer may proceed. The check order is part
// of the contract - callers rely on the short-circuit behavior:
//
//  1. null account on either side: issuance/redemption, allowed
//     unconditionally (the only bypass)
//  2. blacklist (when enabled)
//  3. verification of both parties
//  4. jurisdiction allow-list (when enabled)
//  5. per-transfer cap, then daily cap - only when amount > 0
//
// amount <= 0 performs an eligibility-only check that never touches quota
// state. A denied decision is not an error; the error return is reserved
// for store failures.
func (s *Service) Check(ctx context.Context, from, to id.AccountID, amount int64) (models.Decision, error) {
	ctx, span := tracer.Start(ctx, "compliance.Check")
	defer span.End()

	decision, err := s.evaluate(ctx, from, to, amount)
	if err != nil {
		return models.Decision{}, err
	}

	span.SetAttributes(
		attribute.Bool("compliance.allowed", decision.Allowed),
		attribute.String("compliance.reason", decision.Reason),
	)
	s.observeDecision(ctx, from, to, amount, decision)
	return decision, nil
}

// IsAllowed is the boolean form of Check used by the ledger boundary.
func (s *Service) IsAllowed(ctx context.Context, from, to id.AccountID, amount int64) (bool, error) {
	decision, err := s.Check(ctx, from, to, amount)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

func (s *Service) evaluate(ctx context.Context, from, to id.AccountID, amount int64) (models.Decision, error) {
	// Issuance and redemption bypass every check, including blacklist.
	if from.IsNil() || to.IsNil() {
		return models.Allow(), nil
	}

	s.mu.RLock()
	settings := s.settings
	blacklisted := settings.BlacklistEnabled && (s.blacklist[from] || s.blacklist[to])
	s.mu.RUnlock()

	if blacklisted {
		return models.Deny(models.ReasonBlacklisted), nil
	}

	fromVerified, err := s.identity.IsVerified(ctx, from)
	if err != nil {
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check sender verification")
	}
	toVerified, err := s.identity.IsVerified(ctx, to)
	if err != nil {
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check receiver verification")
	}
	if !fromVerified || !toVerified {
		return models.Deny(models.ReasonUnverified), nil
	}

	if settings.CountryRestrictionsEnabled {
		allowed, err := s.bothJurisdictionsAllowed(ctx, from, to)
		if err != nil {
			return models.Decision{}, err
		}
		if !allowed {
			return models.Deny(models.ReasonJurisdiction), nil
		}
	}

	// amount <= 0 is an eligibility-only check; caps are skipped entirely.
	if amount > 0 {
		if settings.MaxTransferAmount != models.NoLimit && amount > settings.MaxTransferAmount {
			return models.Deny(models.ReasonExceedsMaxTransfer), nil
		}
		if settings.DailyTransferLimit != models.NoLimit {
			used, err := s.usage.Get(ctx, from, models.DayIndex(requestcontext.Now(ctx)))
			if err != nil {
				return models.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read daily usage")
			}
			// Compared without summing: used+amount can wrap for amounts
			// near MaxInt64, which would read as under the limit.
			if amount > settings.DailyTransferLimit || used > settings.DailyTransferLimit-amount {
				return models.Deny(models.ReasonExceedsDailyLimit), nil
			}
		}
	}

	return models.Allow(), nil
}

func (s *Service) bothJurisdictionsAllowed(ctx context.Context, from, to id.AccountID) (bool, error) {
	fromJurisdiction, err := s.identity.JurisdictionOf(ctx, from)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up sender jurisdiction")
	}
	toJurisdiction, err := s.identity.JurisdictionOf(ctx, to)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up receiver jurisdiction")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	// An empty jurisdiction only passes if explicitly allow-listed; callers
	// should not rely on that edge case.
	return s.allowedJurisdictions[fromJurisdiction] && s.allowedJurisdictions[toJurisdiction], nil
}

func (s *Service) observeDecision(ctx context.Context, from, to id.AccountID, amount int64, decision models.Decision) {
	if decision.Allowed {
		if s.metrics != nil {
			s.metrics.ObserveAllowed()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveDenied(decision.Reason)
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventTransferDenied),
		Account: from,
		Field:   "reason",
		Value:   decision.Reason,
		Amount:  amount,
	},
		"from", from,
		"to", to,
		"amount", amount,
		"reason", decision.Reason,
	)
}

// RecordTransfer adds amount to the sender's current day bucket. The ledger
// calls this exactly once per committed transfer, after the transfer, and
// never for a denied attempt or for issuance/redemption.
func (s *Service) RecordTransfer(ctx context.Context, from id.AccountID, amount int64) error {
	if from.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "cannot record transfer for the null account")
	}
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}

	if err := s.usage.Add(ctx, from, models.DayIndex(requestcontext.Now(ctx)), amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record transfer volume")
	}

	if s.metrics != nil {
		s.metrics.AddRecordedVolume(amount)
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventTransferRecorded),
		Account: from,
		Amount:  amount,
	},
		"from", from,
		"amount", amount,
	)
	return nil
}

// -----------------------------------------------------------------------------
// Administrative surface
// -----------------------------------------------------------------------------

// SetJurisdictionAllowed adds or removes one jurisdiction from the
// allow-list.
func (s *Service) SetJurisdictionAllowed(ctx context.Context, code string, allowed bool) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}
	if err := validateJurisdictionCode(code); err != nil {
		return err
	}

	s.mu.Lock()
	s.applyJurisdictionLocked(code, allowed)
	s.mu.Unlock()

	s.auditPolicyChange(ctx, audit.EventJurisdictionRuleSet, "jurisdiction:"+code, strconv.FormatBool(allowed))
	return nil
}

// BatchSetJurisdictionsAllowed applies SetJurisdictionAllowed semantics to
// every element atomically: all codes are validated before any is applied.
func (s *Service) BatchSetJurisdictionsAllowed(ctx context.Context, codes []string, allowedFlags []bool) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}

	if len(codes) != len(allowedFlags) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "batch length mismatch: %d codes, %d flags", len(codes), len(allowedFlags))
	}
	if len(codes) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "batch is empty")
	}
	if len(codes) > MaxJurisdictionBatch {
		return dErrors.Newf(dErrors.CodeInvalidInput, "batch size %d exceeds bound %d", len(codes), MaxJurisdictionBatch)
	}
	for i, code := range codes {
		if err := validateJurisdictionCode(code); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("batch element %d", i))
		}
	}

	s.mu.Lock()
	for i, code := range codes {
		s.applyJurisdictionLocked(code, allowedFlags[i])
	}
	s.mu.Unlock()

	for i, code := range codes {
		s.auditPolicyChange(ctx, audit.EventJurisdictionRuleSet, "jurisdiction:"+code, strconv.FormatBool(allowedFlags[i]))
	}
	return nil
}

func (s *Service) applyJurisdictionLocked(code string, allowed bool) {
	if allowed {
		s.allowedJurisdictions[code] = true
	} else {
		delete(s.allowedJurisdictions, code)
	}
}

// ToggleJurisdictionRestrictions enables or disables the allow-list check.
func (s *Service) ToggleJurisdictionRestrictions(ctx context.Context, enabled bool) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings.CountryRestrictionsEnabled = enabled
	s.mu.Unlock()

	s.auditPolicyChange(ctx, audit.EventJurisdictionChecksToggled, "country_restrictions_enabled", strconv.FormatBool(enabled))
	return nil
}

// SetBlacklisted adds or removes one account from the blacklist.
func (s *Service) SetBlacklisted(ctx context.Context, account id.AccountID, flag bool) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}
	if account.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}

	s.mu.Lock()
	s.applyBlacklistLocked(account, flag)
	s.mu.Unlock()

	s.auditBlacklistChange(ctx, account, flag)
	return nil
}

// BatchSetBlacklisted applies SetBlacklisted semantics to every element
// atomically.
func (s *Service) BatchSetBlacklisted(ctx context.Context, accounts []id.AccountID, flags []bool) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}

	if len(accounts) != len(flags) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "batch length mismatch: %d accounts, %d flags", len(accounts), len(flags))
	}
	if len(accounts) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "batch is empty")
	}
	if len(accounts) > MaxBlacklistBatch {
		return dErrors.Newf(dErrors.CodeInvalidInput, "batch size %d exceeds bound %d", len(accounts), MaxBlacklistBatch)
	}
	for i, account := range accounts {
		if account.IsNil() {
			return dErrors.Newf(dErrors.CodeInvalidInput, "batch element %d: account is required", i)
		}
	}

	s.mu.Lock()
	for i, account := range accounts {
		s.applyBlacklistLocked(account, flags[i])
	}
	s.mu.Unlock()

	for i, account := range accounts {
		s.auditBlacklistChange(ctx, account, flags[i])
	}
	return nil
}

func (s *Service) applyBlacklistLocked(account id.AccountID, flag bool) {
	if flag {
		s.blacklist[account] = true
	} else {
		delete(s.blacklist, account)
	}
}

// ToggleBlacklist enables or disables blacklist enforcement.
func (s *Service) ToggleBlacklist(ctx context.Context, enabled bool) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings.BlacklistEnabled = enabled
	s.mu.Unlock()

	s.auditPolicyChange(ctx, audit.EventBlacklistChecksToggled, "blacklist_enabled", strconv.FormatBool(enabled))
	return nil
}

// SetMaxTransferAmount sets the per-transfer cap; models.NoLimit disables it.
func (s *Service) SetMaxTransferAmount(ctx context.Context, amount int64) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}
	if amount < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must not be negative")
	}

	s.mu.Lock()
	s.settings.MaxTransferAmount = amount
	s.mu.Unlock()

	s.auditPolicyChange(ctx, audit.EventMaxTransferAmountSet, "max_transfer_amount", strconv.FormatInt(amount, 10))
	return nil
}

// SetDailyTransferLimit sets the rolling daily cap; models.NoLimit disables it.
func (s *Service) SetDailyTransferLimit(ctx context.Context, amount int64) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}
	if amount < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must not be negative")
	}

	s.mu.Lock()
	s.settings.DailyTransferLimit = amount
	s.mu.Unlock()

	s.auditPolicyChange(ctx, audit.EventDailyTransferLimitSet, "daily_transfer_limit", strconv.FormatInt(amount, 10))
	return nil
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// Settings returns a snapshot of the current policy.
func (s *Service) Settings() models.PolicySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// DailyUsage returns the volume an account transferred on a historical day
// bucket.
func (s *Service) DailyUsage(ctx context.Context, account id.AccountID, day int64) (int64, error) {
	used, err := s.usage.Get(ctx, account, day)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read daily usage")
	}
	return used, nil
}

// CurrentDayUsage returns the volume an account transferred today.
func (s *Service) CurrentDayUsage(ctx context.Context, account id.AccountID) (int64, error) {
	return s.DailyUsage(ctx, account, models.DayIndex(requestcontext.Now(ctx)))
}

// RemainingDailyLimit returns how much the account may still transfer
// today, saturating at zero. With no daily limit configured it returns
// math.MaxInt64.
func (s *Service) RemainingDailyLimit(ctx context.Context, account id.AccountID) (int64, error) {
	s.mu.RLock()
	limit := s.settings.DailyTransferLimit
	s.mu.RUnlock()

	if limit == models.NoLimit {
		return math.MaxInt64, nil
	}

	used, err := s.CurrentDayUsage(ctx, account)
	if err != nil {
		return 0, err
	}
	if used >= limit {
		return 0, nil
	}
	return limit - used, nil
}

// IsJurisdictionAllowed reports whether transfers touching the jurisdiction
// pass the allow-list. Always true while restrictions are disabled.
func (s *Service) IsJurisdictionAllowed(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.settings.CountryRestrictionsEnabled {
		return true
	}
	return s.allowedJurisdictions[code]
}

// IsBlacklisted reports whether the account is denied by the blacklist.
// Always false while enforcement is disabled.
func (s *Service) IsBlacklisted(account id.AccountID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.settings.BlacklistEnabled {
		return false
	}
	return s.blacklist[account]
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *Service) requireAuthority(ctx context.Context) error {
	if !s.authorizer.IsAuthorized(ctx, requestcontext.Actor(ctx)) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the controlling authority")
	}
	return nil
}

func validateJurisdictionCode(code string) error {
	if code == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "jurisdiction code is required")
	}
	if len(code) > MaxJurisdictionLen {
		return dErrors.Newf(dErrors.CodeInvalidInput, "jurisdiction code exceeds %d characters", MaxJurisdictionLen)
	}
	return nil
}

func (s *Service) auditPolicyChange(ctx context.Context, action audit.AuditEvent, field, value string) {
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action: string(action),
		Actor:  requestcontext.Actor(ctx),
		Field:  field,
		Value:  value,
	},
		"field", field,
		"value", value,
	)
}

func (s *Service) auditBlacklistChange(ctx context.Context, account id.AccountID, flag bool) {
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventBlacklistEntrySet),
		Account: account,
		Actor:   requestcontext.Actor(ctx),
		Field:   "blacklisted",
		Value:   strconv.FormatBool(flag),
	},
		"account", account,
		"blacklisted", flag,
	)
}
