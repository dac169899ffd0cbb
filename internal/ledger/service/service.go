// Package service implements the balance ledger collaborator. Balances are
// owned exclusively by this service; every movement of value consults the
// compliance engine first and aborts without partial mutation on denial.
//
// The ledger keeps balances in memory: it exists to exercise the engine
// boundary contract, not to be a production book of record.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	ledgerports "assetgate/internal/ledger/ports"
	"assetgate/internal/ports"
	id "assetgate/pkg/domain"
	dErrors "assetgate/pkg/domain-errors"
	audit "assetgate/pkg/platform/audit"
	"assetgate/pkg/requestcontext"
)

// Type aliases for shared interfaces.
type (
	ComplianceEngine = ledgerports.ComplianceEngine
	Authorizer       = ports.Authorizer
	AuditPublisher   = ports.AuditPublisher
)

var tracer = otel.Tracer("assetgate/ledger")

type Service struct {
	engine     ComplianceEngine
	authorizer Authorizer

	mu       sync.RWMutex
	balances map[id.AccountID]int64
	supply   int64

	auditPublisher AuditPublisher
	logger         *slog.Logger
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

func New(engine ComplianceEngine, authorizer Authorizer, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("compliance engine is required")
	}
	if authorizer == nil {
		return nil, fmt.Errorf("authorizer is required")
	}

	svc := &Service{
		engine:     engine,
		authorizer: authorizer,
		balances:   make(map[id.AccountID]int64),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Mint issues new units to an account. Issuance uses the null-account
// bypass: the engine is still consulted, but allows unconditionally, and
// no quota is recorded.
func (s *Service) Mint(ctx context.Context, to id.AccountID, amount int64) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}
	if to.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "recipient is required")
	}
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}

	if err := s.checkAllowed(ctx, id.NullAccount(), to, amount); err != nil {
		return err
	}

	s.mu.Lock()
	s.balances[to] += amount
	s.supply += amount
	s.mu.Unlock()

	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventTokensMinted),
		Account: to,
		Actor:   requestcontext.Actor(ctx),
		Amount:  amount,
	},
		"to", to,
		"amount", amount,
	)
	return nil
}

// Burn redeems units from an account via the null-account bypass.
func (s *Service) Burn(ctx context.Context, from id.AccountID, amount int64) error {
	if err := s.requireAuthority(ctx); err != nil {
		return err
	}
	if from.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}

	if err := s.checkAllowed(ctx, from, id.NullAccount(), amount); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[from] < amount {
		return dErrors.Newf(dErrors.CodeInvalidInput, "insufficient balance: have %d, need %d", s.balances[from], amount)
	}
	s.balances[from] -= amount
	s.supply -= amount

	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventTokensBurned),
		Account: from,
		Actor:   requestcontext.Actor(ctx),
		Amount:  amount,
	},
		"from", from,
		"amount", amount,
	)
	return nil
}

// Transfer moves units between accounts. The engine decides first; on
// denial the balances are untouched and no quota is consumed. After the
// balance mutation commits, the transferred volume is recorded against the
// sender's daily quota exactly once.
func (s *Service) Transfer(ctx context.Context, from, to id.AccountID, amount int64) error {
	ctx, span := tracer.Start(ctx, "ledger.Transfer")
	defer span.End()

	if from.IsNil() || to.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "both parties are required; use mint or burn for issuance")
	}
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}

	if err := s.checkAllowed(ctx, from, to, amount); err != nil {
		span.SetAttributes(attribute.Bool("ledger.committed", false))
		return err
	}

	s.mu.Lock()
	if s.balances[from] < amount {
		s.mu.Unlock()
		return dErrors.Newf(dErrors.CodeInvalidInput, "insufficient balance: have %d, need %d", s.balances[from], amount)
	}
	s.balances[from] -= amount
	s.balances[to] += amount
	s.mu.Unlock()

	span.SetAttributes(attribute.Bool("ledger.committed", true))

	// Record after commit, exactly once, never on a denied attempt.
	if err := s.engine.RecordTransfer(ctx, from, amount); err != nil {
		// The transfer is committed; surface the bookkeeping failure
		// rather than unwind the balances.
		return dErrors.Wrap(err, dErrors.CodeInternal, "transfer committed but quota recording failed")
	}

	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventTokensTransferred),
		Account: from,
		Amount:  amount,
	},
		"from", from,
		"to", to,
		"amount", amount,
	)
	return nil
}

// BalanceOf returns the balance of an account.
func (s *Service) BalanceOf(account id.AccountID) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[account]
}

// TotalSupply returns the outstanding supply.
func (s *Service) TotalSupply() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.supply
}

func (s *Service) checkAllowed(ctx context.Context, from, to id.AccountID, amount int64) error {
	allowed, err := s.engine.IsAllowed(ctx, from, to, amount)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "compliance check failed")
	}
	if !allowed {
		return dErrors.New(dErrors.CodeDenied, "transfer not compliant")
	}
	return nil
}

func (s *Service) requireAuthority(ctx context.Context) error {
	if !s.authorizer.IsAuthorized(ctx, requestcontext.Actor(ctx)) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the controlling authority")
	}
	return nil
}
