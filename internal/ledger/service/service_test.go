package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"assetgate/internal/authority"
	complianceservice "assetgate/internal/compliance/service"
	usagestore "assetgate/internal/compliance/store/usage"
	registryservice "assetgate/internal/registry/service"
	registrymemory "assetgate/internal/registry/store/memory"
	id "assetgate/pkg/domain"
	dErrors "assetgate/pkg/domain-errors"
	"assetgate/pkg/requestcontext"
)

// =============================================================================
// Ledger Service Test Suite
// =============================================================================
// The ledger is exercised against the real registry and compliance engine so
// the boundary contract (ask first, record once after commit) is tested
// end to end rather than against a scripted double.

type LedgerServiceSuite struct {
	suite.Suite
	registry   *registryservice.Service
	compliance *complianceservice.Service
	service    *Service
	authority  id.ActorID
	ctx        context.Context
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.authority = id.ActorID(uuid.New())
	s.ctx = requestcontext.WithTime(
		requestcontext.WithActor(context.Background(), s.authority),
		time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	)

	auth := authority.NewStatic(s.authority)

	var err error
	s.registry, err = registryservice.New(registrymemory.New(), auth)
	s.Require().NoError(err)

	s.compliance, err = complianceservice.New(s.registry, usagestore.NewInMemoryStore(), auth)
	s.Require().NoError(err)

	s.service, err = New(s.compliance, auth)
	s.Require().NoError(err)
}

func (s *LedgerServiceSuite) verified(jurisdiction string) id.AccountID {
	account := id.AccountID(uuid.New())
	s.Require().NoError(s.registry.Verify(s.ctx, account, jurisdiction))
	return account
}

func (s *LedgerServiceSuite) funded(jurisdiction string, balance int64) id.AccountID {
	account := s.verified(jurisdiction)
	s.Require().NoError(s.service.Mint(s.ctx, account, balance))
	return account
}

// =============================================================================
// Mint Tests
// =============================================================================

func (s *LedgerServiceSuite) TestMint() {
	s.Run("requires the controlling authority", func() {
		stranger := requestcontext.WithActor(context.Background(), id.ActorID(uuid.New()))
		err := s.service.Mint(stranger, s.verified("US"), 100)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects the null account and non-positive amounts", func() {
		s.True(dErrors.HasCode(s.service.Mint(s.ctx, id.NullAccount(), 100), dErrors.CodeInvalidInput))
		s.True(dErrors.HasCode(s.service.Mint(s.ctx, s.verified("US"), 0), dErrors.CodeInvalidInput))
	})

	s.Run("increases balance and supply", func() {
		account := s.verified("US")
		s.Require().NoError(s.service.Mint(s.ctx, account, 500))

		s.Equal(int64(500), s.service.BalanceOf(account))
		s.Equal(int64(500), s.service.TotalSupply())
	})

	s.Run("can mint to an unverified account", func() {
		account := id.AccountID(uuid.New())
		s.Require().NoError(s.service.Mint(s.ctx, account, 10))
		s.Equal(int64(10), s.service.BalanceOf(account))
	})

	s.Run("does not consume daily quota", func() {
		account := s.verified("US")
		s.Require().NoError(s.service.Mint(s.ctx, account, 500))

		used, err := s.compliance.CurrentDayUsage(s.ctx, account)
		s.NoError(err)
		s.Equal(int64(0), used)
	})
}

// =============================================================================
// Burn Tests
// =============================================================================

func (s *LedgerServiceSuite) TestBurn() {
	s.Run("requires the controlling authority", func() {
		err := s.service.Burn(context.Background(), s.funded("US", 100), 10)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects burning more than the balance", func() {
		account := s.funded("US", 100)
		err := s.service.Burn(s.ctx, account, 101)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Equal(int64(100), s.service.BalanceOf(account))
	})

	s.Run("decreases balance and supply", func() {
		account := s.funded("US", 100)
		s.Require().NoError(s.service.Burn(s.ctx, account, 40))

		s.Equal(int64(60), s.service.BalanceOf(account))
		s.Equal(int64(60), s.service.TotalSupply())
	})
}

// =============================================================================
// Transfer Tests
// =============================================================================

func (s *LedgerServiceSuite) TestTransfer() {
	s.Run("rejects null parties", func() {
		err := s.service.Transfer(s.ctx, id.NullAccount(), s.verified("US"), 10)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("denied transfers leave balances and quota untouched", func() {
		from := s.funded("US", 100)
		to := id.AccountID(uuid.New()) // unverified

		err := s.service.Transfer(s.ctx, from, to, 50)
		s.True(dErrors.HasCode(err, dErrors.CodeDenied))

		s.Equal(int64(100), s.service.BalanceOf(from))
		s.Equal(int64(0), s.service.BalanceOf(to))

		used, usageErr := s.compliance.CurrentDayUsage(s.ctx, from)
		s.NoError(usageErr)
		s.Equal(int64(0), used)
	})

	s.Run("insufficient balance fails after the compliance check without recording quota", func() {
		from := s.funded("US", 10)
		to := s.verified("US")

		err := s.service.Transfer(s.ctx, from, to, 50)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		used, usageErr := s.compliance.CurrentDayUsage(s.ctx, from)
		s.NoError(usageErr)
		s.Equal(int64(0), used)
	})

	s.Run("committed transfers move balances and record quota exactly once", func() {
		from := s.funded("US", 100)
		to := s.verified("US")

		s.Require().NoError(s.service.Transfer(s.ctx, from, to, 30))

		s.Equal(int64(70), s.service.BalanceOf(from))
		s.Equal(int64(30), s.service.BalanceOf(to))

		used, err := s.compliance.CurrentDayUsage(s.ctx, from)
		s.NoError(err)
		s.Equal(int64(30), used)
	})

	s.Run("transfer does not change total supply", func() {
		from := s.funded("US", 100)
		to := s.verified("US")
		supply := s.service.TotalSupply()

		s.Require().NoError(s.service.Transfer(s.ctx, from, to, 30))
		s.Equal(supply, s.service.TotalSupply())
	})

	s.Run("recorded quota feeds back into the daily limit", func() {
		from := s.funded("US", 300)
		to := s.verified("US")
		s.Require().NoError(s.compliance.SetDailyTransferLimit(s.ctx, 200))

		s.Require().NoError(s.service.Transfer(s.ctx, from, to, 150))

		err := s.service.Transfer(s.ctx, from, to, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeDenied))
		s.Equal(int64(150), s.service.BalanceOf(from))
	})
}
