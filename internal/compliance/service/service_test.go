package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"assetgate/internal/authority"
	"assetgate/internal/compliance/models"
	usagestore "assetgate/internal/compliance/store/usage"
	registryservice "assetgate/internal/registry/service"
	registrymemory "assetgate/internal/registry/store/memory"
	id "assetgate/pkg/domain"
	dErrors "assetgate/pkg/domain-errors"
	"assetgate/pkg/requestcontext"
)

// =============================================================================
// Compliance Service Test Suite
// =============================================================================
// Justification for unit tests: the decision short-circuit order and the
// quota arithmetic are the contract of this service. Driving them through
// the HTTP surface would need a full admin token flow for every scenario.

type ComplianceServiceSuite struct {
	suite.Suite
	registry  *registryservice.Service
	usage     *usagestore.InMemoryStore
	service   *Service
	authority id.ActorID
	ctx       context.Context
	now       time.Time
}

func TestComplianceServiceSuite(t *testing.T) {
	suite.Run(t, new(ComplianceServiceSuite))
}

func (s *ComplianceServiceSuite) SetupTest() {
	s.authority = id.ActorID(uuid.New())
	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(
		requestcontext.WithActor(context.Background(), s.authority),
		s.now,
	)

	auth := authority.NewStatic(s.authority)

	var err error
	s.registry, err = registryservice.New(registrymemory.New(), auth)
	s.Require().NoError(err)

	s.usage = usagestore.NewInMemoryStore()
	s.service, err = New(s.registry, s.usage, auth)
	s.Require().NoError(err)
}

func (s *ComplianceServiceSuite) verified(jurisdiction string) id.AccountID {
	account := id.AccountID(uuid.New())
	s.Require().NoError(s.registry.Verify(s.ctx, account, jurisdiction))
	return account
}

func (s *ComplianceServiceSuite) unverified() id.AccountID {
	return id.AccountID(uuid.New())
}

func (s *ComplianceServiceSuite) check(from, to id.AccountID, amount int64) models.Decision {
	decision, err := s.service.Check(s.ctx, from, to, amount)
	s.Require().NoError(err)
	return decision
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestNew() {
	auth := authority.NewStatic(s.authority)

	s.Run("nil identity reader returns error", func() {
		_, err := New(nil, s.usage, auth)
		s.Error(err)
		s.Contains(err.Error(), "identity reader is required")
	})

	s.Run("nil usage store returns error", func() {
		_, err := New(s.registry, nil, auth)
		s.Error(err)
		s.Contains(err.Error(), "usage store is required")
	})

	s.Run("nil authorizer returns error", func() {
		_, err := New(s.registry, s.usage, nil)
		s.Error(err)
		s.Contains(err.Error(), "authorizer is required")
	})
}

// =============================================================================
// Null-Account Bypass Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestNullAccountBypass() {
	s.Run("issuance to an unverified account is allowed", func() {
		decision := s.check(id.NullAccount(), s.unverified(), 100)
		s.True(decision.Allowed)
	})

	s.Run("redemption from an unverified account is allowed", func() {
		decision := s.check(s.unverified(), id.NullAccount(), 100)
		s.True(decision.Allowed)
	})

	s.Run("bypass wins even over the blacklist", func() {
		account := s.verified("US")
		s.Require().NoError(s.service.ToggleBlacklist(s.ctx, true))
		s.Require().NoError(s.service.SetBlacklisted(s.ctx, account, true))

		decision := s.check(id.NullAccount(), account, 100)
		s.True(decision.Allowed)
	})

	s.Run("bypass ignores caps", func() {
		s.Require().NoError(s.service.SetMaxTransferAmount(s.ctx, 10))
		decision := s.check(id.NullAccount(), s.verified("US"), 1_000_000)
		s.True(decision.Allowed)
	})
}

// =============================================================================
// Blacklist Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestBlacklist() {
	s.Run("blacklisted sender is denied when enforcement is on", func() {
		from := s.verified("US")
		to := s.verified("US")
		s.Require().NoError(s.service.ToggleBlacklist(s.ctx, true))
		s.Require().NoError(s.service.SetBlacklisted(s.ctx, from, true))

		decision := s.check(from, to, 10)
		s.False(decision.Allowed)
		s.Equal(models.ReasonBlacklisted, decision.Reason)
	})

	s.Run("blacklisted receiver is denied when enforcement is on", func() {
		from := s.verified("US")
		to := s.verified("US")
		s.Require().NoError(s.service.ToggleBlacklist(s.ctx, true))
		s.Require().NoError(s.service.SetBlacklisted(s.ctx, to, true))

		decision := s.check(from, to, 10)
		s.False(decision.Allowed)
		s.Equal(models.ReasonBlacklisted, decision.Reason)
	})

	s.Run("blacklist entries are inert while enforcement is off", func() {
		from := s.verified("US")
		to := s.verified("US")
		s.Require().NoError(s.service.ToggleBlacklist(s.ctx, false))
		s.Require().NoError(s.service.SetBlacklisted(s.ctx, from, true))

		decision := s.check(from, to, 10)
		s.True(decision.Allowed)
	})

	s.Run("blacklist is checked before verification", func() {
		from := s.unverified()
		s.Require().NoError(s.service.ToggleBlacklist(s.ctx, true))
		s.Require().NoError(s.service.SetBlacklisted(s.ctx, from, true))

		decision := s.check(from, s.unverified(), 10)
		s.False(decision.Allowed)
		s.Equal(models.ReasonBlacklisted, decision.Reason)
	})

	s.Run("unblacklisting restores transfers", func() {
		from := s.verified("US")
		to := s.verified("US")
		s.Require().NoError(s.service.ToggleBlacklist(s.ctx, true))
		s.Require().NoError(s.service.SetBlacklisted(s.ctx, from, true))
		s.Require().NoError(s.service.SetBlacklisted(s.ctx, from, false))

		decision := s.check(from, to, 10)
		s.True(decision.Allowed)
	})
}

// =============================================================================
// Verification Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestVerificationChecks() {
	s.Run("unverified sender is denied", func() {
		decision := s.check(s.unverified(), s.verified("US"), 10)
		s.False(decision.Allowed)
		s.Equal(models.ReasonUnverified, decision.Reason)
	})

	s.Run("unverified receiver is denied", func() {
		decision := s.check(s.verified("US"), s.unverified(), 10)
		s.False(decision.Allowed)
		s.Equal(models.ReasonUnverified, decision.Reason)
	})

	s.Run("both verified passes", func() {
		decision := s.check(s.verified("US"), s.verified("DE"), 10)
		s.True(decision.Allowed)
	})

	s.Run("revocation takes effect on the next check", func() {
		from := s.verified("US")
		to := s.verified("US")
		s.Require().NoError(s.registry.Revoke(s.ctx, from))

		decision := s.check(from, to, 10)
		s.False(decision.Allowed)
		s.Equal(models.ReasonUnverified, decision.Reason)
	})
}

// =============================================================================
// Jurisdiction Allow-List Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestJurisdictionRestrictions() {
	s.Run("restrictions off ignores the allow-list", func() {
		decision := s.check(s.verified("US"), s.verified("KP"), 10)
		s.True(decision.Allowed)
	})

	s.Run("both parties allow-listed passes", func() {
		s.Require().NoError(s.service.ToggleJurisdictionRestrictions(s.ctx, true))
		s.Require().NoError(s.service.SetJurisdictionAllowed(s.ctx, "US", true))
		s.Require().NoError(s.service.SetJurisdictionAllowed(s.ctx, "DE", true))

		decision := s.check(s.verified("US"), s.verified("DE"), 10)
		s.True(decision.Allowed)
	})

	s.Run("either party outside the allow-list is denied", func() {
		s.Require().NoError(s.service.ToggleJurisdictionRestrictions(s.ctx, true))
		s.Require().NoError(s.service.SetJurisdictionAllowed(s.ctx, "US", true))

		decision := s.check(s.verified("US"), s.verified("KP"), 10)
		s.False(decision.Allowed)
		s.Equal(models.ReasonJurisdiction, decision.Reason)
	})

	s.Run("removing a jurisdiction from the allow-list denies it again", func() {
		s.Require().NoError(s.service.ToggleJurisdictionRestrictions(s.ctx, true))
		s.Require().NoError(s.service.SetJurisdictionAllowed(s.ctx, "US", true))
		s.Require().NoError(s.service.SetJurisdictionAllowed(s.ctx, "US", false))

		decision := s.check(s.verified("US"), s.verified("US"), 10)
		s.False(decision.Allowed)
		s.Equal(models.ReasonJurisdiction, decision.Reason)
	})

	s.Run("batch updates apply all elements", func() {
		s.Require().NoError(s.service.ToggleJurisdictionRestrictions(s.ctx, true))
		s.Require().NoError(s.service.BatchSetJurisdictionsAllowed(s.ctx,
			[]string{"US", "DE"}, []bool{true, true}))

		decision := s.check(s.verified("US"), s.verified("DE"), 10)
		s.True(decision.Allowed)
	})
}

// =============================================================================
// Transfer Cap Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestMaxTransferAmount() {
	s.Run("amount at the cap is allowed", func() {
		s.Require().NoError(s.service.SetMaxTransferAmount(s.ctx, 50))
		decision := s.check(s.verified("US"), s.verified("US"), 50)
		s.True(decision.Allowed)
	})

	s.Run("amount above the cap is denied", func() {
		s.Require().NoError(s.service.SetMaxTransferAmount(s.ctx, 50))
		decision := s.check(s.verified("US"), s.verified("US"), 51)
		s.False(decision.Allowed)
		s.Equal(models.ReasonExceedsMaxTransfer, decision.Reason)
	})

	s.Run("no limit sentinel disables the cap", func() {
		s.Require().NoError(s.service.SetMaxTransferAmount(s.ctx, models.NoLimit))
		decision := s.check(s.verified("US"), s.verified("US"), math.MaxInt64)
		s.True(decision.Allowed)
	})

	s.Run("negative cap is rejected", func() {
		err := s.service.SetMaxTransferAmount(s.ctx, -1)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ComplianceServiceSuite) TestDailyTransferLimit() {
	s.Run("denies when usage plus amount exceeds the limit", func() {
		from := s.verified("US")
		to := s.verified("US")
		s.Require().NoError(s.service.SetDailyTransferLimit(s.ctx, 200))
		s.Require().NoError(s.service.RecordTransfer(s.ctx, from, 150))

		s.True(s.check(from, to, 50).Allowed)

		decision := s.check(from, to, 51)
		s.False(decision.Allowed)
		s.Equal(models.ReasonExceedsDailyLimit, decision.Reason)
	})

	s.Run("denies amounts large enough to wrap the usage sum", func() {
		from := s.verified("US")
		to := s.verified("US")
		s.Require().NoError(s.service.SetDailyTransferLimit(s.ctx, 200))
		s.Require().NoError(s.service.RecordTransfer(s.ctx, from, 150))

		decision := s.check(from, to, math.MaxInt64)
		s.False(decision.Allowed)
		s.Equal(models.ReasonExceedsDailyLimit, decision.Reason)
	})

	s.Run("usage resets on the next day bucket", func() {
		from := s.verified("US")
		to := s.verified("US")
		s.Require().NoError(s.service.SetDailyTransferLimit(s.ctx, 200))
		s.Require().NoError(s.service.RecordTransfer(s.ctx, from, 200))

		s.False(s.check(from, to, 1).Allowed)

		tomorrow := requestcontext.WithTime(s.ctx, s.now.Add(24*time.Hour))
		decision, err := s.service.Check(tomorrow, from, to, 200)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("usage is tracked per sender", func() {
		alice := s.verified("US")
		bob := s.verified("US")
		s.Require().NoError(s.service.SetDailyTransferLimit(s.ctx, 100))
		s.Require().NoError(s.service.RecordTransfer(s.ctx, alice, 100))

		s.False(s.check(alice, bob, 1).Allowed)
		s.True(s.check(bob, alice, 100).Allowed)
	})
}

// =============================================================================
// Eligibility-Only Check Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestZeroAmountCheck() {
	s.Run("zero amount skips both caps", func() {
		from := s.verified("US")
		to := s.verified("US")
		s.Require().NoError(s.service.SetMaxTransferAmount(s.ctx, 1))
		s.Require().NoError(s.service.SetDailyTransferLimit(s.ctx, 1))
		s.Require().NoError(s.service.RecordTransfer(s.ctx, from, 1))

		decision := s.check(from, to, 0)
		s.True(decision.Allowed)
	})

	s.Run("zero amount still applies eligibility checks", func() {
		decision := s.check(s.unverified(), s.verified("US"), 0)
		s.False(decision.Allowed)
		s.Equal(models.ReasonUnverified, decision.Reason)
	})
}

// =============================================================================
// RecordTransfer Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestRecordTransfer() {
	s.Run("rejects the null account", func() {
		err := s.service.RecordTransfer(s.ctx, id.NullAccount(), 10)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects non-positive amounts", func() {
		err := s.service.RecordTransfer(s.ctx, s.verified("US"), 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("accumulates into the current day bucket", func() {
		account := s.verified("US")
		s.Require().NoError(s.service.RecordTransfer(s.ctx, account, 30))
		s.Require().NoError(s.service.RecordTransfer(s.ctx, account, 20))

		used, err := s.service.CurrentDayUsage(s.ctx, account)
		s.NoError(err)
		s.Equal(int64(50), used)
	})
}

// =============================================================================
// Remaining Limit Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestRemainingDailyLimit() {
	s.Run("unlimited policy reports the maximum", func() {
		remaining, err := s.service.RemainingDailyLimit(s.ctx, s.verified("US"))
		s.NoError(err)
		s.Equal(int64(math.MaxInt64), remaining)
	})

	s.Run("reports the limit minus usage", func() {
		account := s.verified("US")
		s.Require().NoError(s.service.SetDailyTransferLimit(s.ctx, 200))
		s.Require().NoError(s.service.RecordTransfer(s.ctx, account, 150))

		remaining, err := s.service.RemainingDailyLimit(s.ctx, account)
		s.NoError(err)
		s.Equal(int64(50), remaining)
	})

	s.Run("saturates at zero", func() {
		account := s.verified("US")
		s.Require().NoError(s.service.RecordTransfer(s.ctx, account, 300))
		s.Require().NoError(s.service.SetDailyTransferLimit(s.ctx, 200))

		remaining, err := s.service.RemainingDailyLimit(s.ctx, account)
		s.NoError(err)
		s.Equal(int64(0), remaining)
	})
}

// =============================================================================
// Administrative Authority Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestAdminRequiresAuthority() {
	stranger := requestcontext.WithActor(context.Background(), id.ActorID(uuid.New()))

	s.Run("policy setters reject other actors", func() {
		s.True(dErrors.HasCode(s.service.SetJurisdictionAllowed(stranger, "US", true), dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(s.service.ToggleJurisdictionRestrictions(stranger, true), dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(s.service.SetBlacklisted(stranger, id.AccountID(uuid.New()), true), dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(s.service.ToggleBlacklist(stranger, true), dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(s.service.SetMaxTransferAmount(stranger, 10), dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(s.service.SetDailyTransferLimit(stranger, 10), dErrors.CodeUnauthorized))
	})

	s.Run("decision checks and queries do not require authority", func() {
		_, err := s.service.Check(context.Background(), id.NullAccount(), s.unverified(), 1)
		s.NoError(err)
	})
}

// =============================================================================
// Batch Bound Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestBatchBounds() {
	s.Run("jurisdiction batch over the bound is rejected", func() {
		codes := make([]string, MaxJurisdictionBatch+1)
		flags := make([]bool, MaxJurisdictionBatch+1)
		for i := range codes {
			codes[i] = "US"
			flags[i] = true
		}
		err := s.service.BatchSetJurisdictionsAllowed(s.ctx, codes, flags)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("blacklist batch over the bound is rejected", func() {
		accounts := make([]id.AccountID, MaxBlacklistBatch+1)
		flags := make([]bool, MaxBlacklistBatch+1)
		for i := range accounts {
			accounts[i] = id.AccountID(uuid.New())
			flags[i] = true
		}
		err := s.service.BatchSetBlacklisted(s.ctx, accounts, flags)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("blacklist batch applies every element", func() {
		from := s.verified("US")
		to := s.verified("US")
		s.Require().NoError(s.service.ToggleBlacklist(s.ctx, true))
		s.Require().NoError(s.service.BatchSetBlacklisted(s.ctx,
			[]id.AccountID{from, to}, []bool{true, false}))

		decision := s.check(from, to, 10)
		s.False(decision.Allowed)
		s.Equal(models.ReasonBlacklisted, decision.Reason)
	})
}

// =============================================================================
// Query Toggle Tests
// =============================================================================

func (s *ComplianceServiceSuite) TestPolicyQueries() {
	s.Run("jurisdiction query is permissive while restrictions are off", func() {
		s.True(s.service.IsJurisdictionAllowed("KP"))
	})

	s.Run("jurisdiction query reflects the allow-list when on", func() {
		s.Require().NoError(s.service.ToggleJurisdictionRestrictions(s.ctx, true))
		s.Require().NoError(s.service.SetJurisdictionAllowed(s.ctx, "US", true))
		s.True(s.service.IsJurisdictionAllowed("US"))
		s.False(s.service.IsJurisdictionAllowed("KP"))
	})

	s.Run("blacklist query is false while enforcement is off", func() {
		account := id.AccountID(uuid.New())
		s.Require().NoError(s.service.SetBlacklisted(s.ctx, account, true))
		s.False(s.service.IsBlacklisted(account))
	})

	s.Run("blacklist query reflects entries when on", func() {
		account := id.AccountID(uuid.New())
		s.Require().NoError(s.service.ToggleBlacklist(s.ctx, true))
		s.Require().NoError(s.service.SetBlacklisted(s.ctx, account, true))
		s.True(s.service.IsBlacklisted(account))
	})
}
