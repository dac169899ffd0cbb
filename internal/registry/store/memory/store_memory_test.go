package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"assetgate/internal/registry/models"
	id "assetgate/pkg/domain"
)

type RegistryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestRegistryStoreSuite(t *testing.T) {
	suite.Run(t, new(RegistryStoreSuite))
}

func (s *RegistryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func (s *RegistryStoreSuite) account() id.AccountID {
	return id.AccountID(uuid.New())
}

func (s *RegistryStoreSuite) TestUpsertAndGet() {
	s.Run("missing record returns nil without error", func() {
		record, err := s.store.Get(s.ctx, s.account())
		s.NoError(err)
		s.Nil(record)
	})

	s.Run("stores the record with timestamp", func() {
		account := s.account()
		s.Require().NoError(s.store.Upsert(s.ctx, account, "US", s.now))

		record, err := s.store.Get(s.ctx, account)
		s.Require().NoError(err)
		s.Require().NotNil(record)
		s.True(record.Verified)
		s.Equal("US", record.Jurisdiction)
		s.Equal(s.now, record.VerifiedAt)
	})
}

func (s *RegistryStoreSuite) TestCounters() {
	s.Run("upserts increment total and jurisdiction counts", func() {
		s.Require().NoError(s.store.Upsert(s.ctx, s.account(), "US", s.now))
		s.Require().NoError(s.store.Upsert(s.ctx, s.account(), "US", s.now))
		s.Require().NoError(s.store.Upsert(s.ctx, s.account(), "DE", s.now))

		total, err := s.store.TotalVerified(s.ctx)
		s.NoError(err)
		s.Equal(int64(3), total)

		usCount, err := s.store.JurisdictionCount(s.ctx, "US")
		s.NoError(err)
		s.Equal(int64(2), usCount)
	})

	s.Run("re-upsert with same jurisdiction is count neutral", func() {
		account := s.account()
		s.Require().NoError(s.store.Upsert(s.ctx, account, "CA", s.now))
		before, err := s.store.TotalVerified(s.ctx)
		s.Require().NoError(err)

		s.Require().NoError(s.store.Upsert(s.ctx, account, "CA", s.now))

		after, err := s.store.TotalVerified(s.ctx)
		s.NoError(err)
		s.Equal(before, after)

		count, err := s.store.JurisdictionCount(s.ctx, "CA")
		s.NoError(err)
		s.Equal(int64(1), count)
	})

	s.Run("jurisdiction change moves the count", func() {
		account := s.account()
		s.Require().NoError(s.store.Upsert(s.ctx, account, "FR", s.now))
		s.Require().NoError(s.store.Upsert(s.ctx, account, "JP", s.now))

		frCount, err := s.store.JurisdictionCount(s.ctx, "FR")
		s.NoError(err)
		s.Equal(int64(0), frCount)

		jpCount, err := s.store.JurisdictionCount(s.ctx, "JP")
		s.NoError(err)
		s.Equal(int64(1), jpCount)
	})

	s.Run("counts never go negative", func() {
		account := s.account()
		s.Require().NoError(s.store.Upsert(s.ctx, account, "SG", s.now))
		s.Require().NoError(s.store.Remove(s.ctx, account))
		s.Require().NoError(s.store.Remove(s.ctx, account))

		count, err := s.store.JurisdictionCount(s.ctx, "SG")
		s.NoError(err)
		s.Equal(int64(0), count)
	})
}

func (s *RegistryStoreSuite) TestRemove() {
	s.Run("removes the record", func() {
		account := s.account()
		s.Require().NoError(s.store.Upsert(s.ctx, account, "US", s.now))
		s.Require().NoError(s.store.Remove(s.ctx, account))

		record, err := s.store.Get(s.ctx, account)
		s.NoError(err)
		s.Nil(record)
	})
}

func (s *RegistryStoreSuite) TestUpsertBatch() {
	s.Run("applies every request", func() {
		requests := []models.VerificationRequest{
			{Account: s.account(), Jurisdiction: "US"},
			{Account: s.account(), Jurisdiction: "DE"},
		}
		s.Require().NoError(s.store.UpsertBatch(s.ctx, requests, s.now))

		total, err := s.store.TotalVerified(s.ctx)
		s.NoError(err)
		s.Equal(int64(2), total)
	})

	s.Run("duplicate accounts in one batch collapse to the last entry", func() {
		account := s.account()
		requests := []models.VerificationRequest{
			{Account: account, Jurisdiction: "US"},
			{Account: account, Jurisdiction: "DE"},
		}
		s.Require().NoError(s.store.UpsertBatch(s.ctx, requests, s.now))

		record, err := s.store.Get(s.ctx, account)
		s.Require().NoError(err)
		s.Equal("DE", record.Jurisdiction)

		total, err := s.store.TotalVerified(s.ctx)
		s.NoError(err)
		s.Equal(int64(1), total)
	})
}
