//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"assetgate/internal/registry/models"
	"assetgate/internal/registry/store/postgres"
	id "assetgate/pkg/domain"
	"assetgate/pkg/testutil/containers"
)

const registrySchema = `
CREATE TABLE IF NOT EXISTS verification_records (
    account_id   UUID PRIMARY KEY,
    jurisdiction TEXT        NOT NULL,
    verified_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS verification_records_jurisdiction_idx
    ON verification_records (jurisdiction);
`

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	_, err := s.postgres.DB.Exec(registrySchema)
	s.Require().NoError(err)
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.postgres.DB.Close()
	_ = s.postgres.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.postgres.DB.Exec(`TRUNCATE verification_records`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) account() id.AccountID {
	return id.AccountID(uuid.New())
}

func (s *PostgresStoreSuite) TestUpsertAndGet() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.Run("missing record returns nil without error", func() {
		record, err := s.store.Get(ctx, s.account())
		s.NoError(err)
		s.Nil(record)
	})

	s.Run("round-trips the record", func() {
		account := s.account()
		s.Require().NoError(s.store.Upsert(ctx, account, "US", now))

		record, err := s.store.Get(ctx, account)
		s.Require().NoError(err)
		s.Require().NotNil(record)
		s.True(record.Verified)
		s.Equal("US", record.Jurisdiction)
		s.WithinDuration(now, record.VerifiedAt, time.Second)
	})

	s.Run("upsert replaces the jurisdiction", func() {
		account := s.account()
		s.Require().NoError(s.store.Upsert(ctx, account, "US", now))
		s.Require().NoError(s.store.Upsert(ctx, account, "DE", now))

		record, err := s.store.Get(ctx, account)
		s.Require().NoError(err)
		s.Equal("DE", record.Jurisdiction)
	})
}

func (s *PostgresStoreSuite) TestCounts() {
	ctx := context.Background()
	now := time.Now().UTC()

	s.Require().NoError(s.store.Upsert(ctx, s.account(), "US", now))
	s.Require().NoError(s.store.Upsert(ctx, s.account(), "US", now))
	s.Require().NoError(s.store.Upsert(ctx, s.account(), "DE", now))

	total, err := s.store.TotalVerified(ctx)
	s.NoError(err)
	s.Equal(int64(3), total)

	usCount, err := s.store.JurisdictionCount(ctx, "US")
	s.NoError(err)
	s.Equal(int64(2), usCount)

	missing, err := s.store.JurisdictionCount(ctx, "XX")
	s.NoError(err)
	s.Equal(int64(0), missing)
}

func (s *PostgresStoreSuite) TestRemove() {
	ctx := context.Background()
	account := s.account()

	s.Require().NoError(s.store.Upsert(ctx, account, "US", time.Now().UTC()))
	s.Require().NoError(s.store.Remove(ctx, account))

	record, err := s.store.Get(ctx, account)
	s.NoError(err)
	s.Nil(record)

	// Removing an absent record is a no-op at the store layer.
	s.NoError(s.store.Remove(ctx, account))
}

func (s *PostgresStoreSuite) TestUpsertBatch() {
	ctx := context.Background()
	now := time.Now().UTC()

	requests := []models.VerificationRequest{
		{Account: s.account(), Jurisdiction: "US"},
		{Account: s.account(), Jurisdiction: "DE"},
		{Account: s.account(), Jurisdiction: "DE"},
	}
	s.Require().NoError(s.store.UpsertBatch(ctx, requests, now))

	total, err := s.store.TotalVerified(ctx)
	s.NoError(err)
	s.Equal(int64(3), total)

	deCount, err := s.store.JurisdictionCount(ctx, "DE")
	s.NoError(err)
	s.Equal(int64(2), deCount)
}
