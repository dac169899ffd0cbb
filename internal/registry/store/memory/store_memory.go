package memory

import (
	"context"
	"sync"
	"time"

	"assetgate/internal/registry/models"
	id "assetgate/pkg/domain"
)

// InMemoryStore is the authoritative store for single-process deployments.
// All mutations run under one mutex, which gives every call the
// atomic-per-call semantics the registry counters depend on.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.AccountID]models.VerificationRecord
	counts  map[string]int64
	total   int64
}

func New() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[id.AccountID]models.VerificationRecord),
		counts:  make(map[string]int64),
	}
}

func (s *InMemoryStore) Get(_ context.Context, account id.AccountID) (*models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if record, exists := s.records[account]; exists {
		return &record, nil
	}
	return nil, nil
}

func (s *InMemoryStore) Upsert(_ context.Context, account id.AccountID, jurisdiction string, verifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(account, jurisdiction, verifiedAt)
	return nil
}

func (s *InMemoryStore) UpsertBatch(_ context.Context, requests []models.VerificationRequest, verifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Elements are pre-validated by the service; applying them under one
	// lock acquisition makes the batch atomic.
	for _, req := range requests {
		s.upsertLocked(req.Account, req.Jurisdiction, verifiedAt)
	}
	return nil
}

func (s *InMemoryStore) upsertLocked(account id.AccountID, jurisdiction string, verifiedAt time.Time) {
	previous, existed := s.records[account]

	switch {
	case !existed:
		s.total++
		s.counts[jurisdiction]++
	case previous.Jurisdiction != jurisdiction:
		s.decrementLocked(previous.Jurisdiction)
		s.counts[jurisdiction]++
	}

	s.records[account] = models.VerificationRecord{
		Account:      account,
		Verified:     true,
		Jurisdiction: jurisdiction,
		VerifiedAt:   verifiedAt,
	}
}

func (s *InMemoryStore) Remove(_ context.Context, account id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[account]
	if !exists {
		return nil
	}

	delete(s.records, account)
	s.decrementLocked(record.Jurisdiction)
	if s.total > 0 {
		s.total--
	}
	return nil
}

// decrementLocked floors at zero to tolerate prior inconsistency instead of
// propagating it into negative counts.
func (s *InMemoryStore) decrementLocked(jurisdiction string) {
	if s.counts[jurisdiction] > 0 {
		s.counts[jurisdiction]--
	}
	if s.counts[jurisdiction] == 0 {
		delete(s.counts, jurisdiction)
	}
}

func (s *InMemoryStore) JurisdictionCount(_ context.Context, jurisdiction string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[jurisdiction], nil
}

func (s *InMemoryStore) TotalVerified(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total, nil
}
