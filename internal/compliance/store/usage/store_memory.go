package usage

import (
	"context"
	"math"
	"sync"

	id "assetgate/pkg/domain"
)

type usageKey struct {
	account id.AccountID
	day     int64
}

// InMemoryStore keeps per-day usage counters in a map. Entries are never
// removed, matching the engine's unbounded-history contract.
type InMemoryStore struct {
	mu    sync.RWMutex
	usage map[usageKey]int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{usage: make(map[usageKey]int64)}
}

func (s *InMemoryStore) Add(_ context.Context, account id.AccountID, day int64, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := usageKey{account: account, day: day}
	// The counter saturates rather than wraps; a wrapped counter would
	// report less usage than was recorded.
	if current := s.usage[key]; amount > math.MaxInt64-current {
		s.usage[key] = math.MaxInt64
	} else {
		s.usage[key] = current + amount
	}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, account id.AccountID, day int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[usageKey{account: account, day: day}], nil
}
