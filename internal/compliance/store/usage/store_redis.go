package usage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	id "assetgate/pkg/domain"
)

// RedisStore keeps per-day usage counters in Redis so multiple gateway
// replicas share one quota view. Keys carry no TTL on purpose: historical
// day buckets stay queryable, matching the never-pruned usage contract.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func usageRedisKey(account id.AccountID, day int64) string {
	return fmt.Sprintf("usage:%s:%d", account, day)
}

func (s *RedisStore) Add(ctx context.Context, account id.AccountID, day int64, amount int64) error {
	// Redis rejects an INCRBY that would overflow, so the counter errors
	// rather than wraps.
	if err := s.client.IncrBy(ctx, usageRedisKey(account, day), amount).Err(); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, account id.AccountID, day int64) (int64, error) {
	raw, err := s.client.Get(ctx, usageRedisKey(account, day)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get usage: %w", err)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse usage value %q: %w", raw, err)
	}
	return value, nil
}
