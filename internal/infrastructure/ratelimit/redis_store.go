// Package ratelimit keeps the shared rate-limit flag in Redis so the API
// and worker processes see the same state.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainRepo "github.com/wekeepgrowing/todosync/internal/domain/repository"
)

// flagClient is the part of redis.Cmdable the store uses.
type flagClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisStore struct {
	client flagClient
	key    string
}

// NewRedisStore returns a RateLimitStore keeping the flag under key.
func NewRedisStore(client flagClient, key string) domainRepo.RateLimitStore {
	return &redisStore{client: client, key: key}
}

// SetRateLimited raises the flag; Redis drops it after ttl.
func (s *redisStore) SetRateLimited(ctx context.Context, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", s.key, err)
	}
	return nil
}

func (s *redisStore) IsRateLimited(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, s.key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	return n > 0, nil
}
