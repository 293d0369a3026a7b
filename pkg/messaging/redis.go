package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Pop when no message arrived before the timeout.
var ErrEmpty = errors.New("queue is empty")

// RedisConfig holds connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// ListQueue is a FIFO queue on top of a Redis list. Producers LPUSH and
// consumers BLMOVE the tail into a processing list, so a message stays in
// Redis until the consumer acknowledges it.
type ListQueue interface {
	Push(ctx context.Context, key string, payload []byte) error
	Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	// Ack drops a popped payload from the processing list.
	Ack(ctx context.Context, key string, payload []byte) error
	// Recover moves unacknowledged payloads back onto the queue and
	// reports how many were moved.
	Recover(ctx context.Context, key string) (int, error)
	Len(ctx context.Context, key string) (int64, error)
}

// ProcessingKey names the list holding popped but unacknowledged payloads.
func ProcessingKey(key string) string {
	return key + ":processing"
}

// listClient is the subset of redis.Cmdable the queue needs.
type listClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BLMove(ctx context.Context, source, destination, srcpos, destpos string, timeout time.Duration) *redis.StringCmd
	LMove(ctx context.Context, source, destination, srcpos, destpos string) *redis.StringCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

type redisListQueue struct {
	client listClient
}

// NewListQueue returns a ListQueue using client.
func NewListQueue(client listClient) ListQueue {
	return &redisListQueue{client: client}
}

func (q *redisListQueue) Push(ctx context.Context, key string, payload []byte) error {
	if err := q.client.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", key, err)
	}
	return nil
}

func (q *redisListQueue) Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BLMove(ctx, key, ProcessingKey(key), "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop from %s: %w", key, err)
	}
	return []byte(res), nil
}

func (q *redisListQueue) Ack(ctx context.Context, key string, payload []byte) error {
	if err := q.client.LRem(ctx, ProcessingKey(key), 1, payload).Err(); err != nil {
		return fmt.Errorf("failed to ack on %s: %w", key, err)
	}
	return nil
}

func (q *redisListQueue) Recover(ctx context.Context, key string) (int, error) {
	moved := 0
	for {
		// newest first onto the consuming end, so the oldest is popped next
		err := q.client.LMove(ctx, ProcessingKey(key), key, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to recover %s: %w", key, err)
		}
		moved++
	}
}

func (q *redisListQueue) Len(ctx context.Context, key string) (int64, error) {
	n, err := q.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read length of %s: %w", key, err)
	}
	return n, nil
}
