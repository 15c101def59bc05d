package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

const counterTTL = 48 * time.Hour

func NewClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// ClickCounter accumulates click/view counts in Redis so the hot path never
// touches Postgres. Counters expire on their own if a drain never happens.
type ClickCounter struct {
	client *redis.Client
	prefix string
}

func NewClickCounter(client *redis.Client, prefix string) *ClickCounter {
	if prefix == "" {
		prefix = "roomy:clicks:"
	}
	return &ClickCounter{client: client, prefix: prefix}
}

func (c *ClickCounter) Increment(ctx context.Context, key string) (int64, error) {
	full := c.prefix + key
	count, err := c.client.Incr(ctx, full).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		c.client.Expire(ctx, full, counterTTL)
	}
	return count, nil
}

// Drain atomically reads and resets a counter.
func (c *ClickCounter) Drain(ctx context.Context, key string) (int64, error) {
	full := c.prefix + key
	val, err := c.client.GetDel(ctx, full).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return val, nil
}

var _ ports.ClickCounter = (*ClickCounter)(nil)
