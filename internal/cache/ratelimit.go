package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptsPrefix = "auth:login:"

// AttemptCounter is a fixed-window counter: the first hit in a window sets
// the expiry, later hits only increment.
type AttemptCounter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
}

func NewAttemptCounter(client redis.Cmdable, limit int, window time.Duration) *AttemptCounter {
	return &AttemptCounter{client: client, limit: limit, window: window}
}

// Allow records an attempt for key and reports whether it is within the limit.
// A non-positive limit disables counting.
func (c *AttemptCounter) Allow(ctx context.Context, key string) (bool, error) {
	if c.limit <= 0 {
		return true, nil
	}

	redisKey := loginAttemptsPrefix + key
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, c.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("count attempt: %w", err)
	}
	return incr.Val() <= int64(c.limit), nil
}
