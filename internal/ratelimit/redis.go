package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps fixed-window counters in Redis so limits hold across
// service instances. Each window is one key with a TTL equal to the window
// length; INCR plus the first-hit EXPIRE make the count and its expiry a
// single round trip via pipelining.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter builds a limiter over an existing client.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "rl:"}
}

// Check implements Limiter.
func (l *RedisLimiter) Check(ctx context.Context, identifier string, class Class) (Result, error) {
	policy := PolicyFor(class)
	key := fmt.Sprintf("%s%s:%s", l.prefix, class, identifier)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit check: %w", err)
	}

	count := incr.Val()
	if count == 1 || ttl.Val() < 0 {
		// first hit in this window, or a key left without expiry
		if err := l.client.PExpire(ctx, key, policy.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire: %w", err)
		}
		ttl.SetVal(policy.Window)
	}

	if count > int64(policy.Limit) {
		retryAfter := ttl.Val()
		if retryAfter <= 0 {
			retryAfter = policy.Window
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	return Result{Allowed: true, Remaining: policy.Limit - int(count)}, nil
}

var _ Limiter = (*RedisLimiter)(nil)
