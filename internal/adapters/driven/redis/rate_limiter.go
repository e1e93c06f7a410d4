package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RateLimiter = (*RateLimiter)(nil)

const rateLimitPrefix = "ratelimit:"

// allowScript trims the window, counts it and records the request in one
// atomic step. Returns 1 when the request fits the budget, 0 otherwise.
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	redis.call("zremrangebyscore", key, "-inf", "(" .. ARGV[2])
	if redis.call("zcard", key) >= tonumber(ARGV[3]) then
		return 0
	end
	redis.call("zadd", key, ARGV[1], ARGV[4])
	redis.call("pexpire", key, ARGV[5])
	return 1
`)

// RateLimiter implements a sliding-window limiter on a Redis sorted set.
// Each allowed request is a member scored by its timestamp in milliseconds.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window per key
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records a request for key if it fits in the current window
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	redisKey := rateLimitPrefix + key
	now := l.now().UnixMilli()
	windowStart := now - l.window.Milliseconds()

	allowed, err := allowScript.Run(ctx, l.client, []string{redisKey},
		now,
		windowStart,
		l.limit,
		uuid.NewString(),
		(l.window * 2).Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	return allowed == 1, nil
}

// Remaining returns how many requests key may still make in this window
func (l *RateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	redisKey := rateLimitPrefix + key
	windowStart := l.now().UnixMilli() - l.window.Milliseconds()

	count, err := l.client.ZCount(ctx, redisKey, strconv.FormatInt(windowStart, 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return max(l.limit-int(count), 0), nil
}

// Reset clears the window for key
func (l *RateLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, rateLimitPrefix+key).Err()
}

// Window returns the limiter window
func (l *RateLimiter) Window() time.Duration {
	return l.window
}

// Ping checks Redis connectivity
func (l *RateLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
