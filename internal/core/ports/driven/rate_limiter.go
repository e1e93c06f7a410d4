package driven

import (
	"context"
	"time"
)

// RateLimiter bounds how many requests a key may make per window
type RateLimiter interface {
	// Allow records one request for key and reports whether it fits the budget
	Allow(ctx context.Context, key string) (bool, error)

	// Window returns the limiter window
	Window() time.Duration

	// Ping checks the backend is healthy
	Ping(ctx context.Context) error
}
