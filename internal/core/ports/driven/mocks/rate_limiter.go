package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Ensure MockRateLimiter implements RateLimiter
var _ driven.RateLimiter = (*MockRateLimiter)(nil)

// MockRateLimiter allows a fixed number of requests per key, forever.
type MockRateLimiter struct {
	mu     sync.Mutex
	limit  int
	counts map[string]int

	// Err, when set, is returned by Allow and Ping
	Err error
}

// NewMockRateLimiter creates a limiter allowing limit requests per key
func NewMockRateLimiter(limit int) *MockRateLimiter {
	return &MockRateLimiter{limit: limit, counts: make(map[string]int)}
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key] <= m.limit, nil
}

func (m *MockRateLimiter) Window() time.Duration {
	return time.Minute
}

func (m *MockRateLimiter) Ping(ctx context.Context) error {
	return m.Err
}
