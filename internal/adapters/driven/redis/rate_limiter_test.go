package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a miniredis-backed client
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr, func() {
		client.Close()
		mr.Close()
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewRateLimiter(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
	}

	ok, err := limiter.Allow(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected fourth request to be limited")
	}

	ok, _ = limiter.Allow(ctx, "bob@example.com")
	if !ok {
		t.Error("expected other keys to have their own budget")
	}
}

func TestRateLimiter_Allow_Concurrent(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	const limit = 5
	limiter := NewRateLimiter(client, limit, time.Minute)
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := limiter.Allow(ctx, "k")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != limit {
		t.Errorf("expected %d concurrent requests allowed, got %d", limit, got)
	}

	remaining, err := limiter.Remaining(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", remaining)
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(client, 2, time.Minute)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "k")
	now = now.Add(30 * time.Second)
	_, _ = limiter.Allow(ctx, "k")

	if ok, _ := limiter.Allow(ctx, "k"); ok {
		t.Fatal("expected limit to be reached inside the window")
	}

	now = now.Add(31 * time.Second)
	if ok, _ := limiter.Allow(ctx, "k"); !ok {
		t.Error("expected the first request to have left the window")
	}

	remaining, err := limiter.Remaining(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", remaining)
	}
}

func TestRateLimiter_SetsExpiry(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewRateLimiter(client, 5, time.Minute)
	_, _ = limiter.Allow(context.Background(), "k")

	if ttl := mr.TTL(rateLimitPrefix + "k"); ttl != 2*time.Minute {
		t.Errorf("expected ttl of two windows, got %v", ttl)
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewRateLimiter(client, 1, time.Minute)
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "k")
	if ok, _ := limiter.Allow(ctx, "k"); ok {
		t.Fatal("expected limit to be reached")
	}
	if err := limiter.Reset(ctx, "k"); err != nil {
		t.Fatalf("failed to reset: %v", err)
	}
	if ok, _ := limiter.Allow(ctx, "k"); !ok {
		t.Error("expected request allowed after reset")
	}
}

func TestRateLimiter_Unlimited(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewRateLimiter(client, 0, 0)
	if limiter.Window() != time.Minute {
		t.Errorf("expected default window, got %v", limiter.Window())
	}
	for i := 0; i < 10; i++ {
		if ok, _ := limiter.Allow(context.Background(), "k"); !ok {
			t.Fatal("expected zero limit to mean unlimited")
		}
	}
}

func TestRateLimiter_RedisDown(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewRateLimiter(client, 1, time.Minute)
	mr.Close()

	if _, err := limiter.Allow(context.Background(), "k"); err == nil {
		t.Error("expected error when redis is down")
	}
	if err := limiter.Ping(context.Background()); err == nil {
		t.Error("expected ping to fail when redis is down")
	}
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.Close()

	if _, err := Connect(context.Background(), "not-a-url"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
