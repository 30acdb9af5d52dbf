package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter gates recovery request intake per clientIP:claimedEmail key.
// Fixed-window counting: a burst at the window boundary can admit up to twice
// the cap, which is acceptable for an abuse deterrent.
type RateLimiter interface {
	// Allow records one use of the key and reports whether it is within
	// the window cap. Backend errors fail open.
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimitKey builds the canonical limiter key for an intake attempt
func RateLimitKey(clientIP, claimedEmail string) string {
	return fmt.Sprintf("email_recovery:%s:%s", clientIP, claimedEmail)
}

// --- In-memory implementation ---

type rateLimitEntry struct {
	count         int
	windowResetAt time.Time
}

// MemoryRateLimiter is a mutexed fixed-window counter with TTL entries.
// Suitable for single-instance deployments; multi-instance deployments
// should use the Redis implementation instead.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	window  time.Duration
	max     int
	now     func() time.Time
}

// NewMemoryRateLimiter creates an in-memory rate limiter
func NewMemoryRateLimiter(window time.Duration, max int) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		entries: make(map[string]*rateLimitEntry),
		window:  window,
		max:     max,
		now:     time.Now,
	}
}

// Allow implements RateLimiter
func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	entry, ok := l.entries[key]
	if !ok || now.After(entry.windowResetAt) {
		// Elapsed windows are replaced, not incremented
		l.entries[key] = &rateLimitEntry{
			count:         1,
			windowResetAt: now.Add(l.window),
		}
		return true, nil
	}

	entry.count++
	return entry.count <= l.max, nil
}

// Sweep drops expired entries so the map cannot grow without bound.
// Called periodically by the background cleanup loop.
func (l *MemoryRateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, entry := range l.entries {
		if now.After(entry.windowResetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// --- Redis implementation ---

// RedisRateLimiter shares the fixed window across instances via INCR/EXPIRE.
type RedisRateLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
	logger *slog.Logger
}

// NewRedisRateLimiter creates a Redis-backed rate limiter
func NewRedisRateLimiter(client *redis.Client, window time.Duration, max int, logger *slog.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		window: window,
		max:    max,
		logger: logger,
	}
}

// Allow implements RateLimiter. Redis errors fail open: an unavailable
// backend must not lock legitimate users out of recovery.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Error("rate limiter backend unavailable, failing open",
			slog.String("key", key),
			slog.Any("error", err))
		return true, nil
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Error("failed to set rate limit window expiry",
				slog.String("key", key),
				slog.Any("error", err))
		}
	}

	return count <= int64(l.max), nil
}
