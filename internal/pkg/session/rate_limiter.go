// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckRestoreAttempt limits bridge restore attempts per IP. Restore takes a
// bearer token from a redirect, so brute forcing it is the attack to throttle.
func (r *RateLimiter) CheckRestoreAttempt(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:restore:%s", ip)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment restore attempt: %w", err)
	}
	if count == 1 {
		r.client.Expire(ctx, key, time.Minute)
	}

	// 30 attempts per minute per IP.
	return count <= 30, nil
}

// CheckInviteAttempt limits invitation acceptance attempts per IP.
func (r *RateLimiter) CheckInviteAttempt(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:invite:%s", ip)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment invite attempt: %w", err)
	}
	if count == 1 {
		r.client.Expire(ctx, key, 15*time.Minute)
	}

	return count <= 10, nil
}
