package redis

// Package redis provides Redis-based adapters for the admin gate.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/campus-admin/admingate/internal/errors"
	"github.com/campus-admin/admingate/internal/ports"
)

// LoginLimiter counts login attempts per key in Redis using fixed windows.
// Counters are shared by every instance pointed at the same Redis.
type LoginLimiter struct {
	client      redis.UniversalClient
	prefix      string
	maxAttempts int
	window      time.Duration
}

var _ ports.LoginLimiter = (*LoginLimiter)(nil)

// LoginLimiterOptions configures a LoginLimiter.
type LoginLimiterOptions struct {
	Prefix      string // default "login_fail:"
	MaxAttempts int
	Window      time.Duration
}

// NewLoginLimiter creates a Redis-backed login limiter.
func NewLoginLimiter(client redis.UniversalClient, opts LoginLimiterOptions) (*LoginLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if opts.MaxAttempts <= 0 || opts.Window <= 0 {
		return nil, errors.New("max attempts and window must be positive")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "login_fail:"
	}
	return &LoginLimiter{client: client, prefix: prefix, maxAttempts: opts.MaxAttempts, window: opts.Window}, nil
}

// Check reports whether another attempt is allowed for key without reserving it.
func (l *LoginLimiter) Check(ctx context.Context, key string) (ports.LimitDecision, error) {
	k := l.prefix + key
	count, err := l.client.Get(ctx, k).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.LimitDecision{Allowed: true, Remaining: l.maxAttempts}, nil
		}
		return ports.LimitDecision{}, apperrors.Unavailable(err, "rate limiter")
	}

	if count < l.maxAttempts {
		return ports.LimitDecision{Allowed: true, Remaining: l.maxAttempts - count}, nil
	}

	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil {
		return ports.LimitDecision{}, apperrors.Unavailable(err, "rate limiter")
	}
	if ttl <= 0 {
		ttl = l.window
	}
	return ports.LimitDecision{Allowed: false, RetryAfter: ttl}, nil
}

// Acquire reserves an attempt for key. One MULTI/EXEC creates the window with its TTL when
// absent, increments it and reads the remaining TTL, so the counter never exists without expiry
// and concurrent attempts each see a distinct count.
func (l *LoginLimiter) Acquire(ctx context.Context, key string) (ports.LimitDecision, error) {
	k := l.prefix + key

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.window)
		incr = pipe.Incr(ctx, k)
		pttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return ports.LimitDecision{}, apperrors.Unavailable(err, "rate limiter")
	}

	count := int(incr.Val())
	ttl := pttl.Val()
	if ttl < 0 {
		// A counter left without expiry would lock the key out for good.
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return ports.LimitDecision{}, apperrors.Unavailable(fmt.Errorf("expire %s: %w", k, err), "rate limiter")
		}
		ttl = l.window
	}

	if count > l.maxAttempts {
		if err := l.release(ctx, k); err != nil {
			return ports.LimitDecision{}, err
		}
		return ports.LimitDecision{Allowed: false, RetryAfter: ttl}, nil
	}
	return ports.LimitDecision{Allowed: true, Remaining: l.maxAttempts - count}, nil
}

// Release returns a reserved attempt.
func (l *LoginLimiter) Release(ctx context.Context, key string) error {
	return l.release(ctx, l.prefix+key)
}

// release decrements k and removes it once empty, so a late release after the window
// ended does not leave a negative counter behind.
func (l *LoginLimiter) release(ctx context.Context, k string) error {
	n, err := l.client.Decr(ctx, k).Result()
	if err != nil {
		return apperrors.Unavailable(err, "rate limiter")
	}
	if n <= 0 {
		if err := l.client.Del(ctx, k).Err(); err != nil {
			return apperrors.Unavailable(err, "rate limiter")
		}
	}
	return nil
}

// Reset clears the counter for key.
func (l *LoginLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return apperrors.Unavailable(err, "rate limiter")
	}
	return nil
}
