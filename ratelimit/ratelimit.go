// Package ratelimit throttles mutating API calls with a fixed-window counter
// kept in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether another request for key fits the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NewClient connects to the Redis instance at url and verifies it answers.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ratelimit: ping redis: %w", err)
	}
	return client, nil
}

// RedisLimiter allows limit requests per key in each window.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: "jobpazar:rate"}
}

// WithPrefix namespaces the counter keys.
func (l *RedisLimiter) WithPrefix(prefix string) *RedisLimiter {
	l.prefix = prefix
	return l
}

// Allow counts the request and reports whether it fits the window. EXPIRE NX
// runs on every hit so a counter always carries a TTL. Needs Redis 7.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key)
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ratelimit: count %s: %w", k, err)
	}
	return incr.Val() <= int64(l.limit), nil
}

func (l *RedisLimiter) key(key string) string {
	return fmt.Sprintf("%s:%s", l.prefix, key)
}
