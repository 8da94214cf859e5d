package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:login:"

// RedisLimiter keeps one sorted set per key, scored by failure time in nanoseconds.
type RedisLimiter struct {
	client redis.UniversalClient
	cfg    Config
}

// NewRedisLimiter returns a Limiter shared by every server instance using client.
func NewRedisLimiter(client redis.UniversalClient, cfg Config) *RedisLimiter {
	cfg.ApplyDefaults()
	return &RedisLimiter{client: client, cfg: cfg}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := keyPrefix + key
	windowStart := time.Now().Add(-l.cfg.Window).UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	zcard := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	return zcard.Val() < int64(l.cfg.MaxAttempts), nil
}

func (l *RedisLimiter) Hit(ctx context.Context, key string) error {
	redisKey := keyPrefix + key
	now := time.Now()

	pipe := l.client.Pipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: ulid.Make().String()})
	pipe.Expire(ctx, redisKey, l.cfg.Window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rate limit hit: %w", err)
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}
