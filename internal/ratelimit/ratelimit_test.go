package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})
	return client
}

// exerciseLimiter checks the shared Allow/Hit/Reset behavior with a limit of 3.
func exerciseLimiter(t *testing.T, l Limiter) {
	ctx := context.Background()
	key := "a@x.com"

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should be allowed", i+1)
		require.NoError(t, l.Hit(ctx, key))
	}
	allowed, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, allowed, "4th attempt should be blocked")

	other, err := l.Allow(ctx, "b@x.com")
	require.NoError(t, err)
	assert.True(t, other, "other keys are independent")

	require.NoError(t, l.Reset(ctx, key))
	allowed, err = l.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, allowed, "reset should clear the counter")
}

func TestMemoryLimiter(t *testing.T) {
	exerciseLimiter(t, NewMemoryLimiter(Config{MaxAttempts: 3, Window: time.Minute}))
}

func TestMemoryLimiter_WindowSlides(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(Config{MaxAttempts: 1, Window: time.Minute})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, l.Hit(ctx, "k"))
	allowed, _ := l.Allow(ctx, "k")
	assert.False(t, allowed)

	now = now.Add(61 * time.Second)
	allowed, _ = l.Allow(ctx, "k")
	assert.True(t, allowed, "hit outside the window should not count")
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	assert.Equal(t, 5, c.MaxAttempts)
	assert.Equal(t, 15*time.Minute, c.Window)
}

func TestRedisLimiter(t *testing.T) {
	client := setupTestRedis(t)
	exerciseLimiter(t, NewRedisLimiter(client, Config{MaxAttempts: 3, Window: time.Minute}))
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url")
	require.Error(t, err)
}
