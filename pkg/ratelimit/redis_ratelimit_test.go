package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // 테스트용 DB
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available:", err)
	}

	client.FlushDB(ctx)

	return client
}

func TestRedisRateLimiter_AllowUpToLimit(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	limiter := NewRedisRateLimiter(client, "test:ratelimit:")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "user-1", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "user-1", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "request over the limit must be rejected")
}

func TestRedisRateLimiter_KeyIsolation(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	limiter := NewRedisRateLimiter(client, "test:ratelimit:")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "user-a", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	// 다른 키는 영향을 받지 않는다
	allowed, err := limiter.Allow(ctx, "user-b", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_SharedAcrossInstances(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	// 두 인스턴스가 같은 키 공간을 공유하는 상황
	first := NewRedisRateLimiter(client, "test:shared:")
	second := NewRedisRateLimiter(client, "test:shared:")
	ctx := context.Background()

	allowedCount := 0
	for i := 0; i < 10; i++ {
		limiter := first
		if i%2 == 1 {
			limiter = second
		}
		allowed, err := limiter.Allow(ctx, "user-1", 4, time.Minute)
		require.NoError(t, err)
		if allowed {
			allowedCount++
		}
	}

	assert.Equal(t, 4, allowedCount, "limit must hold across limiter instances")
}

func TestRedisRateLimiter_Reset(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	limiter := NewRedisRateLimiter(client, fmt.Sprintf("test:reset:%d:", time.Now().UnixNano()))
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user-1", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user-1", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "user-1"))

	allowed, err = limiter.Allow(ctx, "user-1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
