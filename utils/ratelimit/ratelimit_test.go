package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestTokenBucketLimiter_Allow(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	limiter := NewTokenBucketLimiter(client, zap.NewNop(), false)

	ctx := context.Background()
	key := "platform:guild123"
	limit := 5
	window := time.Minute

	// First 5 requests should be allowed
	for i := range limit {
		allowed, err := limiter.Allow(ctx, key, limit, window)
		assert.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	// 6th request should be denied
	allowed, err := limiter.Allow(ctx, key, limit, window)
	assert.NoError(t, err)
	assert.False(t, allowed, "request should be denied after limit exceeded")
}

func TestTokenBucketLimiter_AllowN(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	limiter := NewTokenBucketLimiter(client, zap.NewNop(), false)

	ctx := context.Background()
	key := "platform:guild456"
	limit := 10
	window := time.Minute

	// A member-join burst consumes several platform calls at once
	allowed, err := limiter.AllowN(ctx, key, 4, limit, window)
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.AllowN(ctx, key, 6, limit, window)
	assert.NoError(t, err)
	assert.True(t, allowed)

	// Budget exhausted
	allowed, err = limiter.AllowN(ctx, key, 1, limit, window)
	assert.NoError(t, err)
	assert.False(t, allowed)
}

func TestTokenBucketLimiter_KeysAreIndependent(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	limiter := NewTokenBucketLimiter(client, zap.NewNop(), false)

	ctx := context.Background()
	window := time.Minute

	allowed, err := limiter.AllowN(ctx, "platform:g1", 3, 3, window)
	assert.NoError(t, err)
	assert.True(t, allowed)

	// g1 is exhausted, g2 is untouched
	allowed, _ = limiter.Allow(ctx, "platform:g1", 3, window)
	assert.False(t, allowed)
	allowed, _ = limiter.Allow(ctx, "platform:g2", 3, window)
	assert.True(t, allowed)
}

func TestTokenBucketLimiter_Reset(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	limiter := NewTokenBucketLimiter(client, zap.NewNop(), false)

	ctx := context.Background()
	key := "platform:guild789"
	limit := 2
	window := time.Minute

	_, _ = limiter.AllowN(ctx, key, 2, limit, window)
	allowed, _ := limiter.Allow(ctx, key, limit, window)
	require.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, key, window))

	allowed, err := limiter.Allow(ctx, key, limit, window)
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestTokenBucketLimiter_GetRemaining(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	limiter := NewTokenBucketLimiter(client, zap.NewNop(), false)

	ctx := context.Background()
	key := "platform:guild999"
	limit := 10
	window := time.Minute

	// Untouched key has the full budget
	remaining, err := limiter.GetRemaining(ctx, key, limit, window)
	assert.NoError(t, err)
	assert.Equal(t, limit, remaining)

	_, _ = limiter.AllowN(ctx, key, 7, limit, window)

	remaining, err = limiter.GetRemaining(ctx, key, limit, window)
	assert.NoError(t, err)
	assert.Equal(t, 3, remaining)

	// Over-consumption clamps at zero
	_, _ = limiter.AllowN(ctx, key, 10, limit, window)
	remaining, err = limiter.GetRemaining(ctx, key, limit, window)
	assert.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

// With fallback enabled a dead Redis lets requests through instead of
// failing them.
func TestTokenBucketLimiter_FailOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	limiter := NewTokenBucketLimiter(client, zap.NewNop(), true)
	mr.Close()

	allowed, err := limiter.Allow(context.Background(), "platform:g1", 5, time.Minute)
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestTokenBucketLimiter_FailClosed(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	limiter := NewTokenBucketLimiter(client, zap.NewNop(), false)
	mr.Close()

	allowed, err := limiter.Allow(context.Background(), "platform:g1", 5, time.Minute)
	assert.Error(t, err)
	assert.False(t, allowed)
}
