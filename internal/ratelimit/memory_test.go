package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/invoiced/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBucketConsumesAndRefills(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	bucket := NewMemoryBucket(clk)

	for i := 0; i < 2; i++ {
		result, err := bucket.Allow(ctx, "client-a", 1, 2)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d", i)
	}

	result, err := bucket.Allow(ctx, "client-a", 1, 2)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Greater(t, result.RetryAfter, time.Duration(0))

	clk.Advance(time.Second)
	result, err = bucket.Allow(ctx, "client-a", 1, 2)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryBucketIsolatesKeys(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	bucket := NewMemoryBucket(clk)

	result, err := bucket.Allow(ctx, "client-a", 1, 1)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = bucket.Allow(ctx, "client-a", 1, 1)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	result, err = bucket.Allow(ctx, "client-b", 1, 1)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryBucketRejectsBadArguments(t *testing.T) {
	ctx := context.Background()
	bucket := NewMemoryBucket(clock.SystemClock{})

	_, err := bucket.Allow(ctx, "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(ctx, "key", 0, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(ctx, "key", 1, 0)
	assert.Error(t, err)
}
