package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/mysocial-network/beacon/utils/unittest"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(1), 2)
	now := time.Now()
	limiter.SetTimeNowFunc(func() time.Time { return now })

	a := unittest.PeerIDFixture(t)
	b := unittest.PeerIDFixture(t)

	// burst is available immediately
	assert.True(t, limiter.Allow(a))
	assert.True(t, limiter.Allow(a))
	assert.False(t, limiter.Allow(a))

	// buckets are per peer
	assert.True(t, limiter.Allow(b))

	// tokens refill over time
	now = now.Add(time.Second)
	assert.True(t, limiter.Allow(a))
	assert.False(t, limiter.Allow(a))
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	pid := unittest.PeerIDFixture(t)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow(pid))
	}
	require.NoError(t, limiter.Wait(context.Background(), pid))
	assert.Equal(t, 0, limiter.Size())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(10), 1)
	now := time.Now()
	limiter.SetTimeNowFunc(func() time.Time { return now })

	limiter.Allow(unittest.PeerIDFixture(t))
	active := unittest.PeerIDFixture(t)
	limiter.Allow(active)
	require.Equal(t, 2, limiter.Size())

	now = now.Add(rateLimiterTTL / 2)
	limiter.Allow(active)

	now = now.Add(rateLimiterTTL/2 + time.Second)
	limiter.Cleanup()
	assert.Equal(t, 1, limiter.Size())
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Hour), 1)
	pid := unittest.PeerIDFixture(t)
	require.NoError(t, limiter.Wait(context.Background(), pid))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx, pid))
}
