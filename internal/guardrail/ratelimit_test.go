package guardrail

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiters(t *testing.T, limits Limits, clock *fakeClock) map[string]Limiter {
	t.Helper()

	memory := NewMemoryLimiter(limits)
	memory.now = clock.Now

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	shared := NewRedisLimiter(client, limits)
	shared.now = clock.Now

	return map[string]Limiter{"memory": memory, "redis": shared}
}

func TestLimiterMinuteBoundary(t *testing.T) {
	for name, limiter := range newLimiters(t, DefaultLimits(), newFakeClock()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 0; i < 10; i++ {
				res, err := limiter.Check(ctx, "biz-1")
				require.NoError(t, err)
				require.True(t, res.Passed, "request %d should pass", i+1)
			}

			res, err := limiter.Check(ctx, "biz-1")
			require.NoError(t, err)
			require.False(t, res.Passed)
			assert.Equal(t, ViolationRateLimitExceeded, res.Violations[0].Type)
			assert.Equal(t, SeverityHigh, res.Violations[0].Severity)
			assert.Equal(t, "minute", res.Violations[0].Context["window"])
			assert.Equal(t, 11, res.Violations[0].Context["requests"])

			// Other businesses are unaffected.
			res, err = limiter.Check(ctx, "biz-2")
			require.NoError(t, err)
			assert.True(t, res.Passed)
		})
	}
}

func TestLimiterWindowsSlide(t *testing.T) {
	limits := Limits{PerMinute: 2, PerHour: 3, PerDay: 4}
	clock := newFakeClock()

	for name, limiter := range newLimiters(t, limits, clock) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			check := func() Result {
				res, err := limiter.Check(ctx, "biz-"+name)
				require.NoError(t, err)
				return res
			}

			assert.True(t, check().Passed)
			assert.True(t, check().Passed)
			res := check()
			require.False(t, res.Passed)
			assert.Equal(t, "minute", res.Violations[0].Context["window"])

			clock.Advance(61 * time.Second)
			assert.True(t, check().Passed)
			res = check()
			require.False(t, res.Passed)
			assert.Equal(t, "hour", res.Violations[0].Context["window"])

			clock.Advance(61 * time.Minute)
			assert.True(t, check().Passed)
			clock.Advance(2 * time.Minute)
			res = check()
			require.False(t, res.Passed)
			assert.Equal(t, "day", res.Violations[0].Context["window"])

			clock.Advance(24 * time.Hour)
			assert.True(t, check().Passed)
		})
	}
}

func TestMemoryLimiterSerializesPerIdentity(t *testing.T) {
	limiter := NewMemoryLimiter(DefaultLimits())
	ctx := context.Background()

	var passed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Check(ctx, "biz-1")
			if err == nil && res.Passed {
				passed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), passed.Load())
}

func TestMemoryLimiterForgetsIdleIdentities(t *testing.T) {
	clock := newFakeClock()
	limiter := NewMemoryLimiter(DefaultLimits())
	limiter.now = clock.Now
	ctx := context.Background()

	for _, id := range []string{"biz-1", "biz-2", "biz-3"} {
		res, err := limiter.Check(ctx, id)
		require.NoError(t, err)
		require.True(t, res.Passed)
	}
	require.Equal(t, 3, limiter.Len())

	clock.Advance(12 * time.Hour)
	_, err := limiter.Check(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 3, limiter.Len(), "histories inside the day window are kept")

	clock.Advance(13 * time.Hour)
	_, err = limiter.Check(ctx, "biz-4")
	require.NoError(t, err)
	assert.Equal(t, 2, limiter.Len(), "only biz-1 and biz-4 have recent requests")

	for i := 0; i < 9; i++ {
		res, err := limiter.Check(ctx, "biz-4")
		require.NoError(t, err)
		require.True(t, res.Passed)
	}
	res, err := limiter.Check(ctx, "biz-4")
	require.NoError(t, err)
	assert.False(t, res.Passed, "history survives the sweep for active identities")
}

func TestRedisLimiterUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()
	mr.Close()

	_, err := NewRedisLimiter(client, DefaultLimits()).Check(context.Background(), "biz-1")
	assert.Error(t, err)
}
