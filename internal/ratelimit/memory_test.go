package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoginLimitExhaustion(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter().WithClock(func() time.Time { return now })
	ctx := context.Background()

	// Five attempts within the window pass.
	for i := 0; i < 5; i++ {
		res, err := limiter.Check(ctx, "id:9001", ClassLogin)
		require.NoError(t, err)
		require.True(t, res.Allowed, "attempt %d", i+1)
		require.Equal(t, 4-i, res.Remaining)
	}

	// The sixth is rejected with a positive retry hint.
	res, err := limiter.Check(ctx, "id:9001", ClassLogin)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Zero(t, res.Remaining)
	require.Greater(t, res.RetryAfterSeconds(), 0)

	// Another identifier is unaffected.
	other, err := limiter.Check(ctx, "id:9002", ClassLogin)
	require.NoError(t, err)
	require.True(t, other.Allowed)
}

func TestWindowResetsLazily(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := limiter.Check(ctx, "id:9001", ClassLogin)
		require.NoError(t, err)
	}
	res, err := limiter.Check(ctx, "id:9001", ClassLogin)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Past the window boundary the counter starts fresh.
	now = now.Add(15 * time.Minute)
	res, err = limiter.Check(ctx, "id:9001", ClassLogin)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 4, res.Remaining)
}

func TestClassesAreIndependent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Check(ctx, "1.2.3.4", ClassSignup)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := limiter.Check(ctx, "1.2.3.4", ClassSignup)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Same identifier, different class: its own budget.
	res, err = limiter.Check(ctx, "1.2.3.4", ClassChat)
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestUnknownClassUsesDefaultPolicy(t *testing.T) {
	t.Parallel()

	require.Equal(t, PolicyFor(ClassDefault), PolicyFor(Class("unmapped")))
}

func TestSweepEvictsExpiredWindows(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter().WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := limiter.Check(ctx, "id:a", ClassLogin)
	require.NoError(t, err)
	_, err = limiter.Check(ctx, "id:b", ClassChat)
	require.NoError(t, err)

	require.Zero(t, limiter.Sweep())

	// Login window (15m) expires; chat window (1h) survives.
	now = now.Add(20 * time.Minute)
	require.Equal(t, 1, limiter.Sweep())

	now = now.Add(time.Hour)
	require.Equal(t, 1, limiter.Sweep())
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, Result{}.RetryAfterSeconds())
	require.Equal(t, 1, Result{RetryAfter: 200 * time.Millisecond}.RetryAfterSeconds())
	require.Equal(t, 2, Result{RetryAfter: 1500 * time.Millisecond}.RetryAfterSeconds())
	require.Equal(t, 60, Result{RetryAfter: time.Minute}.RetryAfterSeconds())
}
