package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitSleepsWithinBounds(t *testing.T) {
	t.Parallel()

	p := New(Config{SleepMin: 10 * time.Millisecond, SleepMax: 30 * time.Millisecond})

	for range 5 {
		start := time.Now()
		require.NoError(t, p.Wait(context.Background()))
		elapsed := time.Since(start)
		require.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
		// Generous ceiling; scheduling jitter can stretch a sleep.
		require.Less(t, elapsed, 500*time.Millisecond)
	}
}

func TestWaitZeroConfigReturnsImmediately(t *testing.T) {
	t.Parallel()

	p := New(Config{})
	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitHonorsCancellation(t *testing.T) {
	t.Parallel()

	p := New(Config{SleepMin: time.Second, SleepMax: 2 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, p.Wait(ctx))
}

func TestWaitRateLimiterCaps(t *testing.T) {
	t.Parallel()

	// 10 rps with burst 1: three waits need at least ~200ms.
	p := New(Config{RPS: 10, Burst: 1})
	start := time.Now()
	for range 3 {
		require.NoError(t, p.Wait(context.Background()))
	}
	require.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestNewNormalizesBounds(t *testing.T) {
	t.Parallel()

	p := New(Config{SleepMin: 20 * time.Millisecond, SleepMax: 5 * time.Millisecond})
	require.Equal(t, p.sleepMin, p.sleepMax)
}
