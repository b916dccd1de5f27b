// Package ratelimit paces navigations to avoid request bursts.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Pacer combines a token-bucket cap on navigation rate with a random
// post-navigation sleep drawn from a configured interval.
type Pacer struct {
	limiter  *rate.Limiter
	sleepMin time.Duration
	sleepMax time.Duration
}

// Config holds pacing configuration. RPS <= 0 disables the token bucket;
// SleepMax <= 0 disables the random sleep.
type Config struct {
	RPS      float64
	Burst    int
	SleepMin time.Duration
	SleepMax time.Duration
}

// New creates a Pacer.
func New(cfg Config) *Pacer {
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	if cfg.SleepMin < 0 {
		cfg.SleepMin = 0
	}
	if cfg.SleepMax < cfg.SleepMin {
		cfg.SleepMax = cfg.SleepMin
	}
	return &Pacer{
		limiter:  limiter,
		sleepMin: cfg.SleepMin,
		sleepMax: cfg.SleepMax,
	}
}

// Wait blocks for the pacing interval, respecting the context.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	d := p.randomSleep()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("pacing sleep canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (p *Pacer) randomSleep() time.Duration {
	if p.sleepMax <= 0 {
		return 0
	}
	span := p.sleepMax - p.sleepMin
	if span <= 0 {
		return p.sleepMin
	}
	return p.sleepMin + time.Duration(rand.Int64N(int64(span)))
}
