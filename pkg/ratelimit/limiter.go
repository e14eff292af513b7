package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer is applied between units of work (page fetches, download attempts, tasks)
type Pacer interface {
	// Pause blocks for the configured delay or until ctx is done
	Pause(ctx context.Context) error
}

// SleepFunc sleeps for d or returns early when ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// FixedDelay pauses for the same duration every time
type FixedDelay struct {
	delay time.Duration
	sleep SleepFunc
}

// NewFixedDelay creates a pacer that sleeps for delay on every Pause
func NewFixedDelay(delay time.Duration) *FixedDelay {
	return &FixedDelay{delay: delay, sleep: contextSleep}
}

// WithSleep replaces the sleep implementation, used by tests to record pauses
func (f *FixedDelay) WithSleep(sleep SleepFunc) *FixedDelay {
	f.sleep = sleep
	return f
}

// Delay returns the configured delay
func (f *FixedDelay) Delay() time.Duration {
	return f.delay
}

// Pause sleeps for the fixed delay
func (f *FixedDelay) Pause(ctx context.Context) error {
	if f.delay <= 0 {
		return ctx.Err()
	}
	return f.sleep(ctx, f.delay)
}

// NoDelay is a pacer that never sleeps
type NoDelay struct{}

// Pause returns immediately unless ctx is already done
func (NoDelay) Pause(ctx context.Context) error {
	return ctx.Err()
}

// Counter is a pacer that counts pauses without sleeping
type Counter struct {
	Pauses int
}

// Pause records the call
func (c *Counter) Pause(ctx context.Context) error {
	c.Pauses++
	return ctx.Err()
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ceiling enforces a hard requests-per-minute limit on outgoing calls
type Ceiling struct {
	limiter *rate.Limiter
}

// NewCeiling creates a ceiling of perMinute requests. A non-positive value disables it.
func NewCeiling(perMinute int) *Ceiling {
	if perMinute <= 0 {
		return &Ceiling{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	// Burst of one keeps requests evenly spread across the minute
	return &Ceiling{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)}
}

// Wait blocks until another request is allowed
func (c *Ceiling) Wait(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.limiter.Wait(ctx)
}
