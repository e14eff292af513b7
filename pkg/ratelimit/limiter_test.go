package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedDelayUsesConfiguredDuration(t *testing.T) {
	var slept []time.Duration
	pacer := NewFixedDelay(600 * time.Millisecond).WithSleep(func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})

	require.NoError(t, pacer.Pause(context.Background()))
	require.NoError(t, pacer.Pause(context.Background()))

	assert.Equal(t, []time.Duration{600 * time.Millisecond, 600 * time.Millisecond}, slept)
	assert.Equal(t, 600*time.Millisecond, pacer.Delay())
}

func TestFixedDelayZeroDoesNotSleep(t *testing.T) {
	called := false
	pacer := NewFixedDelay(0).WithSleep(func(ctx context.Context, d time.Duration) error {
		called = true
		return nil
	})

	assert.NoError(t, pacer.Pause(context.Background()))
	assert.False(t, called)
}

func TestFixedDelayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := NewFixedDelay(time.Hour).Pause(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNoDelayAndCounter(t *testing.T) {
	assert.NoError(t, NoDelay{}.Pause(context.Background()))

	c := &Counter{}
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Pause(context.Background()))
	}
	assert.Equal(t, 3, c.Pauses)
}

func TestCeiling(t *testing.T) {
	c := NewCeiling(60)

	// The first request passes immediately, the next must wait about a second
	require.NoError(t, c.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.Wait(ctx))
}

func TestCeilingDisabled(t *testing.T) {
	c := NewCeiling(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, c.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)

	var nilCeiling *Ceiling
	assert.NoError(t, nilCeiling.Wait(context.Background()))
}
