package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock_Now(t *testing.T) {
	c := RealClock{}

	before := time.Now()
	got := c.Now()
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestRealClock_Sleep(t *testing.T) {
	c := RealClock{}

	t.Run("zero duration returns immediately", func(t *testing.T) {
		require.NoError(t, c.Sleep(context.Background(), 0))
	})

	t.Run("canceled context interrupts sleep", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := c.Sleep(ctx, time.Hour)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("short sleep completes", func(t *testing.T) {
		require.NoError(t, c.Sleep(context.Background(), time.Millisecond))
	})
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFakeClock(start)

	assert.Equal(t, start, f.Now())

	require.NoError(t, f.Sleep(context.Background(), 2*time.Second))
	f.Advance(time.Second)
	assert.Equal(t, start.Add(3*time.Second), f.Now())

	total, count := f.Slept()
	assert.Equal(t, 2*time.Second, total)
	assert.Equal(t, 1, count)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, f.Sleep(ctx, time.Second), context.Canceled)
	assert.Equal(t, start.Add(3*time.Second), f.Now())
}
