package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-insight/config"
)

func testRetryConfig() config.RetryConfig {
	return config.RetryConfig{
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

func TestBackoff_Delay(t *testing.T) {
	b := NewBackoff(testRetryConfig())

	t.Run("should grow exponentially", func(t *testing.T) {
		// Jitter is ±5% with factor 0.1, so the bands never overlap.
		d1 := b.Delay(1)
		d2 := b.Delay(2)
		d3 := b.Delay(3)

		assert.InDelta(t, 100*time.Millisecond, float64(d1), float64(10*time.Millisecond))
		assert.InDelta(t, 200*time.Millisecond, float64(d2), float64(20*time.Millisecond))
		assert.InDelta(t, 400*time.Millisecond, float64(d3), float64(40*time.Millisecond))
	})

	t.Run("should cap at max delay", func(t *testing.T) {
		d := b.Delay(10)
		assert.LessOrEqual(t, d, 1*time.Second+100*time.Millisecond)
	})

	t.Run("should treat attempts below one as the first attempt", func(t *testing.T) {
		d := b.Delay(0)
		assert.InDelta(t, 100*time.Millisecond, float64(d), float64(10*time.Millisecond))
	})
}

func TestBackoff_Sleep(t *testing.T) {
	t.Run("should wait roughly the computed delay", func(t *testing.T) {
		b := NewBackoff(testRetryConfig())

		start := time.Now()
		require.NoError(t, b.Sleep(context.Background(), 1))
		assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	})

	t.Run("should abort on context cancellation", func(t *testing.T) {
		b := NewBackoff(config.RetryConfig{
			BaseDelay:     time.Hour,
			MaxDelay:      time.Hour,
			BackoffFactor: 2.0,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := b.Sleep(ctx, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
