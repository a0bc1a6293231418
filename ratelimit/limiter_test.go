package ratelimit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-insight/config"
)

func TestNewExtractLimiter(t *testing.T) {
	t.Run("should reject negative interval", func(t *testing.T) {
		_, err := NewExtractLimiter(config.RateLimitConfig{ExtractInterval: -1, Burst: 1}, slog.Default())
		assert.Error(t, err)
	})

	t.Run("should reject zero burst", func(t *testing.T) {
		_, err := NewExtractLimiter(config.RateLimitConfig{ExtractInterval: time.Second, Burst: 0}, slog.Default())
		assert.Error(t, err)
	})
}

func TestExtractLimiter_Wait(t *testing.T) {
	t.Run("should enforce minimum spacing between calls", func(t *testing.T) {
		interval := 50 * time.Millisecond
		l, err := NewExtractLimiter(config.RateLimitConfig{ExtractInterval: interval, Burst: 1}, slog.Default())
		require.NoError(t, err)

		start := time.Now()
		require.NoError(t, l.Wait(context.Background()))
		require.NoError(t, l.Wait(context.Background()))
		require.NoError(t, l.Wait(context.Background()))

		// Two waits after the initial token must take at least two intervals.
		assert.GreaterOrEqual(t, time.Since(start), 2*interval)
	})

	t.Run("should not block with zero interval", func(t *testing.T) {
		l, err := NewExtractLimiter(config.RateLimitConfig{ExtractInterval: 0, Burst: 1}, slog.Default())
		require.NoError(t, err)

		start := time.Now()
		for i := 0; i < 10; i++ {
			require.NoError(t, l.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("should return error when context is cancelled", func(t *testing.T) {
		l, err := NewExtractLimiter(config.RateLimitConfig{ExtractInterval: time.Hour, Burst: 1}, slog.Default())
		require.NoError(t, err)

		// First token is available immediately.
		require.NoError(t, l.Wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		assert.Error(t, l.Wait(ctx))
	})
}
