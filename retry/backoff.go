// ABOUTME: This file implements exponential backoff delay calculation with jitter
// ABOUTME: Used by the batch controller to space out rate-limited task re-enqueues
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"finance-insight/config"
)

// Backoff computes exponentially growing delays with jitter. Jitter keeps
// concurrent workers from re-hitting the rate-limited service in lockstep.
type Backoff struct {
	cfg config.RetryConfig
}

// NewBackoff creates a delay calculator from the retry configuration.
func NewBackoff(cfg config.RetryConfig) *Backoff {
	return &Backoff{cfg: cfg}
}

// Delay returns the wait before re-attempt number attempt (1-based).
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(b.cfg.BaseDelay) * math.Pow(b.cfg.BackoffFactor, float64(attempt-1))

	if delay > float64(b.cfg.MaxDelay) {
		delay = float64(b.cfg.MaxDelay)
	}

	jitter := 1.0 + (rand.Float64()-0.5)*b.cfg.JitterFactor
	delay *= jitter

	return time.Duration(delay)
}

// Sleep waits for the attempt's delay or until the context is cancelled.
func (b *Backoff) Sleep(ctx context.Context, attempt int) error {
	delay := b.Delay(attempt)

	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff wait cancelled: %w", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}
