// ABOUTME: This file implements the minimum-interval limiter for the extract stage
// ABOUTME: Only the LLM extractor is throttled; download and transcription are not
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"finance-insight/config"
)

// ExtractLimiter spaces out calls to the rate-limited extraction service.
// All pipeline workers share one limiter, so the spacing holds across the
// whole batch regardless of concurrency.
type ExtractLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewExtractLimiter creates a limiter enforcing the configured minimum
// interval between extract calls.
func NewExtractLimiter(cfg config.RateLimitConfig, logger *slog.Logger) (*ExtractLimiter, error) {
	if cfg.ExtractInterval < 0 {
		return nil, errors.New("extract interval must not be negative")
	}
	if cfg.Burst <= 0 {
		return nil, errors.New("burst must be positive")
	}

	limit := rate.Inf
	if cfg.ExtractInterval > 0 {
		limit = rate.Every(cfg.ExtractInterval)
	}

	logger.Info("extract rate limiter initialized",
		"interval", cfg.ExtractInterval,
		"burst", cfg.Burst)

	return &ExtractLimiter{
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logger,
	}, nil
}

// Wait blocks until the next extract call may proceed or the context is
// cancelled.
func (l *ExtractLimiter) Wait(ctx context.Context) error {
	start := time.Now()

	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	if waited := time.Since(start); waited > 50*time.Millisecond {
		l.logger.DebugContext(ctx, "waited for extract slot", "waited", waited)
	}

	return nil
}
