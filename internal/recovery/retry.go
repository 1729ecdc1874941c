package recovery

import (
	"context"
	"time"
)

// RetryConfig bounds RetryWithBackoff. Zero fields fall back to
// 3 retries, 1s base delay, 30s cap.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	return c
}

// RetryWithBackoff calls fn until it succeeds or the retry budget is
// spent, sleeping min(BaseDelay * 2^attempt, MaxDelay) between attempts.
// This is a generic helper for callers outside the upstream fetcher,
// whose retry loop is coupled to per-attempt HTTP timeouts.
func RetryWithBackoff(ctx context.Context, fn func() error, cfg RetryConfig) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if attempt == cfg.MaxRetries {
			break
		}

		delay := cfg.BaseDelay << uint(attempt)
		if delay <= 0 || delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}
