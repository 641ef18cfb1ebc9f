package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"blogapi/app/apperrors"

	"go.uber.org/zap"
)

// RetryPolicy controls how a transaction that lost a write race is retried.
// Only errors wrapping apperrors.ErrConflict are retried.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func defaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       10 * time.Millisecond,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	defaults := defaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.Delay < 0 {
		p.Delay = defaults.Delay
	}
	return p
}

// run calls fn until it succeeds, fails with a non-conflict error, or the
// attempts are used up. onConflict is called for every conflict seen.
func (p RetryPolicy) run(ctx context.Context, logger *zap.Logger, name string, onConflict func(), fn func() error) error {
	p = p.withDefaults()
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("succeeded after retry", zap.String("operation", name), zap.Int("attempt", attempt))
			}
			return nil
		}
		if !errors.Is(lastErr, apperrors.ErrConflict) {
			return lastErr
		}
		if onConflict != nil {
			onConflict()
		}
		if attempt == p.MaxAttempts {
			break
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s abandoned: %w", name, err)
		}

		delay := backoff(p.Delay, attempt)
		logger.Warn("transaction conflict, retrying",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("next_delay", delay),
		)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s abandoned during backoff: %w", name, ctx.Err())
			}
		}
	}

	logger.Error("transaction conflict, giving up",
		zap.String("operation", name),
		zap.Int("attempts", p.MaxAttempts),
		zap.Error(lastErr),
	)
	return &apperrors.AppError{
		Err:        apperrors.ErrConflict,
		Message:    fmt.Sprintf("%s did not commit after %d attempts", name, p.MaxAttempts),
		StatusCode: http.StatusInternalServerError,
	}
}

// backoff doubles base per attempt with ten percent jitter either way.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := float64(base) * math.Pow(2, float64(attempt-1))
	d += d * 0.1 * (2*rand.Float64() - 1)
	return time.Duration(d)
}
