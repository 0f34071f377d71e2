package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/Hestia/internal/collab"
	"github.com/shaiso/Hestia/internal/telemetry"
)

// RetryConfig — параметры retry для вызовов collaborator'ов.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig — значения по умолчанию: три попытки
// с exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// withRetry выполняет fn с retry согласно конфигурации. ErrNotFound не
// ретраится — отсутствие данных повтором не лечится.
func (e *Executor) withRetry(ctx context.Context, collaborator string, fn func() error) error {
	maxAttempts := e.retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			telemetry.CollaboratorRetries.WithLabelValues(collaborator).Inc()
			delay := calculateBackoff(attempt, e.retry)

			e.logger.Debug("retrying collaborator call",
				"collaborator", collaborator,
				"attempt", attempt,
				"delay", delay,
			)

			// Ждём с учётом context
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, collab.ErrNotFound) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %s after %d attempts: %v", ErrRetryExhausted, collaborator, maxAttempts, lastErr)
}

// calculateBackoff вычисляет задержку перед retry:
// delay = InitialDelay * 2^(attempt-2), capped at MaxDelay.
func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	initialDelay := cfg.InitialDelay
	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := initialDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if delay > maxDelay {
			break
		}
	}

	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
