package shared

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
)

// RetryPolicy controls how often an idempotent request is attempted again.
//
// The zero value performs exactly one attempt.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
}

// Retryable reports whether err is worth another attempt: transport failures and 5xx responses.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrTransport) {
		return true
	}
	return StatusCode(err) >= 500
}

// Retry runs op once, then again with exponential backoff while it fails with a [Retryable] error and
// the policy allows it.
func Retry(ctx context.Context, policy RetryPolicy, logger *log.Logger, op func() error) error {
	if policy.MaxRetries <= 0 {
		return op()
	}

	eb := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		eb.InitialInterval = policy.InitialInterval
	}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(policy.MaxRetries)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err != nil && !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		if logger != nil {
			logger.Warn("request failed, retrying", "attempt", attempt, "wait", wait, "error", err)
		}
	})
}
