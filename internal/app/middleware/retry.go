package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/uow"
)

// RetryPolicy bounds how often a conflicting unit of work is replayed.
type RetryPolicy struct {
	Attempts  int
	Backoff   time.Duration
	MaxDelay  time.Duration
	Retryable func(error) bool
	// Exhausted wraps the last error once attempts run out.
	Exhausted error
	Logger    *slog.Logger
}

// Retry replays the wrapped bus while it fails with a retryable error,
// doubling the delay each time. It must sit outside Transaction so every
// attempt starts a fresh unit of work.
func Retry(policy RetryPolicy) CommandMiddleware {
	if policy.Attempts <= 0 {
		policy.Attempts = 3
	}
	if policy.Backoff <= 0 {
		policy.Backoff = 20 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = time.Second
	}
	if policy.Retryable == nil {
		policy.Retryable = uow.IsRetryable
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			delay := policy.Backoff
			var lastErr error
			for attempt := 1; attempt <= policy.Attempts; attempt++ {
				res, err := next.Dispatch(ctx, cmd)
				if err == nil || !policy.Retryable(err) {
					return res, err
				}
				lastErr = err
				if policy.Logger != nil {
					policy.Logger.DebugContext(ctx, "command conflict, retrying",
						"command", cmd.Key(), "attempt", attempt, "error", err)
				}
				if attempt == policy.Attempts {
					break
				}
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				delay *= 2
				if delay > policy.MaxDelay {
					delay = policy.MaxDelay
				}
			}
			if policy.Exhausted != nil {
				return nil, fmt.Errorf("%w: %s after %d attempts: %v", policy.Exhausted, cmd.Key(), policy.Attempts, lastErr)
			}
			return nil, lastErr
		})
	}
}
