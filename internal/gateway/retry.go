package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 10 * time.Second
)

// errTransient marks failures worth another attempt (5xx, network).
var errTransient = errors.New("transient failure")

// withRetry runs fn with exponential backoff. Only errors wrapping
// errTransient are retried; rate limits and client errors return at once.
func withRetry(ctx context.Context, logger *slog.Logger, attempts uint, delay time.Duration, operation string, fn func() error) error {
	if attempts == 0 {
		attempts = 1
	}
	if delay <= 0 {
		delay = initialRetryDelay
	}
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(delay),
		retry.MaxDelay(maxRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("Retry attempt", "component", "gateway", "operation", operation, "attempt", n+1, "max_attempts", attempts, "error", err)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errTransient)
		}),
	)
}
