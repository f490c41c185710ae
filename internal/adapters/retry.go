package adapters

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Marketen/slotwatch/internal/logger"
)

const (
	DefaultRequestTimeout = 20 * time.Second
	retryDelay            = time.Second
	maxRetries            = 1
)

// withRetry runs op with a per-attempt timeout and retries it once. Errors
// wrapped with backoff.Permanent are not retried.
func withRetry(ctx context.Context, timeout time.Duration, what string, op func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), maxRetries),
		ctx,
	)
	attempt := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return op(reqCtx)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("%s failed, retrying in %s: %v", what, wait, err)
	}
	return backoff.RetryNotify(attempt, policy, notify)
}
