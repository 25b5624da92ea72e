package indexer

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// RetryPolicy bounds retries of a single RPC read within one poll cycle.
type RetryPolicy struct {
	MaxRetries uint
	Backoff    time.Duration
}

func withRetry[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, what string, fn func(context.Context) (T, error)) (T, error) {
	base := policy.Backoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0

	return backoff.Retry(ctx, func() (T, error) {
		return fn(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.MaxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn(what+" failed", zap.Error(err), zap.Duration("retry_in", next))
		}),
	)
}
