package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/baharkarakas/custodial-ledger/internal/metrics"
	"github.com/baharkarakas/custodial-ledger/internal/models"
)

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 10 * time.Millisecond
	maxDelay           = time.Second
)

func newBackOff(base time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 1
	b.MaxInterval = maxDelay
	return b
}

// retryConflicts reruns fn while it reports models.ErrConflict. After attempts tries the
// result is models.ErrStorage; fn must leave nothing applied when it fails.
func retryConflicts(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	var last error
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		last = fn()
		if last != nil && !errors.Is(last, models.ErrConflict) {
			return struct{}{}, backoff.Permanent(last)
		}
		return struct{}{}, last
	},
		backoff.WithBackOff(newBackOff(base)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(error, time.Duration) { metrics.DecisionRetries.Inc() }),
	)
	switch {
	case err == nil:
		return nil
	case last != nil && !errors.Is(last, models.ErrConflict):
		return last
	case errors.Is(err, models.ErrConflict):
		return fmt.Errorf("%w: gave up after %d attempts: %v", models.ErrStorage, attempts, err)
	default:
		// cancelled while waiting between attempts
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
}
