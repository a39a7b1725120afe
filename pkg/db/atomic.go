package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const (
	defaultTxMaxAttempts = 3
	defaultTxBackoffStep = 50 * time.Millisecond
)

// AtomicOptions tunes the retry budget applied around a unit of work.
type AtomicOptions struct {
	MaxAttempts int
	BackoffStep time.Duration
}

func (o AtomicOptions) withDefaults() AtomicOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultTxMaxAttempts
	}
	if o.BackoffStep <= 0 {
		o.BackoffStep = defaultTxBackoffStep
	}
	return o
}

// linearBackoff grows the delay by one step per attempt: step, 2*step, 3*step.
func linearBackoff(step time.Duration) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * step, false
	})
}

// RunAtomic executes fn inside a transaction, retrying the whole unit of work
// on transient storage conflicts up to the configured budget. Non-transient
// errors propagate immediately; the unit either commits once or not at all.
func (c *Client) RunAtomic(ctx context.Context, opts AtomicOptions, fn func(tx *gorm.DB) error) error {
	opts = opts.withDefaults()

	backoff := retry.WithMaxRetries(uint64(opts.MaxAttempts-1), linearBackoff(opts.BackoffStep))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
