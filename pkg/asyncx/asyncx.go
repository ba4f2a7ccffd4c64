package asyncx

import (
	"context"
	"time"
)

// ─── Fire and forget ──────────────────────────────────────────────────────────

// DoCtx fires fn in a goroutine only if ctx is not already done.
func DoCtx(ctx context.Context, fn func(context.Context)) {
	go func() {
		select {
		case <-ctx.Done():
			return
		default:
			fn(ctx)
		}
	}()
}

// ─── Retry ────────────────────────────────────────────────────────────────────

// RetryOption tunes RetryWithBackoff.
type RetryOption func(*retryConfig)

type retryConfig struct {
	shouldRetry func(error) bool
	maxDelay    time.Duration
	onRetry     func(attempt int, err error)
}

// WithShouldRetry stops retrying as soon as pred returns false for an error.
func WithShouldRetry(pred func(error) bool) RetryOption {
	return func(c *retryConfig) { c.shouldRetry = pred }
}

// WithMaxDelay caps the exponential delay between attempts.
func WithMaxDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) { c.maxDelay = d }
}

// WithOnRetry is called after every failed attempt that will be retried.
func WithOnRetry(fn func(attempt int, err error)) RetryOption {
	return func(c *retryConfig) { c.onRetry = fn }
}

// RetryWithBackoff calls fn up to attempts times with exponential backoff
// starting at initialDelay. The delay doubles after each failed attempt.
// It returns the number of attempts actually made alongside the result.
// Respects context cancellation between retries.
func RetryWithBackoff[T any](
	ctx context.Context,
	attempts int,
	initialDelay time.Duration,
	fn func(context.Context) (T, error),
	opts ...RetryOption,
) (T, int, error) {
	cfg := retryConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if attempts < 1 {
		attempts = 1
	}

	var (
		zero  T
		err   error
		val   T
		delay = initialDelay
	)
	for i := range attempts {
		select {
		case <-ctx.Done():
			return zero, i, ctx.Err()
		default:
		}

		val, err = fn(ctx)
		if err == nil {
			return val, i + 1, nil
		}
		if cfg.shouldRetry != nil && !cfg.shouldRetry(err) {
			return zero, i + 1, err
		}

		if i < attempts-1 {
			if cfg.onRetry != nil {
				cfg.onRetry(i+1, err)
			}
			if err := Sleep(ctx, delay); err != nil {
				return zero, i + 1, err
			}
			delay *= 2
			if cfg.maxDelay > 0 && delay > cfg.maxDelay {
				delay = cfg.maxDelay
			}
		}
	}
	return zero, attempts, err
}

// ─── Timeout ──────────────────────────────────────────────────────────────────

// WithTimeout runs fn with a deadline of d.
// Returns context.DeadlineExceeded if fn does not finish in time.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type res struct {
		v   T
		err error
	}

	ch := make(chan res, 1)
	go func() {
		v, err := fn(ctx)
		ch <- res{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ─── Sleep ────────────────────────────────────────────────────────────────────

// Sleep pauses for d or until ctx is done, whichever comes first.
// A non-positive d returns immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
