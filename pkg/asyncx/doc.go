// Package asyncx provides the small set of concurrency helpers the
// notification pipeline relies on: fire-and-forget goroutines, retries with
// exponential backoff, per-call timeouts and a context-aware sleep.
//
// # Retries
//
// [RetryWithBackoff] calls a function up to n times, doubling the delay after
// every failure. [WithShouldRetry] lets callers stop early on errors that
// will never succeed, and [WithMaxDelay] caps the wait.
//
//	id, attempts, err := asyncx.RetryWithBackoff(ctx, 3, 500*time.Millisecond,
//	    func(ctx context.Context) (string, error) { return sender.SendEmail(ctx, msg) },
//	    asyncx.WithShouldRetry(notifx.IsTransient),
//	)
//
// # Timeouts
//
// [WithTimeout] bounds a single call. The function receives a derived context
// and should honour its cancellation.
//
//	_, err := asyncx.WithTimeout(ctx, 10*time.Second, func(ctx context.Context) (string, error) {
//	    return sender.SendEmail(ctx, msg)
//	})
//
// # Pacing
//
// [Sleep] waits for a duration but returns early when the context is done,
// which is how the campaign sender spaces out consecutive messages.
package asyncx
