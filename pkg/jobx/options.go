package jobx

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Hooks are called after a job leaves a handler.
type Hooks struct {
	// OnCompleted runs after the job was marked completed.
	OnCompleted func(ctx context.Context, job *JobInfo)
	// OnFailed runs after every failed attempt. terminal is true when the job
	// will not be tried again.
	OnFailed func(ctx context.Context, job *JobInfo, err error, terminal bool)
}

// WorkerOptions configures the job processing client.
type WorkerOptions struct {
	Queues            []string
	Concurrency       int
	PollInterval      time.Duration
	ShutdownTimeout   time.Duration
	DequeueTimeout    time.Duration
	DefaultRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	RateLimit         rate.Limit
	RateBurst         int
	Hooks             Hooks
}

func defaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		Queues:            []string{"default"},
		Concurrency:       4,
		PollInterval:      time.Second,
		ShutdownTimeout:   30 * time.Second,
		DequeueTimeout:    5 * time.Second,
		DefaultRetryDelay: 30 * time.Second,
		MaxRetryDelay:     10 * time.Minute,
		RateLimit:         rate.Inf,
		RateBurst:         1,
	}
}

// WorkerOption is a functional option for configuring the client.
type WorkerOption func(*WorkerOptions)

// WithQueues sets the queues to process.
func WithQueues(queues ...string) WorkerOption {
	return func(o *WorkerOptions) {
		if len(queues) > 0 {
			o.Queues = queues
		}
	}
}

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) WorkerOption {
	return func(o *WorkerOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithPollInterval sets the interval between scheduler ticks and the pause
// after a dequeue error.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		o.PollInterval = d
	}
}

// WithShutdownTimeout sets the maximum time to wait for workers to finish on shutdown.
func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		o.ShutdownTimeout = d
	}
}

// WithDequeueTimeout sets the timeout passed to the blocking dequeue call.
func WithDequeueTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		o.DequeueTimeout = d
	}
}

// WithRetryBackoff sets the base and the cap of the exponential retry delay.
func WithRetryBackoff(base, max time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		o.DefaultRetryDelay = base
		if max > 0 {
			o.MaxRetryDelay = max
		}
	}
}

// WithRateLimit bounds how many jobs per second all workers start together.
// A non-positive perSecond disables the limit.
func WithRateLimit(perSecond float64, burst int) WorkerOption {
	return func(o *WorkerOptions) {
		if perSecond <= 0 {
			o.RateLimit = rate.Inf
			return
		}
		o.RateLimit = rate.Limit(perSecond)
		if burst > 0 {
			o.RateBurst = burst
		}
	}
}

// WithHooks installs completion and failure callbacks.
func WithHooks(h Hooks) WorkerOption {
	return func(o *WorkerOptions) {
		o.Hooks = h
	}
}
