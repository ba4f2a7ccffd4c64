package jobx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/metricsx"
	"golang.org/x/time/rate"
)

// HandlerFunc processes a job. Return nil on success, an error to trigger a
// retry, or an error wrapped with Permanent to fail the job immediately.
type HandlerFunc func(ctx context.Context, job *JobInfo) error

// JobEnqueuer enqueues jobs for processing.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job Job) (string, error)
	EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) (string, error)
}

// JobStatusReader reads job status.
type JobStatusReader interface {
	GetJob(ctx context.Context, jobID string) (*JobInfo, error)
}

// JobProcessor provides backend operations for the worker loop.
type JobProcessor interface {
	// Dequeue claims the next job, honouring priority order. The claim is a
	// lease: a job that is neither completed nor failed before the lease
	// expires is returned to its queue by RequeueStalled.
	Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*JobInfo, error)
	Complete(ctx context.Context, jobID string, result []byte) error
	// Fail records the error and reports whether the job should be retried.
	// A terminal failure is never retried.
	Fail(ctx context.Context, jobID string, errMsg string, terminal bool) (retry bool, err error)
	Retry(ctx context.Context, jobID string, delay time.Duration) error
	PromoteScheduled(ctx context.Context, queues []string) error
	RequeueStalled(ctx context.Context, queues []string) (int, error)
}

// Queue combines all backend operations.
type Queue interface {
	JobEnqueuer
	JobStatusReader
	JobProcessor
}

// Client is the main entry point for enqueuing and processing jobs.
type Client struct {
	queue    Queue
	opts     WorkerOptions
	limiter  *rate.Limiter
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
	running  bool
}

// NewClient creates a new job processing client.
func NewClient(queue Queue, options ...WorkerOption) *Client {
	opts := defaultWorkerOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Client{
		queue:    queue,
		opts:     opts,
		limiter:  rate.NewLimiter(opts.RateLimit, opts.RateBurst),
		handlers: make(map[string]HandlerFunc),
	}
}

// Register adds a handler for a given job type.
func (c *Client) Register(jobType string, handler HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[jobType] = handler
}

// Enqueue enqueues a job for immediate processing.
func (c *Client) Enqueue(ctx context.Context, job Job) (string, error) {
	job, err := c.prepare(job)
	if err != nil {
		return "", err
	}
	return c.queue.Enqueue(ctx, job)
}

// EnqueueDelayed enqueues a job with a delay before it becomes available.
func (c *Client) EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) (string, error) {
	job, err := c.prepare(job)
	if err != nil {
		return "", err
	}
	if delay <= 0 {
		return c.queue.Enqueue(ctx, job)
	}
	return c.queue.EnqueueDelayed(ctx, job, delay)
}

func (c *Client) prepare(job Job) (Job, error) {
	if job.Type == "" {
		return job, jobxErrors.NewWithMessage(ErrInvalidJob, "job type is required")
	}
	if job.Queue == "" {
		job.Queue = "default"
	}
	if job.MaxRetries <= 0 {
		job.MaxRetries = 3
	}
	job.Priority = job.Priority.Normalize()
	return job, nil
}

// GetJob returns the current state of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobInfo, error) {
	return c.queue.GetJob(ctx, jobID)
}

// Start begins processing jobs. It blocks until ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return jobxErrors.New(ErrAlreadyRunning)
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	logx.Infof("jobx: starting %d workers on queues %v", c.opts.Concurrency, c.opts.Queues)

	// Handlers keep running on their own context during the drain so an
	// in-flight job can finish after ctx is cancelled.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.schedulerLoop(ctx)
	}()

	for i := range c.opts.Concurrency {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.workerLoop(ctx, workCtx, id)
		}(i)
	}

	<-ctx.Done()
	logx.Info("jobx: shutting down workers...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logx.Info("jobx: all workers stopped")
		return nil
	case <-time.After(c.opts.ShutdownTimeout):
		cancelWork()
		logx.Warn("jobx: shutdown timed out, some jobs may not have completed")
		return jobxErrors.New(ErrShutdownTimeout)
	}
}

// schedulerLoop promotes delayed jobs and returns stalled ones to their queue.
func (c *Client) schedulerLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.queue.PromoteScheduled(ctx, c.opts.Queues); err != nil {
				if ctx.Err() != nil {
					return
				}
				logx.WithError(err).Warn("jobx: failed to promote scheduled jobs")
			}
			n, err := c.queue.RequeueStalled(ctx, c.opts.Queues)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logx.WithError(err).Warn("jobx: failed to requeue stalled jobs")
				continue
			}
			if n > 0 {
				metricsx.JobsRequeued.Add(float64(n))
				logx.Warnf("jobx: requeued %d stalled jobs", n)
			}
		}
	}
}

func (c *Client) workerLoop(ctx, workCtx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := c.queue.Dequeue(ctx, c.opts.Queues, c.opts.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.WithError(err).Warnf("jobx: worker %d dequeue error", id)
			time.Sleep(c.opts.PollInterval)
			continue
		}
		if job == nil {
			continue
		}

		// The job is already claimed; a cancelled wait leaves it to the
		// stalled-job reaper.
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		c.processJob(workCtx, job)
	}
}

func (c *Client) processJob(ctx context.Context, job *JobInfo) {
	c.mu.RLock()
	handler, ok := c.handlers[job.Type]
	c.mu.RUnlock()

	if !ok {
		logx.Warnf("jobx: no handler for job type %q (id=%s)", job.Type, job.ID)
		err := jobxErrors.New(ErrNoHandler).WithDetail("type", job.Type)
		if _, failErr := c.queue.Fail(ctx, job.ID, err.Error(), true); failErr != nil {
			logx.WithError(failErr).Errorf("jobx: failed to mark job %s as failed", job.ID)
		}
		metricsx.JobsProcessed.WithLabelValues(job.Type, "failed").Inc()
		c.onFailed(ctx, job, err, true)
		return
	}

	start := time.Now()
	err := c.invoke(ctx, handler, job)
	metricsx.JobDuration.WithLabelValues(job.Type).Observe(time.Since(start).Seconds())

	if err != nil {
		terminal := IsPermanent(err)
		logx.WithError(err).Warnf("jobx: job %s (type=%s) attempt %d/%d failed", job.ID, job.Type, job.Attempts, job.MaxRetries)

		shouldRetry, failErr := c.queue.Fail(ctx, job.ID, err.Error(), terminal)
		if failErr != nil {
			logx.WithError(failErr).Errorf("jobx: failed to mark job %s as failed", job.ID)
			return
		}

		if shouldRetry {
			delay := backoffDelay(job.Attempts, c.opts.DefaultRetryDelay, c.opts.MaxRetryDelay)
			if retryErr := c.queue.Retry(ctx, job.ID, delay); retryErr != nil {
				logx.WithError(retryErr).Errorf("jobx: failed to retry job %s", job.ID)
			}
			metricsx.JobsProcessed.WithLabelValues(job.Type, "retried").Inc()
		} else {
			metricsx.JobsProcessed.WithLabelValues(job.Type, "failed").Inc()
		}
		c.onFailed(ctx, job, err, !shouldRetry)
		return
	}

	if err := c.queue.Complete(ctx, job.ID, nil); err != nil {
		logx.WithError(err).Errorf("jobx: failed to complete job %s", job.ID)
		return
	}
	metricsx.JobsProcessed.WithLabelValues(job.Type, "completed").Inc()
	if c.opts.Hooks.OnCompleted != nil {
		c.opts.Hooks.OnCompleted(ctx, job)
	}
}

// invoke runs the handler and turns a panic into an ordinary failure.
func (c *Client) invoke(ctx context.Context, handler HandlerFunc, job *JobInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = jobxErrors.NewWithCause(ErrHandlerPanic, fmt.Errorf("%v", r)).
				WithDetail("job_id", job.ID).
				WithDetail("type", job.Type)
		}
	}()
	return handler(ctx, job)
}

func (c *Client) onFailed(ctx context.Context, job *JobInfo, err error, terminal bool) {
	if c.opts.Hooks.OnFailed != nil {
		c.opts.Hooks.OnFailed(ctx, job, err, terminal)
	}
}

// backoffDelay returns base * 2^(attempt-1), capped at max.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			return max
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}
