package config

import "time"

// JobxConfig configures the background job queue.
type JobxConfig struct {
	Concurrency       int
	Queues            []string
	PollInterval      time.Duration
	ShutdownTimeout   time.Duration
	DequeueTimeout    time.Duration
	DefaultRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	VisibilityTimeout time.Duration
	ClaimInterval     time.Duration
	JobTTL            time.Duration
	RateLimit         float64
	RateBurst         int
}

func loadJobxConfig() JobxConfig {
	return JobxConfig{
		Concurrency:       getEnvInt("JOBX_CONCURRENCY", 3),
		Queues:            getEnvStringSlice("JOBX_QUEUES", []string{"notifications"}),
		PollInterval:      getEnvDuration("JOBX_POLL_INTERVAL", time.Second),
		ShutdownTimeout:   getEnvDuration("JOBX_SHUTDOWN_TIMEOUT", 30*time.Second),
		DequeueTimeout:    getEnvDuration("JOBX_DEQUEUE_TIMEOUT", 5*time.Second),
		DefaultRetryDelay: getEnvDuration("JOBX_DEFAULT_RETRY_DELAY", 30*time.Second),
		MaxRetryDelay:     getEnvDuration("JOBX_MAX_RETRY_DELAY", 10*time.Minute),
		VisibilityTimeout: getEnvDuration("JOBX_VISIBILITY_TIMEOUT", 5*time.Minute),
		ClaimInterval:     getEnvDuration("JOBX_CLAIM_INTERVAL", 250*time.Millisecond),
		JobTTL:            getEnvDuration("JOBX_JOB_TTL", 7*24*time.Hour),
		RateLimit:         getEnvFloat("JOBX_RATE_LIMIT", 5),
		RateBurst:         getEnvInt("JOBX_RATE_BURST", 1),
	}
}
