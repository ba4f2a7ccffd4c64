package jobx

import (
	"encoding/json"
	"time"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// Priority orders jobs inside a queue. Higher priorities are always
// dequeued first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityNormal, PriorityLow}

// Normalize maps unknown values to PriorityNormal.
func (p Priority) Normalize() Priority {
	switch p {
	case PriorityHigh, PriorityLow:
		return p
	default:
		return PriorityNormal
	}
}

// Job represents a unit of work to be enqueued.
type Job struct {
	Type     string          `json:"type"`
	Queue    string          `json:"queue"`
	Payload  json.RawMessage `json:"payload"`
	Priority Priority        `json:"priority,omitempty"`

	// MaxRetries is the maximum number of attempts. Default is 3.
	MaxRetries int `json:"max_retries"`
}

// JobInfo is the full representation of a job stored in the backend.
type JobInfo struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Queue      string          `json:"queue"`
	Priority   Priority        `json:"priority"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	MaxRetries int             `json:"max_retries"`
	Attempts   int             `json:"attempts"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Decode unmarshals the payload into v.
func (j *JobInfo) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return jobxErrors.NewWithCause(ErrInvalidPayload, err).
			WithDetail("job_id", j.ID).
			WithDetail("type", j.Type)
	}
	return nil
}

// NewJob marshals payload into a Job.
func NewJob(jobType, queue string, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, jobxErrors.NewWithCause(ErrInvalidJob, err).WithDetail("type", jobType)
	}
	return Job{Type: jobType, Queue: queue, Payload: raw}, nil
}
