// Package audit is the durable business record of notification and
// campaign outcomes, kept separately from the job queue's own bookkeeping.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement"
)

type Action string

const (
	ActionEmailSent          Action = "EMAIL_SENT"
	ActionEmailFailed        Action = "EMAIL_FAILED"
	ActionEmailSuppressed    Action = "EMAIL_SUPPRESSED"
	ActionNotificationFailed Action = "NOTIFICATION_FAILED"
	ActionCampaignCompleted  Action = "CAMPAIGN_COMPLETED"
	ActionCampaignFailed     Action = "CAMPAIGN_FAILED"
)

// Entry is one audit record, keyed by recipient and event type.
type Entry struct {
	ID         string              `db:"id" json:"id"`
	Action     Action              `db:"action" json:"action"`
	UserID     kernel.UserID       `db:"user_id" json:"user_id,omitempty"`
	EventType  placement.EventType `db:"event_type" json:"event_type,omitempty"`
	Channel    placement.Channel   `db:"channel" json:"channel,omitempty"`
	CampaignID kernel.CampaignID   `db:"campaign_id" json:"campaign_id,omitempty"`
	JobID      string              `db:"job_id" json:"job_id,omitempty"`
	Success    bool                `db:"success" json:"success"`
	Message    string              `db:"message" json:"message,omitempty"`
	Metadata   map[string]any      `db:"-" json:"metadata,omitempty"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Ledger answers idempotence questions from the audit trail.
type Ledger interface {
	// SentForJob reports whether a job already produced a successful send,
	// so a redelivered job does not notify twice.
	SentForJob(ctx context.Context, jobID string) (bool, error)
}

// Multi fans an entry out to every recorder. All recorders run even when
// one fails.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
