package notificationsrv

import (
	"context"
	"fmt"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/jobx"
	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/audit"
	"github.com/Abraxas-365/placement/pkg/placement/delivery"
	"github.com/Abraxas-365/placement/pkg/placement/notification"
	"github.com/Abraxas-365/placement/pkg/placement/template"
)

// Worker handles notification jobs: resolve the student, render the event
// template, deliver, and record the outcome.
type Worker struct {
	students notification.StudentFinder
	renderer *template.Renderer
	gateway  delivery.Deliverer
	recorder audit.Recorder
	ledger   audit.Ledger
}

func NewWorker(
	students notification.StudentFinder,
	renderer *template.Renderer,
	gateway delivery.Deliverer,
	recorder audit.Recorder,
	ledger audit.Ledger,
) *Worker {
	return &Worker{
		students: students,
		renderer: renderer,
		gateway:  gateway,
		recorder: recorder,
		ledger:   ledger,
	}
}

// Register installs the handler on a jobx client.
func (w *Worker) Register(client *jobx.Client) {
	client.Register(notification.JobType, w.Handle)
}

// Hooks returns the jobx hooks that audit failed attempts.
func (w *Worker) Hooks() jobx.Hooks {
	return jobx.Hooks{OnFailed: w.OnFailed}
}

// Handle processes one notification job. Errors that another attempt
// cannot fix are wrapped with jobx.Permanent.
func (w *Worker) Handle(ctx context.Context, job *jobx.JobInfo) error {
	var p notification.Payload
	if err := job.Decode(&p); err != nil {
		return jobx.Permanent(err)
	}

	if w.ledger != nil {
		sent, err := w.ledger.SentForJob(ctx, job.ID)
		if err != nil {
			logx.WithError(err).Warnf("notification: ledger lookup failed for job %s", job.ID)
		} else if sent {
			logx.WithField(logx.KeyJobID, job.ID).Info("notification: job already delivered, skipping redelivery")
			return nil
		}
	}

	if !p.Channel.Implemented() {
		return jobx.Permanent(notification.ErrChannelNotSupported(p.Channel))
	}

	student, err := w.students.FindStudent(ctx, p.UserID)
	if err != nil {
		if errx.IsCode(err, placement.CodeUserNotFound) {
			return jobx.Permanent(err)
		}
		return err
	}

	rendered, err := w.renderer.Render(p.EventType, p.Vars().Merge(template.StudentVars(*student)))
	if err != nil {
		return jobx.Permanent(err)
	}

	out := w.gateway.Deliver(ctx, delivery.Message{
		To:      student.Email,
		Subject: rendered.Subject,
		Body:    rendered.Body,
		Tags: map[string]string{
			"event":  string(p.EventType),
			"job_id": job.ID,
		},
	})

	switch out.Status {
	case delivery.StatusSuppressed:
		w.record(ctx, job, p, audit.ActionEmailSuppressed, true, "email disabled", nil)
		return nil
	case delivery.StatusSent:
		w.record(ctx, job, p, audit.ActionEmailSent, true, "", map[string]any{
			"message_id": out.MessageID,
			"attempt":    job.Attempts,
		})
		return nil
	}

	err = notification.ErrRegistry.NewWithCause(notification.CodeDeliveryFailed, out.Err).
		WithDetail("user_id", p.UserID).
		WithDetail("event_type", p.EventType)
	if !out.Retryable() {
		return jobx.Permanent(err)
	}
	return err
}

// OnFailed audits every failed attempt. Attempts that will be retried are
// recorded with retryable set and logged at WARN. Terminal failures are
// logged at ERROR, since they need manual attention.
func (w *Worker) OnFailed(ctx context.Context, job *jobx.JobInfo, err error, terminal bool) {
	if job.Type != notification.JobType {
		return
	}
	var p notification.Payload
	_ = job.Decode(&p)

	action := audit.ActionEmailFailed
	if errx.IsCode(err, notification.CodeChannelNotSupported) {
		action = audit.ActionNotificationFailed
	}
	w.record(ctx, job, p, action, false, err.Error(), map[string]any{
		"attempts":  job.Attempts,
		"retryable": !terminal,
	})

	entry := logx.WithError(err).WithFields(logx.Fields{
		"job_id":     job.ID,
		"user_id":    p.UserID,
		"event_type": p.EventType,
		"channel":    p.Channel,
		"attempts":   fmt.Sprintf("%d/%d", job.Attempts, job.MaxRetries),
	})
	if !terminal {
		entry.Warn("notification: attempt failed, will retry")
		return
	}
	entry.Error("notification: job failed terminally, manual intervention required")
}

func (w *Worker) record(
	ctx context.Context,
	job *jobx.JobInfo,
	p notification.Payload,
	action audit.Action,
	success bool,
	message string,
	meta map[string]any,
) {
	err := w.recorder.Record(ctx, audit.Entry{
		Action:    action,
		UserID:    p.UserID,
		EventType: p.EventType,
		Channel:   p.Channel,
		JobID:     job.ID,
		Success:   success,
		Message:   message,
		Metadata:  meta,
	})
	if err != nil {
		logx.WithError(err).Warnf("notification: audit write failed for job %s", job.ID)
	}
}
