package notificationsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/placement/pkg/asyncx"
	"github.com/Abraxas-365/placement/pkg/jobx"
	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/metricsx"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/notification"
	"github.com/Abraxas-365/placement/pkg/placement/settings"
	"github.com/Abraxas-365/placement/pkg/placement/template"
)

// DispatcherConfig holds the queue parameters jobs are enqueued with.
type DispatcherConfig struct {
	Queue       string
	MaxAttempts int
}

// Dispatcher enqueues one job per enabled channel for each event.
type Dispatcher struct {
	jobs      jobx.JobEnqueuer
	settings  settings.Provider
	directory placement.Directory
	cfg       DispatcherConfig
}

func NewDispatcher(
	jobs jobx.JobEnqueuer,
	provider settings.Provider,
	directory placement.Directory,
	cfg DispatcherConfig,
) *Dispatcher {
	if cfg.Queue == "" {
		cfg.Queue = "notifications"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Dispatcher{
		jobs:      jobs,
		settings:  provider,
		directory: directory,
		cfg:       cfg,
	}
}

// SendNotification enqueues the request on every channel the settings
// allow and returns the job ids. A fully suppressed request enqueues
// nothing and is not an error. Queue failures are returned.
func (d *Dispatcher) SendNotification(ctx context.Context, req notification.Request) ([]string, error) {
	if req.UserID.IsEmpty() {
		return nil, notification.ErrInvalidRequest("user id is required")
	}
	if req.EventType == "" {
		return nil, placement.ErrInvalidEvent().WithDetail("event_type", req.EventType)
	}
	if !req.EventType.IsValid() {
		// still enqueued: the worker fails it terminally and audits it
		logx.WithFields(logx.Fields{
			"user_id":    req.UserID,
			"event_type": req.EventType,
		}).Warn("notification: event type has no template")
	}
	channels, err := normalizeChannels(req.Channels)
	if err != nil {
		return nil, err
	}

	current, err := d.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	enabled := make([]placement.Channel, 0, len(channels))
	for _, ch := range channels {
		if !current.Allows(ch, req.EventType) {
			metricsx.NotificationsSuppressed.WithLabelValues(string(req.EventType), string(ch)).Inc()
			continue
		}
		enabled = append(enabled, ch)
	}
	if len(enabled) == 0 {
		logx.WithFields(logx.Fields{
			"user_id":    req.UserID,
			"event_type": req.EventType,
		}).Debug("notification: all channels suppressed, nothing enqueued")
		return nil, nil
	}

	data := notification.Flatten(req.Data)
	now := time.Now().UTC()
	ids := make([]string, 0, len(enabled))
	for _, ch := range enabled {
		job, err := jobx.NewJob(notification.JobType, d.cfg.Queue, notification.Payload{
			UserID:      req.UserID,
			EventType:   req.EventType,
			Channel:     ch,
			Data:        data,
			RequestedAt: now,
		})
		if err != nil {
			return ids, err
		}
		job.Priority = req.Priority
		job.MaxRetries = d.cfg.MaxAttempts

		id, err := d.jobs.EnqueueDelayed(ctx, job, req.Delay)
		if err != nil {
			logx.WithError(err).WithFields(logx.Fields{
				"user_id":    req.UserID,
				"event_type": req.EventType,
				"channel":    ch,
			}).Error("notification: enqueue failed")
			return ids, notification.ErrEnqueueFailed(err).
				WithDetail("user_id", req.UserID).
				WithDetail("channel", ch)
		}
		metricsx.NotificationsEnqueued.WithLabelValues(string(req.EventType), string(ch)).Inc()
		ids = append(ids, id)
	}
	return ids, nil
}

// SendNotificationAsync enqueues in the background. Failures are logged,
// never returned, so the caller's own operation is unaffected.
func (d *Dispatcher) SendNotificationAsync(ctx context.Context, req notification.Request) {
	asyncx.DoCtx(context.WithoutCancel(ctx), func(ctx context.Context) {
		if _, err := d.SendNotification(ctx, req); err != nil {
			logx.WithError(err).WithFields(logx.Fields{
				"user_id":    req.UserID,
				"event_type": req.EventType,
			}).Warn("notification: async send failed")
		}
	})
}

// NotifyApplicationStatus tells a student their application moved to status.
func (d *Dispatcher) NotifyApplicationStatus(
	ctx context.Context,
	studentID kernel.UserID,
	driveID kernel.DriveID,
	status placement.ApplicationStatus,
) error {
	event, ok := status.Event()
	if !ok {
		return placement.ErrInvalidStatus().WithDetail("status", status)
	}
	drive, err := d.directory.FindDrive(ctx, driveID)
	if err != nil {
		return err
	}

	priority := jobx.PriorityNormal
	if status == placement.StatusSelected || status == placement.StatusShortlisted {
		priority = jobx.PriorityHigh
	}
	_, err = d.SendNotification(ctx, notification.Request{
		UserID:    studentID,
		EventType: event,
		Data:      template.DriveVars(*drive).Merge(template.Vars{"status": string(status)}),
		Priority:  priority,
	})
	return err
}

// NotifyNewDrive announces a published drive to every student and returns
// how many were notified. Stops at the first queue failure.
func (d *Dispatcher) NotifyNewDrive(ctx context.Context, driveID kernel.DriveID) (int, error) {
	drive, err := d.directory.FindDrive(ctx, driveID)
	if err != nil {
		return 0, err
	}
	students, err := d.directory.ListStudents(ctx)
	if err != nil {
		return 0, err
	}
	return d.fanOut(ctx, students, placement.EventNewDrivePublished, template.DriveVars(*drive), 0)
}

// NotifyDeadlineReminder schedules a reminder, `before` the drive deadline,
// for every student who has not applied yet. A reminder time already in
// the past sends immediately.
func (d *Dispatcher) NotifyDeadlineReminder(ctx context.Context, driveID kernel.DriveID, before time.Duration) (int, error) {
	drive, err := d.directory.FindDrive(ctx, driveID)
	if err != nil {
		return 0, err
	}
	if drive.Deadline == nil {
		return 0, notification.ErrRegistry.New(notification.CodeNoDeadline).WithDetail("drive_id", driveID)
	}

	students, err := d.directory.ListStudents(ctx)
	if err != nil {
		return 0, err
	}
	applicants, err := d.directory.ListApplicants(ctx, driveID)
	if err != nil {
		return 0, err
	}
	applied := make(map[kernel.UserID]struct{}, len(applicants))
	for _, a := range applicants {
		applied[a.ID] = struct{}{}
	}
	pending := make([]placement.Student, 0, len(students))
	for _, s := range students {
		if _, ok := applied[s.ID]; !ok {
			pending = append(pending, s)
		}
	}

	delay := time.Until(drive.Deadline.Add(-before))
	return d.fanOut(ctx, pending, placement.EventDriveDeadlineReminder, template.DriveVars(*drive), delay)
}

func (d *Dispatcher) fanOut(
	ctx context.Context,
	students []placement.Student,
	event placement.EventType,
	data template.Vars,
	delay time.Duration,
) (int, error) {
	notified := 0
	for _, s := range students {
		ids, err := d.SendNotification(ctx, notification.Request{
			UserID:    s.ID,
			EventType: event,
			Data:      data,
			Priority:  jobx.PriorityLow,
			Delay:     delay,
		})
		if err != nil {
			return notified, err
		}
		if len(ids) > 0 {
			notified++
		}
	}
	logx.WithFields(logx.Fields{
		"event_type": event,
		"students":   len(students),
		"notified":   notified,
	}).Info("notification: fan-out enqueued")
	return notified, nil
}

func normalizeChannels(in []placement.Channel) ([]placement.Channel, error) {
	if len(in) == 0 {
		return []placement.Channel{placement.ChannelEmail}, nil
	}
	seen := make(map[placement.Channel]struct{}, len(in))
	out := make([]placement.Channel, 0, len(in))
	for _, ch := range in {
		parsed, err := placement.ParseChannel(string(ch))
		if err != nil {
			return nil, err
		}
		if _, dup := seen[parsed]; dup {
			continue
		}
		seen[parsed] = struct{}{}
		out = append(out, parsed)
	}
	return out, nil
}
