package notificationsrv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/jobx"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/notification"
	"github.com/Abraxas-365/placement/pkg/placement/settings"
	"github.com/Abraxas-365/placement/pkg/placement/template"
)

func newDispatcher(q *fakeEnqueuer, s settings.Settings) *Dispatcher {
	return NewDispatcher(q, settings.Static(s), newDirectory(), DispatcherConfig{Queue: "notifications", MaxAttempts: 3})
}

func TestSendNotification_DefaultsToEmail(t *testing.T) {
	q := &fakeEnqueuer{}
	d := newDispatcher(q, settings.Defaults())

	ids, err := d.SendNotification(context.Background(), notification.Request{
		UserID:    "s1",
		EventType: placement.EventApplicationSubmitted,
		Data:      template.Vars{"company_name": "Acme", "drive_date": time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
	})

	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.Len(t, q.jobs, 1)
	job := q.jobs[0].job
	assert.Equal(t, notification.JobType, job.Type)
	assert.Equal(t, "notifications", job.Queue)
	assert.Equal(t, 3, job.MaxRetries)

	p := q.payload(0)
	assert.Equal(t, placement.ChannelEmail, p.Channel)
	assert.Equal(t, "Acme", p.Data["company_name"])
	assert.Equal(t, "02 Mar 2026", p.Data["drive_date"])
}

func TestSendNotification_OneJobPerEnabledChannel(t *testing.T) {
	q := &fakeEnqueuer{}
	s := settings.Defaults()
	s.SMSEnabled = true
	s.PushEnabled = false
	d := newDispatcher(q, s)

	ids, err := d.SendNotification(context.Background(), notification.Request{
		UserID:    "s1",
		EventType: placement.EventApplicationSelected,
		Channels:  []placement.Channel{placement.ChannelEmail, placement.ChannelSMS, placement.ChannelPush, placement.ChannelEmail},
	})

	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, placement.ChannelEmail, q.payload(0).Channel)
	assert.Equal(t, placement.ChannelSMS, q.payload(1).Channel)
}

func TestSendNotification_GlobalEmailOffEnqueuesNothing(t *testing.T) {
	s := settings.Defaults()
	s.EmailEnabled = false

	for _, event := range placement.EventTypes {
		q := &fakeEnqueuer{}
		d := newDispatcher(q, s)

		ids, err := d.SendNotification(context.Background(), notification.Request{UserID: "s1", EventType: event})

		require.NoError(t, err, event)
		assert.Empty(t, ids, event)
		assert.Empty(t, q.jobs, event)
	}
}

func TestSendNotification_CategoryToggle(t *testing.T) {
	q := &fakeEnqueuer{}
	s := settings.Defaults()
	s.NotifyNewDrive = false
	d := newDispatcher(q, s)

	ids, err := d.SendNotification(context.Background(), notification.Request{UserID: "s1", EventType: placement.EventNewDrivePublished})
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = d.SendNotification(context.Background(), notification.Request{UserID: "s1", EventType: placement.EventApplicationRejected})
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestSendNotification_EnqueueFailurePropagates(t *testing.T) {
	q := &fakeEnqueuer{err: errors.New("redis: connection refused")}
	d := newDispatcher(q, settings.Defaults())

	_, err := d.SendNotification(context.Background(), notification.Request{UserID: "s1", EventType: placement.EventRegistrationWelcome})

	require.Error(t, err)
	assert.True(t, errx.IsCode(err, notification.CodeEnqueueFailed))
}

func TestSendNotification_Validation(t *testing.T) {
	d := newDispatcher(&fakeEnqueuer{}, settings.Defaults())

	_, err := d.SendNotification(context.Background(), notification.Request{EventType: placement.EventRegistrationWelcome})
	assert.True(t, errx.IsCode(err, notification.CodeInvalidRequest))

	_, err = d.SendNotification(context.Background(), notification.Request{UserID: "s1"})
	assert.True(t, errx.IsCode(err, placement.CodeInvalidEvent))

	_, err = d.SendNotification(context.Background(), notification.Request{
		UserID:    "s1",
		EventType: placement.EventRegistrationWelcome,
		Channels:  []placement.Channel{"fax"},
	})
	assert.True(t, errx.IsCode(err, placement.CodeInvalidChannel))
}

func TestSendNotification_UnknownEventIsEnqueued(t *testing.T) {
	q := &fakeEnqueuer{}
	d := newDispatcher(q, settings.Defaults())

	ids, err := d.SendNotification(context.Background(), notification.Request{UserID: "s1", EventType: "interview-scheduled"})

	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, placement.EventType("interview-scheduled"), q.payload(0).EventType)
}

func TestSendNotification_UnknownEventGlobalEmailOff(t *testing.T) {
	q := &fakeEnqueuer{}
	s := settings.Defaults()
	s.EmailEnabled = false
	d := newDispatcher(q, s)

	ids, err := d.SendNotification(context.Background(), notification.Request{UserID: "s1", EventType: "interview-scheduled"})

	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, q.jobs)
}

func TestNotifyApplicationStatus(t *testing.T) {
	q := &fakeEnqueuer{}
	d := newDispatcher(q, settings.Defaults())

	err := d.NotifyApplicationStatus(context.Background(), "s1", "d1", placement.StatusShortlisted)
	require.NoError(t, err)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, jobx.PriorityHigh, q.jobs[0].job.Priority)
	p := q.payload(0)
	assert.Equal(t, placement.EventApplicationShortlisted, p.EventType)
	assert.Equal(t, "Acme", p.Data["company_name"])
	assert.Equal(t, "SHORTLISTED", p.Data["status"])
}

func TestNotifyApplicationStatus_UnknownDrive(t *testing.T) {
	d := newDispatcher(&fakeEnqueuer{}, settings.Defaults())

	err := d.NotifyApplicationStatus(context.Background(), "s1", "missing", placement.StatusSelected)
	assert.True(t, errx.IsCode(err, placement.CodeDriveNotFound))
}

func TestNotifyNewDrive_FansOutToEveryStudent(t *testing.T) {
	q := &fakeEnqueuer{}
	d := newDispatcher(q, settings.Defaults())

	n, err := d.NotifyNewDrive(context.Background(), "d2")

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, q.jobs, 3)
	for i := range q.jobs {
		assert.Equal(t, jobx.PriorityLow, q.jobs[i].job.Priority)
		assert.Equal(t, placement.EventNewDrivePublished, q.payload(i).EventType)
	}
}

func TestNotifyDeadlineReminder_SkipsApplicantsAndDelays(t *testing.T) {
	q := &fakeEnqueuer{}
	d := newDispatcher(q, settings.Defaults())

	n, err := d.NotifyDeadlineReminder(context.Background(), "d1", 24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for i := range q.jobs {
		assert.NotEqual(t, "s2", string(q.payload(i).UserID))
		assert.InDelta(t, (48 * time.Hour).Seconds(), q.jobs[i].delay.Seconds(), 60)
	}
}

func TestNotifyDeadlineReminder_RequiresDeadline(t *testing.T) {
	d := newDispatcher(&fakeEnqueuer{}, settings.Defaults())

	_, err := d.NotifyDeadlineReminder(context.Background(), "d2", time.Hour)
	assert.True(t, errx.IsCode(err, notification.CodeNoDeadline))
}

func TestSendNotificationAsync_DoesNotBlockOrFail(t *testing.T) {
	q := &fakeEnqueuer{}
	d := newDispatcher(q, settings.Defaults())

	d.SendNotificationAsync(context.Background(), notification.Request{UserID: "s1", EventType: placement.EventRegistrationWelcome})

	assert.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.jobs) == 1
	}, time.Second, 5*time.Millisecond)
}
