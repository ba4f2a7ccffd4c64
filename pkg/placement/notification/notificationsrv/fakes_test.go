package notificationsrv

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Abraxas-365/placement/pkg/jobx"
	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/audit"
	"github.com/Abraxas-365/placement/pkg/placement/delivery"
	"github.com/Abraxas-365/placement/pkg/placement/notification"
)

type enqueued struct {
	job   jobx.Job
	delay time.Duration
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []enqueued
	err  error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, job jobx.Job) (string, error) {
	return f.EnqueueDelayed(ctx, job, 0)
}

func (f *fakeEnqueuer) EnqueueDelayed(_ context.Context, job jobx.Job, delay time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, enqueued{job: job, delay: delay})
	return "job-" + string(rune('0'+len(f.jobs))), nil
}

func (f *fakeEnqueuer) payload(i int) notification.Payload {
	var p notification.Payload
	_ = json.Unmarshal(f.jobs[i].job.Payload, &p)
	return p
}

type fakeDirectory struct {
	students   map[kernel.UserID]placement.Student
	drives     map[kernel.DriveID]placement.Drive
	applicants map[kernel.DriveID][]placement.Applicant
	err        error
}

func (d *fakeDirectory) FindStudent(_ context.Context, id kernel.UserID) (*placement.Student, error) {
	if d.err != nil {
		return nil, d.err
	}
	s, ok := d.students[id]
	if !ok {
		return nil, placement.ErrUserNotFound().WithDetail("user_id", id)
	}
	return &s, nil
}

func (d *fakeDirectory) FindDrive(_ context.Context, id kernel.DriveID) (*placement.Drive, error) {
	dr, ok := d.drives[id]
	if !ok {
		return nil, placement.ErrDriveNotFound().WithDetail("drive_id", id)
	}
	return &dr, nil
}

func (d *fakeDirectory) ListApplicants(_ context.Context, id kernel.DriveID) ([]placement.Applicant, error) {
	return d.applicants[id], nil
}

func (d *fakeDirectory) ListStudents(context.Context) ([]placement.Student, error) {
	ids := []kernel.UserID{"s1", "s2", "s3"}
	out := make([]placement.Student, 0, len(ids))
	for _, id := range ids {
		if s, ok := d.students[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func newDirectory() *fakeDirectory {
	deadline := time.Now().Add(72 * time.Hour)
	return &fakeDirectory{
		students: map[kernel.UserID]placement.Student{
			"s1": {ID: "s1", Name: "Asha Rao", Email: "asha@example.edu", Branch: "CSE"},
			"s2": {ID: "s2", Name: "Vikram Iyer", Email: "vikram@example.edu", Branch: "ECE"},
			"s3": {ID: "s3", Name: "Meera Nair", Email: "meera@example.edu", Branch: "ME"},
		},
		drives: map[kernel.DriveID]placement.Drive{
			"d1": {ID: "d1", CompanyName: "Acme", Role: "SDE", Location: "Pune", CTC: "12 LPA", Deadline: &deadline},
			"d2": {ID: "d2", CompanyName: "Globex", Role: "Analyst"},
		},
		applicants: map[kernel.DriveID][]placement.Applicant{
			"d1": {{Student: placement.Student{ID: "s2", Email: "vikram@example.edu"}, Status: placement.StatusApplied}},
		},
	}
}

type fakeGateway struct {
	outcome delivery.Outcome
	sent    []delivery.Message
}

func (g *fakeGateway) Deliver(_ context.Context, msg delivery.Message) delivery.Outcome {
	g.sent = append(g.sent, msg)
	return g.outcome
}

type memoryAudit struct {
	entries []audit.Entry
	sent    map[string]bool
}

func (m *memoryAudit) Record(_ context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryAudit) SentForJob(_ context.Context, jobID string) (bool, error) {
	return m.sent[jobID], nil
}

func (m *memoryAudit) actions() []audit.Action {
	out := make([]audit.Action, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}
