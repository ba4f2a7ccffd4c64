package campaignsrv

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/placement/pkg/fsx"
	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/audit"
	"github.com/Abraxas-365/placement/pkg/placement/campaign"
	"github.com/Abraxas-365/placement/pkg/placement/delivery"
)

// memoryRepo is an in-memory campaign.Repository.
type memoryRepo struct {
	mu        sync.Mutex
	campaigns map[kernel.CampaignID]campaign.Campaign
	blocks    map[kernel.CampaignID][]campaign.MessageBlock
	logs      []campaign.MessageLog
	failLogs  bool
	// onCreateLog runs after every CreateLog, outside the lock.
	onCreateLog func()
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		campaigns: make(map[kernel.CampaignID]campaign.Campaign),
		blocks:    make(map[kernel.CampaignID][]campaign.MessageBlock),
	}
}

func (m *memoryRepo) Create(_ context.Context, c campaign.Campaign, blocks []campaign.MessageBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = c
	m.blocks[c.ID] = append([]campaign.MessageBlock(nil), blocks...)
	return nil
}

func (m *memoryRepo) FindByID(_ context.Context, id kernel.CampaignID) (*campaign.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, campaign.ErrCampaignNotFound(id)
	}
	return &c, nil
}

func (m *memoryRepo) ListBlocks(_ context.Context, id kernel.CampaignID) ([]campaign.MessageBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]campaign.MessageBlock(nil), m.blocks[id]...)
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *memoryRepo) ListByDrive(_ context.Context, driveID kernel.DriveID, opts kernel.PaginationOptions) (kernel.Paginated[campaign.Campaign], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []campaign.Campaign
	for _, c := range m.campaigns {
		if c.DriveID == driveID {
			all = append(all, c)
		}
	}
	return kernel.NewPaginated(all, opts.Page, opts.PageSize, len(all)), nil
}

func (m *memoryRepo) ListDue(_ context.Context, now time.Time) ([]campaign.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []campaign.Campaign
	for _, c := range m.campaigns {
		if c.Status == campaign.StatusScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) TransitionStatus(_ context.Context, id kernel.CampaignID, from []campaign.Status, to campaign.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if c.Status == f {
			c.Status = to
			m.campaigns[id] = c
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) MarkSending(_ context.Context, id kernel.CampaignID, from []campaign.Status, startedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if c.Status == f {
			c.Status = campaign.StatusSending
			c.StartedAt = &startedAt
			m.campaigns[id] = c
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) Finish(_ context.Context, c campaign.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = c
	return nil
}

func (m *memoryRepo) SaveBlockCounts(_ context.Context, b campaign.MessageBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	blocks := m.blocks[b.CampaignID]
	for i := range blocks {
		if blocks[i].ID == b.ID {
			blocks[i].RecipientCount = b.RecipientCount
			blocks[i].SentCount = b.SentCount
			blocks[i].FailedCount = b.FailedCount
		}
	}
	return nil
}

func (m *memoryRepo) CreateLog(_ context.Context, l campaign.MessageLog) error {
	m.mu.Lock()
	if m.failLogs {
		m.mu.Unlock()
		return campaign.ErrStoreFailure(errors.New("disk full"))
	}
	m.logs = append(m.logs, l)
	hook := m.onCreateLog
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (m *memoryRepo) CompleteLog(_ context.Context, l campaign.MessageLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.logs {
		if m.logs[i].ID == l.ID {
			m.logs[i] = l
		}
	}
	return nil
}

func (m *memoryRepo) HasSent(_ context.Context, id kernel.CampaignID, studentID kernel.UserID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.logs {
		if l.CampaignID == id && l.StudentID == studentID && l.Status == campaign.LogSent {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) Stats(_ context.Context, id kernel.CampaignID) (campaign.DeliveryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st campaign.DeliveryStats
	for _, l := range m.logs {
		if l.CampaignID != id {
			continue
		}
		st.Total++
		switch l.Status {
		case campaign.LogPending:
			st.Pending++
		case campaign.LogSent:
			st.Sent++
		case campaign.LogFailed:
			st.Failed++
		}
	}
	return st, nil
}

func (m *memoryRepo) ListLogs(_ context.Context, id kernel.CampaignID) ([]campaign.MessageLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []campaign.MessageLog
	for _, l := range m.logs {
		if l.CampaignID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryRepo) setStatus(id kernel.CampaignID, st campaign.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.campaigns[id]
	c.Status = st
	m.campaigns[id] = c
}

// memoryLocker grants one lease per campaign.
type memoryLocker struct {
	mu   sync.Mutex
	held map[kernel.CampaignID]bool
	// onAcquire runs after a lease is granted.
	onAcquire func(kernel.CampaignID)
}

func newMemoryLocker() *memoryLocker {
	return &memoryLocker{held: make(map[kernel.CampaignID]bool)}
}

type memoryLease struct {
	l  *memoryLocker
	id kernel.CampaignID
}

func (l *memoryLocker) Acquire(_ context.Context, id kernel.CampaignID, _ time.Duration) (campaign.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[id] {
		return nil, campaign.ErrAlreadySending(id)
	}
	l.held[id] = true
	if l.onAcquire != nil {
		l.onAcquire(id)
	}
	return &memoryLease{l: l, id: id}, nil
}

func (m *memoryLease) Release(context.Context) error {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	delete(m.l.held, m.id)
	return nil
}

// scriptedGateway fails the addresses listed in fail.
type scriptedGateway struct {
	mu   sync.Mutex
	fail map[string]error
	sent []delivery.Message
}

func (g *scriptedGateway) Deliver(_ context.Context, msg delivery.Message) delivery.Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, msg)
	if err, ok := g.fail[msg.To]; ok {
		return delivery.Outcome{Status: delivery.StatusFailed, Attempts: 1, Err: err}
	}
	return delivery.Outcome{Status: delivery.StatusSent, MessageID: "msg-" + msg.To, Attempts: 1}
}

type fakeDirectory struct {
	students   map[kernel.UserID]placement.Student
	drives     map[kernel.DriveID]placement.Drive
	applicants map[kernel.DriveID][]placement.Applicant
}

func (d *fakeDirectory) FindStudent(_ context.Context, id kernel.UserID) (*placement.Student, error) {
	s, ok := d.students[id]
	if !ok {
		return nil, placement.ErrUserNotFound()
	}
	return &s, nil
}

func (d *fakeDirectory) FindDrive(_ context.Context, id kernel.DriveID) (*placement.Drive, error) {
	dr, ok := d.drives[id]
	if !ok {
		return nil, placement.ErrDriveNotFound()
	}
	return &dr, nil
}

func (d *fakeDirectory) ListApplicants(_ context.Context, id kernel.DriveID) ([]placement.Applicant, error) {
	return d.applicants[id], nil
}

func (d *fakeDirectory) ListStudents(context.Context) ([]placement.Student, error) {
	return nil, nil
}

func (d *fakeDirectory) apply(driveID kernel.DriveID, id, name, email string, status placement.ApplicationStatus) {
	st := placement.Student{ID: kernel.UserID(id), Name: name, Email: email, Branch: "CSE"}
	d.students[st.ID] = st
	d.applicants[driveID] = append(d.applicants[driveID], placement.Applicant{Student: st, Status: status})
}

type memoryFiles map[string][]byte

func (f memoryFiles) ReadFile(_ context.Context, p string) ([]byte, error) {
	data, ok := f[p]
	if !ok {
		return nil, fsx.NotFound(p)
	}
	return data, nil
}

func (f memoryFiles) Stat(_ context.Context, p string) (fsx.FileInfo, error) {
	data, ok := f[p]
	if !ok {
		return fsx.FileInfo{}, fsx.NotFound(p)
	}
	return fsx.FileInfo{Name: p, Size: int64(len(data))}, nil
}

func (f memoryFiles) Exists(_ context.Context, p string) (bool, error) {
	_, ok := f[p]
	return ok, nil
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memoryAudit) Record(_ context.Context, e audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}
