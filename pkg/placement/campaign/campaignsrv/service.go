package campaignsrv

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Abraxas-365/placement/pkg/fsx"
	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/audit"
	"github.com/Abraxas-365/placement/pkg/placement/campaign"
	"github.com/Abraxas-365/placement/pkg/placement/delivery"
	"github.com/Abraxas-365/placement/pkg/placement/recipient"
	"github.com/Abraxas-365/placement/pkg/placement/template"
)

// Config tunes the send loop.
type Config struct {
	// PacingDelay is slept between two recipients.
	PacingDelay time.Duration
	// LockTTL bounds how long a crashed run keeps the campaign locked.
	LockTTL time.Duration
}

type Service struct {
	repo      campaign.Repository
	resolver  *recipient.Resolver
	directory placement.Directory
	renderer  *template.Renderer
	gateway   delivery.Deliverer
	files     fsx.FileReader
	locker    campaign.Locker
	recorder  audit.Recorder
	validate  *validator.Validate
	cfg       Config
	now       func() time.Time
}

func NewService(
	repo campaign.Repository,
	resolver *recipient.Resolver,
	directory placement.Directory,
	renderer *template.Renderer,
	gateway delivery.Deliverer,
	files fsx.FileReader,
	locker campaign.Locker,
	recorder audit.Recorder,
	cfg Config,
) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	return &Service{
		repo:      repo,
		resolver:  resolver,
		directory: directory,
		renderer:  renderer,
		gateway:   gateway,
		files:     files,
		locker:    locker,
		recorder:  recorder,
		validate:  validator.New(),
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ============================================================================
// Creation
// ============================================================================

// CreateCampaign validates the command, resolves every block once to store
// recipient counts, and persists the campaign with its blocks.
func (s *Service) CreateCampaign(ctx context.Context, req campaign.CreateCampaignRequest) (*campaign.Campaign, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	now := s.now()
	if req.ScheduledAt != nil && !req.ScheduledAt.After(now) {
		return nil, campaign.ErrInvalidCampaign("scheduled_at must be in the future")
	}

	rules := make([]recipient.TargetRule, len(req.Blocks))
	for i, b := range req.Blocks {
		rule, err := recipient.ParseTargetRule(b.TargetType, b.TargetValue)
		if err != nil {
			return nil, campaign.ErrInvalidCampaign(fmt.Sprintf("block %d: %v", i, err)).WithDetail("block", i)
		}
		rules[i] = rule
		if b.AttachmentPath != "" {
			if err := s.checkAttachment(ctx, b.AttachmentPath); err != nil {
				return nil, err
			}
		}
	}

	if _, err := s.directory.FindDrive(ctx, req.DriveID); err != nil {
		return nil, err
	}

	id := kernel.NewCampaignID(uuid.NewString())
	seen := make(map[string]struct{})
	blocks := make([]campaign.MessageBlock, len(req.Blocks))
	total := 0
	for i, b := range req.Blocks {
		recipients, err := s.resolver.Resolve(ctx, req.DriveID, rules[i])
		if err != nil {
			return nil, err
		}
		count := len(claim(recipients, seen))
		total += count
		blocks[i] = campaign.MessageBlock{
			ID:             uuid.NewString(),
			CampaignID:     id,
			OrderIndex:     i,
			TargetType:     string(rules[i].Kind()),
			TargetValue:    rules[i].Value(),
			Subject:        b.Subject,
			Body:           b.Body,
			RoundName:      b.RoundName,
			AttachmentPath: b.AttachmentPath,
			RecipientCount: count,
		}
	}

	status := campaign.StatusDraft
	if req.ScheduledAt != nil {
		status = campaign.StatusScheduled
	}
	c := campaign.Campaign{
		ID:              id,
		Name:            req.Name,
		DriveID:         req.DriveID,
		CreatedBy:       req.CreatedBy,
		Status:          status,
		ScheduledAt:     req.ScheduledAt,
		TotalRecipients: total,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, c, blocks); err != nil {
		return nil, err
	}

	logx.WithContext(ctx).WithFields(logx.Fields{
		"campaign_id": c.ID,
		"drive_id":    c.DriveID,
		"blocks":      len(blocks),
		"recipients":  total,
		"status":      c.Status,
	}).Info("campaign: created")
	return &c, nil
}

func (s *Service) checkAttachment(ctx context.Context, p string) error {
	if s.files == nil {
		return campaign.ErrInvalidCampaign("attachments are not configured")
	}
	ok, err := s.files.Exists(ctx, p)
	if err != nil {
		return campaign.ErrRegistry.NewWithCause(campaign.CodeAttachment, err).WithDetail("path", p)
	}
	if !ok {
		return campaign.ErrInvalidCampaign("attachment not found").WithDetail("path", p)
	}
	return nil
}

// ============================================================================
// Queries
// ============================================================================

// ResolveRecipients previews who a targeting rule reaches right now.
func (s *Service) ResolveRecipients(ctx context.Context, driveID kernel.DriveID, targetType, targetValue string) ([]recipient.Recipient, error) {
	return s.resolver.ResolveRaw(ctx, driveID, targetType, targetValue)
}

// HasReceivedEmail reports whether the student has a SENT log for the
// campaign, whatever failures preceded it.
func (s *Service) HasReceivedEmail(ctx context.Context, id kernel.CampaignID, studentID kernel.UserID) (bool, error) {
	return s.repo.HasSent(ctx, id, studentID)
}

func (s *Service) GetCampaign(ctx context.Context, id kernel.CampaignID) (*campaign.Campaign, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetStats(ctx context.Context, id kernel.CampaignID) (campaign.DeliveryStats, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return campaign.DeliveryStats{}, err
	}
	return s.repo.Stats(ctx, id)
}

func (s *Service) ListCampaigns(ctx context.Context, driveID kernel.DriveID, opts kernel.PaginationOptions) (kernel.Paginated[campaign.Campaign], error) {
	return s.repo.ListByDrive(ctx, driveID, opts.Normalize())
}

// PreviewEmail renders a block for one recipient without sending. Without
// a sample student the drive's first applicant is used.
func (s *Service) PreviewEmail(ctx context.Context, req campaign.PreviewRequest) (*campaign.Preview, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	drive, err := s.directory.FindDrive(ctx, req.DriveID)
	if err != nil {
		return nil, err
	}

	var student placement.Student
	switch {
	case !req.SampleStudentID.IsEmpty():
		st, err := s.directory.FindStudent(ctx, req.SampleStudentID)
		if err != nil {
			return nil, err
		}
		student = *st
	default:
		applicants, err := s.directory.ListApplicants(ctx, req.DriveID)
		if err != nil {
			return nil, err
		}
		if len(applicants) > 0 {
			student = applicants[0].Student
		}
	}

	rendered, err := s.renderer.RenderTemplate(
		template.Template{Subject: req.Subject, Body: req.Body},
		recipientVars(student, *drive, req.RoundName, s.now()),
	)
	if err != nil {
		return nil, err
	}
	return &campaign.Preview{
		StudentID: student.ID,
		Email:     student.Email,
		Subject:   rendered.Subject,
		Body:      rendered.Body,
	}, nil
}

// ============================================================================
// Lifecycle
// ============================================================================

// CancelCampaign stops a campaign. A running send notices before its next
// recipient and stops there.
func (s *Service) CancelCampaign(ctx context.Context, id kernel.CampaignID) error {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !c.Status.Cancellable() {
		return campaign.ErrInvalidTransition(c.Status, campaign.StatusCancelled)
	}
	ok, err := s.repo.TransitionStatus(ctx, id,
		[]campaign.Status{campaign.StatusDraft, campaign.StatusScheduled, campaign.StatusSending},
		campaign.StatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		// finished between the read and the update
		return campaign.ErrInvalidTransition(c.Status, campaign.StatusCancelled)
	}
	logx.WithContext(ctx).WithFields(logx.Fields{"campaign_id": id, "from": c.Status}).Info("campaign: cancelled")
	return nil
}

// DispatchDueCampaigns sends every scheduled campaign whose time has come
// and returns how many runs finished.
func (s *Service) DispatchDueCampaigns(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, c := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		res, err := s.SendCampaign(ctx, c.ID)
		if err != nil {
			logx.WithError(err).WithField(logx.KeyCampaignID, c.ID).Warn("campaign: scheduled send skipped")
			continue
		}
		logx.WithFields(logx.Fields{
			"campaign_id": c.ID,
			"status":      res.Status,
			"sent":        res.Stats.EmailsSent,
			"failed":      res.Stats.EmailsFailed,
		}).Info("campaign: scheduled send finished")
		sent++
	}
	return sent, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]interface{}, len(verrs))
		for _, fe := range verrs {
			fields[fe.Namespace()] = fe.Tag()
		}
		return campaign.ErrInvalidCampaign("validation failed").WithDetails(fields)
	}
	return campaign.ErrInvalidCampaign(err.Error())
}

// recipientVars builds the interpolation bag for one recipient.
func recipientVars(st placement.Student, drive placement.Drive, roundName string, now time.Time) template.Vars {
	vars := template.DriveVars(drive).
		Merge(template.StudentVars(st)).
		Merge(template.DateVars(now))
	if roundName != "" {
		vars["round_name"] = roundName
	}
	return vars
}

// claim drops recipients whose email is already in seen and adds the rest.
func claim(in []recipient.Recipient, seen map[string]struct{}) []recipient.Recipient {
	out := make([]recipient.Recipient, 0, len(in))
	for _, r := range in {
		key := recipient.NormalizeEmail(r.Email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func attachmentName(p string) string {
	return path.Base(p)
}
