package campaignsrv

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Abraxas-365/placement/pkg/asyncx"
	"github.com/Abraxas-365/placement/pkg/fsx"
	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/metricsx"
	"github.com/Abraxas-365/placement/pkg/notifx"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/audit"
	"github.com/Abraxas-365/placement/pkg/placement/campaign"
	"github.com/Abraxas-365/placement/pkg/placement/delivery"
	"github.com/Abraxas-365/placement/pkg/placement/recipient"
	"github.com/Abraxas-365/placement/pkg/placement/template"
)

var errCancelled = errors.New("campaign cancelled")

// SendCampaign runs a DRAFT or SCHEDULED campaign to completion: blocks in
// order, recipients one at a time with pacing in between. Per-recipient and
// per-block problems are reported in the result's Errors. A missing
// campaign or a concurrent run is returned as an error.
func (s *Service) SendCampaign(ctx context.Context, id kernel.CampaignID) (*campaign.SendResult, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Status.Sendable() {
		return nil, campaign.ErrInvalidTransition(c.Status, campaign.StatusSending)
	}
	return s.execute(ctx, c, false)
}

// ResendFailed re-runs a finished campaign, skipping every recipient that
// already has a SENT log for it.
func (s *Service) ResendFailed(ctx context.Context, id kernel.CampaignID) (*campaign.SendResult, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Status.Resendable() {
		return nil, campaign.ErrInvalidTransition(c.Status, campaign.StatusSending)
	}
	return s.execute(ctx, c, true)
}

// run carries the state of one send run.
type run struct {
	campaign *campaign.Campaign
	drive    *placement.Drive
	resend   bool
	seen     map[string]struct{}
	result   *campaign.SendResult
	paced    bool
}

func (s *Service) execute(ctx context.Context, c *campaign.Campaign, resend bool) (*campaign.SendResult, error) {
	lease, err := s.locker.Acquire(ctx, c.ID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			logx.WithError(err).WithField(logx.KeyCampaignID, c.ID).Warn("campaign: lock release failed")
		}
	}()

	blocks, err := s.repo.ListBlocks(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	drive, err := s.directory.FindDrive(ctx, c.DriveID)
	if err != nil {
		return nil, err
	}

	// The status read before the lease may be stale: a cancel or another
	// run can land in between. Only a guarded update starts the run.
	from := campaign.SendableStatuses
	if resend {
		from = campaign.ResendableStatuses
	}
	started := s.now()
	ok, err := s.repo.MarkSending(ctx, c.ID, from, started)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.repo.FindByID(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		return nil, campaign.ErrInvalidTransition(current.Status, campaign.StatusSending)
	}
	c.Status = campaign.StatusSending
	c.StartedAt = &started

	r := &run{
		campaign: c,
		drive:    drive,
		resend:   resend,
		seen:     make(map[string]struct{}),
		result: &campaign.SendResult{
			Stats:  campaign.RunStats{TotalBlocks: len(blocks)},
			Errors: []string{},
		},
	}
	logx.WithContext(ctx).WithFields(logx.Fields{
		"campaign_id": c.ID,
		"blocks":      len(blocks),
		"resend":      resend,
	}).Info("campaign: send started")

	fatal := s.sendBlocks(ctx, r, blocks)
	return s.finish(context.WithoutCancel(ctx), r, fatal), nil
}

// sendBlocks processes every block. Only store failures, cancellation and
// panics stop it early.
func (s *Service) sendBlocks(ctx context.Context, r *run, blocks []campaign.MessageBlock) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	for i := range blocks {
		if err := s.sendBlock(ctx, r, &blocks[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) sendBlock(ctx context.Context, r *run, b *campaign.MessageBlock) error {
	fields := logx.Fields{"campaign_id": r.campaign.ID, "block": b.OrderIndex}

	rule, err := b.Rule()
	if err != nil {
		s.skipBlock(ctx, r, b, err)
		return nil
	}
	attachments, err := s.loadAttachment(ctx, b.AttachmentPath)
	if err != nil {
		s.skipBlock(ctx, r, b, err)
		return nil
	}
	recipients, err := s.resolver.Resolve(ctx, r.campaign.DriveID, rule)
	if err != nil {
		s.skipBlock(ctx, r, b, err)
		return nil
	}
	recipients = claim(recipients, r.seen)

	skipped, sent, failed := 0, 0, 0
	defer func() {
		if r.resend {
			b.SentCount += sent
		} else {
			b.SentCount = sent
		}
		b.FailedCount = failed
		b.RecipientCount = skipped + sent + failed
		if err := s.repo.SaveBlockCounts(context.WithoutCancel(ctx), *b); err != nil {
			logx.WithError(err).WithFields(fields).Warn("campaign: block counts not saved")
		}
	}()

	for _, rc := range recipients {
		if r.resend {
			done, err := s.repo.HasSent(ctx, r.campaign.ID, rc.StudentID)
			if err != nil {
				return err
			}
			if done {
				skipped++
				r.result.Stats.Skipped++
				continue
			}
		}
		if err := s.beforeRecipient(ctx, r); err != nil {
			return err
		}

		ok, err := s.deliverOne(ctx, r, b, rc, attachments)
		if err != nil {
			return err
		}
		r.result.Stats.TotalRecipients++
		if ok {
			sent++
			r.result.Stats.EmailsSent++
			metricsx.CampaignRecipients.WithLabelValues("sent").Inc()
		} else {
			failed++
			r.result.Stats.EmailsFailed++
			metricsx.CampaignRecipients.WithLabelValues("failed").Inc()
		}
	}

	logx.WithFields(fields).WithFields(logx.Fields{
		"sent":    sent,
		"failed":  failed,
		"skipped": skipped,
	}).Info("campaign: block finished")
	return nil
}

// skipBlock reports a block that reached nobody in this run and zeroes its
// run counters, so the block totals still add up to the run's sent and
// failed counts. A resend keeps the sends of earlier runs.
func (s *Service) skipBlock(ctx context.Context, r *run, b *campaign.MessageBlock, err error) {
	r.blockError(b, err)
	b.RecipientCount = 0
	b.FailedCount = 0
	if !r.resend {
		b.SentCount = 0
	}
	if err := s.repo.SaveBlockCounts(context.WithoutCancel(ctx), *b); err != nil {
		logx.WithError(err).WithFields(logx.Fields{
			"campaign_id": r.campaign.ID,
			"block":       b.OrderIndex,
		}).Warn("campaign: block counts not saved")
	}
}

// beforeRecipient paces the loop and observes cancellation.
func (s *Service) beforeRecipient(ctx context.Context, r *run) error {
	if r.paced && s.cfg.PacingDelay > 0 {
		if err := asyncx.Sleep(ctx, s.cfg.PacingDelay); err != nil {
			return err
		}
	}
	r.paced = true

	current, err := s.repo.FindByID(ctx, r.campaign.ID)
	if err != nil {
		return err
	}
	if current.Status == campaign.StatusCancelled {
		return errCancelled
	}
	return nil
}

// deliverOne renders and sends to one recipient. The log row is written
// PENDING before delivery and completed after. The bool reports a
// successful send; an error is a store failure that aborts the run.
func (s *Service) deliverOne(
	ctx context.Context,
	r *run,
	b *campaign.MessageBlock,
	rc recipient.Recipient,
	attachments []notifx.Attachment,
) (bool, error) {
	entry := campaign.MessageLog{
		ID:         uuid.NewString(),
		CampaignID: r.campaign.ID,
		BlockID:    b.ID,
		StudentID:  rc.StudentID,
		Email:      rc.Email,
		Status:     campaign.LogPending,
		CreatedAt:  s.now(),
	}

	rendered, renderErr := s.renderer.RenderTemplate(
		template.Template{Subject: b.Subject, Body: b.Body},
		recipientVars(rc.Student(), *r.drive, b.RoundName, s.now()),
	)
	if renderErr != nil {
		entry.Status = campaign.LogFailed
		entry.Error = renderErr.Error()
		if err := s.repo.CreateLog(ctx, entry); err != nil {
			return false, err
		}
		r.recipientError(b, rc, renderErr)
		return false, nil
	}
	entry.Subject = rendered.Subject
	entry.Body = rendered.Body
	if err := s.repo.CreateLog(ctx, entry); err != nil {
		return false, err
	}

	out := s.gateway.Deliver(ctx, delivery.Message{
		To:          rc.Email,
		Subject:     rendered.Subject,
		Body:        rendered.Body,
		Attachments: attachments,
		Tags:        map[string]string{"campaign_id": r.campaign.ID.String()},
	})

	entry.Attempts = out.Attempts
	var failure error
	switch out.Status {
	case delivery.StatusSent:
		sentAt := s.now()
		entry.Status = campaign.LogSent
		entry.MessageID = out.MessageID
		entry.SentAt = &sentAt
	case delivery.StatusSuppressed:
		failure = errors.New("email delivery is disabled")
	default:
		failure = out.Err
	}
	if failure != nil {
		entry.Status = campaign.LogFailed
		entry.Error = failure.Error()
	}

	if err := s.repo.CompleteLog(context.WithoutCancel(ctx), entry); err != nil {
		return false, err
	}
	if failure != nil {
		r.recipientError(b, rc, failure)
		return false, nil
	}
	return true, nil
}

func (s *Service) loadAttachment(ctx context.Context, p string) ([]notifx.Attachment, error) {
	if p == "" {
		return nil, nil
	}
	if s.files == nil {
		return nil, campaign.ErrInvalidCampaign("attachments are not configured").WithDetail("path", p)
	}
	data, err := s.files.ReadFile(ctx, p)
	if err != nil {
		return nil, campaign.ErrRegistry.NewWithCause(campaign.CodeAttachment, err).WithDetail("path", p)
	}
	return []notifx.Attachment{{
		Filename:    attachmentName(p),
		ContentType: fsx.ContentTypeOf(p),
		Data:        data,
	}}, nil
}

// finish persists the outcome of the run and writes the audit summary.
func (s *Service) finish(ctx context.Context, r *run, fatal error) *campaign.SendResult {
	c := r.campaign
	stats := r.result.Stats

	sent := stats.EmailsSent
	if r.resend {
		sent += c.SentCount
	}

	switch {
	case errors.Is(fatal, errCancelled):
		c.Status = campaign.StatusCancelled
		r.result.Errors = append(r.result.Errors, "campaign cancelled during send")
	case fatal != nil:
		c.Status = campaign.StatusFailed
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("aborted: %v", fatal))
		logx.WithError(fatal).WithField(logx.KeyCampaignID, c.ID).Error("campaign: send aborted")
	case sent > 0:
		c.Status = campaign.StatusCompleted
	default:
		c.Status = campaign.StatusFailed
	}

	completed := s.now()
	c.CompletedAt = &completed
	c.SentCount = sent
	c.FailedCount = stats.EmailsFailed
	c.TotalRecipients = stats.Skipped + stats.TotalRecipients
	if err := s.repo.Finish(ctx, *c); err != nil {
		logx.WithError(err).WithField(logx.KeyCampaignID, c.ID).Error("campaign: final status not saved")
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("final status not saved: %v", err))
	}

	r.result.Status = c.Status
	r.result.Success = c.Status == campaign.StatusCompleted
	metricsx.CampaignRuns.WithLabelValues(string(c.Status)).Inc()

	summary := fmt.Sprintf("%d of %d recipients notified, %d failed",
		stats.EmailsSent, stats.TotalRecipients, stats.EmailsFailed)
	action := audit.ActionCampaignCompleted
	if !r.result.Success {
		action = audit.ActionCampaignFailed
	}
	err := s.recorder.Record(ctx, audit.Entry{
		Action:     action,
		UserID:     c.CreatedBy,
		CampaignID: c.ID,
		Success:    r.result.Success,
		Message:    summary,
		Metadata: map[string]any{
			"status":  c.Status,
			"blocks":  stats.TotalBlocks,
			"sent":    stats.EmailsSent,
			"failed":  stats.EmailsFailed,
			"skipped": stats.Skipped,
			"resend":  r.resend,
			"errors":  len(r.result.Errors),
		},
	})
	if err != nil {
		logx.WithError(err).WithField(logx.KeyCampaignID, c.ID).Warn("campaign: audit write failed")
	}

	logx.WithFields(logx.Fields{
		"campaign_id": c.ID,
		"status":      c.Status,
	}).Info("campaign: " + summary)
	return r.result
}

func (r *run) blockError(b *campaign.MessageBlock, err error) {
	logx.WithError(err).WithFields(logx.Fields{
		"campaign_id": r.campaign.ID,
		"block":       b.OrderIndex,
	}).Warn("campaign: block skipped")
	r.result.Errors = append(r.result.Errors, fmt.Sprintf("block %d: %v", b.OrderIndex, err))
}

func (r *run) recipientError(b *campaign.MessageBlock, rc recipient.Recipient, err error) {
	logx.WithError(err).WithFields(logx.Fields{
		"campaign_id": r.campaign.ID,
		"block":       b.OrderIndex,
		"student_id":  rc.StudentID,
	}).Warn("campaign: delivery failed")
	r.result.Errors = append(r.result.Errors, fmt.Sprintf("block %d: %s <%s>: %v", b.OrderIndex, rc.Name, rc.Email, err))
}
