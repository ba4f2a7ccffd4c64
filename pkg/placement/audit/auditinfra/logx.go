package auditinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/placement/audit"
)

// LogxRecorder writes audit entries to the structured log.
type LogxRecorder struct{}

func NewLogxRecorder() *LogxRecorder {
	return &LogxRecorder{}
}

func (r *LogxRecorder) Record(ctx context.Context, e audit.Entry) error {
	fields := logx.Fields{
		"audit_event": e.Action,
		"user_id":     e.UserID,
		"event_type":  e.EventType,
		"channel":     e.Channel,
		"success":     e.Success,
		"timestamp":   time.Now(),
	}
	if !e.CampaignID.IsEmpty() {
		fields[logx.KeyCampaignID] = e.CampaignID
	}
	if e.JobID != "" {
		fields[logx.KeyJobID] = e.JobID
	}
	for k, v := range e.Metadata {
		fields["meta_"+k] = v
	}

	entry := logx.WithContext(ctx).WithFields(fields)
	if e.Success || e.Action == audit.ActionEmailSuppressed {
		entry.Info("Audit: " + string(e.Action))
		return nil
	}
	entry.Warn("Audit: " + string(e.Action) + ": " + e.Message)
	return nil
}
