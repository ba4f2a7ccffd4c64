package auditinfra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/placement/audit"
)

var ErrRegistry = errx.NewRegistry("AUDIT")

var CodeWriteFailed = ErrRegistry.Register("WRITE_FAILED", errx.TypeInternal, 500, "Failed to write audit log")

// PostgresRecorder stores audit entries in audit_logs.
type PostgresRecorder struct {
	db *sqlx.DB
}

func NewPostgresRecorder(db *sqlx.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (r *PostgresRecorder) Record(ctx context.Context, e audit.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return ErrRegistry.NewWithCause(CodeWriteFailed, err).WithDetail("action", e.Action)
	}

	query := `
		INSERT INTO audit_logs (id, action, user_id, event_type, channel, campaign_id, job_id, success, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.db.ExecContext(ctx, query,
		e.ID, string(e.Action), e.UserID.String(), string(e.EventType), string(e.Channel),
		e.CampaignID.String(), e.JobID, e.Success, e.Message, raw, e.CreatedAt,
	)
	if err != nil {
		return ErrRegistry.NewWithCause(CodeWriteFailed, err).WithDetail("action", e.Action)
	}
	return nil
}

func (r *PostgresRecorder) SentForJob(ctx context.Context, jobID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM audit_logs WHERE job_id = $1 AND action = $2)`
	if err := r.db.GetContext(ctx, &exists, query, jobID, string(audit.ActionEmailSent)); err != nil {
		return false, ErrRegistry.NewWithCause(CodeWriteFailed, err).WithDetail("job_id", jobID)
	}
	return exists, nil
}
