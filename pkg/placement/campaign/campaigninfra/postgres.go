package campaigninfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement/campaign"
)

// PostgresRepository stores campaigns, message blocks and message logs.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const campaignColumns = `id, name, drive_id, created_by, status, scheduled_at, total_recipients,
	sent_count, failed_count, started_at, completed_at, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, c campaign.Campaign, blocks []campaign.MessageBlock) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return campaign.ErrStoreFailure(err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO campaigns (` + campaignColumns + `)
		VALUES (:id, :name, :drive_id, :created_by, :status, :scheduled_at, :total_recipients,
			:sent_count, :failed_count, :started_at, :completed_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, c); err != nil {
		return campaign.ErrStoreFailure(err).WithDetail("campaign_id", c.ID)
	}

	blockQuery := `
		INSERT INTO message_blocks (id, campaign_id, order_index, target_type, target_value, subject, body,
			round_name, attachment_path, recipient_count, sent_count, failed_count)
		VALUES (:id, :campaign_id, :order_index, :target_type, :target_value, :subject, :body,
			:round_name, :attachment_path, :recipient_count, :sent_count, :failed_count)`
	for _, b := range blocks {
		if _, err := tx.NamedExecContext(ctx, blockQuery, b); err != nil {
			return campaign.ErrStoreFailure(err).WithDetail("campaign_id", c.ID).WithDetail("block", b.OrderIndex)
		}
	}

	if err := tx.Commit(); err != nil {
		return campaign.ErrStoreFailure(err).WithDetail("campaign_id", c.ID)
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id kernel.CampaignID) (*campaign.Campaign, error) {
	var c campaign.Campaign
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	if err := r.db.GetContext(ctx, &c, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, campaign.ErrCampaignNotFound(id)
		}
		return nil, campaign.ErrStoreFailure(err).WithDetail("campaign_id", id)
	}
	return &c, nil
}

func (r *PostgresRepository) ListBlocks(ctx context.Context, id kernel.CampaignID) ([]campaign.MessageBlock, error) {
	var blocks []campaign.MessageBlock
	query := `
		SELECT id, campaign_id, order_index, target_type, target_value, subject, body,
			round_name, attachment_path, recipient_count, sent_count, failed_count
		FROM message_blocks
		WHERE campaign_id = $1
		ORDER BY order_index`
	if err := r.db.SelectContext(ctx, &blocks, query, id.String()); err != nil {
		return nil, campaign.ErrStoreFailure(err).WithDetail("campaign_id", id)
	}
	return blocks, nil
}

func (r *PostgresRepository) ListByDrive(ctx context.Context, driveID kernel.DriveID, opts kernel.PaginationOptions) (kernel.Paginated[campaign.Campaign], error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM campaigns WHERE drive_id = $1`, driveID.String()); err != nil {
		return kernel.Paginated[campaign.Campaign]{}, campaign.ErrStoreFailure(err).WithDetail("drive_id", driveID)
	}

	items := []campaign.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns
		WHERE drive_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &items, query, driveID.String(), opts.PageSize, opts.Offset()); err != nil {
		return kernel.Paginated[campaign.Campaign]{}, campaign.ErrStoreFailure(err).WithDetail("drive_id", driveID)
	}
	return kernel.NewPaginated(items, opts.Page, opts.PageSize, total), nil
}

func (r *PostgresRepository) ListDue(ctx context.Context, now time.Time) ([]campaign.Campaign, error) {
	var items []campaign.Campaign
	query := `SELECT ` + campaignColumns + ` FROM campaigns
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at`
	if err := r.db.SelectContext(ctx, &items, query, string(campaign.StatusScheduled), now); err != nil {
		return nil, campaign.ErrStoreFailure(err)
	}
	return items, nil
}

func (r *PostgresRepository) TransitionStatus(ctx context.Context, id kernel.CampaignID, from []campaign.Status, to campaign.Status) (bool, error) {
	query := `UPDATE campaigns SET status = $1, updated_at = now() WHERE id = $2 AND status = ANY($3)`
	return r.guardedUpdate(ctx, id, query, string(to), id.String(), pq.Array(statusStrings(from)))
}

func (r *PostgresRepository) MarkSending(ctx context.Context, id kernel.CampaignID, from []campaign.Status, startedAt time.Time) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = $1, started_at = $2, completed_at = NULL, updated_at = now()
		WHERE id = $3 AND status = ANY($4)`
	return r.guardedUpdate(ctx, id, query, string(campaign.StatusSending), startedAt, id.String(), pq.Array(statusStrings(from)))
}

// guardedUpdate runs a status-guarded UPDATE and reports whether exactly
// one row moved.
func (r *PostgresRepository) guardedUpdate(ctx context.Context, id kernel.CampaignID, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, campaign.ErrStoreFailure(err).WithDetail("campaign_id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, campaign.ErrStoreFailure(err).WithDetail("campaign_id", id)
	}
	return n == 1, nil
}

func statusStrings(in []campaign.Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func (r *PostgresRepository) Finish(ctx context.Context, c campaign.Campaign) error {
	query := `
		UPDATE campaigns
		SET status = $1, total_recipients = $2, sent_count = $3, failed_count = $4, completed_at = $5, updated_at = now()
		WHERE id = $6`
	_, err := r.db.ExecContext(ctx, query,
		string(c.Status), c.TotalRecipients, c.SentCount, c.FailedCount, c.CompletedAt, c.ID.String())
	if err != nil {
		return campaign.ErrStoreFailure(err).WithDetail("campaign_id", c.ID)
	}
	return nil
}

func (r *PostgresRepository) SaveBlockCounts(ctx context.Context, b campaign.MessageBlock) error {
	query := `UPDATE message_blocks SET recipient_count = $1, sent_count = $2, failed_count = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, b.RecipientCount, b.SentCount, b.FailedCount, b.ID); err != nil {
		return campaign.ErrStoreFailure(err).WithDetail("block_id", b.ID)
	}
	return nil
}

func (r *PostgresRepository) CreateLog(ctx context.Context, l campaign.MessageLog) error {
	query := `
		INSERT INTO message_logs (id, campaign_id, block_id, student_id, email, subject, body, status,
			message_id, error, attempts, created_at, sent_at)
		VALUES (:id, :campaign_id, :block_id, :student_id, :email, :subject, :body, :status,
			:message_id, :error, :attempts, :created_at, :sent_at)`
	if _, err := r.db.NamedExecContext(ctx, query, l); err != nil {
		return campaign.ErrStoreFailure(err).WithDetail("campaign_id", l.CampaignID).WithDetail("student_id", l.StudentID)
	}
	return nil
}

func (r *PostgresRepository) CompleteLog(ctx context.Context, l campaign.MessageLog) error {
	query := `
		UPDATE message_logs
		SET status = $1, message_id = $2, error = $3, attempts = $4, sent_at = $5
		WHERE id = $6`
	_, err := r.db.ExecContext(ctx, query, string(l.Status), l.MessageID, l.Error, l.Attempts, l.SentAt, l.ID)
	if err != nil {
		return campaign.ErrStoreFailure(err).WithDetail("log_id", l.ID)
	}
	return nil
}

func (r *PostgresRepository) HasSent(ctx context.Context, id kernel.CampaignID, studentID kernel.UserID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM message_logs WHERE campaign_id = $1 AND student_id = $2 AND status = $3)`
	if err := r.db.GetContext(ctx, &exists, query, id.String(), studentID.String(), string(campaign.LogSent)); err != nil {
		return false, campaign.ErrStoreFailure(err).WithDetail("campaign_id", id)
	}
	return exists, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, id kernel.CampaignID) (campaign.DeliveryStats, error) {
	var st campaign.DeliveryStats
	query := `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
		       COUNT(*) FILTER (WHERE status = 'SENT')    AS sent,
		       COUNT(*) FILTER (WHERE status = 'FAILED')  AS failed
		FROM message_logs
		WHERE campaign_id = $1`
	if err := r.db.GetContext(ctx, &st, query, id.String()); err != nil {
		return st, campaign.ErrStoreFailure(err).WithDetail("campaign_id", id)
	}
	return st, nil
}

func (r *PostgresRepository) ListLogs(ctx context.Context, id kernel.CampaignID) ([]campaign.MessageLog, error) {
	var logs []campaign.MessageLog
	query := `
		SELECT id, campaign_id, block_id, student_id, email, subject, body, status,
			message_id, error, attempts, created_at, sent_at
		FROM message_logs
		WHERE campaign_id = $1
		ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &logs, query, id.String()); err != nil {
		return nil, campaign.ErrStoreFailure(err).WithDetail("campaign_id", id)
	}
	return logs, nil
}
