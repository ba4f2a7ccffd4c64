// Package campaign models admin-initiated bulk messaging: a campaign owns
// ordered message blocks, each targeting a slice of a drive's applicants.
package campaign

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement/recipient"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("CAMPAIGN")

var (
	CodeCampaignNotFound  = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Campaign not found")
	CodeInvalidCampaign   = ErrRegistry.Register("INVALID", errx.TypeValidation, http.StatusBadRequest, "Invalid campaign")
	CodeAlreadySending    = ErrRegistry.Register("ALREADY_SENDING", errx.TypeConflict, http.StatusConflict, "Campaign is already being sent")
	CodeInvalidTransition = ErrRegistry.Register("INVALID_TRANSITION", errx.TypeBusiness, http.StatusUnprocessableEntity, "Campaign cannot move to the requested status")
	CodeStoreFailure      = ErrRegistry.Register("STORE_FAILURE", errx.TypeInternal, http.StatusInternalServerError, "Campaign store unavailable")
	CodeLockFailure       = ErrRegistry.Register("LOCK_FAILURE", errx.TypeExternal, http.StatusServiceUnavailable, "Campaign lock unavailable")
	CodeAttachment        = ErrRegistry.Register("ATTACHMENT", errx.TypeExternal, http.StatusBadGateway, "Campaign attachment could not be read")
	CodeExportFailed      = ErrRegistry.Register("EXPORT_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Delivery report could not be built")
)

func ErrCampaignNotFound(id kernel.CampaignID) *errx.Error {
	return ErrRegistry.New(CodeCampaignNotFound).WithDetail("campaign_id", id)
}

func ErrInvalidCampaign(reason string) *errx.Error {
	return ErrRegistry.NewWithMessage(CodeInvalidCampaign, reason)
}

func ErrAlreadySending(id kernel.CampaignID) *errx.Error {
	return ErrRegistry.New(CodeAlreadySending).WithDetail("campaign_id", id)
}

func ErrInvalidTransition(from, to Status) *errx.Error {
	return ErrRegistry.New(CodeInvalidTransition).WithDetail("from", from).WithDetail("to", to)
}

func ErrStoreFailure(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeStoreFailure, cause)
}

// ============================================================================
// Campaign
// ============================================================================

// Status is the campaign lifecycle:
// DRAFT → (SCHEDULED) → SENDING → {COMPLETED | FAILED}, or CANCELLED.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusScheduled Status = "SCHEDULED"
	StatusSending   Status = "SENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Sendable reports whether a first send may start from s.
func (s Status) Sendable() bool {
	return s == StatusDraft || s == StatusScheduled
}

// SendableStatuses and ResendableStatuses are the statuses a run may start
// from, as checked by MarkSending.
var (
	SendableStatuses   = []Status{StatusDraft, StatusScheduled}
	ResendableStatuses = []Status{StatusCompleted, StatusFailed}
)

// Resendable reports whether failed recipients may be retried from s.
func (s Status) Resendable() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Cancellable reports whether s may still move to CANCELLED.
func (s Status) Cancellable() bool {
	return s == StatusDraft || s == StatusScheduled || s == StatusSending
}

type Campaign struct {
	ID              kernel.CampaignID `db:"id" json:"id"`
	Name            string            `db:"name" json:"name"`
	DriveID         kernel.DriveID    `db:"drive_id" json:"drive_id"`
	CreatedBy       kernel.UserID     `db:"created_by" json:"created_by"`
	Status          Status            `db:"status" json:"status"`
	ScheduledAt     *time.Time        `db:"scheduled_at" json:"scheduled_at,omitempty"`
	TotalRecipients int               `db:"total_recipients" json:"total_recipients"`
	SentCount       int               `db:"sent_count" json:"sent_count"`
	FailedCount     int               `db:"failed_count" json:"failed_count"`
	StartedAt       *time.Time        `db:"started_at" json:"started_at,omitempty"`
	CompletedAt     *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// MessageBlock is one targeted subject/body pair. Blocks are sent strictly
// in OrderIndex order.
type MessageBlock struct {
	ID             string            `db:"id" json:"id"`
	CampaignID     kernel.CampaignID `db:"campaign_id" json:"campaign_id"`
	OrderIndex     int               `db:"order_index" json:"order_index"`
	TargetType     string            `db:"target_type" json:"target_type"`
	TargetValue    string            `db:"target_value" json:"target_value,omitempty"`
	Subject        string            `db:"subject" json:"subject"`
	Body           string            `db:"body" json:"body"`
	RoundName      string            `db:"round_name" json:"round_name,omitempty"`
	AttachmentPath string            `db:"attachment_path" json:"attachment_path,omitempty"`
	RecipientCount int               `db:"recipient_count" json:"recipient_count"`
	SentCount      int               `db:"sent_count" json:"sent_count"`
	FailedCount    int               `db:"failed_count" json:"failed_count"`
}

// Rule parses the block's stored targeting rule.
func (b MessageBlock) Rule() (recipient.TargetRule, error) {
	return recipient.ParseTargetRule(b.TargetType, b.TargetValue)
}

// ============================================================================
// Message logs
// ============================================================================

type LogStatus string

const (
	LogPending LogStatus = "PENDING"
	LogSent    LogStatus = "SENT"
	LogFailed  LogStatus = "FAILED"
)

// MessageLog records one delivery to one recipient, with the rendered
// subject and body actually sent.
type MessageLog struct {
	ID         string            `db:"id" json:"id"`
	CampaignID kernel.CampaignID `db:"campaign_id" json:"campaign_id"`
	BlockID    string            `db:"block_id" json:"block_id"`
	StudentID  kernel.UserID     `db:"student_id" json:"student_id"`
	Email      string            `db:"email" json:"email"`
	Subject    string            `db:"subject" json:"subject"`
	Body       string            `db:"body" json:"body"`
	Status     LogStatus         `db:"status" json:"status"`
	MessageID  string            `db:"message_id" json:"message_id,omitempty"`
	Error      string            `db:"error" json:"error,omitempty"`
	Attempts   int               `db:"attempts" json:"attempts"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	SentAt     *time.Time        `db:"sent_at" json:"sent_at,omitempty"`
}

// ============================================================================
// Results
// ============================================================================

// RunStats aggregates one send run.
type RunStats struct {
	TotalBlocks     int `json:"total_blocks"`
	TotalRecipients int `json:"total_recipients"`
	EmailsSent      int `json:"emails_sent"`
	EmailsFailed    int `json:"emails_failed"`
	// Skipped counts recipients a resend left alone because they already
	// received the campaign.
	Skipped int `json:"skipped,omitempty"`
}

// SendResult is returned by a send run. Per-recipient and per-block
// problems are listed in Errors; they never fail the call.
type SendResult struct {
	Success bool     `json:"success"`
	Status  Status   `json:"status"`
	Stats   RunStats `json:"stats"`
	Errors  []string `json:"errors"`
}

// DeliveryStats is the aggregate of a campaign's message logs.
type DeliveryStats struct {
	Total   int `db:"total" json:"total"`
	Pending int `db:"pending" json:"pending"`
	Sent    int `db:"sent" json:"sent"`
	Failed  int `db:"failed" json:"failed"`
}

// ============================================================================
// Commands
// ============================================================================

type BlockRequest struct {
	TargetType     string `json:"target_type" validate:"required,oneof=BY_STATUS ALL_APPLICANTS MANUAL_SELECTED MANUAL_EXCLUDED"`
	TargetValue    string `json:"target_value"`
	Subject        string `json:"subject" validate:"required,max=300"`
	Body           string `json:"body" validate:"required"`
	RoundName      string `json:"round_name" validate:"max=120"`
	AttachmentPath string `json:"attachment_path"`
}

type CreateCampaignRequest struct {
	Name        string         `json:"name" validate:"required,max=200"`
	DriveID     kernel.DriveID `json:"drive_id" validate:"required"`
	CreatedBy   kernel.UserID  `json:"created_by" validate:"required"`
	Blocks      []BlockRequest `json:"blocks" validate:"required,min=1,dive"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
}

type PreviewRequest struct {
	DriveID         kernel.DriveID `json:"drive_id" validate:"required"`
	Subject         string         `json:"subject" validate:"required"`
	Body            string         `json:"body" validate:"required"`
	RoundName       string         `json:"round_name"`
	SampleStudentID kernel.UserID  `json:"sample_student_id,omitempty"`
}

// Preview is one rendered message for one sample recipient.
type Preview struct {
	StudentID kernel.UserID `json:"student_id,omitempty"`
	Email     string        `json:"email,omitempty"`
	Subject   string        `json:"subject"`
	Body      string        `json:"body"`
}
