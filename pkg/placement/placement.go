package placement

import (
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/kernel"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("PLACEMENT")

var (
	CodeUserNotFound   = ErrRegistry.Register("USER_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeDriveNotFound  = ErrRegistry.Register("DRIVE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Drive not found")
	CodeInvalidStatus  = ErrRegistry.Register("INVALID_STATUS", errx.TypeValidation, http.StatusBadRequest, "Unknown application status")
	CodeInvalidEvent   = ErrRegistry.Register("INVALID_EVENT", errx.TypeValidation, http.StatusBadRequest, "Unknown event type")
	CodeInvalidChannel = ErrRegistry.Register("INVALID_CHANNEL", errx.TypeValidation, http.StatusBadRequest, "Unknown notification channel")
	CodeStoreFailure   = ErrRegistry.Register("STORE_FAILURE", errx.TypeInternal, http.StatusInternalServerError, "Placement store unavailable")
)

func ErrUserNotFound() *errx.Error   { return ErrRegistry.New(CodeUserNotFound) }
func ErrDriveNotFound() *errx.Error  { return ErrRegistry.New(CodeDriveNotFound) }
func ErrInvalidStatus() *errx.Error  { return ErrRegistry.New(CodeInvalidStatus) }
func ErrInvalidEvent() *errx.Error   { return ErrRegistry.New(CodeInvalidEvent) }
func ErrInvalidChannel() *errx.Error { return ErrRegistry.New(CodeInvalidChannel) }
func ErrStoreFailure(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeStoreFailure, cause)
}

// ============================================================================
// Applications
// ============================================================================

// ApplicationStatus is the lifecycle state of a student's application to a drive.
type ApplicationStatus string

const (
	StatusApplied     ApplicationStatus = "APPLIED"
	StatusUnderReview ApplicationStatus = "UNDER_REVIEW"
	StatusShortlisted ApplicationStatus = "SHORTLISTED"
	StatusSelected    ApplicationStatus = "SELECTED"
	StatusRejected    ApplicationStatus = "REJECTED"
	StatusOnHold      ApplicationStatus = "ON_HOLD"
)

// ParseApplicationStatus accepts any casing and surrounding whitespace.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	status := ApplicationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", ErrInvalidStatus().WithDetail("status", s)
	}
	return status, nil
}

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusApplied, StatusUnderReview, StatusShortlisted, StatusSelected, StatusRejected, StatusOnHold:
		return true
	}
	return false
}

// Event returns the notification event announcing a move into s.
func (s ApplicationStatus) Event() (EventType, bool) {
	switch s {
	case StatusApplied:
		return EventApplicationSubmitted, true
	case StatusUnderReview:
		return EventApplicationUnderReview, true
	case StatusShortlisted:
		return EventApplicationShortlisted, true
	case StatusSelected:
		return EventApplicationSelected, true
	case StatusRejected:
		return EventApplicationRejected, true
	case StatusOnHold:
		return EventApplicationOnHold, true
	}
	return "", false
}

// ============================================================================
// Entities
// ============================================================================

// Student is the subset of a user account the notification pipeline reads.
type Student struct {
	ID     kernel.UserID `db:"id" json:"id"`
	Name   string        `db:"name" json:"name"`
	Email  string        `db:"email" json:"email"`
	Branch string        `db:"branch" json:"branch,omitempty"`
	CGPA   *float64      `db:"cgpa" json:"cgpa,omitempty"`
}

// FirstName returns the first word of the student's name.
func (s Student) FirstName() string {
	if fields := strings.Fields(s.Name); len(fields) > 0 {
		return fields[0]
	}
	return s.Name
}

// Drive is a company's recruitment event.
type Drive struct {
	ID          kernel.DriveID `db:"id" json:"id"`
	CompanyName string         `db:"company_name" json:"company_name"`
	Role        string         `db:"role" json:"role"`
	Location    string         `db:"location" json:"location"`
	CTC         string         `db:"ctc" json:"ctc"`
	DriveDate   *time.Time     `db:"drive_date" json:"drive_date,omitempty"`
	Deadline    *time.Time     `db:"deadline" json:"deadline,omitempty"`
}

// Applicant is a student together with their application to one drive.
type Applicant struct {
	Student
	Status    ApplicationStatus `db:"status" json:"status"`
	AppliedAt time.Time         `db:"applied_at" json:"applied_at"`
}
