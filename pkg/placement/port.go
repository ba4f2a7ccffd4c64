package placement

import (
	"context"

	"github.com/Abraxas-365/placement/pkg/kernel"
)

// Directory reads the users, drives and applications owned by the wider
// placement system.
type Directory interface {
	FindStudent(ctx context.Context, id kernel.UserID) (*Student, error)
	FindDrive(ctx context.Context, id kernel.DriveID) (*Drive, error)
	// ListApplicants returns every applicant to the drive ordered by student id.
	ListApplicants(ctx context.Context, driveID kernel.DriveID) ([]Applicant, error)
	// ListStudents returns every student account ordered by id.
	ListStudents(ctx context.Context) ([]Student, error)
}
