package notification

import (
	"context"

	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement"
)

// Dispatcher is what controllers call to notify users.
type Dispatcher interface {
	SendNotification(ctx context.Context, req Request) ([]string, error)
	SendNotificationAsync(ctx context.Context, req Request)
	NotifyApplicationStatus(ctx context.Context, studentID kernel.UserID, driveID kernel.DriveID, status placement.ApplicationStatus) error
	NotifyNewDrive(ctx context.Context, driveID kernel.DriveID) (int, error)
}

// StudentFinder resolves a job's user id to a deliverable student.
type StudentFinder interface {
	FindStudent(ctx context.Context, id kernel.UserID) (*placement.Student, error)
}
