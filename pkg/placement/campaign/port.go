package campaign

import (
	"context"
	"time"

	"github.com/Abraxas-365/placement/pkg/kernel"
)

// Repository persists campaigns, their blocks and message logs.
type Repository interface {
	// Create stores the campaign and its blocks in one transaction.
	Create(ctx context.Context, c Campaign, blocks []MessageBlock) error
	FindByID(ctx context.Context, id kernel.CampaignID) (*Campaign, error)
	// ListBlocks returns the blocks ordered by OrderIndex.
	ListBlocks(ctx context.Context, id kernel.CampaignID) ([]MessageBlock, error)
	ListByDrive(ctx context.Context, driveID kernel.DriveID, opts kernel.PaginationOptions) (kernel.Paginated[Campaign], error)
	// ListDue returns scheduled campaigns whose time has come.
	ListDue(ctx context.Context, now time.Time) ([]Campaign, error)

	// TransitionStatus moves the campaign to `to` only if its current status
	// is one of `from`, and reports whether it did.
	TransitionStatus(ctx context.Context, id kernel.CampaignID, from []Status, to Status) (bool, error)
	// MarkSending moves the campaign to SENDING only if its current status
	// is one of `from`, and reports whether it did.
	MarkSending(ctx context.Context, id kernel.CampaignID, from []Status, startedAt time.Time) (bool, error)
	// Finish stores the final status, counters and completion time.
	Finish(ctx context.Context, c Campaign) error
	SaveBlockCounts(ctx context.Context, b MessageBlock) error

	CreateLog(ctx context.Context, l MessageLog) error
	CompleteLog(ctx context.Context, l MessageLog) error
	// HasSent reports whether the student has a SENT log for the campaign.
	HasSent(ctx context.Context, id kernel.CampaignID, studentID kernel.UserID) (bool, error)
	Stats(ctx context.Context, id kernel.CampaignID) (DeliveryStats, error)
	ListLogs(ctx context.Context, id kernel.CampaignID) ([]MessageLog, error)
}

// Locker guards a campaign against concurrent send runs.
type Locker interface {
	// Acquire takes the campaign's lease or fails with CodeAlreadySending.
	Acquire(ctx context.Context, id kernel.CampaignID, ttl time.Duration) (Lease, error)
}

// Lease is a held campaign lock.
type Lease interface {
	Release(ctx context.Context) error
}
