package campaignsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/placement/pkg/logx"
)

// Scheduler sends due scheduled campaigns on a fixed interval.
type Scheduler struct {
	svc      *Service
	interval time.Duration
}

func NewScheduler(svc *Service, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{svc: svc, interval: interval}
}

// Start ticks until ctx is cancelled. A tick that overruns the interval
// delays the next one rather than overlapping it.
func (s *Scheduler) Start(ctx context.Context) error {
	logx.Infof("campaign scheduler started (interval=%s)", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			logx.Info("campaign scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	n, err := s.svc.DispatchDueCampaigns(ctx, s.svc.now())
	if err != nil && ctx.Err() == nil {
		logx.WithError(err).Warn("campaign scheduler: dispatch failed")
		return
	}
	if n > 0 {
		logx.Infof("campaign scheduler: %d scheduled campaigns sent", n)
	}
}
