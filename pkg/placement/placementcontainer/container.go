package placementcontainer

import (
	"context"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/placement/pkg/config"
	"github.com/Abraxas-365/placement/pkg/fsx"
	"github.com/Abraxas-365/placement/pkg/jobx"
	"github.com/Abraxas-365/placement/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/notifx"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/audit"
	"github.com/Abraxas-365/placement/pkg/placement/audit/auditinfra"
	"github.com/Abraxas-365/placement/pkg/placement/campaign/campaigninfra"
	"github.com/Abraxas-365/placement/pkg/placement/campaign/campaignsrv"
	"github.com/Abraxas-365/placement/pkg/placement/delivery"
	"github.com/Abraxas-365/placement/pkg/placement/notification/notificationsrv"
	"github.com/Abraxas-365/placement/pkg/placement/placementapi"
	"github.com/Abraxas-365/placement/pkg/placement/placementinfra"
	"github.com/Abraxas-365/placement/pkg/placement/recipient"
	"github.com/Abraxas-365/placement/pkg/placement/settings"
	"github.com/Abraxas-365/placement/pkg/placement/settings/settingsinfra"
	"github.com/Abraxas-365/placement/pkg/placement/template"
)

// ---------------------------------------------------------------------------
// Deps: what the placement module needs from the process.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config

	// Mailer is the transport chosen by cmd (console, SES or SMTP).
	Mailer notifx.EmailSender
	// Files is the blob store campaign attachments are read from.
	Files fsx.FileReader
}

// ---------------------------------------------------------------------------
// Container: the public surface of the placement module.
// ---------------------------------------------------------------------------

type Container struct {
	Directory placement.Directory
	Settings  settings.Provider
	Renderer  *template.Renderer
	Gateway   *delivery.Gateway

	Jobs       *jobx.Client
	Dispatcher *notificationsrv.Dispatcher
	Worker     *notificationsrv.Worker

	CampaignService *campaignsrv.Service
	Scheduler       *campaignsrv.Scheduler

	Handlers *placementapi.Handlers

	background sync.WaitGroup
}

// New builds the placement graph: stores, gateway, notification pipeline,
// campaign service, handlers.
func New(deps Deps) *Container {
	logx.Info("🔧 Initializing placement container...")

	cfg := deps.Cfg.Placement
	c := &Container{}

	// ── Stores ───────────────────────────────────────────────────────────

	c.Directory = placementinfra.NewPostgresDirectory(deps.DB)
	campaignRepo := campaigninfra.NewPostgresRepository(deps.DB)
	auditStore := auditinfra.NewPostgresRecorder(deps.DB)

	c.Settings = settingsinfra.NewCachedProvider(
		settingsinfra.NewPostgresProvider(deps.DB),
		deps.Redis,
		cfg.SettingsCacheTTL,
	)

	recorder := audit.Multi{auditStore, auditinfra.NewLogxRecorder()}

	// ── Rendering and delivery ───────────────────────────────────────────

	c.Renderer = template.NewRenderer(template.Branding{
		InstitutionName: cfg.InstitutionName,
		PortalURL:       cfg.PortalURL,
		SupportEmail:    cfg.SupportEmail,
	})

	c.Gateway = delivery.NewGateway(deps.Mailer, c.Settings, delivery.Options{
		From:             deps.Cfg.Notifx.FromAddress,
		Timeout:          cfg.GatewayTimeout,
		Attempts:         cfg.GatewayAttempts,
		Backoff:          cfg.GatewayBackoff,
		MaxBackoff:       cfg.GatewayMaxBackoff,
		FailureThreshold: cfg.GatewayFailureThreshold,
	})

	// ── Notification pipeline ────────────────────────────────────────────

	c.Worker = notificationsrv.NewWorker(c.Directory, c.Renderer, c.Gateway, recorder, auditStore)

	jobsCfg := deps.Cfg.Jobx
	queue := jobxredis.NewRedisQueue(deps.Redis,
		jobxredis.WithVisibilityTimeout(jobsCfg.VisibilityTimeout),
		jobxredis.WithJobTTL(jobsCfg.JobTTL),
		jobxredis.WithClaimInterval(jobsCfg.ClaimInterval),
	)
	c.Jobs = jobx.NewClient(queue,
		jobx.WithQueues(jobsCfg.Queues...),
		jobx.WithConcurrency(jobsCfg.Concurrency),
		jobx.WithPollInterval(jobsCfg.PollInterval),
		jobx.WithShutdownTimeout(jobsCfg.ShutdownTimeout),
		jobx.WithDequeueTimeout(jobsCfg.DequeueTimeout),
		jobx.WithRetryBackoff(jobsCfg.DefaultRetryDelay, jobsCfg.MaxRetryDelay),
		jobx.WithRateLimit(jobsCfg.RateLimit, jobsCfg.RateBurst),
		jobx.WithHooks(c.Worker.Hooks()),
	)
	c.Worker.Register(c.Jobs)

	c.Dispatcher = notificationsrv.NewDispatcher(c.Jobs, c.Settings, c.Directory, notificationsrv.DispatcherConfig{
		Queue:       cfg.NotificationQueue,
		MaxAttempts: cfg.JobMaxAttempts,
	})

	// ── Campaigns ────────────────────────────────────────────────────────

	c.CampaignService = campaignsrv.NewService(
		campaignRepo,
		recipient.NewResolver(c.Directory),
		c.Directory,
		c.Renderer,
		c.Gateway,
		deps.Files,
		campaigninfra.NewRedisLocker(deps.Redis),
		recorder,
		campaignsrv.Config{
			PacingDelay: cfg.PacingDelay,
			LockTTL:     cfg.CampaignLockTTL,
		},
	)
	c.Scheduler = campaignsrv.NewScheduler(c.CampaignService, cfg.SchedulerInterval)

	// ── Handlers ─────────────────────────────────────────────────────────

	c.Handlers = placementapi.NewHandlers(c.CampaignService, c.Dispatcher)

	logx.Info("✅ Placement container initialized")
	return c
}

// StartBackgroundServices runs the job workers and the scheduled-campaign
// ticker until ctx is cancelled.
func (c *Container) StartBackgroundServices(ctx context.Context) {
	if err := c.Gateway.Verify(ctx); err != nil {
		logx.WithError(err).Warn("mail transport verification failed, deliveries will be retried")
	}

	c.background.Add(2)
	go func() {
		defer c.background.Done()
		if err := c.Jobs.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logx.WithError(err).Error("notification workers stopped")
		}
	}()
	logx.Info("  ✅ Notification workers started")

	go func() {
		defer c.background.Done()
		if err := c.Scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logx.WithError(err).Error("campaign scheduler stopped")
		}
	}()
	logx.Info("  ✅ Campaign scheduler started")
}

// Wait blocks until the background services have returned.
func (c *Container) Wait() {
	c.background.Wait()
}
