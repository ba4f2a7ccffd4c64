// cmd/container.go
//
// Composition root. Owns infrastructure (DB, Redis, blob store, mail
// transport) and hands it to the placement container.
package main

import (
	"context"
	"fmt"
	"strings"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/placement/pkg/config"
	"github.com/Abraxas-365/placement/pkg/fsx"
	"github.com/Abraxas-365/placement/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/placement/pkg/fsx/fsxs3"
	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/migrations"
	"github.com/Abraxas-365/placement/pkg/notifx"
	"github.com/Abraxas-365/placement/pkg/notifx/notifxconsole"
	"github.com/Abraxas-365/placement/pkg/notifx/notifxses"
	"github.com/Abraxas-365/placement/pkg/notifx/notifxsmtp"
	"github.com/Abraxas-365/placement/pkg/placement/placementcontainer"
)

// Container holds shared infrastructure and the composed placement module.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB         *sqlx.DB
	Redis      *redis.Client
	FileSystem fsx.FileReader
	Mailer     notifx.EmailSender

	// Bounded contexts
	Placement *placementcontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	if c.Config.Database.RunMigrations {
		if err := migrations.Up(db.DB); err != nil {
			logx.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	// 2. Redis
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	// 3. File storage
	c.initFileStorage()

	// 4. Mail transport
	c.initMailer()

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initFileStorage() {
	storage := c.Config.Storage

	switch storage.Mode {
	case "s3":
		awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(storage.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.FileSystem = fsxs3.NewS3FileSystem(s3.NewFromConfig(awsCfg), storage.Bucket, storage.Prefix)
		logx.Infof("  ✅ S3 file system configured (bucket: %s, region: %s)", storage.Bucket, storage.AWSRegion)

	case "local":
		localFS, err := fsxlocal.NewLocalFileSystem(storage.UploadDir)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.FileSystem = localFS
		logx.Infof("  ✅ Local file system configured (path: %s)", localFS.BasePath())

	default:
		logx.Fatalf("Unknown STORAGE_MODE: %s (use 'local' or 's3')", storage.Mode)
	}
}

func (c *Container) initMailer() {
	mail := c.Config.Notifx
	from := formatFrom(mail.FromName, mail.FromAddress)

	switch strings.ToLower(mail.Provider) {
	case "ses":
		awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(mail.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.Mailer = notifxses.NewSESProvider(ses.NewFromConfig(awsCfg), from)
		logx.Infof("  ✅ SES mail transport configured (region: %s)", mail.AWSRegion)

	case "smtp":
		c.Mailer = notifxsmtp.NewSMTPProvider(notifxsmtp.Config{
			Host:          mail.SMTPHost,
			Port:          mail.SMTPPort,
			Username:      mail.SMTPUser,
			Password:      mail.SMTPPassword,
			FromAddress:   from,
			SkipTLSVerify: mail.SMTPSkipTLSVerify,
		})
		logx.Infof("  ✅ SMTP mail transport configured (%s:%d)", mail.SMTPHost, mail.SMTPPort)

	case "console":
		c.Mailer = notifxconsole.NewConsoleProvider(from)
		logx.Warn("  ⚠️  Console mail transport: emails are logged, not sent")

	default:
		logx.Fatalf("Unknown NOTIFX_PROVIDER: %s (use 'console', 'ses' or 'smtp')", mail.Provider)
	}
}

// ---------------------------------------------------------------------------
// Module composition
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	c.Placement = placementcontainer.New(placementcontainer.Deps{
		DB:     c.DB,
		Redis:  c.Redis,
		Cfg:    c.Config,
		Mailer: c.Mailer,
		Files:  c.FileSystem,
	})
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")
	c.Placement.StartBackgroundServices(ctx)
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}

func formatFrom(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}
