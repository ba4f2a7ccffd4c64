package config

import "time"

// PlacementConfig configures the notification pipeline and campaign sender.
type PlacementConfig struct {
	// Institution branding used by every template
	InstitutionName string
	PortalURL       string
	SupportEmail    string

	// Delivery gateway
	GatewayTimeout          time.Duration
	GatewayAttempts         int
	GatewayBackoff          time.Duration
	GatewayMaxBackoff       time.Duration
	GatewayFailureThreshold int

	// Notification jobs
	NotificationQueue string
	JobMaxAttempts    int

	// Campaigns
	PacingDelay       time.Duration
	CampaignLockTTL   time.Duration
	SchedulerInterval time.Duration

	SettingsCacheTTL time.Duration
}

func loadPlacementConfig() PlacementConfig {
	return PlacementConfig{
		InstitutionName:         getEnv("INSTITUTION_NAME", "Placement Cell"),
		PortalURL:               getEnv("PORTAL_URL", "http://localhost:3000"),
		SupportEmail:            getEnv("SUPPORT_EMAIL", "placements@example.edu"),
		GatewayTimeout:          getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),
		GatewayAttempts:         getEnvInt("GATEWAY_ATTEMPTS", 3),
		GatewayBackoff:          getEnvDuration("GATEWAY_BACKOFF", 500*time.Millisecond),
		GatewayMaxBackoff:       getEnvDuration("GATEWAY_MAX_BACKOFF", 5*time.Second),
		GatewayFailureThreshold: getEnvInt("GATEWAY_FAILURE_THRESHOLD", 5),
		NotificationQueue:       getEnv("NOTIFICATION_QUEUE", "notifications"),
		JobMaxAttempts:          getEnvInt("NOTIFICATION_JOB_MAX_ATTEMPTS", 3),
		PacingDelay:             getEnvDuration("CAMPAIGN_PACING_DELAY", time.Second),
		CampaignLockTTL:         getEnvDuration("CAMPAIGN_LOCK_TTL", 30*time.Minute),
		SchedulerInterval:       getEnvDuration("CAMPAIGN_SCHEDULER_INTERVAL", time.Minute),
		SettingsCacheTTL:        getEnvDuration("SETTINGS_CACHE_TTL", time.Minute),
	}
}
