package config

// NotifxConfig configures the mail transport.
type NotifxConfig struct {
	Provider    string // console | ses | smtp
	FromAddress string
	FromName    string
	AWSRegion   string

	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	SMTPSkipTLSVerify bool
}

func loadNotifxConfig() NotifxConfig {
	return NotifxConfig{
		Provider:          getEnv("NOTIFX_PROVIDER", "console"),
		FromAddress:       getEnv("NOTIFX_FROM_ADDRESS", getEnv("EMAIL_FROM_ADDRESS", "placements@example.edu")),
		FromName:          getEnv("NOTIFX_FROM_NAME", getEnv("EMAIL_FROM_NAME", "Placement Cell")),
		AWSRegion:         getEnv("NOTIFX_AWS_REGION", getEnv("AWS_REGION", "us-east-1")),
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUser:          getEnv("SMTP_USER", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPSkipTLSVerify: getEnvBool("SMTP_SKIP_TLS_VERIFY", false),
	}
}
