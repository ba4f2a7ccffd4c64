package config

// ServerConfig configures the HTTP admin surface.
type ServerConfig struct {
	Port        string
	CORSOrigins string
	Debug       bool
	Version     string
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		Debug:       getEnvBool("DEBUG", false),
		Version:     getEnv("APP_VERSION", "1.0.0"),
	}
}
