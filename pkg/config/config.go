package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/joho/godotenv"
)

// Config aggregates the configuration of every module.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Jobx      JobxConfig
	Notifx    NotifxConfig
	Storage   StorageConfig
	Placement PlacementConfig
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logx.Debug("config: no .env file found, using process environment")
	}

	return &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Jobx:      loadJobxConfig(),
		Notifx:    loadNotifxConfig(),
		Storage:   loadStorageConfig(),
		Placement: loadPlacementConfig(),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		logx.Warnf("config: invalid integer for %s=%q, using %d", key, value, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		logx.Warnf("config: invalid number for %s=%q, using %v", key, value, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		logx.Warnf("config: invalid boolean for %s=%q, using %t", key, value, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		logx.Warnf("config: invalid duration for %s=%q, using %s", key, value, fallback)
	}
	return fallback
}

func getEnvStringSlice(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
