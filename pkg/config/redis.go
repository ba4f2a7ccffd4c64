package config

import "fmt"

// RedisConfig configures the Redis client shared by the job queue, the
// settings cache and the campaign lock.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Address returns host:port.
func (c RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnvInt("REDIS_PORT", 6379),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}
