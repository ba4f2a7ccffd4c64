package logx

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Config is read once by NewLogger; later changes have no effect.
type Config struct {
	Level           Level
	Format          Format
	EnableColors    bool // console only
	EnableCaller    bool
	EnableTimestamp bool
	// TimeFormat is a time layout, or "unix" / "unixmilli".
	TimeFormat string
	Output     io.Writer
	// File tees every line into a rotating file.
	File *FileConfig
}

type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func (f *FileConfig) writer() io.Writer {
	return &lumberjack.Logger{
		Filename:   f.Path,
		MaxSize:    f.MaxSizeMB,
		MaxBackups: f.MaxBackups,
		MaxAge:     f.MaxAgeDays,
		Compress:   true,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Level:           LevelInfo,
		Format:          FormatConsole,
		EnableColors:    true,
		EnableTimestamp: true,
		TimeFormat:      time.RFC3339,
		Output:          os.Stdout,
	}
}

var namedTimeFormats = map[string]string{
	"RFC3339":     time.RFC3339,
	"RFC3339NANO": time.RFC3339Nano,
	"UNIX":        "unix",
	"UNIXMILLI":   "unixmilli",
}

// LoadFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_COLOR, LOG_CALLER,
// LOG_TIME_FORMAT and the LOG_FILE* rotation settings.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = ParseLevel(v)
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), string(FormatJSON)) {
		cfg.Format = FormatJSON
	}
	if v := os.Getenv("LOG_COLOR"); v != "" {
		cfg.EnableColors = envBool(v)
	}
	if v := os.Getenv("LOG_CALLER"); v != "" {
		cfg.EnableCaller = envBool(v)
	}
	if v := os.Getenv("LOG_TIME_FORMAT"); v != "" {
		if named, ok := namedTimeFormats[strings.ToUpper(v)]; ok {
			cfg.TimeFormat = named
		} else {
			cfg.TimeFormat = v
		}
	}

	if path := os.Getenv("LOG_FILE"); path != "" {
		cfg.File = &FileConfig{
			Path:       path,
			MaxSizeMB:  envInt("LOG_FILE_MAX_MB", 100),
			MaxBackups: envInt("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: envInt("LOG_FILE_MAX_AGE_DAYS", 30),
		}
		// escape codes would land in the file
		cfg.EnableColors = false
	}
	return cfg
}

func envBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}
