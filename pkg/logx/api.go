package logx

import (
	"context"
	"fmt"
)

// std is the process-wide logger, configured from LOG_* at init and
// replaced by the container once config is loaded.
var std = NewLogger(LoadFromEnv())

func SetDefaultLogger(l *Logger) { std = l }

func GetDefaultLogger() *Logger { return std }

func Debug(msg string) { std.write(LevelDebug, msg, nil, nil) }
func Info(msg string)  { std.write(LevelInfo, msg, nil, nil) }
func Warn(msg string)  { std.write(LevelWarn, msg, nil, nil) }

func Debugf(format string, args ...any) {
	std.write(LevelDebug, fmt.Sprintf(format, args...), nil, nil)
}

func Infof(format string, args ...any) {
	std.write(LevelInfo, fmt.Sprintf(format, args...), nil, nil)
}

func Warnf(format string, args ...any) {
	std.write(LevelWarn, fmt.Sprintf(format, args...), nil, nil)
}

func Errorf(format string, args ...any) {
	std.write(LevelError, fmt.Sprintf(format, args...), nil, nil)
}

// Fatalf logs and exits the process with status 1.
func Fatalf(format string, args ...any) {
	std.write(LevelFatal, fmt.Sprintf(format, args...), nil, nil)
	std.exit(1)
}

func WithField(key string, value any) *Entry { return std.WithField(key, value) }
func WithFields(fields Fields) *Entry        { return std.WithFields(fields) }
func WithError(err error) *Entry             { return std.WithError(err) }

// WithContext starts an entry carrying the request and actor ids of ctx.
func WithContext(ctx context.Context) *Entry { return newEntry(std).WithContext(ctx) }
