package logx

import "strings"

// Level orders log severities; a logger emits records at or above its level.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	// LevelOff silences the logger.
	LevelOff
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL", "OFF"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel accepts any case. TRACE folds into DEBUG and WARNING into
// WARN; anything unrecognised is INFO.
func ParseLevel(s string) Level {
	switch s = strings.ToUpper(strings.TrimSpace(s)); s {
	case "TRACE":
		return LevelDebug
	case "WARNING":
		return LevelWarn
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i)
		}
	}
	return LevelInfo
}

// Enabled reports whether a logger at l emits a record at target.
func (l Level) Enabled(target Level) bool {
	return l != LevelOff && target >= l
}
