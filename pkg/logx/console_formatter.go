package logx

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	ansiReset = "\033[0m"
	ansiDim   = "\033[90m"
	ansiCyan  = "\033[36m"
	ansiRed   = "\033[31m"
)

var levelColor = map[Level]string{
	LevelDebug: "\033[1;36m",
	LevelInfo:  "\033[1;32m",
	LevelWarn:  "\033[1;33m",
	LevelError: "\033[1;31m",
	LevelFatal: "\033[1;31m",
}

// Short labels for the correlation block.
var correlationLabel = map[string]string{
	KeyRequestID:  "req",
	KeyActorID:    "actor",
	KeyCampaignID: "campaign",
	KeyJobID:      "job",
}

// ConsoleFormatter renders a human-oriented line:
//
//	2026-05-04T10:00:00Z INFO  campaign finished [req=r1 campaign=c1] sent=3
//	  error: smtp timeout
type ConsoleFormatter struct {
	cfg *Config
}

func NewConsoleFormatter(cfg *Config) *ConsoleFormatter {
	return &ConsoleFormatter{cfg: cfg}
}

func (f *ConsoleFormatter) Format(r *Record) ([]byte, error) {
	var b strings.Builder

	if f.cfg.EnableTimestamp {
		f.paint(&b, ansiDim, consoleTime(r.Time, f.cfg.TimeFormat))
		b.WriteByte(' ')
	}
	f.paint(&b, levelColor[r.Level], fmt.Sprintf("%-5s", r.Level.String()))
	b.WriteByte(' ')
	if f.cfg.EnableCaller && r.Caller != "" {
		f.paint(&b, ansiDim, r.Caller)
		b.WriteByte(' ')
	}
	b.WriteString(r.Message)

	ids, rest := r.Fields.split()
	if len(ids) > 0 {
		pairs := make([]string, len(ids))
		for i, k := range ids {
			pairs[i] = correlationLabel[k] + "=" + fmt.Sprint(r.Fields[k])
		}
		b.WriteByte(' ')
		f.paint(&b, ansiDim, "["+strings.Join(pairs, " ")+"]")
	}
	for _, k := range rest {
		b.WriteByte(' ')
		f.paint(&b, ansiCyan, k+"="+consoleValue(r.Fields[k]))
	}
	if msg, ok := r.errorText(); ok {
		b.WriteString("\n  ")
		f.paint(&b, ansiRed, "error: "+msg)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func (f *ConsoleFormatter) paint(b *strings.Builder, color, s string) {
	if !f.cfg.EnableColors || color == "" {
		b.WriteString(s)
		return
	}
	b.WriteString(color)
	b.WriteString(s)
	b.WriteString(ansiReset)
}

func consoleTime(t time.Time, format string) string {
	switch format {
	case "unix":
		return strconv.FormatInt(t.Unix(), 10)
	case "unixmilli":
		return strconv.FormatInt(t.UnixMilli(), 10)
	case "":
		return t.Format(time.RFC3339)
	default:
		return t.Format(format)
	}
}

// consoleValue quotes strings that contain spaces so k=v pairs stay
// splittable.
func consoleValue(v any) string {
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, " \t\n\"") {
		return strconv.Quote(s)
	}
	return s
}
