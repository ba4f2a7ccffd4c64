package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// Logger writes formatted records to one writer, plus the rotating file
// sink when configured.
type Logger struct {
	cfg       *Config
	formatter Formatter

	mu  sync.Mutex
	out io.Writer

	now  func() time.Time
	exit func(int)
}

func NewLogger(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.File != nil && cfg.File.Path != "" {
		out = io.MultiWriter(out, cfg.File.writer())
	}
	return &Logger{
		cfg:       cfg,
		formatter: formatterFor(cfg),
		out:       out,
		now:       time.Now,
		exit:      os.Exit,
	}
}

func formatterFor(cfg *Config) Formatter {
	if cfg.Format == FormatJSON {
		return NewJSONFormatter(cfg)
	}
	return NewConsoleFormatter(cfg)
}

func (l *Logger) GetLevel() Level {
	return l.cfg.Level
}

// write must be called directly from the exported logging method so the
// caller frame lands on user code.
func (l *Logger) write(level Level, msg string, fields Fields, err error) {
	if !l.cfg.Level.Enabled(level) {
		return
	}
	r := &Record{
		Time:    l.now(),
		Level:   level,
		Message: msg,
		Fields:  fields,
		Err:     err,
	}
	if l.cfg.EnableCaller {
		r.Caller = callerAt(3)
	}

	line, ferr := l.formatter.Format(r)
	if ferr != nil {
		fmt.Fprintf(os.Stderr, "logx: format: %v\n", ferr)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, werr := l.out.Write(line); werr != nil {
		fmt.Fprintf(os.Stderr, "logx: write: %v\n", werr)
	}
}

func (l *Logger) WithField(key string, value any) *Entry {
	return newEntry(l).WithField(key, value)
}

func (l *Logger) WithFields(fields Fields) *Entry {
	return newEntry(l).WithFields(fields)
}

func (l *Logger) WithError(err error) *Entry {
	return newEntry(l).WithError(err)
}

func callerAt(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}
