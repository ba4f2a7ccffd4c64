package logx

import (
	"context"
	"fmt"

	"github.com/Abraxas-365/placement/pkg/kernel"
)

// Entry accumulates fields for one or more log lines. The With methods
// return a new Entry, so a base entry can be shared between goroutines.
type Entry struct {
	logger *Logger
	fields Fields
	err    error
}

func newEntry(l *Logger) *Entry {
	return &Entry{logger: l, fields: Fields{}}
}

func (e *Entry) clone(extra int) *Entry {
	fields := make(Fields, len(e.fields)+extra)
	for k, v := range e.fields {
		fields[k] = v
	}
	return &Entry{logger: e.logger, fields: fields, err: e.err}
}

func (e *Entry) WithField(key string, value any) *Entry {
	n := e.clone(1)
	n.fields[key] = value
	return n
}

func (e *Entry) WithFields(fields Fields) *Entry {
	n := e.clone(len(fields))
	for k, v := range fields {
		n.fields[k] = v
	}
	return n
}

func (e *Entry) WithError(err error) *Entry {
	n := e.clone(0)
	n.err = err
	return n
}

// WithContext copies the request and actor ids carried by ctx.
func (e *Entry) WithContext(ctx context.Context) *Entry {
	n := e.clone(2)
	if id := kernel.RequestIDFrom(ctx); id != "" {
		n.fields[KeyRequestID] = id
	}
	if actor, ok := kernel.ActorFrom(ctx); ok {
		n.fields[KeyActorID] = actor.String()
	}
	return n
}

func (e *Entry) Debug(msg string) { e.logger.write(LevelDebug, msg, e.fields, e.err) }
func (e *Entry) Info(msg string)  { e.logger.write(LevelInfo, msg, e.fields, e.err) }
func (e *Entry) Warn(msg string)  { e.logger.write(LevelWarn, msg, e.fields, e.err) }
func (e *Entry) Error(msg string) { e.logger.write(LevelError, msg, e.fields, e.err) }

func (e *Entry) Debugf(format string, args ...any) {
	e.logger.write(LevelDebug, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Warnf(format string, args ...any) {
	e.logger.write(LevelWarn, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Errorf(format string, args ...any) {
	e.logger.write(LevelError, fmt.Sprintf(format, args...), e.fields, e.err)
}
