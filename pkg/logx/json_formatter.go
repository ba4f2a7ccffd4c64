package logx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// JSONFormatter writes one object per line with a stable key order:
// level, timestamp, message, correlation ids, caller, other fields, error.
type JSONFormatter struct {
	cfg *Config
}

func NewJSONFormatter(cfg *Config) *JSONFormatter {
	return &JSONFormatter{cfg: cfg}
}

func (f *JSONFormatter) Format(r *Record) ([]byte, error) {
	w := objectWriter{}
	w.buf.WriteByte('{')
	w.add("level", r.Level.String())
	if f.cfg.EnableTimestamp {
		w.add("timestamp", jsonTime(r.Time, f.cfg.TimeFormat))
	}
	w.add("message", r.Message)

	ids, rest := r.Fields.split()
	for _, k := range ids {
		w.add(k, r.Fields[k])
	}
	if f.cfg.EnableCaller && r.Caller != "" {
		w.add("caller", r.Caller)
	}
	for _, k := range rest {
		w.add(k, r.Fields[k])
	}
	if msg, ok := r.errorText(); ok {
		w.add("error", msg)
	}
	w.buf.WriteString("}\n")
	return w.buf.Bytes(), nil
}

func jsonTime(t time.Time, format string) any {
	switch format {
	case "unix":
		return t.Unix()
	case "unixmilli":
		return t.UnixMilli()
	case "":
		return t.Format(time.RFC3339Nano)
	default:
		return t.Format(format)
	}
}

type objectWriter struct {
	buf bytes.Buffer
	n   int
}

// add appends one member. Values that do not marshal are written as their
// %+v text so the line is never lost.
func (w *objectWriter) add(key string, v any) {
	if err, ok := v.(error); ok {
		v = err.Error()
	}
	val, err := json.Marshal(v)
	if err != nil {
		val, _ = json.Marshal(fmt.Sprintf("%+v", v))
	}
	k, _ := json.Marshal(key)
	if w.n > 0 {
		w.buf.WriteByte(',')
	}
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(val)
	w.n++
}
