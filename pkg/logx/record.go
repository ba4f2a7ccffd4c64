package logx

import (
	"sort"
	"time"
)

// Correlation keys. Both formatters print them ahead of the other fields,
// in this order, so a delivery can be followed across the API, the
// campaign runner and the job worker.
const (
	KeyRequestID  = "request_id"
	KeyActorID    = "actor_id"
	KeyCampaignID = "campaign_id"
	KeyJobID      = "job_id"
)

var correlationKeys = [...]string{KeyRequestID, KeyActorID, KeyCampaignID, KeyJobID}

// Fields is structured data attached to a record.
type Fields map[string]any

// Record is one formatted log line before encoding.
type Record struct {
	Time    time.Time
	Level   Level
	Message string
	Caller  string
	Fields  Fields
	Err     error
}

// Formatter encodes a record, including its trailing newline.
type Formatter interface {
	Format(r *Record) ([]byte, error)
}

// split returns the correlation keys present in f in their fixed order,
// then every other key sorted. The "error" key is left to the formatter.
func (f Fields) split() (ids, rest []string) {
	for _, k := range correlationKeys {
		if _, ok := f[k]; ok {
			ids = append(ids, k)
		}
	}
	for k := range f {
		if k == "error" || isCorrelationKey(k) {
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return ids, rest
}

func isCorrelationKey(k string) bool {
	for _, c := range correlationKeys {
		if c == k {
			return true
		}
	}
	return false
}

// errorText prefers the attached error over an "error" field.
func (r *Record) errorText() (string, bool) {
	if r.Err != nil {
		return r.Err.Error(), true
	}
	if v, ok := r.Fields["error"]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}
