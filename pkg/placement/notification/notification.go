// Package notification turns lifecycle events into queued per-channel jobs
// and delivers them from a worker.
package notification

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/jobx"
	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/template"
)

// JobType is the jobx type every notification job is enqueued under.
const JobType = "notification.send"

var ErrRegistry = errx.NewRegistry("NOTIFICATION")

var (
	CodeInvalidRequest      = ErrRegistry.Register("INVALID_REQUEST", errx.TypeValidation, http.StatusBadRequest, "Invalid notification request")
	CodeEnqueueFailed       = ErrRegistry.Register("ENQUEUE_FAILED", errx.TypeExternal, http.StatusServiceUnavailable, "Notification queue unavailable")
	CodeChannelNotSupported = ErrRegistry.Register("CHANNEL_NOT_SUPPORTED", errx.TypeBusiness, http.StatusUnprocessableEntity, "Notification channel not supported")
	CodeDeliveryFailed      = ErrRegistry.Register("DELIVERY_FAILED", errx.TypeExternal, http.StatusBadGateway, "Notification delivery failed")
	CodeNoDeadline          = ErrRegistry.Register("NO_DEADLINE", errx.TypeBusiness, http.StatusUnprocessableEntity, "Drive has no deadline")
)

func ErrInvalidRequest(reason string) *errx.Error {
	return ErrRegistry.NewWithMessage(CodeInvalidRequest, reason)
}

func ErrEnqueueFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeEnqueueFailed, cause)
}

func ErrChannelNotSupported(ch placement.Channel) *errx.Error {
	return ErrRegistry.New(CodeChannelNotSupported).WithDetail("channel", ch)
}

// Request asks for a user to be notified about an event.
type Request struct {
	UserID    kernel.UserID       `json:"user_id"`
	EventType placement.EventType `json:"event_type"`
	Data      template.Vars       `json:"data,omitempty"`
	// Channels defaults to email only.
	Channels []placement.Channel `json:"channels,omitempty"`
	Priority jobx.Priority       `json:"priority,omitempty"`
	// Delay postpones delivery; zero sends as soon as a worker is free.
	Delay time.Duration `json:"-"`
}

// Payload is the queue-resident job body. One payload exists per channel.
type Payload struct {
	UserID      kernel.UserID       `json:"user_id"`
	EventType   placement.EventType `json:"event_type"`
	Channel     placement.Channel   `json:"channel"`
	Data        map[string]string   `json:"data,omitempty"`
	RequestedAt time.Time           `json:"requested_at"`
}

// Flatten formats every value of vars so the bag survives JSON encoding
// unchanged. Nil values are dropped.
func Flatten(vars template.Vars) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		if s, ok := template.Format(v); ok {
			out[k] = s
		}
	}
	return out
}

// Vars converts the payload data back into a template bag.
func (p Payload) Vars() template.Vars {
	out := make(template.Vars, len(p.Data))
	for k, v := range p.Data {
		out[k] = v
	}
	return out
}
