// Package delivery wraps the mail transport with per-attempt timeouts,
// bounded retries for transient failures and the global email toggle.
package delivery

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Abraxas-365/placement/pkg/asyncx"
	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/metricsx"
	"github.com/Abraxas-365/placement/pkg/notifx"
	"github.com/Abraxas-365/placement/pkg/placement/settings"
)

var ErrRegistry = errx.NewRegistry("DELIVERY")

var (
	CodeDeliveryFailed = ErrRegistry.Register("FAILED", errx.TypeExternal, http.StatusBadGateway, "Email delivery failed")
	CodeSettings       = ErrRegistry.Register("SETTINGS", errx.TypeInternal, http.StatusInternalServerError, "Could not read notification settings")
)

// Status is the final state of one delivery.
type Status string

const (
	StatusSent       Status = "SENT"
	StatusSuppressed Status = "SUPPRESSED"
	StatusFailed     Status = "FAILED"
)

// Message is one email addressed to a single recipient.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []notifx.Attachment
	Tags        map[string]string
}

// Outcome reports what happened to a Message. Failures are values, never
// panics, so callers decide between recording, retrying and dropping.
type Outcome struct {
	Status    Status
	MessageID string
	Attempts  int
	Err       error
}

// Sent reports a successful delivery.
func (o Outcome) Sent() bool { return o.Status == StatusSent }

// Retryable reports a failure that a later attempt might fix.
func (o Outcome) Retryable() bool {
	return o.Status == StatusFailed && notifx.IsTransient(o.Err)
}

// Deliverer sends a message and reports the outcome.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) Outcome
}

// Options tunes the gateway.
type Options struct {
	From             string
	ConfigID         string
	Timeout          time.Duration
	Attempts         int
	Backoff          time.Duration
	MaxBackoff       time.Duration
	FailureThreshold int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Second
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 5
	}
	return o
}

// Gateway is the Deliverer backed by a notifx provider.
type Gateway struct {
	client   *notifx.Client
	settings settings.Provider
	opts     Options

	consecutiveFailures atomic.Int32
}

func NewGateway(sender notifx.EmailSender, provider settings.Provider, opts Options) *Gateway {
	return &Gateway{
		client:   notifx.NewClient(sender),
		settings: provider,
		opts:     opts.withDefaults(),
	}
}

// Deliver sends msg unless email is disabled system-wide. Transient errors
// are retried with exponential backoff up to Options.Attempts.
func (g *Gateway) Deliver(ctx context.Context, msg Message) Outcome {
	current, err := g.settings.Current(ctx)
	if err != nil {
		metricsx.Deliveries.WithLabelValues(string(StatusFailed)).Inc()
		return Outcome{Status: StatusFailed, Err: ErrRegistry.NewWithCause(CodeSettings, err)}
	}
	if !current.EmailEnabled {
		logx.WithField("to", msg.To).Debug("delivery: email disabled, suppressed")
		metricsx.Deliveries.WithLabelValues(string(StatusSuppressed)).Inc()
		return Outcome{Status: StatusSuppressed}
	}

	email := notifx.EmailMessage{
		From:        g.opts.From,
		To:          []string{msg.To},
		Subject:     msg.Subject,
		HTMLBody:    msg.Body,
		Attachments: msg.Attachments,
	}
	sendOpts := []notifx.Option{notifx.WithTags(msg.Tags)}
	if g.opts.ConfigID != "" {
		sendOpts = append(sendOpts, notifx.WithConfigID(g.opts.ConfigID))
	}

	start := time.Now()
	id, attempts, err := asyncx.RetryWithBackoff(ctx, g.opts.Attempts, g.opts.Backoff,
		func(ctx context.Context) (string, error) {
			return asyncx.WithTimeout(ctx, g.opts.Timeout, func(ctx context.Context) (string, error) {
				return g.client.SendEmail(ctx, email, sendOpts...)
			})
		},
		asyncx.WithShouldRetry(notifx.IsTransient),
		asyncx.WithMaxDelay(g.opts.MaxBackoff),
		asyncx.WithOnRetry(func(attempt int, err error) {
			logx.WithError(err).WithField("to", msg.To).Debugf("delivery: attempt %d failed, retrying", attempt)
		}),
	)
	metricsx.DeliveryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		g.recordFailure()
		metricsx.Deliveries.WithLabelValues(string(StatusFailed)).Inc()
		return Outcome{
			Status:   StatusFailed,
			Attempts: attempts,
			Err: ErrRegistry.NewWithCause(CodeDeliveryFailed, err).
				WithDetail("to", msg.To).
				WithDetail("attempts", attempts),
		}
	}

	g.recordSuccess()
	metricsx.Deliveries.WithLabelValues(string(StatusSent)).Inc()
	return Outcome{Status: StatusSent, MessageID: id, Attempts: attempts}
}

// Verify checks the transport without sending.
func (g *Gateway) Verify(ctx context.Context) error {
	return g.client.Verify(ctx)
}

// Degraded reports that the last FailureThreshold deliveries all failed.
func (g *Gateway) Degraded() bool {
	return int(g.consecutiveFailures.Load()) >= g.opts.FailureThreshold
}

func (g *Gateway) recordFailure() {
	n := g.consecutiveFailures.Add(1)
	if int(n) == g.opts.FailureThreshold {
		metricsx.GatewayDegraded.Set(1)
		logx.Errorf("delivery: %d consecutive failures, mail transport degraded", n)
	}
}

func (g *Gateway) recordSuccess() {
	if g.consecutiveFailures.Swap(0) >= int32(g.opts.FailureThreshold) {
		metricsx.GatewayDegraded.Set(0)
		logx.Info("delivery: mail transport recovered")
	}
}
