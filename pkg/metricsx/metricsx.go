// Package metricsx holds the Prometheus collectors shared by the job queue,
// the notification pipeline and the campaign sender.
package metricsx

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ─── Job queue ────────────────────────────────────────────────────────────

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "jobx_jobs_processed_total", Help: "Jobs processed by outcome"},
		[]string{"type", "outcome"},
	)
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobx_job_duration_seconds",
			Help:    "Time spent inside job handlers",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)
	JobsRequeued = promauto.NewCounter(
		prometheus.CounterOpts{Name: "jobx_jobs_requeued_total", Help: "Stalled jobs returned to their queue"},
	)

	// ─── Notifications ────────────────────────────────────────────────────────

	NotificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "placement_notifications_enqueued_total", Help: "Notification jobs enqueued"},
		[]string{"event", "channel"},
	)
	NotificationsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "placement_notifications_suppressed_total", Help: "Notifications dropped by user settings"},
		[]string{"event", "channel"},
	)

	// ─── Delivery gateway ─────────────────────────────────────────────────────

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "placement_deliveries_total", Help: "Delivery attempts by final status"},
		[]string{"status"},
	)
	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "placement_delivery_duration_seconds",
			Help:    "End-to-end delivery time including retries",
			Buckets: prometheus.DefBuckets,
		},
	)
	GatewayDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{Name: "placement_gateway_degraded", Help: "1 while the mail transport is failing repeatedly"},
	)

	// ─── Campaigns ────────────────────────────────────────────────────────────

	CampaignRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "placement_campaign_runs_total", Help: "Campaign runs by final status"},
		[]string{"status"},
	)
	CampaignRecipients = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "placement_campaign_recipients_total", Help: "Campaign recipients by outcome"},
		[]string{"outcome"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }
