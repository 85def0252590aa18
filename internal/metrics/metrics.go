// Package metrics holds the Prometheus collectors of the monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for MessagesProcessed
const (
	ResultMatched   = "matched"
	ResultUnmatched = "unmatched"
	ResultDuplicate = "duplicate"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

var (
	// Ingestion
	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_messages_ingested_total",
			Help: "Messages accepted into the ingest queue",
		},
		[]string{"source"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monitor_queue_depth",
			Help: "Messages waiting in the ingest queue",
		},
	)

	// Processing
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_messages_processed_total",
			Help: "Messages handled by workers, by result",
		},
		[]string{"result"},
	)

	Matches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_matches_total",
			Help: "Keyword matches, by detection source (text, image)",
		},
		[]string{"source"},
	)

	WorkerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_worker_panics_total",
			Help: "Panics recovered while processing a message",
		},
	)

	OCRDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "monitor_ocr_duration_seconds",
			Help:    "Duration of image text extraction",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Notification
	AlertsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_alerts_sent_total",
			Help: "Alerts handed to the notifier",
		},
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_alerts_suppressed_total",
			Help: "Alerts suppressed because an identical alert was recently sent",
		},
	)

	DeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_delivery_failures_total",
			Help: "Failed deliveries to the notification destination",
		},
		[]string{"kind"}, // alert, summary, report, reply
	)

	// Reports
	SummariesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_daily_summaries_sent_total",
			Help: "Daily summary messages sent",
		},
	)

	SummaryBufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monitor_summary_buffer_size",
			Help: "Alerts waiting for the next daily summary",
		},
	)

	KeywordCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monitor_keywords",
			Help: "Number of monitored keywords",
		},
	)

	CommandsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_commands_total",
			Help: "Administrative commands handled",
		},
		[]string{"command"},
	)
)
