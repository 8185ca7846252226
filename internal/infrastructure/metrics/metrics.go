package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Report-bot metrics
var (
	// Inbound webhook updates by outcome
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopfloor",
			Subsystem: "report_bot",
			Name:      "updates_total",
			Help:      "Total inbound Telegram updates",
		},
		[]string{"result"},
	)

	// Finished records appended to the logs
	RecordsAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopfloor",
			Subsystem: "report_bot",
			Name:      "records_appended_total",
			Help:      "Total records appended to the spreadsheet logs",
		},
		[]string{"flow"},
	)

	RecordAppendFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shopfloor",
			Subsystem: "report_bot",
			Name:      "record_append_failures_total",
			Help:      "Total failed record writes",
		},
	)

	// Outbound chat delivery failures
	SendFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shopfloor",
			Subsystem: "report_bot",
			Name:      "send_failures_total",
			Help:      "Total failed outbound chat sends",
		},
	)

	// Conversation table state
	ConversationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "shopfloor",
			Subsystem: "report_bot",
			Name:      "conversations_active",
			Help:      "Conversations currently in flight",
		},
	)

	ConversationsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shopfloor",
			Subsystem: "report_bot",
			Name:      "conversations_expired_total",
			Help:      "Conversations cancelled by the idle sweep",
		},
	)

	// Sheets API latency by operation
	SheetsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shopfloor",
			Subsystem: "report_bot",
			Name:      "sheets_request_duration_seconds",
			Help:      "Google Sheets API request duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// HTTP surface
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shopfloor",
			Subsystem: "report_bot",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
