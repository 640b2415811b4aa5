package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatterbox_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatterbox_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatterbox_messages_created_total",
			Help: "Total messages created",
		},
	)

	MessagesUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatterbox_messages_updated_total",
			Help: "Total messages updated",
		},
	)

	MessagesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatterbox_messages_deleted_total",
			Help: "Total messages deleted",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatterbox_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
	)
)
