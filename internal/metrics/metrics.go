package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Message log
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_messages_sent_total",
			Help: "Total messages appended to the log",
		},
		[]string{"kind"}, // "direct" or "channel"
	)

	MessagesMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "convo_messages_marked_read_total",
			Help: "Total messages transitioned to read",
		},
	)

	// Live delivery
	PollTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "convo_poll_ticks_total",
			Help: "Total poll ticks executed across subscriptions",
		},
	)

	PollCallbackFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "convo_poll_callback_failures_total",
			Help: "Total subscription callbacks that panicked",
		},
	)

	// Dashboard API
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
