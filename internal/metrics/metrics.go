package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Broker Metrics
var (
	// StockRequestsQueuedTotal tracks stock requests accepted into the queue
	StockRequestsQueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_requests_queued_total",
			Help: "Total stock requests published to the broker queue",
		},
	)

	// StockResponsesPublishedTotal tracks responses fanned out by delivery outcome
	StockResponsesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_responses_published_total",
			Help: "Total stock responses published, by delivery outcome (delivered/dropped)",
		},
		[]string{"outcome"},
	)

	// StockHandlerErrorsTotal tracks response handlers that failed or panicked
	StockHandlerErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_handler_errors_total",
			Help: "Total room response handlers that returned an error or panicked",
		},
	)

	// BrokerQueueDepth tracks the current number of pending stock requests
	BrokerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broker_queue_depth",
			Help: "Current number of stock requests waiting in the broker queue",
		},
	)
)

// Quote Provider Metrics
var (
	// QuoteRequestDuration tracks upstream quote request latency in seconds
	QuoteRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quote_request_duration_seconds",
			Help:    "Upstream quote request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// QuoteRequestsTotal tracks upstream quote requests by outcome
	QuoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_requests_total",
			Help: "Total upstream quote requests by outcome (success/error)",
		},
		[]string{"outcome"},
	)
)

// WebSocket Metrics
var (
	// WebsocketConnectedClients tracks currently connected WebSocket clients
	WebsocketConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connected_clients",
			Help: "Number of currently connected WebSocket clients",
		},
	)

	// WebsocketActiveRooms tracks rooms with at least one connected client
	WebsocketActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_active_rooms",
			Help: "Number of rooms with at least one connected client",
		},
	)
)

// Chat Metrics
var (
	// ChatMessagesTotal tracks persisted chat messages
	ChatMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages persisted and broadcast",
		},
	)

	// StockCommandsTotal tracks recognized stock commands by outcome
	StockCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_commands_total",
			Help: "Total stock commands by outcome (accepted/invalid/rate_limited)",
		},
		[]string{"outcome"},
	)
)
