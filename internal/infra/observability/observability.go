// Package observability exposes Prometheus metrics for the realtime core:
// connection counts, delivery outcomes, retry sweeps, and credit operations.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Connection Metrics ─────────────────────────────────────────────────────

// ConnectedSellers tracks the number of currently registered seller sockets.
var ConnectedSellers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "liveshop",
	Subsystem: "ws",
	Name:      "connected_sellers",
	Help:      "Number of sellers with a live authenticated connection.",
})

// HandshakeFailures tracks rejected connection attempts by reason.
var HandshakeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "liveshop",
	Subsystem: "ws",
	Name:      "handshake_failures_total",
	Help:      "Total websocket handshakes rejected, by reason.",
}, []string{"reason"})

// ConnectionsReplaced tracks replace-on-reconnect events.
var ConnectionsReplaced = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "liveshop",
	Subsystem: "ws",
	Name:      "connections_replaced_total",
	Help:      "Total prior connections closed in favor of a new one for the same seller.",
})

// HeartbeatTimeouts tracks sockets dropped for missing pongs.
var HeartbeatTimeouts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "liveshop",
	Subsystem: "ws",
	Name:      "heartbeat_timeouts_total",
	Help:      "Total connections closed after a missed heartbeat.",
})

// ─── Delivery Metrics ───────────────────────────────────────────────────────

// EventsDelivered tracks delivered events by channel (unicast/broadcast).
var EventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "liveshop",
	Subsystem: "events",
	Name:      "delivered_total",
	Help:      "Total events delivered to connected sellers, by channel.",
}, []string{"channel"})

// EventsStored tracks seller-scoped events handed to the retry store.
var EventsStored = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "liveshop",
	Subsystem: "events",
	Name:      "stored_for_retry_total",
	Help:      "Total seller-scoped events recorded for later delivery.",
})

// RetryAttempts tracks sweep delivery attempts by outcome.
var RetryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "liveshop",
	Subsystem: "retry",
	Name:      "attempts_total",
	Help:      "Total retry delivery attempts, by outcome.",
}, []string{"outcome"})

// DeadNotifications tracks notifications that exhausted their retry budget.
var DeadNotifications = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "liveshop",
	Subsystem: "retry",
	Name:      "dead_notifications_total",
	Help:      "Total notifications left undelivered after max retries.",
})

// ─── Credit Metrics ─────────────────────────────────────────────────────────

// CreditConsumes tracks consume calls by outcome.
var CreditConsumes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "liveshop",
	Subsystem: "credits",
	Name:      "consume_total",
	Help:      "Total credit consume operations, by outcome.",
}, []string{"outcome"})
