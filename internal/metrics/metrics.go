// Package metrics holds the Prometheus collectors for relay events.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the relay collectors
type Metrics struct {
	// Relayed counts relay attempts by direction (inbound|outbound) and result (ok|failed)
	Relayed *prometheus.CounterVec
	// Acks counts acknowledgment outcomes (applied|thread_missing|dropped)
	Acks *prometheus.CounterVec
	// Threads counts directory events (created|recreated|failed)
	Threads *prometheus.CounterVec
	// Tickets counts ticket events (issued|redeemed|rejected|refreshed)
	Tickets *prometheus.CounterVec
	// Batches counts flush outcomes (sent|failed|empty)
	Batches *prometheus.CounterVec
	// Pending gauges scheduled deferred tasks that have not finished
	Pending prometheus.Gauge

	// HTTPRequests counts requests by method, route path and status code
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration records request latency by method and route path
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Relayed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_messages_total",
				Help: "Relayed messages by direction and result.",
			},
			[]string{"direction", "result"},
		),
		Acks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_acknowledgments_total",
				Help: "Acknowledgment reaction outcomes.",
			},
			[]string{"result"},
		),
		Threads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_threads_total",
				Help: "Thread directory events.",
			},
			[]string{"event"},
		),
		Tickets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_tickets_total",
				Help: "Verification ticket events.",
			},
			[]string{"event"},
		),
		Batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_batches_total",
				Help: "Attachment batch flush outcomes.",
			},
			[]string{"result"},
		),
		Pending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_deferred_tasks_pending",
				Help: "Deferred tasks scheduled but not yet finished.",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
	reg.MustRegister(
		m.Relayed, m.Acks, m.Threads, m.Tickets, m.Batches, m.Pending,
		m.HTTPRequests, m.HTTPDuration,
	)
	return m
}
