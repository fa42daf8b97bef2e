// Package metrics defines the prometheus collectors exported on /metrics.
// Every recorder tolerates a nil receiver so callers may run without metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// HTTPMetrics tracks request counts and latency per route pattern.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return nil
	}
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *HTTPMetrics) Observe(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	route = label(route)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// OrderMetrics counts checkout outcomes and status transitions.
type OrderMetrics struct {
	checkouts   *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return nil
	}
	m := &OrderMetrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by mode and result.",
		}, []string{"mode", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Applied order status transitions.",
		}, []string{"from", "to"}),
	}
	reg.MustRegister(m.checkouts, m.transitions)
	return m
}

// Checkout records one attempt; mode is cart or item, result is ok or the error code.
func (m *OrderMetrics) Checkout(mode, result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(label(mode), label(result)).Inc()
}

func (m *OrderMetrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(label(from), label(to)).Inc()
}

// OutboxMetrics covers the publisher loop.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	dead      *prometheus.CounterVec
	batch     prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return nil
	}
	m := &OutboxMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox events delivered to the broker.",
		}, []string{"event_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_failures_total",
			Help:      "Failed publish attempts.",
		}, []string{"event_type"}),
		dead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_dead_lettered_total",
			Help:      "Events that exhausted their attempts.",
		}, []string{"event_type"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_batch_duration_seconds",
			Help:      "Duration of one publisher batch.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.published, m.failed, m.dead, m.batch)
	return m
}

func (m *OutboxMetrics) Published(eventType string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(label(eventType)).Inc()
}

func (m *OutboxMetrics) Failed(eventType string) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(label(eventType)).Inc()
}

func (m *OutboxMetrics) DeadLettered(eventType string) {
	if m == nil {
		return
	}
	m.dead.WithLabelValues(label(eventType)).Inc()
}

func (m *OutboxMetrics) ObserveBatch(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batch.Observe(elapsed.Seconds())
}

// JobMetrics tracks maintenance worker jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return nil
	}
	m := &JobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of maintenance jobs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Maintenance job runs by result.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(m.duration, m.runs)
	return m
}

// Observe records one run of job; a nil err counts as ok.
func (m *JobMetrics) Observe(job string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	job = label(job)
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	m.runs.WithLabelValues(job, result).Inc()
}

func label(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
