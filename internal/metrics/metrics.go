package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "fulfillrelay"

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	webhooks          *prometheus.CounterVec
	submissions       *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	tasks             *prometheus.CounterVec
	sweepDuration     *prometheus.HistogramVec
	approvalChecks    *prometheus.CounterVec
}

// New registers the collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Inbound webhooks by source and result.",
		}, []string{"source", "result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Provider submissions by provider and result.",
		}, []string{"provider", "result"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Persisted fulfillment status changes.",
		}, []string{"provider", "status"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Queue tasks handled by type and result.",
		}, []string{"type", "result"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of scheduled sweep steps.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		approvalChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_checks_total",
			Help:      "Check run reconciliation outcomes.",
		}, []string{"action"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.webhooks,
		m.submissions,
		m.statusTransitions,
		m.tasks,
		m.sweepDuration,
		m.approvalChecks,
	)
	return m
}

// Registry exposes the registry for the scrape handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Webhook(source, result string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(source, result).Inc()
}

func (m *Metrics) Submission(provider string, success bool) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(provider, outcome(success)).Inc()
}

func (m *Metrics) StatusTransition(provider, status string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) Task(taskType string, err error) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(taskType, outcome(err == nil)).Inc()
}

func (m *Metrics) SweepStep(step string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
}

func (m *Metrics) ApprovalCheck(action string) {
	if m == nil {
		return
	}
	m.approvalChecks.WithLabelValues(action).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
