// Package metrics holds the Prometheus collectors for the HTTP surface, the
// login flow and the upgrade controller.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aidaco/wwwmin/internal/application"
	"github.com/aidaco/wwwmin/internal/domain/model"
)

const namespace = "wwwmin"

// Outcome label values shared by the counters.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
	OutcomeIgnored  = "ignored"
	OutcomeAccepted = "accepted"
)

// Compile-time interface satisfaction check.
var _ application.UpgradeObserver = (*Metrics)(nil)

// Metrics owns a private registry so tests and multiple instances never
// collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.HistogramVec
	logins       *prometheus.CounterVec
	webhooks     *prometheus.CounterVec
	upgrades     *prometheus.CounterVec
	taskFailures prometheus.Counter
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Histogram of latencies for HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "code"},
		),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "login_attempts_total",
				Help:      "Login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		webhooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "events_total",
				Help:      "Source-control webhook deliveries by event kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		upgrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upgrade",
				Name:      "sequences_total",
				Help:      "Upgrade controller sequences by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		taskFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tasks",
				Name:      "failures_total",
				Help:      "Background tasks that returned an error.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.logins,
		m.webhooks,
		m.upgrades,
		m.taskFailures,
	)
	m.initialize()

	return m
}

// initialize sets the known label combinations to zero so they are exported
// before the first event.
func (m *Metrics) initialize() {
	for _, o := range []string{OutcomeSuccess, OutcomeFailure, OutcomeError} {
		m.logins.WithLabelValues(o)
	}
	for _, kind := range []model.EventKind{model.EventKindPing, model.EventKindPush, model.EventKindOther} {
		for _, o := range []string{OutcomeAccepted, OutcomeIgnored, OutcomeRejected} {
			m.webhooks.WithLabelValues(string(kind), o)
		}
	}
	actions := []model.UpgradeAction{model.UpgradeActionUpgrade, model.UpgradeActionRestart, model.UpgradeActionShutdown}
	for _, a := range actions {
		for _, o := range []string{"succeeded", "failed", OutcomeRejected} {
			m.upgrades.WithLabelValues(string(a), o)
		}
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records a finished request. route is the matched mux pattern.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObserveLogin records a login attempt.
func (m *Metrics) ObserveLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// ObserveWebhook records a webhook delivery.
func (m *Metrics) ObserveWebhook(kind model.EventKind, outcome string) {
	m.webhooks.WithLabelValues(string(kind), outcome).Inc()
}

// ObserveUpgrade records the end of an upgrade controller sequence.
func (m *Metrics) ObserveUpgrade(action model.UpgradeAction, outcome string) {
	m.upgrades.WithLabelValues(string(action), outcome).Inc()
}

// ObserveTaskFailure records a background task error.
func (m *Metrics) ObserveTaskFailure() {
	m.taskFailures.Inc()
}
