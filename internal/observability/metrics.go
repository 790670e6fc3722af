package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes Prometheus counters for the detection loop and the
// crisis lifecycle.
type Metrics struct {
	registry        *prometheus.Registry
	monitorRuns     *prometheus.CounterVec
	monitorDuration prometheus.Histogram
	crisesDetected  *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpErrors      *prometheus.CounterVec
}

// Monitor run outcomes recorded per pass.
const (
	OutcomeDetected     = "detected"
	OutcomeNoAnomaly    = "no_anomaly"
	OutcomeInsufficient = "insufficient_data"
	OutcomeSkipped      = "skipped"
	OutcomeError        = "error"
)

// NewMetrics builds a collector backed by a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	monitorRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crisis",
		Subsystem: "monitor",
		Name:      "runs_total",
		Help:      "Monitor passes by outcome.",
	}, []string{"outcome"})

	monitorDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crisis",
		Subsystem: "monitor",
		Name:      "run_duration_seconds",
		Help:      "Latency distribution of single-tenant monitor passes.",
		Buckets:   prometheus.DefBuckets,
	})

	crisesDetected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crisis",
		Subsystem: "monitor",
		Name:      "crises_detected_total",
		Help:      "New crises persisted, by type and severity.",
	}, []string{"type", "severity"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crisis",
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Applied lifecycle transitions, by target status.",
	}, []string{"to_status"})

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crisis",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests, by route, method and status.",
	}, []string{"path", "method", "status"})

	httpErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crisis",
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "HTTP error responses, by route, method and error code.",
	}, []string{"path", "method", "code"})

	for _, c := range []prometheus.Collector{monitorRuns, monitorDuration, crisesDetected, transitions, httpRequests, httpErrors} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Metrics{
		registry:        registry,
		monitorRuns:     monitorRuns,
		monitorDuration: monitorDuration,
		crisesDetected:  crisesDetected,
		transitions:     transitions,
		httpRequests:    httpRequests,
		httpErrors:      httpErrors,
	}, nil
}

// RecordMonitorRun records one monitor pass.
func (m *Metrics) RecordMonitorRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.monitorRuns.WithLabelValues(outcome).Inc()
	m.monitorDuration.Observe(duration.Seconds())
}

// RecordCrisisDetected counts a newly persisted crisis.
func (m *Metrics) RecordCrisisDetected(crisisType, severity string) {
	if m == nil {
		return
	}
	m.crisesDetected.WithLabelValues(crisisType, severity).Inc()
}

// RecordTransition counts an applied lifecycle transition.
func (m *Metrics) RecordTransition(toStatus string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(toStatus).Inc()
}

// RecordRequest counts a completed HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

// RecordError counts an HTTP error response.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(path, method, code).Inc()
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
