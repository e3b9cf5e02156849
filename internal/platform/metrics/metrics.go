package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Every method is
// safe to call on a nil receiver so components can run without metrics.
type Metrics struct {
	UsersCreated prometheus.Counter
	AuthFailures *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	StageLatency  *prometheus.HistogramVec
	StageOutcomes *prometheus.CounterVec

	ProfileLookups  *prometheus.CounterVec
	SnippetFetches  *prometheus.CounterVec
	MessagesSent    prometheus.Counter
	MessagesFailed  prometheus.Counter
	SnippetCacheHit *prometheus.CounterVec
}

// New creates and registers all metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "courier_users_created_total",
			Help: "Total number of principals registered",
		}),
		AuthFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_auth_failures_total",
			Help: "Rejected credentials by internal cause (never exposed to callers)",
		}, []string{"cause"}), // cause: "missing", "invalid", "unknown_identity"

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_http_requests_total",
			Help: "HTTP requests by route pattern, method and status",
		}, []string{"route", "method", "status"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "courier_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "courier_notify_stage_duration_seconds",
			Help:    "Duration of each notify pipeline stage",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"stage"}),
		StageOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_notify_stage_outcomes_total",
			Help: "Notify pipeline stage outcomes",
		}, []string{"stage", "outcome"}),

		ProfileLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_profile_lookups_total",
			Help: "Profile directory lookups by result",
		}, []string{"result"}), // result: "found", "not_found", "error"
		SnippetFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_context_fetches_total",
			Help: "Context source fetches by result",
		}, []string{"result"}),
		MessagesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "courier_messages_sent_total",
			Help: "Outbound messages accepted by the transport",
		}),
		MessagesFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "courier_messages_failed_total",
			Help: "Outbound messages rejected by the transport",
		}),
		SnippetCacheHit: f.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_context_cache_total",
			Help: "Context snippet cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss"
	}
}

// IncrementUsersCreated increments the users created counter by 1
func (m *Metrics) IncrementUsersCreated() {
	if m != nil {
		m.UsersCreated.Inc()
	}
}

func (m *Metrics) IncrementAuthFailure(cause string) {
	if m != nil {
		m.AuthFailures.WithLabelValues(cause).Inc()
	}
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(route, method, statusClass(status)).Inc()
		m.HTTPLatency.WithLabelValues(route).Observe(d.Seconds())
	}
}

// ObserveStage records the duration and outcome of a pipeline stage.
func (m *Metrics) ObserveStage(stage, outcome string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
		m.StageOutcomes.WithLabelValues(stage, outcome).Inc()
	}
}

func (m *Metrics) IncrementProfileLookup(result string) {
	if m != nil {
		m.ProfileLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementSnippetFetch(result string) {
	if m != nil {
		m.SnippetFetches.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementSnippetCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.SnippetCacheHit.WithLabelValues("hit").Inc()
		return
	}
	m.SnippetCacheHit.WithLabelValues("miss").Inc()
}

// ObserveSend records a single outbound transport call.
func (m *Metrics) ObserveSend(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.MessagesFailed.Inc()
		return
	}
	m.MessagesSent.Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
