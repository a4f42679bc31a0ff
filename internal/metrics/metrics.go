package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for Soapbox
type Metrics struct {
	// Cycle counters
	CyclesTotal          *prometheus.CounterVec
	PostsDiscoveredTotal prometheus.Counter
	DraftsGeneratedTotal prometheus.Counter
	RepliesPostedTotal   *prometheus.CounterVec
	PostsSkippedTotal    prometheus.Counter

	// Rate limiting
	RateLimitRejectedTotal *prometheus.CounterVec

	// Campaign gauge
	CampaignsByStatus *prometheus.GaugeVec

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// System metrics
	UptimeSeconds prometheus.Gauge
	Goroutines    prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soapbox_cycles_total",
				Help: "Total number of executed campaign cycles",
			},
			[]string{"outcome"},
		),
		PostsDiscoveredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "soapbox_posts_discovered_total",
				Help: "Total number of newly discovered posts",
			},
		),
		DraftsGeneratedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "soapbox_drafts_generated_total",
				Help: "Total number of generated response drafts",
			},
		),
		RepliesPostedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soapbox_replies_posted_total",
				Help: "Total number of replies posted to a platform",
			},
			[]string{"platform"},
		),
		PostsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "soapbox_posts_skipped_total",
				Help: "Total number of posting attempts deferred by rate limits",
			},
		),

		RateLimitRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soapbox_ratelimit_rejected_total",
				Help: "Total number of rate limit rejections",
			},
			[]string{"platform"},
		),

		CampaignsByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "soapbox_campaigns",
				Help: "Number of campaigns by status",
			},
			[]string{"status"},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soapbox_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "soapbox_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soapbox_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "soapbox_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "soapbox_goroutines",
				Help: "Number of active goroutines",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.PostsDiscoveredTotal,
		m.DraftsGeneratedTotal,
		m.RepliesPostedTotal,
		m.PostsSkippedTotal,
		m.RateLimitRejectedTotal,
		m.CampaignsByStatus,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.UptimeSeconds,
		m.Goroutines,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// ObserveCycle records the counts of one completed cycle
func ObserveCycle(outcome string, discovered, generated, skipped int) {
	m := Global()
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.PostsDiscoveredTotal.Add(float64(discovered))
	m.DraftsGeneratedTotal.Add(float64(generated))
	m.PostsSkippedTotal.Add(float64(skipped))
}

// IncRepliesPosted increments the posted reply counter
func IncRepliesPosted(platform string) {
	m := Global()
	if m != nil {
		m.RepliesPostedTotal.WithLabelValues(platform).Inc()
	}
}

// IncRateLimitRejected increments the rate limit rejection counter
func IncRateLimitRejected(platform string) {
	m := Global()
	if m != nil {
		m.RateLimitRejectedTotal.WithLabelValues(platform).Inc()
	}
}

// IncAPIErrors increments API error counter
func IncAPIErrors(errorType string) {
	m := Global()
	if m != nil {
		m.APIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
