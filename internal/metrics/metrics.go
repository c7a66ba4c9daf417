package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the service.
type Registry struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Severity resolution
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	PredictCallsTotal   *prometheus.CounterVec
	PredictCallDuration prometheus.Histogram

	// Planning
	RoutesPlannedTotal *prometheus.CounterVec
	AreasSkippedTotal  prometheus.Counter

	// SOS
	SOSAlertsTotal prometheus.Counter

	registry *prometheus.Registry
}

func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.initHTTPMetrics()
	r.initSeverityMetrics()
	r.initPlanningMetrics()
	return r
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aegis_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}

func (r *Registry) initSeverityMetrics() {
	r.CacheHitsTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "aegis_severity_cache_hits_total",
		Help: "Severity lookups served from cache",
	})

	r.CacheMissesTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "aegis_severity_cache_misses_total",
		Help: "Severity lookups that required a prediction call",
	})

	r.PredictCallsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_predict_calls_total",
			Help: "Outbound prediction calls by result",
		},
		[]string{"result"},
	)

	r.PredictCallDuration = promauto.With(r.registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "aegis_predict_call_duration_seconds",
		Help:    "Prediction call latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
}

func (r *Registry) initPlanningMetrics() {
	r.RoutesPlannedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_routes_planned_total",
			Help: "Route options returned by preference",
		},
		[]string{"preference"},
	)

	r.AreasSkippedTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "aegis_route_areas_skipped_total",
		Help: "Route areas dropped because their severity could not be resolved",
	})

	r.SOSAlertsTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "aegis_sos_alerts_total",
		Help: "SOS alerts accepted",
	})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request.
func (r *Registry) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (r *Registry) RecordPredictCall(err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.PredictCallsTotal.WithLabelValues(result).Inc()
	r.PredictCallDuration.Observe(duration.Seconds())
}
