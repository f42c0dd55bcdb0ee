package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Evaluations counts evaluator runs by outcome: feasible, infeasible or invalid
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pdp_evaluations_total", Help: "Solution evaluations by outcome."},
		[]string{"outcome"},
	)
	// EvaluationDuration tracks evaluator latency in seconds, cache hits excluded
	EvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "pdp_evaluation_duration_seconds", Help: "Evaluator run time in seconds.", Buckets: []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 0.1, 1}},
	)
	// CacheLookups counts evaluation cache lookups by result: hit, miss or error
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pdp_cache_lookups_total", Help: "Evaluation cache lookups by result."},
		[]string{"result"},
	)
	// InstancesLoaded counts instance uploads by status: ok or malformed
	InstancesLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pdp_instances_loaded_total", Help: "Instance uploads by status."},
		[]string{"status"},
	)
	// StreamSubscribers is the number of open SSE and WebSocket subscriptions
	StreamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "pdp_stream_subscribers", Help: "Open event stream subscriptions."},
	)
	// WebhookDeliveries counts webhook attempts by result: delivered, retry, failed or dropped
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pdp_webhook_deliveries_total", Help: "Webhook delivery attempts by result."},
		[]string{"result"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Evaluations)
		Registry.MustRegister(EvaluationDuration)
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(InstancesLoaded)
		Registry.MustRegister(StreamSubscribers)
		Registry.MustRegister(WebhookDeliveries)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
