package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vesselpdp/internal/metrics"
)

// Routes returns the service mux wrapped in rate limiting, access logging
// and request metrics.
func (s *Server) Routes() http.Handler {
	metrics.RegisterDefault()
	mux := http.NewServeMux()

	// Instances
	mux.HandleFunc("/v1/instances", s.InstancesHandler)
	mux.HandleFunc("/v1/instances/", s.InstanceByIDHandler) // includes /seed, /events/stream

	// Evaluations
	mux.HandleFunc("/v1/evaluate", s.EvaluateHandler)
	mux.HandleFunc("/v1/evaluations", s.EvaluationsHandler)
	mux.HandleFunc("/v1/evaluations/", s.EvaluationByIDHandler)

	// Event stream over WebSocket
	mux.HandleFunc("/v1/ws", s.WSHandler)

	// Health, metrics, debug
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/info", s.DebugJSON)
	mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("/openapi.json", s.OpenAPIHandler)

	var h http.Handler = mux
	if s.Config.RateRPS > 0 {
		h = newRateLimiter(s.Config.RateRPS, s.Config.RateBurst).middleware(h)
	}
	return accessLog(s.Log, h)
}
