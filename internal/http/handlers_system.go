package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.appMetrics.started).Round(time.Second).String(),
	})
}

// handleReady checks that the storage backend answers within a short
// deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"storage": "not_configured"}
	status, code := "ready", http.StatusOK

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	sec := s.securityDetector.GetMetrics()
	limit := s.rateLimiter.GetMetrics()
	tr := s.traceMiddleware.GetMetrics()

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", tr.TotalRequests)

	fmt.Fprintf(w, "# HELP http_last_response_seconds Duration of the last request\n")
	fmt.Fprintf(w, "# TYPE http_last_response_seconds gauge\n")
	fmt.Fprintf(w, "http_last_response_seconds %.6f\n\n", tr.LastResponseTime.Seconds())

	fmt.Fprintf(w, "# HELP api_writes_total Accepted write requests\n")
	fmt.Fprintf(w, "# TYPE api_writes_total counter\n")
	fmt.Fprintf(w, "api_writes_total %d\n\n", s.appMetrics.writes.Load())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", limit.TotalHits)

	fmt.Fprintf(w, "# HELP rate_limit_clients Clients tracked by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_clients gauge\n")
	fmt.Fprintf(w, "rate_limit_clients %d\n\n", limit.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Requests matching a suspicious pattern\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", sec.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP blocked_requests_total Requests blocked as suspicious\n")
	fmt.Fprintf(w, "# TYPE blocked_requests_total counter\n")
	fmt.Fprintf(w, "blocked_requests_total %d\n\n", sec.BlockedRequests)

	fmt.Fprintf(w, "# HELP app_uptime_seconds Application uptime\n")
	fmt.Fprintf(w, "# TYPE app_uptime_seconds gauge\n")
	fmt.Fprintf(w, "app_uptime_seconds %.0f\n", s.now().Sub(s.appMetrics.started).Seconds())
}
