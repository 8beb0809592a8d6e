// Package api exposes the dashboard pipeline over HTTP. Authentication and
// tenant management live in front of this service; the handlers here only
// translate between URLs and the dashboards package.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/soportek/atalaya/internal/classify"
	"github.com/soportek/atalaya/internal/dashboards"
	"github.com/soportek/atalaya/internal/errors"
	"github.com/soportek/atalaya/internal/logging"
	"github.com/soportek/atalaya/internal/metrics"
)

// Router handles HTTP routing.
type Router struct {
	mux     *http.ServeMux
	service *dashboards.Service
}

// NewRouter creates the HTTP handler for the dashboard API.
func NewRouter(service *dashboards.Service) http.Handler {
	r := &Router{
		mux:     http.NewServeMux(),
		service: service,
	}
	r.setupRoutes()
	return withRequestLogging(r.mux)
}

func (r *Router) setupRoutes() {
	r.mux.HandleFunc("/api/health", r.handleHealth)
	r.mux.HandleFunc("/api/dashboards/", r.handleDashboards)
	r.mux.HandleFunc("/api/sensors/", r.handleSensorDetail)
	r.mux.Handle("/metrics", promhttp.Handler())
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDashboards serves both /api/dashboards/{probe} (availability) and
// /api/dashboards/{probe}/{domain} (one built view).
func (r *Router) handleDashboards(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(req.URL.Path, "/api/dashboards/"), "/")
	if rest == "" {
		http.Error(w, "Tenant is required", http.StatusBadRequest)
		return
	}

	parts := strings.SplitN(rest, "/", 2)
	probe := parts[0]

	if len(parts) == 1 {
		domains, err := r.service.Available(req.Context(), probe)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"dashboards": domains})
		return
	}

	domain := parts[1]
	if !classify.Valid(domain) {
		http.Error(w, "Unknown dashboard", http.StatusNotFound)
		return
	}

	view, err := r.service.Build(req.Context(), classify.Domain(domain), probe)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSensorDetail serves the drill-down lookup for one sensor. The lookup
// is best-effort upstream, so an unavailable sensor is a 404, not a 5xx.
func (r *Router) handleSensorDetail(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.Trim(strings.TrimPrefix(req.URL.Path, "/api/sensors/"), "/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Sensor id must be numeric", http.StatusBadRequest)
		return
	}

	detail, err := r.service.SensorDetail(req.Context(), id)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if detail == nil {
		http.Error(w, "Sensor detail unavailable", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// writeUpstreamError maps the gateway error taxonomy onto response codes: a
// slow backend is 504, everything else upstream is 502.
func writeUpstreamError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.IsTimeout(err) {
		status = http.StatusGatewayTimeout
	}
	log.Error().Err(err).Msg("Dashboard request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLogging tags every request with an ID, logs it, and records
// the duration metric.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx, requestID := logging.WithRequestID(req.Context(), req.Header.Get("X-Request-ID"))
		w.Header().Set("X-Request-ID", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, req.WithContext(ctx))
		elapsed := time.Since(start)

		metrics.HTTPRequestDuration.
			WithLabelValues(metricPath(req.URL.Path), http.StatusText(recorder.status)).
			Observe(elapsed.Seconds())

		log.Debug().
			Str("requestID", requestID).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", recorder.status).
			Dur("elapsed", elapsed).
			Msg("Request served")
	})
}

// metricPath collapses tenant-specific paths so the metric cardinality stays
// bounded.
func metricPath(path string) string {
	if strings.HasPrefix(path, "/api/dashboards/") {
		return "/api/dashboards"
	}
	if strings.HasPrefix(path, "/api/sensors/") {
		return "/api/sensors"
	}
	return path
}
