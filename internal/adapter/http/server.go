package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mayank-kumar-sharma/soil-data-service/internal/domain"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/observability"
)

// PropertyResolver resolves every soil property for a coordinate.
type PropertyResolver interface {
	ResolveAll(ctx context.Context, coord domain.Coordinate) []domain.Resolution
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the soil data API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	resolver   PropertyResolver
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /soil-data, /health, /healthz,
// /readyz, and /metrics routes. A nil ready checker reports ready.
func NewServer(addr string, resolver PropertyResolver, ready ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// A full fallback sweep against a slow provider can take minutes.
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		resolver: resolver,
		metrics:  metrics,
		logger:   logger,
	}

	mux.HandleFunc("GET /soil-data", s.handleSoilData)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleLiveness)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSoilData(w http.ResponseWriter, r *http.Request) {
	lat, err := parseCoordinateParam(r, "lat")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	lon, err := parseCoordinateParam(r, "lon")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	coord := domain.Coordinate{Lat: lat, Lon: lon}
	s.logger.Debug("resolving soil data", "lat", lat, "lon", lon)

	resolutions := s.resolver.ResolveAll(r.Context(), coord)
	for _, res := range resolutions {
		s.metrics.Resolutions.WithLabelValues(string(res.Property), res.Source).Inc()
		s.metrics.ResolutionAttempts.Observe(float64(res.Attempts))
	}

	writeJSON(w, http.StatusOK, domain.BuildSoilReport(coord, resolutions))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "SoilGrids API wrapper running",
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func parseCoordinateParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing required query parameter %q", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid value for %q: must be a finite number", name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
