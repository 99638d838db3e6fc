// Package http exposes the service API: the aggregated event window query,
// the two point hazard queries, the regional risk-zone profile, and the
// health and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tremorlab/quake-hazard-service/internal/aggregate"
	"github.com/tremorlab/quake-hazard-service/internal/hazard"
	"github.com/tremorlab/quake-hazard-service/internal/observability"
)

// EventQuerier answers event-window queries. Implemented by
// aggregate.Service; narrowed to an interface so handler tests can script
// results.
type EventQuerier interface {
	CityEvents(ctx context.Context, q aggregate.Query) aggregate.Result
}

// Server exposes the service HTTP endpoints. The hazard indexes may be nil
// when their dataset failed to load; the affected endpoints then answer 503
// while everything else keeps serving.
type Server struct {
	httpServer *http.Server
	events     EventQuerier
	raster     *hazard.RasterIndex
	faults     *hazard.FaultIndex
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates the API server.
func NewServer(addr string, events EventQuerier, raster *hazard.RasterIndex, faults *hazard.FaultIndex, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		events:  events,
		raster:  raster,
		faults:  faults,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /earthquakes", s.handleEarthquakes)
	mux.HandleFunc("GET /vs30", s.handleVs30)
	mux.HandleFunc("GET /fault-distance", s.handleFaultDistance)
	mux.HandleFunc("GET /risk-zone", s.handleRiskZone)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
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

func (s *Server) handleEarthquakes(w http.ResponseWriter, r *http.Request) {
	q := aggregate.Query{City: r.URL.Query().Get("city")}

	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("days must be a positive integer"))
			return
		}
		q.LookbackDays = days
	}
	if raw := r.URL.Query().Get("minmag"); raw != "" {
		minMag, err := strconv.ParseFloat(raw, 64)
		if err != nil || minMag < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("minmag must be a non-negative number"))
			return
		}
		q.MinMagnitude = &minMag
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		q.LimitPerSource = limit
	}

	// Never fails: provider outages surface through sourceMeta.
	writeJSON(w, http.StatusOK, s.events.CityEvents(r.Context(), q))
}

func (s *Server) handleVs30(w http.ResponseWriter, r *http.Request) {
	if s.raster == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("vs30 raster is not loaded"))
		return
	}

	lat, lon, ok := coordParams(w, r)
	if !ok {
		return
	}

	vs30, class := s.raster.Lookup(lat, lon)
	if vs30 == nil {
		s.metrics.HazardLookups.WithLabelValues("vs30", "no_coverage").Inc()
	} else {
		s.metrics.HazardLookups.WithLabelValues("vs30", "ok").Inc()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lat":       lat,
		"lon":       lon,
		"vs30":      vs30,
		"soilClass": class,
		"unit":      "m/s",
	})
}

func (s *Server) handleFaultDistance(w http.ResponseWriter, r *http.Request) {
	if s.faults == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("fault geometry is not loaded"))
		return
	}

	lat, lon, ok := coordParams(w, r)
	if !ok {
		return
	}

	p := s.faults.Nearest(lat, lon)
	s.metrics.HazardLookups.WithLabelValues("fault", "ok").Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"lat":             lat,
		"lon":             lon,
		"distance_km":     math.Round(p.DistanceKm*100) / 100,
		"proximity_score": p.Score,
		"level":           p.Level,
		"note":            "distance to the nearest mapped fault segment",
	})
}

func (s *Server) handleRiskZone(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := coordParams(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, hazard.RiskForCoords(lat, lon))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"vs30":   s.raster != nil,
		"faults": s.faults != nil,
	})
}

// coordParams parses the required lat/lon query parameters. Missing or
// non-numeric values are rejected with a 400 before any dataset is touched.
func coordParams(w http.ResponseWriter, r *http.Request) (lat, lon float64, ok bool) {
	lat, err := parseCoord(r.URL.Query().Get("lat"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("lat and lon must be valid numbers"))
		return 0, 0, false
	}
	lon, err = parseCoord(r.URL.Query().Get("lon"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("lat and lon must be valid numbers"))
		return 0, 0, false
	}
	return lat, lon, true
}

func parseCoord(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
