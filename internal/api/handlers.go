// Package api provides the JSON HTTP API for unipoll.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/and3rn3t/network-sub004/internal/cache"
	"github.com/and3rn3t/network-sub004/internal/model"
	"github.com/and3rn3t/network-sub004/internal/store"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/and3rn3t/network-sub004/docs/swagger"
)

// Server is the HTTP server for unipoll.
type Server struct {
	cache  *cache.Cache
	store  *store.Store
	mux    *http.ServeMux
	server *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(addr string, c *cache.Cache, s *store.Store) *Server {
	srv := &Server{
		cache: c,
		store: s,
		mux:   http.NewServeMux(),
	}

	srv.registerRoutes()

	srv.server = &http.Server{
		Addr:         addr,
		Handler:      SecurityHeadersMiddleware(RecoveryMiddleware(LoggingMiddleware(srv.mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return srv
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("HTTP server starting", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/devices", s.handleDevices)
	s.mux.HandleFunc("GET /api/clients", s.handleClients)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/metrics/{mac}/{metric}", s.handleMetricSeries)
	s.mux.HandleFunc("GET /api/runs", s.handleRuns)

	// Health check
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Swagger UI
	s.mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// writeJSON marshals v to JSON into a buffer first, then writes it to the
// response. This ensures marshalling errors can be returned as a proper 500.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding JSON response", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		slog.Debug("writing JSON response", "path", r.URL.Path, "error", err)
	}
}

// limitParam parses the "limit" query parameter, clamped to [1, max].
func limitParam(r *http.Request, def, max int) int {
	limit := def
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= max {
			limit = v
		}
	}
	return limit
}

// @Summary List devices
// @Description Returns the current device inventory from the in-memory cache
// @Produce json
// @Param controller query string false "Filter by controller name"
// @Success 200 {array} model.DeviceRecord
// @Router /api/devices [get]
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Snapshot()
	filter := r.URL.Query().Get("controller")

	devices := make([]model.DeviceRecord, 0)
	for controller, recs := range snap.Devices {
		if filter != "" && controller != filter {
			continue
		}
		for _, d := range recs {
			devices = append(devices, *d)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].MAC < devices[j].MAC })

	writeJSON(w, r, devices)
}

// @Summary List clients
// @Description Returns the current client list from the in-memory cache
// @Produce json
// @Param controller query string false "Filter by controller name"
// @Success 200 {array} model.ClientRecord
// @Router /api/clients [get]
func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Snapshot()
	filter := r.URL.Query().Get("controller")

	clients := make([]model.ClientRecord, 0)
	for controller, recs := range snap.Clients {
		if filter != "" && controller != filter {
			continue
		}
		for _, c := range recs {
			clients = append(clients, *c)
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].MAC < clients[j].MAC })

	writeJSON(w, r, clients)
}

// @Summary Recent events
// @Description Returns the most recent change events, newest first
// @Produce json
// @Param limit query int false "Max events to return (1-1000)" default(100)
// @Success 200 {array} model.Event
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/events [get]
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, 100, 1000)

	events, err := s.store.RecentEvents(limit)
	if err != nil {
		slog.Error("querying events", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, events)
}

// @Summary Metric time series
// @Description Returns data points for one metric of one entity
// @Produce json
// @Param mac path string true "Entity MAC address"
// @Param metric path string true "Metric name (cpu_usage, memory_usage, temperature, uptime, client_count, rx_bytes, tx_bytes, signal)"
// @Param hours query int false "Hours of history (1-168)" default(24)
// @Success 200 {array} model.MetricPoint
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/metrics/{mac}/{metric} [get]
func (s *Server) handleMetricSeries(w http.ResponseWriter, r *http.Request) {
	mac := r.PathValue("mac")
	metric := r.PathValue("metric")

	hours := 24
	if h := r.URL.Query().Get("hours"); h != "" {
		if v, err := strconv.Atoi(h); err == nil && v > 0 && v <= 168 {
			hours = v
		}
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour).Unix()
	points, err := s.store.MetricSeries(mac, model.MetricName(metric), since)
	if err != nil {
		slog.Error("querying metric series", "mac", mac, "metric", metric, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, points)
}

// @Summary Recent collection runs
// @Description Returns the most recent collection runs, newest first
// @Produce json
// @Param limit query int false "Max runs to return (1-500)" default(50)
// @Success 200 {array} model.CollectionRun
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/runs [get]
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, 50, 500)

	runs, err := s.store.RecentRuns(limit)
	if err != nil {
		slog.Error("querying runs", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, runs)
}

// @Summary Health check
// @Description Returns service health status and collector poll times
// @Produce json
// @Success 200 {object} map[string]interface{} "Health status"
// @Router /healthz [get]
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Snapshot()
	healthy := len(snap.LastPoll) > 0

	status := "ok"
	if !healthy {
		status = "no_data"
	}

	collectors := make(map[string]string, len(snap.LastPoll))
	for k, v := range snap.LastPoll {
		collectors[k] = fmt.Sprintf("%ds ago", int(time.Since(v).Seconds()))
	}
	writeJSON(w, r, map[string]any{
		"status":     status,
		"timestamp":  time.Now().Unix(),
		"collectors": collectors,
	})
}
