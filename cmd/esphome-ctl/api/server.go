// Package api serves the esphome-ctl HTTP endpoints: device snapshots,
// entity commands and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/esphome-native/esphome-go/pkg/connection"
	"github.com/esphome-native/esphome-go/pkg/entity"
	"github.com/esphome-native/esphome-go/pkg/service"
)

// Devices is the part of the controller the server uses.
type Devices interface {
	Snapshots() []service.DeviceSnapshot
	Snapshot(name string) (service.DeviceSnapshot, error)
	CommandText(name string, kind entity.Kind, key uint32, text string) error
}

// CommandRequest is the body of POST /devices/{name}/command. Kind may be
// empty when the device has announced the entity.
type CommandRequest struct {
	Kind  string `json:"kind,omitempty"`
	Key   uint32 `json:"key"`
	Value string `json:"value"`
}

// Server is the HTTP server.
type Server struct {
	devices  Devices
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	router   chi.Router
	server   *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithGatherer serves metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a server for devices.
func NewServer(devices Devices, opts ...Option) *Server {
	s := &Server{
		devices:  devices,
		gatherer: prometheus.DefaultGatherer,
		router:   chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.router.Route("/devices", func(r chi.Router) {
		r.Get("/", s.handleListDevices)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Post("/command", s.handleCommand)
		})
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.server.Addr = addr
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.devices.Snapshots())
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	snap, err := s.devices.Snapshot(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var kind entity.Kind
	if req.Kind != "" {
		k, err := entity.ParseKind(req.Kind)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		kind = k
	}

	name := chi.URLParam(r, "name")
	if err := s.devices.CommandText(name, kind, req.Key, req.Value); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"device": name,
		"key":    strconv.FormatUint(uint64(req.Key), 10),
		"status": "sent",
	})
}

// writeError maps controller errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrDeviceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidCommand), errors.Is(err, entity.ErrNoEntityKind),
		errors.Is(err, entity.ErrUnsupportedCommand), errors.Is(err, entity.ErrNoHandler):
		status = http.StatusBadRequest
	case errors.Is(err, connection.ErrNotConnected), errors.Is(err, connection.ErrDisposed):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError && s.logger != nil {
		s.logger.Warn("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
