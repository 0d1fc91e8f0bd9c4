// Package server provides the HTTP server behind the Hands-Off dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/handsoff/internal/plugin"
	"github.com/ayusman/handsoff/internal/server/api"
	"github.com/ayusman/handsoff/internal/store"
)

// Config holds the server configuration. Every field is optional; routes
// whose dependencies are missing are not registered.
type Config struct {
	StaticDir string
	Engine    api.Engine
	Store     *store.Store
	Plugins   *plugin.Manager
	Executor  *plugin.Executor
	Frames    FrameSource
	Events    *EventHub
	Logger    *zap.Logger
}

// Server represents the HTTP server for the Hands-Off application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	http   *http.Server
	logger *zap.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: config.Logger,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Engine != nil {
		monitor := api.NewMonitorHandler(s.config.Engine)
		s.mux.Handle("/api/stats", monitor)
		s.mux.Handle("/api/alerts", monitor)
		s.mux.Handle("/api/reset", monitor)
		s.mux.Handle("/api/episodes", monitor)

		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Engine, s.config.Store))

		sensitivity := api.NewSensitivityHandler(s.config.Engine, s.config.Store)
		s.mux.Handle("/api/sensitivity", sensitivity)
		s.mux.Handle("/api/sensitivity/", sensitivity)
	}

	if s.config.Store != nil {
		notifiers := api.NewNotifierHandler(s.config.Store, s.config.Plugins)
		s.mux.Handle("/api/notifiers", notifiers)
		s.mux.Handle("/api/notifiers/", notifiers)
	}

	if s.config.Plugins != nil {
		plugins := api.NewPluginHandler(s.config.Plugins, s.config.Executor)
		s.mux.Handle("/api/plugins", plugins)
		s.mux.Handle("/api/plugins/", plugins)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address and blocks
// until it fails or Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server listening", zap.String("addr", addr))

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.config.Events != nil {
		s.config.Events.Close()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
