// Package server provides the HTTP server for the gymbro analysis service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/gymbro/internal/app"
	"github.com/ayusman/gymbro/internal/server/api"
	"github.com/ayusman/gymbro/internal/store"
)

// shutdownTimeout bounds GracefulShutdown.
const shutdownTimeout = 15 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	Store     *store.Store
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server for the gymbro application.
type Server struct {
	config     Config
	router     *mux.Router
	start      time.Time
	httpServer *http.Server
	listener   net.Listener
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: mux.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet).Name("health")

	gatherer := s.config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Name("metrics")

	if s.config.App != nil {
		api.NewEngineHandler(s.router, s.config.App)
		s.router.Handle("/api/ws", NewSessionHandler(s.config.App)).Methods(http.MethodGet).Name("ws")
	}

	if s.config.Store != nil {
		var reload func() error
		if s.config.App != nil {
			reload = s.config.App.LoadProfiles
		}
		api.NewProfileHandler(s.router, s.config.Store, reload)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.router.PathPrefix("/").Handler(fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["exercise"] = s.config.App.Active()
		response["replay"] = s.config.App.Running()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Serve binds addr and serves in the background. Bind errors are returned.
func (s *Server) Serve(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", listener.Addr())
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("listen and serve: %s", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// GracefulShutdown stops accepting connections and waits for active requests.
func (s *Server) GracefulShutdown() {
	if s.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Errorf("failed to gracefully shutdown http server: %s", err)
	}
	log.Warnln("server shut down")
}
