package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/opendiary/diary/internal/metrics"
	"github.com/opendiary/diary/internal/storage"
	"github.com/opendiary/diary/pkg/utils"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`
}

// HTTPServer serves the entries API
type HTTPServer struct {
	config         *ServerConfig
	server         *http.Server
	router         *mux.Router
	storage        storage.Storage
	metricsManager *metrics.Manager
	logger         *logrus.Logger
	startTime      time.Time
	done           chan struct{}
	stopOnce       sync.Once
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(config *ServerConfig, store storage.Storage, metricsManager *metrics.Manager) (*HTTPServer, error) {
	server := &HTTPServer{
		config:         config,
		storage:        store,
		metricsManager: metricsManager,
		logger:         utils.GetLogger(),
		startTime:      time.Now(),
		done:           make(chan struct{}),
	}

	server.setupRouter()

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server, nil
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	// Middleware
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	// API routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
	}

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
		api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	}

	// Entry endpoints
	api.HandleFunc("/entries", s.listEntriesHandler).Methods("GET")
	api.HandleFunc("/entries", s.createEntryHandler).Methods("POST")
	api.HandleFunc("/entries/{id:[0-9]+}", s.getEntryHandler).Methods("GET")
	api.HandleFunc("/entries/{id:[0-9]+}", s.updateEntryHandler).Methods("PUT")
	api.HandleFunc("/entries/{id:[0-9]+}", s.deleteEntryHandler).Methods("DELETE")
}

// Handler exposes the router for tests
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	if s.metricsManager != nil {
		s.metricsManager.UpdateSystemMetrics()
		s.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("storage", s.storage.Ping() == nil)
		go s.systemMetricsUpdater()
	}

	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Give the listener a moment to fail on startup problems like a busy port
	select {
	case err := <-errChan:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop stops the HTTP server gracefully
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	s.stopOnce.Do(func() { close(s.done) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// systemMetricsUpdater periodically refreshes system and component metrics
// until the server stops
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.metricsManager.UpdateSystemMetrics()
			s.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("storage", s.storage.Ping() == nil)
		}
	}
}

// healthHandler reports service health
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthy := s.storage.Ping() == nil

	status := http.StatusOK
	statusText := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		statusText = "unhealthy"
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":    statusText,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
		"components": map[string]bool{
			"storage": healthy,
		},
	})
}

// statsHandler reports storage statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.storage.GetStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps application errors to HTTP status codes
func (s *HTTPServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	if appErr, ok := err.(*utils.AppError); ok {
		switch appErr.Code {
		case utils.ErrCodeNotFound:
			status = http.StatusNotFound
		case utils.ErrCodeValidation:
			status = http.StatusBadRequest
		case utils.ErrCodeConfiguration:
			status = http.StatusBadRequest
		}
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
