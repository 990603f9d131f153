// Package server exposes the detector over HTTP: the dashboard feed, the
// scheduled trigger, the notification self-test, health and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/liamashdown/insiderdetector/internal/alerts"
	"github.com/liamashdown/insiderdetector/internal/config"
	"github.com/liamashdown/insiderdetector/internal/processor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Runner runs the analysis pipeline on demand
type Runner interface {
	ProcessTrades(ctx context.Context) (*processor.RunReport, error)
	Dashboard(ctx context.Context) (*processor.DashboardReport, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the HTTP API
type Server struct {
	cfg        *config.Config
	runner     Runner
	dispatcher *alerts.Dispatcher
	store      Pinger
	log        *logrus.Logger
	now        func() time.Time
}

// New creates the HTTP server
func New(cfg *config.Config, runner Runner, dispatcher *alerts.Dispatcher, store Pinger, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Server{
		cfg:        cfg,
		runner:     runner,
		dispatcher: dispatcher,
		store:      store,
		log:        log,
		now:        time.Now,
	}
}

// Router builds the route table
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/alerts", s.handleAlerts)
		r.Get("/cron", s.handleCron)
		r.Post("/cron", s.handleCron)
		r.HandleFunc("/test-notification", s.handleTestNotification)
	})

	return r
}

// Run serves on HTTP_PORT until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.HTTPPort),
		Handler:     s.Router(),
		ReadTimeout: 5 * time.Second,
		// /api/cron runs a full poll including notification fan-out
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.cfg.HTTPPort).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}
