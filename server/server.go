// Package server exposes a profiling Controller over HTTP.
//
//	POST /sessions/serial       start a serial session (202, 409 when busy)
//	POST /sessions/concurrent   start a concurrent session (202, 409 when busy)
//	POST /sessions/cancel       cancel the running session
//	GET  /sessions/latest       last completed result (?format=json|yaml|toml|timeline)
//	GET  /sessions              finished sessions, newest first (?limit=N)
//	GET  /state                 controller and pool state
//	GET  /metrics               Prometheus metrics, when a gatherer is set
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Swind/go-task-profiler/core"
	"github.com/Swind/go-task-profiler/profile"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// Gatherer backs GET /metrics. Nil disables the route.
	Gatherer prom.Gatherer

	Logger core.Logger

	// Width is the default column count for timeline output.
	Width int
}

// Server serves one Controller.
type Server struct {
	ctrl   *profile.Controller
	logger core.Logger
	width  int
	router *chi.Mux
}

// New builds the router for ctrl.
func New(ctrl *profile.Controller, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = core.NewNoOpLogger()
	}

	s := &Server{
		ctrl:   ctrl,
		logger: opts.Logger,
		width:  opts.Width,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(recovery(s.logger))

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/serial", s.startSession(profile.StrategySerial))
		r.Post("/concurrent", s.startSession(profile.StrategyConcurrent))
		r.Post("/cancel", s.cancelSession)
		r.Get("/latest", s.latestSession)
	})
	r.Get("/state", s.state)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", core.F("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down", core.F("addr", addr))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
