// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability serves metrics, health probes and the latest engine
// status over HTTP.
package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Listener bind retry defaults. A restarted process may briefly find its
// previous socket still held.
const (
	DefaultBindAttempts = 5
	DefaultBindBackoff  = 200 * time.Millisecond
)

// ReadinessChecker returns whether the engine is ticking.
type ReadinessChecker func() bool

// StatusFunc returns the value served as JSON at /status. A nil result is
// served as 204 No Content.
type StatusFunc func() any

// Option configures a Server during construction.
type Option func(*Server)

// WithCollectors registers additional metrics on the server's registry.
func WithCollectors(register ...func(prometheus.Registerer)) Option {
	return func(s *Server) {
		for _, fn := range register {
			fn(s.registry)
		}
	}
}

// WithStatus serves fn's result at /status.
func WithStatus(fn StatusFunc) Option {
	return func(s *Server) {
		s.status = fn
	}
}

// WithBindRetry sets how many times a failed listen is retried and the
// constant delay between attempts.
func WithBindRetry(attempts uint64, backoff time.Duration) Option {
	return func(s *Server) {
		s.bindAttempts = attempts
		s.bindBackoff = backoff
	}
}

// Server provides HTTP endpoints for observability (metrics and health probes).
type Server struct {
	addr         string
	listener     net.Listener
	httpServer   *http.Server
	registry     *prometheus.Registry
	isReady      ReadinessChecker
	status       StatusFunc
	bindAttempts uint64
	bindBackoff  time.Duration
	running      atomic.Bool
}

// NewServer creates a new observability server.
// addr: listen address in "host:port" format (e.g., "127.0.0.1:9100", ":9100" for all interfaces).
func NewServer(addr string, readinessChecker ReadinessChecker, opts ...Option) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		addr:         addr,
		registry:     registry,
		isReady:      readinessChecker,
		bindAttempts: DefaultBindAttempts,
		bindBackoff:  DefaultBindBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry served at /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Start binds the listener, retrying on failure, and begins serving.
// It returns an error channel that receives any error from the HTTP server
// after it starts. The channel is closed when the server stops.
func (s *Server) Start(ctx context.Context) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("OBSERVABILITY_RUNNING").Errorf("observability server already running")
	}

	listener, err := s.listen(ctx)
	if err != nil {
		s.running.Store(false)
		return nil, err
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)
	mux.HandleFunc("/status", s.handleStatus)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		// Use local httpSrv to avoid race with subsequent Start() calls
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	var (
		listener net.Listener
		attempt  int
	)
	backoff := retry.WithMaxRetries(s.bindAttempts, retry.NewConstant(s.bindBackoff))
	err := retry.Do(ctx, backoff, func(_ context.Context) error {
		attempt++
		l, err := net.Listen("tcp", s.addr)
		if err != nil {
			slog.Debug("observability bind failed", "addr", s.addr, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		listener = l
		return nil
	})
	if err != nil {
		return nil, oops.Code("OBSERVABILITY_BIND_FAILED").
			With("addr", s.addr).
			With("attempts", attempt).
			Wrap(err)
	}
	return listener, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// Restore running state on failure so the server can be stopped again
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness returns 200 while the engine is ticking, 503 otherwise.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady == nil || s.isReady() {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("not ready\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		http.NotFound(w, r)
		return
	}
	v := s.status()
	if v == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("status encode failed", "error", err)
	}
}
