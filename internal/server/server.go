// Package server exposes the knowledge base over HTTP: processing article
// URLs, asking questions, clearing the knowledge base, status, health and
// readiness probes, and Prometheus metrics.
// The server is started by the `rockybot serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/rockybot-go/internal/knowledge"
	"github.com/54b3r/rockybot-go/internal/logging"
	"github.com/54b3r/rockybot-go/internal/version"
)

// maxBodyBytes caps request bodies on the POST routes.
const maxBodyBytes = 1 << 20

// Operation outcomes recorded in metrics.
const (
	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomeTimeout = "timeout"
)

// New constructs a Server in front of p.
func New(p pipeline, cfg *Config) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("server: pipeline must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.RequestTimeout + 10*time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		pipeline: p,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger)
	s.stopRL = stop

	if cfg.APIKey == "" {
		s.log.Warn("server: API key not set, authentication disabled")
	}
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(cfg.APIKey, h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(cfg.APIKey, rl.middleware(h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /process-urls", limited(s.handleProcessURLs))
	mux.Handle("POST /ask-question", limited(s.handleAskQuestion))
	mux.Handle("POST /clear-knowledge-base", limited(s.handleClearKnowledgeBase))
	mux.Handle("GET /api/status", protect(s.handleStatus))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, s.metrics.instrument(recoverer(mux))),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	s.metrics.knowledgeEntries.Set(float64(p.Status().Entries))
	return s, nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("rockybot server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleProcessURLs handles POST /process-urls.
func (s *Server) handleProcessURLs(w http.ResponseWriter, r *http.Request) {
	var req knowledge.ProcessRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	res := s.pipeline.ProcessURLs(ctx, req)
	s.observe(ctx, "process", res.Success, start)
	s.writeJSON(w, r, http.StatusOK, res)
}

// handleAskQuestion handles POST /ask-question.
func (s *Server) handleAskQuestion(w http.ResponseWriter, r *http.Request) {
	var req knowledge.QuestionRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	res := s.pipeline.AskQuestion(ctx, req)
	s.observe(ctx, "ask", res.Success, start)
	s.writeJSON(w, r, http.StatusOK, res)
}

// handleClearKnowledgeBase handles POST /clear-knowledge-base.
func (s *Server) handleClearKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	res := s.pipeline.ClearKnowledgeBase(ctx)
	s.observe(ctx, "clear", res.Success, start)
	s.writeJSON(w, r, http.StatusOK, res)
}

// handleStatus handles GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, statusResponse{
		Status:  s.pipeline.Status(),
		Version: version.Version,
	})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// observe records the outcome and duration of a pipeline operation and
// refreshes the entry gauge.
func (s *Server) observe(ctx context.Context, op string, success bool, start time.Time) {
	outcome := outcomeOK
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = outcomeTimeout
	case !success:
		outcome = outcomeFailed
	}
	s.metrics.operationsTotal.WithLabelValues(op, outcome).Inc()
	s.metrics.operationDurationSeconds.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	s.metrics.knowledgeEntries.Set(float64(s.pipeline.Status().Entries))
}

// decode reads a JSON body into v. On failure it writes a 400 response with
// a {success:false, message} body and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logging.FromContext(r.Context()).Warn("invalid request body", slog.Any("error", err))
		s.writeJSON(w, r, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return false
	}
	return true
}

// writeJSON encodes v with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("response encode error", slog.Any("error", err))
	}
}
