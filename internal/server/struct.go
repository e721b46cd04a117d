package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/rockybot-go/internal/knowledge"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It
	// must cover a full URL-processing run.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// RequestTimeout bounds each pipeline operation (default: 5m).
	RequestTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on the POST
	// routes (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on the pipeline and status routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer serves GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// pipeline is the set of knowledge-base operations the HTTP API exposes.
// *knowledge.Controller satisfies it; tests inject a fake.
type pipeline interface {
	ProcessURLs(ctx context.Context, req knowledge.ProcessRequest) knowledge.ProcessResult
	AskQuestion(ctx context.Context, req knowledge.QuestionRequest) knowledge.AnswerResult
	ClearKnowledgeBase(ctx context.Context) knowledge.ClearResult
	Status() knowledge.Status
}

// Server is the HTTP server in front of the knowledge base.
type Server struct {
	// pipeline performs every knowledge-base operation.
	pipeline pipeline
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// statusResponse is the JSON response for GET /api/status.
type statusResponse struct {
	knowledge.Status
	// Version is the build version.
	Version string `json:"version"`
}

// errorResponse is the body of a rejected request. It has the same shape as
// the pipeline results so clients only parse one format.
type errorResponse struct {
	// Success is always false.
	Success bool `json:"success"`
	// Message describes the problem.
	Message string `json:"message"`
}
