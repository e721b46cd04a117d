package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/rockybot-go/internal/logging"
	"github.com/54b3r/rockybot-go/internal/server"
)

// NewServeCmd constructs the `rockybot serve` command, which starts the HTTP
// API in front of the knowledge base.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the RockyBot HTTP API",
		Long: `Start the RockyBot HTTP API.

Routes:
  POST /process-urls          fetch articles and build or extend the knowledge base
  POST /ask-question          answer a question with sources
  POST /clear-knowledge-base  delete the knowledge base
  GET  /api/status            knowledge-base state and size
  GET  /api/health            liveness
  GET  /api/ready             dependency readiness
  GET  /metrics               Prometheus metrics

Set ROCKYBOT_API_KEY to require a Bearer token on the knowledge-base routes.

Examples:
  rockybot serve
  rockybot serve --port 9000
  LLM_PROVIDER=anthropic rockybot serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if !cmd.Flags().Changed("host") {
				host = getEnv("ROCKYBOT_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				if v := os.Getenv("ROCKYBOT_PORT"); v != "" {
					p, err := strconv.Atoi(v)
					if err != nil {
						return fmt.Errorf("serve: invalid ROCKYBOT_PORT %q: %w", v, err)
					}
					port = p
				}
			}

			a, err := buildApp(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			log.Info("serve starting",
				slog.String("llm_provider", string(a.registry.DefaultCompletion())),
				slog.String("embedding_provider", string(a.registry.DefaultEmbedding())),
			)

			srv, err := server.New(a.ctrl, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: a.pingers(),
				APIKey:  os.Getenv("ROCKYBOT_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on")

	return cmd
}

// getEnv returns the value of the environment variable key, or fallback if unset.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
