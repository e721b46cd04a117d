// Package tracing wires Langfuse into the eino chat models used for
// answering. Tracing is optional and stays off unless both keys are set.
package tracing

import (
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is the Langfuse endpoint used when LANGFUSE_HOST is unset.
const defaultHost = "http://localhost:3000"

// Config holds Langfuse connection settings.
type Config struct {
	// Host is the Langfuse API host.
	Host string
	// PublicKey is the Langfuse public key.
	PublicKey string
	// SecretKey is the Langfuse secret key.
	SecretKey string
}

// ConfigFromEnv reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY.
func ConfigFromEnv() Config {
	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultHost
	}
	return Config{
		Host:      host,
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
}

// Enabled reports whether both keys are present.
func (c Config) Enabled() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// Setup initialises the Langfuse callback handler. The returned flush
// function must be called before process exit so buffered traces are sent.
// If Langfuse is not configured the handler and flush function are nil and
// ok is false.
func Setup(cfg Config, log *slog.Logger) (handler callbacks.Handler, flush func(), ok bool) {
	if !cfg.Enabled() {
		log.Debug("tracing: langfuse disabled, keys not set")
		return nil, nil, false
	}
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}

	handler, flush = langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      cfg.Host,
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
	})
	log.Info("tracing: langfuse enabled", slog.String("host", cfg.Host))
	return handler, flush, true
}
