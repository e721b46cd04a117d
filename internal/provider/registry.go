package provider

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/cloudwego/eino/callbacks"

	"github.com/54b3r/rockybot-go/internal/rag"
)

// CompletionFactory constructs the completion provider for a backend.
type CompletionFactory func(ctx context.Context, cfg *Config, b Backend) (rag.TextCompletion, error)

// EmbeddingFactory constructs the embedding provider for a backend.
type EmbeddingFactory func(ctx context.Context, cfg *Config, b Backend) (rag.TextEmbedding, error)

// Option configures a Registry.
type Option func(*Registry)

// WithCompletionFactory replaces the built-in completion constructors.
func WithCompletionFactory(f CompletionFactory) Option {
	return func(r *Registry) { r.newCompletion = f }
}

// WithEmbeddingFactory replaces the built-in embedding constructors.
func WithEmbeddingFactory(f EmbeddingFactory) Option {
	return func(r *Registry) { r.newEmbedding = f }
}

// WithCallbacks attaches eino callback handlers to every eino-backed
// completion provider the registry builds.
func WithCallbacks(handlers ...callbacks.Handler) Option {
	return func(r *Registry) { r.handlers = append(r.handlers, handlers...) }
}

// Registry resolves providers by name. Providers are constructed on first
// use and cached for the life of the process. It is safe for concurrent use.
type Registry struct {
	// cfg holds credentials and model names for every backend.
	cfg *Config
	// log receives fallback warnings.
	log *slog.Logger
	// handlers are passed to eino-backed completion providers.
	handlers []callbacks.Handler
	// newCompletion builds completion providers.
	newCompletion CompletionFactory
	// newEmbedding builds embedding providers.
	newEmbedding EmbeddingFactory

	// mu guards the caches and serialises construction.
	mu sync.Mutex
	// completions caches resolved completion providers by backend.
	completions map[Backend]rag.TextCompletion
	// embeddings caches resolved embedding providers by backend. A
	// substituted fallback is cached under the backend it replaces.
	embeddings map[Backend]rag.TextEmbedding
}

// NewRegistry returns a Registry over cfg.
func NewRegistry(cfg *Config, log *slog.Logger, opts ...Option) *Registry {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		cfg:         cfg,
		log:         log,
		completions: make(map[Backend]rag.TextCompletion),
		embeddings:  make(map[Backend]rag.TextEmbedding),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.newCompletion == nil {
		r.newCompletion = func(ctx context.Context, cfg *Config, b Backend) (rag.TextCompletion, error) {
			return newCompletion(ctx, cfg, b, r.handlers)
		}
	}
	if r.newEmbedding == nil {
		r.newEmbedding = func(ctx context.Context, cfg *Config, b Backend) (rag.TextEmbedding, error) {
			return newEmbedding(ctx, cfg, b, r.log)
		}
	}
	return r
}

// DefaultCompletion returns the backend used when no completion provider is named.
func (r *Registry) DefaultCompletion() Backend { return r.cfg.DefaultCompletion }

// DefaultEmbedding returns the backend used when no embedding provider is named.
func (r *Registry) DefaultEmbedding() Backend { return r.cfg.DefaultEmbedding }

// ResolveCompletion returns the completion provider for name. An empty name
// selects the default. Unknown or unconstructible providers yield a
// *rag.ProviderUnavailableError.
func (r *Registry) ResolveCompletion(ctx context.Context, name string) (rag.TextCompletion, error) {
	b, err := r.parse(name, r.cfg.DefaultCompletion, CompletionBackends, "completion")
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.completions[b]; ok {
		return c, nil
	}
	c, err := r.newCompletion(ctx, r.cfg, b)
	if err != nil {
		return nil, &rag.ProviderUnavailableError{Provider: string(b), Reason: "cannot construct completion provider", Err: err}
	}
	r.completions[b] = c
	return c, nil
}

// ResolveEmbedding returns the embedding provider for name. An empty name
// selects the default. When the Hugging Face embedder cannot be constructed
// or reached, the configured fallback is substituted and the substitution
// is remembered.
func (r *Registry) ResolveEmbedding(ctx context.Context, name string) (rag.TextEmbedding, error) {
	b, err := r.parse(name, r.cfg.DefaultEmbedding, EmbeddingBackends, "embedding")
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.embeddingLocked(ctx, b)
}

func (r *Registry) embeddingLocked(ctx context.Context, b Backend) (rag.TextEmbedding, error) {
	if e, ok := r.embeddings[b]; ok {
		return e, nil
	}

	e, err := r.newEmbedding(ctx, r.cfg, b)
	if err == nil {
		r.embeddings[b] = e
		return e, nil
	}

	fallback := r.cfg.FallbackEmbedding
	if b != BackendHuggingFace || fallback == "" || fallback == b {
		return nil, &rag.ProviderUnavailableError{Provider: string(b), Reason: "cannot construct embedding provider", Err: err}
	}

	r.log.Warn("embedding provider fallback",
		slog.String("requested", string(b)),
		slog.String("fallback", string(fallback)),
		slog.String("reason", err.Error()),
	)
	fe, ferr := r.embeddingLocked(ctx, fallback)
	if ferr != nil {
		return nil, &rag.ProviderUnavailableError{
			Provider: string(b),
			Reason:   "embedding provider and its fallback " + string(fallback) + " are unavailable",
			Err:      errors.Join(err, ferr),
		}
	}
	r.embeddings[b] = fe
	return fe, nil
}

// Ping checks the default completion provider when it supports a probe.
func (r *Registry) Ping(ctx context.Context) error {
	c, err := r.ResolveCompletion(ctx, "")
	if err != nil {
		return err
	}
	if p, ok := c.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// parse maps name onto one of allowed, using def for an empty name.
func (r *Registry) parse(name string, def Backend, allowed []Backend, kind string) (Backend, error) {
	if name == "" {
		name = string(def)
	}
	b, ok := ParseBackend(name)
	if !ok || !slices.Contains(allowed, b) {
		return "", &rag.ProviderUnavailableError{Provider: name, Reason: "unknown " + kind + " provider"}
	}
	return b, nil
}
