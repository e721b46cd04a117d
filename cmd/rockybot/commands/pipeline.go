package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/54b3r/rockybot-go/internal/chunker"
	"github.com/54b3r/rockybot-go/internal/index"
	"github.com/54b3r/rockybot-go/internal/knowledge"
	"github.com/54b3r/rockybot-go/internal/loader"
	"github.com/54b3r/rockybot-go/internal/provider"
	"github.com/54b3r/rockybot-go/internal/rag"
	"github.com/54b3r/rockybot-go/internal/server"
	"github.com/54b3r/rockybot-go/internal/store"
	"github.com/54b3r/rockybot-go/internal/tracing"
)

// app bundles the knowledge-base controller with the resources it owns.
type app struct {
	// ctrl runs every knowledge-base operation.
	ctrl *knowledge.Controller
	// registry resolves completion and embedding providers by name.
	registry *provider.Registry
	// store holds the persisted knowledge base. It is closed by index.
	store store.Store
	// index is the vector index over the store.
	index index.Index
	// flush sends buffered traces; nil when tracing is off.
	flush func()
}

// buildApp wires store, index, loader, chunker and providers into a
// knowledge.Controller and restores any persisted knowledge base.
// The caller must Close the returned app.
func buildApp(ctx context.Context, log *slog.Logger) (*app, error) {
	var opts []provider.Option
	handler, flush, ok := tracing.Setup(tracing.ConfigFromEnv(), log)
	if ok {
		opts = append(opts, provider.WithCallbacks(handler))
	}
	registry := provider.NewRegistry(provider.ConfigFromEnv(), log, opts...)

	st, err := store.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge-base store: %w", err)
	}

	idx, err := index.NewFromEnv(st)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialise vector index: %w", err)
	}

	tun, err := tuningFromEnv()
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	splitter, err := chunker.New(tun.chunkSize, tun.chunkOverlap)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to initialise chunker: %w", err)
	}

	engine, err := rag.NewEngine(idx, rag.EngineConfig{TopK: tun.topK, MaxContextTokens: tun.maxContextTokens})
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to initialise answering engine: %w", err)
	}

	ctrl, err := knowledge.New(knowledge.Config{
		Index:     idx,
		Loader:    loader.New(loader.ConfigFromEnv()),
		Splitter:  splitter,
		Providers: registry,
		Engine:    engine,
		TopK:      tun.topK,
	})
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	a := &app{ctrl: ctrl, registry: registry, store: st, index: idx, flush: flush}
	if err := ctrl.Open(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}

	status := ctrl.Status()
	log.Info("knowledge base opened",
		slog.String("state", string(status.State)),
		slog.Int("entries", status.Entries),
		slog.String("embedding_provider", status.EmbeddingProvider),
	)
	return a, nil
}

// pingers returns the readiness probes for the app's dependencies.
func (a *app) pingers() []server.Pinger {
	pingers := []server.Pinger{server.NewPinger("provider", a.registry)}
	if p, ok := a.store.(interface {
		Ping(ctx context.Context) error
	}); ok {
		pingers = append(pingers, server.NewPinger("store", p))
	}
	if q, ok := a.index.(*index.QdrantIndex); ok {
		pingers = append(pingers, server.NewQdrantPinger(q.Client()))
	}
	return pingers
}

// Close releases the index, which closes the store, and flushes traces.
func (a *app) Close() {
	_ = a.index.Close()
	if a.flush != nil {
		a.flush()
	}
}

// tuning holds the chunking and retrieval knobs.
type tuning struct {
	chunkSize        int
	chunkOverlap     int
	topK             int
	maxContextTokens int
}

// tuningFromEnv reads CHUNK_SIZE, CHUNK_OVERLAP, RAG_TOP_K and
// RAG_MAX_CONTEXT_TOKENS. Unset values keep the package defaults.
func tuningFromEnv() (tuning, error) {
	t := tuning{
		chunkSize:    chunker.DefaultChunkSize,
		chunkOverlap: chunker.DefaultChunkOverlap,
		topK:         rag.DefaultTopK,
	}
	for _, f := range []struct {
		key string
		dst *int
	}{
		{"CHUNK_SIZE", &t.chunkSize},
		{"CHUNK_OVERLAP", &t.chunkOverlap},
		{"RAG_TOP_K", &t.topK},
		{"RAG_MAX_CONTEXT_TOKENS", &t.maxContextTokens},
	} {
		v := os.Getenv(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return tuning{}, fmt.Errorf("invalid %s %q: %w", f.key, v, err)
		}
		*f.dst = n
	}
	return t, nil
}
