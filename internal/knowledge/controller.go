// Package knowledge owns the process-wide knowledge base and drives its
// lifecycle: processing article URLs into the vector index, answering
// questions against it and clearing it.
//
// The knowledge base is EMPTY until a batch of URLs yields at least one
// chunk, and READY while the index holds entries. Processing and clearing
// take exclusive access; questions and status reads share access.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/54b3r/rockybot-go/internal/index"
	"github.com/54b3r/rockybot-go/internal/logging"
	"github.com/54b3r/rockybot-go/internal/rag"
)

// State is the lifecycle state of the knowledge base.
type State string

const (
	// StateEmpty means no entries are indexed.
	StateEmpty State = "EMPTY"
	// StateReady means the index holds at least one entry.
	StateReady State = "READY"
)

// ErrNoValidURL is returned by Process when every URL is blank.
var ErrNoValidURL = fmt.Errorf("%w: no valid URL", rag.ErrEmptyInput)

// Resolver looks up providers by name. An empty name selects the default.
type Resolver interface {
	ResolveCompletion(ctx context.Context, name string) (rag.TextCompletion, error)
	ResolveEmbedding(ctx context.Context, name string) (rag.TextEmbedding, error)
}

// Splitter turns documents into chunks.
type Splitter interface {
	Split(docs []rag.Document) []rag.Chunk
}

// Config holds the collaborators of a Controller.
type Config struct {
	// Index stores the knowledge base.
	Index index.Index
	// Loader fetches articles.
	Loader rag.ArticleLoader
	// Splitter chunks loaded articles.
	Splitter Splitter
	// Providers resolves completion and embedding providers.
	Providers Resolver
	// Engine answers questions. Built over Index with defaults when nil.
	Engine *rag.Engine
	// TopK is the number of chunks retrieved per question.
	// Defaults to rag.DefaultTopK.
	TopK int
}

// Controller is the pipeline context. It is safe for concurrent use.
type Controller struct {
	// mu serialises mutations against each other and against reads.
	mu sync.RWMutex

	index     index.Index
	loader    rag.ArticleLoader
	splitter  Splitter
	providers Resolver
	engine    *rag.Engine
	topK      int
}

// ProcessReport summarises a successful Process call.
type ProcessReport struct {
	// URLs is the number of non-blank URLs requested.
	URLs int
	// Documents is the number of articles that produced text.
	Documents int
	// Chunks is the number of chunks indexed by this call.
	Chunks int
	// Total is the number of entries in the index afterwards.
	Total int
	// Created is true when the call built a new knowledge base rather than
	// extending an existing one.
	Created bool
	// Duration is the wall time of the call.
	Duration time.Duration
}

// Status describes the knowledge base.
type Status struct {
	// State is EMPTY or READY.
	State State `json:"state"`
	// Entries is the number of indexed chunks.
	Entries int `json:"entries"`
	// EmbeddingProvider is the provider the index was built with, empty when EMPTY.
	EmbeddingProvider string `json:"embedding_provider,omitempty"`
}

// New returns a Controller over cfg.
func New(cfg Config) (*Controller, error) {
	switch {
	case cfg.Index == nil:
		return nil, errors.New("knowledge: index must not be nil")
	case cfg.Loader == nil:
		return nil, errors.New("knowledge: loader must not be nil")
	case cfg.Splitter == nil:
		return nil, errors.New("knowledge: splitter must not be nil")
	case cfg.Providers == nil:
		return nil, errors.New("knowledge: providers must not be nil")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = rag.DefaultTopK
	}
	engine := cfg.Engine
	if engine == nil {
		var err error
		engine, err = rag.NewEngine(cfg.Index, rag.EngineConfig{TopK: cfg.TopK})
		if err != nil {
			return nil, fmt.Errorf("knowledge: %w", err)
		}
	}
	return &Controller{
		index:     cfg.Index,
		loader:    cfg.Loader,
		splitter:  cfg.Splitter,
		providers: cfg.Providers,
		engine:    engine,
		topK:      cfg.TopK,
	}, nil
}

// Open loads the persisted knowledge base, if any. A missing or empty
// knowledge base leaves the controller EMPTY.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := logging.FromContext(ctx)
	if err := c.index.Load(ctx); err != nil {
		if errors.Is(err, rag.ErrNotFound) {
			log.Info("no persisted knowledge base")
			return nil
		}
		return fmt.Errorf("knowledge: open: %w", err)
	}
	log.Info("knowledge base loaded",
		slog.String("state", string(c.stateLocked())),
		slog.Int("entries", c.index.Len()),
		slog.String("embedding_provider", c.index.EmbedderName()),
	)
	return nil
}

// Process fetches urls, chunks the articles and indexes the chunks. An
// EMPTY knowledge base is built from scratch; a READY one is extended,
// which requires the embedding provider it was built with. An empty embName
// selects that provider.
func (c *Controller) Process(ctx context.Context, urls []string, llmName, embName string) (*ProcessReport, error) {
	start := time.Now()
	valid := validURLs(urls)
	if len(valid) == 0 {
		return nil, ErrNoValidURL
	}

	// The completion provider is not used here but is resolved so a bad
	// name is reported when URLs are processed rather than on the first
	// question.
	if _, err := c.providers.ResolveCompletion(ctx, llmName); err != nil {
		return nil, err
	}
	emb, err := c.providers.ResolveEmbedding(ctx, c.embeddingName(embName))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	created := c.index.Len() == 0
	if !created && c.index.EmbedderName() != emb.Name() {
		return nil, &rag.EmbeddingMismatchError{Recorded: c.index.EmbedderName(), Requested: emb.Name()}
	}

	docs, err := c.loader.Load(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("knowledge: load articles: %w", err)
	}
	chunks := c.splitter.Split(docs)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("knowledge: %d URLs: %w", len(valid), rag.ErrNoContent)
	}

	var total int
	if created {
		total, err = c.index.CreateOrRebuild(ctx, chunks, emb)
	} else {
		total, err = c.index.Add(ctx, chunks, emb)
	}
	if err != nil {
		return nil, fmt.Errorf("knowledge: index chunks: %w", err)
	}

	report := &ProcessReport{
		URLs:      len(valid),
		Documents: len(docs),
		Chunks:    len(chunks),
		Total:     total,
		Created:   created,
		Duration:  time.Since(start),
	}
	logging.FromContext(ctx).Info("urls processed",
		slog.Int("urls", report.URLs),
		slog.Int("documents", report.Documents),
		slog.Int("chunks", report.Chunks),
		slog.Int("total", report.Total),
		slog.Bool("created", report.Created),
		slog.String("embedding_provider", emb.Name()),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// Ask answers question from the knowledge base.
func (c *Controller) Ask(ctx context.Context, question, llmName, embName string) (*rag.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("knowledge: question: %w", rag.ErrEmptyInput)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.index.Len() == 0 {
		return nil, rag.ErrNoKnowledgeBase
	}
	emb, err := c.providers.ResolveEmbedding(ctx, c.embeddingName(embName))
	if err != nil {
		return nil, err
	}
	llm, err := c.providers.ResolveCompletion(ctx, llmName)
	if err != nil {
		return nil, err
	}
	return c.engine.Answer(ctx, question, emb, llm, c.topK)
}

// embeddingName returns name, or when it is empty the backend the
// knowledge base was built with. An EMPTY base keeps the registry default.
func (c *Controller) embeddingName(name string) string {
	if name != "" {
		return name
	}
	backend, _, _ := strings.Cut(c.index.EmbedderName(), "/")
	return backend
}

// Clear removes the knowledge base from memory and durable storage.
// Clearing an EMPTY knowledge base is a no-op.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.index.Clear(ctx); err != nil {
		return fmt.Errorf("knowledge: clear: %w", err)
	}
	logging.FromContext(ctx).Info("knowledge base cleared")
	return nil
}

// Status reports the current state.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		State:             c.stateLocked(),
		Entries:           c.index.Len(),
		EmbeddingProvider: c.index.EmbedderName(),
	}
}

// State returns EMPTY or READY.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	if c.index.Len() > 0 {
		return StateReady
	}
	return StateEmpty
}

// validURLs drops blank entries and trims the rest.
func validURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
