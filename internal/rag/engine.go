package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/54b3r/rockybot-go/internal/budget"
	"github.com/54b3r/rockybot-go/internal/logging"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

// Answer is the result of a grounded question.
type Answer struct {
	// Text is the model's answer with the citation line removed.
	Text string

	// Sources are the cited URLs, deduplicated in first-appearance order.
	Sources []string

	// Chunks are the retrieved matches that were placed in the prompt.
	Chunks []Match
}

// EngineConfig holds tunables for the [Engine].
type EngineConfig struct {
	// TopK is the default number of chunks to retrieve. Zero means DefaultTopK.
	TopK int

	// MaxContextTokens caps the estimated prompt size. Zero means
	// budget.DefaultMaxContextTokens; negative disables trimming.
	MaxContextTokens int
}

// Engine answers questions against a vector index.
type Engine struct {
	// index is the knowledge base searched for each question.
	index Searcher

	// topK is used when Answer is called with k <= 0.
	topK int

	// maxContextTokens bounds the prompt built from retrieved extracts.
	maxContextTokens int
}

// NewEngine constructs an Engine over index.
func NewEngine(index Searcher, cfg EngineConfig) (*Engine, error) {
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxContextTokens == 0 {
		cfg.MaxContextTokens = budget.DefaultMaxContextTokens
	}
	return &Engine{
		index:            index,
		topK:             cfg.TopK,
		maxContextTokens: cfg.MaxContextTokens,
	}, nil
}

// Answer retrieves the k chunks most similar to question and asks llm for an
// answer grounded in them. The completion provider is called at most once and
// not at all when the index is empty, the embedder does not match the index,
// or retrieval finds nothing.
func (e *Engine) Answer(ctx context.Context, question string, emb TextEmbedding, llm TextCompletion, k int) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("rag: question: %w", ErrEmptyInput)
	}
	if emb == nil || llm == nil {
		return nil, fmt.Errorf("rag: embedding and completion providers are required")
	}
	if e.index.Len() == 0 {
		return nil, ErrNoKnowledgeBase
	}
	if recorded := e.index.EmbedderName(); recorded != "" && recorded != emb.Name() {
		return nil, &EmbeddingMismatchError{Recorded: recorded, Requested: emb.Name()}
	}
	if k <= 0 {
		k = e.topK
	}

	log := logging.FromContext(ctx)

	matches, err := e.retrieve(ctx, question, emb, k)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		log.Info("rag: no relevant chunks found", slog.Int("k", k))
		return &Answer{Text: NoRelevantInformation}, nil
	}

	matches = e.fitBudget(ctx, question, matches)
	prompt := buildPrompt(question, matches)

	output, err := llm.Complete(ctx, prompt)
	if err != nil {
		return nil, &CompletionError{Provider: llm.Name(), Err: err}
	}

	text, sources := parseCompletion(output)
	log.Debug("rag: answer generated",
		slog.String("llm", llm.Name()),
		slog.Int("chunks", len(matches)),
		slog.Int("sources", len(sources)),
	)
	return &Answer{Text: text, Sources: sources, Chunks: matches}, nil
}

// fitBudget drops the lowest-ranked matches until the prompt fits.
func (e *Engine) fitBudget(ctx context.Context, question string, matches []Match) []Match {
	if e.maxContextTokens < 0 {
		return matches
	}
	extracts := make([]string, len(matches))
	for i, m := range matches {
		extracts[i] = m.Chunk.Text + m.Chunk.Source
	}
	n := budget.FitExtracts(budget.Estimate(promptOverhead(question)), extracts, e.maxContextTokens)
	if n < len(matches) {
		logging.FromContext(ctx).Warn("budget: dropped extracts to fit context window",
			slog.Int("dropped", len(matches)-n),
			slog.Int("retained", n),
			slog.Int("max_tokens", e.maxContextTokens),
		)
	}
	return matches[:n]
}
