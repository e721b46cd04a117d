// Package rag defines the core types of the retrieval-augmented answering
// pipeline (documents, chunks, matches), the provider interfaces used to
// embed and complete text, and the [Engine] that turns a question into a
// grounded, source-attributed answer.
//
// Concrete providers, loaders and indexes live in their own packages and
// satisfy these interfaces so the engine never depends on a specific backend.
package rag

import (
	"context"
	"fmt"
	"time"
)

// Document is the text of one article as produced by an [ArticleLoader].
// It is discarded once it has been split into chunks.
type Document struct {
	// Source is the URL the article was fetched from.
	Source string

	// Title is the page title, empty when the page had none.
	Title string

	// Text is the extracted article text.
	Text string

	// FetchedAt is when the loader retrieved the article.
	FetchedAt time.Time
}

// Chunk is a contiguous slice of a document's text with its provenance.
type Chunk struct {
	// ID is deterministic for a given source and sequence index.
	ID string `json:"id"`

	// Text is the chunk content, an exact substring of the document text.
	Text string `json:"text"`

	// Source is the URL of the originating document.
	Source string `json:"source"`

	// Seq is the position of this chunk within its document, starting at 0.
	Seq int `json:"seq"`

	// Start is the rune offset of the chunk inside the document text.
	Start int `json:"start"`

	// End is the exclusive rune offset of the chunk end.
	End int `json:"end"`
}

// Match is a chunk returned by a similarity query together with its score.
type Match struct {
	// Chunk is the stored chunk.
	Chunk Chunk `json:"chunk"`

	// Score is the cosine similarity between the query and the chunk vector.
	Score float32 `json:"score"`
}

// TextEmbedding converts text into dense vectors.
// Implementations must be safe to call from multiple goroutines.
type TextEmbedding interface {
	// Name returns a stable identity such as "openai/text-embedding-3-small".
	// Two embedders with the same name produce comparable vectors.
	Name() string

	// Embed converts a batch of texts into vectors, parallel to the input.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text with emb.
func EmbedOne(ctx context.Context, emb TextEmbedding, text string) ([]float32, error) {
	vectors, err := emb.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("rag: embedder %s returned %d vectors for one text", emb.Name(), len(vectors))
	}
	return vectors[0], nil
}

// TextCompletion produces a text continuation for a prompt.
// Implementations must be safe to call from multiple goroutines.
type TextCompletion interface {
	// Name returns the provider and model identity, e.g. "openai/gpt-4o-mini".
	Name() string

	// Complete sends prompt to the model and returns its text response.
	Complete(ctx context.Context, prompt string) (string, error)
}

// ArticleLoader fetches articles by URL. Per-URL failures are not errors:
// the loader omits the failing URL and reports it through its logger.
type ArticleLoader interface {
	Load(ctx context.Context, urls []string) ([]Document, error)
}

// Searcher is the read side of a vector index as seen by the [Engine].
type Searcher interface {
	// Len returns the number of indexed chunks.
	Len() int

	// EmbedderName returns the identity of the embedding provider the index
	// was built with, or "" for an empty index.
	EmbedderName() string

	// Query returns at most k matches ordered by descending score.
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
}
