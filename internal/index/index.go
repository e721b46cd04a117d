// Package index stores chunk embeddings and answers top-k similarity queries.
//
// An index remembers which embedding provider produced its vectors. Every
// mutation and query is checked against that identity so vectors from
// different embedding spaces are never mixed.
//
// Two implementations are provided: [MemoryIndex], a brute-force cosine
// index persisted as a single snapshot blob, and [QdrantIndex], which keeps
// vectors in a Qdrant collection.
package index

import (
	"context"
	"fmt"

	"github.com/54b3r/rockybot-go/internal/rag"
)

// DefaultBatchSize is the number of chunks sent to the embedder per call.
const DefaultBatchSize = 64

// DefaultKey is the storage key of the persisted knowledge base.
const DefaultKey = "knowledge-base"

// Index is a persistent vector index of chunks.
// Implementations must be safe for concurrent use.
type Index interface {
	rag.Searcher

	// CreateOrRebuild embeds chunks and replaces the whole index with them.
	// Returns the number of entries in the new index.
	CreateOrRebuild(ctx context.Context, chunks []rag.Chunk, emb rag.TextEmbedding) (int, error)

	// Add embeds chunks and appends them. Returns the total entry count.
	// Fails with rag.ErrEmbeddingProviderMismatch, before any embedding call,
	// when emb differs from the provider the index was built with.
	Add(ctx context.Context, chunks []rag.Chunk, emb rag.TextEmbedding) (int, error)

	// Persist writes the current state to durable storage.
	Persist(ctx context.Context) error

	// Load replaces in-memory state with the persisted state.
	// Returns rag.ErrNotFound when nothing has been persisted.
	Load(ctx context.Context) error

	// Clear removes all entries from memory and durable storage.
	// Clearing an empty index is not an error.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// checkEmbedder returns a mismatch error when recorded is set and differs
// from emb.
func checkEmbedder(recorded string, emb rag.TextEmbedding) error {
	if recorded != "" && recorded != emb.Name() {
		return &rag.EmbeddingMismatchError{Recorded: recorded, Requested: emb.Name()}
	}
	return nil
}

// embedChunks embeds chunk texts in batches and checks that every vector has
// the same dimensionality, which must equal dims when dims > 0.
func embedChunks(ctx context.Context, chunks []rag.Chunk, emb rag.TextEmbedding, batchSize, dims int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := emb.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("index: embedding chunks %d-%d with %s failed: %w", start, end, emb.Name(), err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("index: embedder %s returned %d vectors for %d texts", emb.Name(), len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
	}

	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("index: embedder %s returned an empty vector", emb.Name())
		}
		if dims == 0 {
			dims = len(v)
		}
		if len(v) != dims {
			return nil, fmt.Errorf("index: vector %d has %d dimensions, index uses %d", i, len(v), dims)
		}
	}
	return vectors, nil
}
