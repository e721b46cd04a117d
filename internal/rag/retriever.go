package rag

import (
	"context"
	"fmt"
)

// retrieve embeds the question and returns the top-k most similar chunks.
// The embedder must be the one the index was built with; callers check
// that before any provider is contacted.
func (e *Engine) retrieve(ctx context.Context, question string, emb TextEmbedding, k int) ([]Match, error) {
	vector, err := EmbedOne(ctx, emb, question)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding question failed: %w", err)
	}

	matches, err := e.index.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}
	return matches, nil
}
