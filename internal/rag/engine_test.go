package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/rockybot-go/internal/rag"
	"github.com/54b3r/rockybot-go/internal/rag/ragtest"
)

// fakeIndex is a canned Searcher.
type fakeIndex struct {
	embedder string
	matches  []rag.Match
	queries  int
}

func (f *fakeIndex) Len() int             { return len(f.matches) }
func (f *fakeIndex) EmbedderName() string { return f.embedder }
func (f *fakeIndex) Query(_ context.Context, _ []float32, k int) ([]rag.Match, error) {
	f.queries++
	if k < len(f.matches) {
		return f.matches[:k], nil
	}
	return f.matches, nil
}

func match(text, source string, score float32) rag.Match {
	return rag.Match{Chunk: rag.Chunk{Text: text, Source: source}, Score: score}
}

func TestEngine_Answer(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{embedder: "fake/bow", matches: []rag.Match{
		match("Tesla shares fell 5% on Monday.", "https://news.example/tesla", 0.9),
		match("Apple released a phone.", "https://news.example/apple", 0.2),
	}}
	llm := &ragtest.Completion{Response: "FINAL ANSWER: Tesla fell.\nSOURCES: https://news.example/tesla, https://news.example/tesla"}

	engine, err := rag.NewEngine(idx, rag.EngineConfig{})
	require.NoError(t, err)

	got, err := engine.Answer(context.Background(), "Which stock fell?", &ragtest.Embedder{}, llm, 0)
	require.NoError(t, err)

	assert.Equal(t, "Tesla fell.", got.Text)
	assert.Equal(t, []string{"https://news.example/tesla"}, got.Sources)
	assert.Len(t, got.Chunks, 2)

	prompts := llm.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Source: https://news.example/tesla")
	assert.Contains(t, prompts[0], "QUESTION: Which stock fell?")
}

func TestEngine_Answer_Guards(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		idx      *fakeIndex
		question string
		emb      *ragtest.Embedder
		wantErr  error
	}{
		{
			name:     "empty knowledge base",
			idx:      &fakeIndex{},
			question: "anything?",
			emb:      &ragtest.Embedder{},
			wantErr:  rag.ErrNoKnowledgeBase,
		},
		{
			name:     "embedder mismatch",
			idx:      &fakeIndex{embedder: "openai/text-embedding-3-small", matches: []rag.Match{match("a", "u", 1)}},
			question: "anything?",
			emb:      &ragtest.Embedder{},
			wantErr:  rag.ErrEmbeddingProviderMismatch,
		},
		{
			name:     "blank question",
			idx:      &fakeIndex{embedder: "fake/bow", matches: []rag.Match{match("a", "u", 1)}},
			question: "   ",
			emb:      &ragtest.Embedder{},
			wantErr:  rag.ErrEmptyInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			llm := &ragtest.Completion{Response: "x"}
			engine, err := rag.NewEngine(tc.idx, rag.EngineConfig{})
			require.NoError(t, err)

			_, err = engine.Answer(context.Background(), tc.question, tc.emb, llm, 3)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, llm.Prompts(), "completion must not be called")
			assert.Zero(t, tc.emb.Calls(), "embedder must not be called")
			assert.Zero(t, tc.idx.queries)
		})
	}
}

func TestEngine_Answer_MismatchCarriesBothNames(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{embedder: "huggingface/all-MiniLM-L6-v2", matches: []rag.Match{match("a", "u", 1)}}
	engine, err := rag.NewEngine(idx, rag.EngineConfig{})
	require.NoError(t, err)

	_, err = engine.Answer(context.Background(), "q", &ragtest.Embedder{}, &ragtest.Completion{}, 3)

	var mismatch *rag.EmbeddingMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "huggingface/all-MiniLM-L6-v2", mismatch.Recorded)
	assert.Equal(t, "fake/bow", mismatch.Requested)
}

func TestEngine_Answer_NoMatches(t *testing.T) {
	t.Parallel()
	idx := &emptyResultIndex{}
	llm := &ragtest.Completion{Response: "should not be used"}
	engine, err := rag.NewEngine(idx, rag.EngineConfig{})
	require.NoError(t, err)

	got, err := engine.Answer(context.Background(), "q", &ragtest.Embedder{}, llm, 3)
	require.NoError(t, err)
	assert.Equal(t, rag.NoRelevantInformation, got.Text)
	assert.Empty(t, got.Sources)
	assert.Empty(t, llm.Prompts())
}

// emptyResultIndex reports entries but never finds any.
type emptyResultIndex struct{}

func (emptyResultIndex) Len() int             { return 1 }
func (emptyResultIndex) EmbedderName() string { return "fake/bow" }
func (emptyResultIndex) Query(context.Context, []float32, int) ([]rag.Match, error) {
	return nil, nil
}

func TestEngine_Answer_CompletionFailure(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{embedder: "fake/bow", matches: []rag.Match{match("a", "u", 1)}}
	llm := &ragtest.Completion{Err: errors.New("rate limited")}
	engine, err := rag.NewEngine(idx, rag.EngineConfig{})
	require.NoError(t, err)

	_, err = engine.Answer(context.Background(), "q", &ragtest.Embedder{}, llm, 3)
	require.ErrorIs(t, err, rag.ErrCompletionProvider)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Len(t, llm.Prompts(), 1, "no retry")
}

func TestEngine_Answer_MissingSourcesLine(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{embedder: "fake/bow", matches: []rag.Match{match("a", "u", 1)}}
	llm := &ragtest.Completion{Response: "Just an answer."}
	engine, err := rag.NewEngine(idx, rag.EngineConfig{})
	require.NoError(t, err)

	got, err := engine.Answer(context.Background(), "q", &ragtest.Embedder{}, llm, 3)
	require.NoError(t, err)
	assert.Equal(t, "Just an answer.", got.Text)
	assert.Empty(t, got.Sources)
}

func TestEngine_Answer_TrimsToBudget(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("word ", 400) // ~500 tokens
	idx := &fakeIndex{embedder: "fake/bow", matches: []rag.Match{
		match(long, "u1", 0.9),
		match(long, "u2", 0.8),
		match(long, "u3", 0.7),
	}}
	llm := &ragtest.Completion{Response: "ok\nSOURCES: u1"}
	engine, err := rag.NewEngine(idx, rag.EngineConfig{MaxContextTokens: 1200})
	require.NoError(t, err)

	got, err := engine.Answer(context.Background(), "q", &ragtest.Embedder{}, llm, 3)
	require.NoError(t, err)
	assert.Len(t, got.Chunks, 2)
	assert.NotContains(t, llm.Prompts()[0], "Source: u3")
}
