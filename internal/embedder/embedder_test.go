package embedder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceEmbedder_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/embed":
			var req teiEmbedRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.True(t, req.Normalize)
			assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))
			out := make([][]float32, len(req.Inputs))
			for i := range req.Inputs {
				out[i] = []float32{float32(i), 1}
			}
			_ = json.NewEncoder(w).Encode(out)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	emb := NewHuggingFaceEmbedder(&HuggingFaceConfig{
		URL:    srv.URL + "/",
		Model:  "sentence-transformers/all-MiniLM-L6-v2",
		APIKey: "hf-token",
	})
	assert.Equal(t, "huggingface/sentence-transformers/all-MiniLM-L6-v2", emb.Name())
	require.NoError(t, emb.Ping(context.Background()))

	got, err := emb.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}}, got)
}

func TestHuggingFaceEmbedder_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"error":"batch too large","error_type":"Validation"}`))
	}))
	t.Cleanup(srv.Close)

	emb := NewHuggingFaceEmbedder(&HuggingFaceConfig{URL: srv.URL, Model: "m"})
	_, err := emb.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch too large")
	assert.Error(t, emb.Ping(context.Background()))
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		var req ollamaEmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		resp := ollamaEmbedResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.5, 0.5, 0.5})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	assert.Equal(t, "ollama/nomic-embed-text", emb.Name())
	require.NoError(t, emb.Ping(context.Background()))

	got, err := emb.Embed(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose: the embedder must sort by index.
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 1]},
				{"object": "embedding", "index": 0, "embedding": [1, 0]}
			],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	}))
	t.Cleanup(srv.Close)

	emb := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL: srv.URL + "/v1",
		APIKey:  "sk-test",
		Model:   "text-embedding-3-small",
	})
	assert.Equal(t, "openai/text-embedding-3-small", emb.Name())

	got, err := emb.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, got)
}

func TestOpenAIEmbedder_AzureName(t *testing.T) {
	t.Parallel()
	emb := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL:    "https://example.openai.azure.com",
		APIKey:     "key",
		Model:      "embeddings-prod",
		Azure:      true,
		APIVersion: "2024-06-01",
	})
	assert.Equal(t, "azure/embeddings-prod", emb.Name())
}

func TestWarnIfChatModel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		model string
		want  bool
	}{
		{"text-embedding-3-small", false},
		{"sentence-transformers/all-MiniLM-L6-v2", false},
		{"nomic-embed-text", false},
		{"gpt-4o", true},
		{"llama2", true},
		{"microsoft/DialoGPT-small", true},
	}
	for _, tc := range cases {
		if got := WarnIfChatModel(slog.Default(), "test", tc.model); got != tc.want {
			t.Errorf("WarnIfChatModel(%q) = %v, want %v", tc.model, got, tc.want)
		}
	}
}
