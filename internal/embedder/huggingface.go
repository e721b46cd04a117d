package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HuggingFaceEmbedder implements rag.TextEmbedding against a Hugging Face
// Text Embeddings Inference (TEI) server, typically running
// sentence-transformers/all-MiniLM-L6-v2 locally. It is safe for concurrent use.
type HuggingFaceEmbedder struct {
	// url is the TEI server base URL (e.g. "http://localhost:8081").
	url string
	// model is the model served by TEI, used for Name only.
	model string
	// apiKey is an optional Bearer token for hosted endpoints.
	apiKey string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// HuggingFaceConfig holds the settings for constructing a HuggingFaceEmbedder.
type HuggingFaceConfig struct {
	// URL is the TEI server base URL.
	URL string
	// Model is the model name the server was started with.
	Model string
	// APIKey is an optional Bearer token.
	APIKey string
}

// NewHuggingFaceEmbedder constructs a HuggingFaceEmbedder from the given config.
func NewHuggingFaceEmbedder(cfg *HuggingFaceConfig) *HuggingFaceEmbedder {
	return &HuggingFaceEmbedder{
		url:    strings.TrimRight(cfg.URL, "/"),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns "huggingface/<model>".
func (e *HuggingFaceEmbedder) Name() string { return "huggingface/" + e.model }

// teiEmbedRequest is the JSON body sent to the TEI /embed endpoint.
type teiEmbedRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize"`
	Truncate  bool     `json:"truncate"`
}

// teiError is the JSON body returned by TEI on failure.
type teiError struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// Embed converts a batch of texts into their corresponding embeddings.
func (e *HuggingFaceEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(teiEmbedRequest{Inputs: texts, Normalize: true, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("huggingface embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+"/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("huggingface embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("huggingface embedder: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		var te teiError
		if json.Unmarshal(body, &te) == nil && te.Error != "" {
			msg = te.Error
		}
		return nil, fmt.Errorf("huggingface embedder: %s", msg)
	}

	var embeddings [][]float32
	if err := json.Unmarshal(body, &embeddings); err != nil {
		return nil, fmt.Errorf("huggingface embedder: decode response: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("huggingface embedder: expected %d embeddings, got %d", len(texts), len(embeddings))
	}
	return embeddings, nil
}

// Ping checks that the TEI server answers GET /health.
func (e *HuggingFaceEmbedder) Ping(ctx context.Context) error {
	if err := getOK(ctx, e.client, e.url+"/health", e.apiKey); err != nil {
		return fmt.Errorf("huggingface embedder: %w", err)
	}
	return nil
}
