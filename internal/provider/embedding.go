package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/54b3r/rockybot-go/internal/embedder"
	"github.com/54b3r/rockybot-go/internal/rag"
)

// newEmbedding builds the embedder for backend b. The Hugging Face embedder
// is probed so an unreachable local server is reported at resolution time.
func newEmbedding(ctx context.Context, cfg *Config, b Backend, log *slog.Logger) (rag.TextEmbedding, error) {
	if err := cfg.ValidateEmbedding(b); err != nil {
		return nil, err
	}

	switch b {
	case BackendHuggingFace:
		embedder.WarnIfChatModel(log, string(b), cfg.HuggingFace.EmbeddingModel)
		e := embedder.NewHuggingFaceEmbedder(&embedder.HuggingFaceConfig{
			URL:    cfg.HuggingFace.EmbeddingURL,
			Model:  cfg.HuggingFace.EmbeddingModel,
			APIKey: cfg.HuggingFace.APIKey,
		})
		if err := e.Ping(ctx); err != nil {
			return nil, err
		}
		return e, nil

	case BackendOpenAI:
		embedder.WarnIfChatModel(log, string(b), cfg.OpenAI.EmbeddingModel)
		return embedder.NewOpenAIEmbedder(&embedder.OpenAIConfig{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKey:     cfg.OpenAI.APIKey,
			Model:      cfg.OpenAI.EmbeddingModel,
			Dimensions: cfg.OpenAI.EmbeddingDimensions,
		}), nil

	case BackendAzure:
		return embedder.NewOpenAIEmbedder(&embedder.OpenAIConfig{
			BaseURL:    strings.TrimRight(cfg.AzureOpenAI.Endpoint, "/"),
			APIKey:     cfg.AzureOpenAI.APIKey,
			Model:      cfg.AzureOpenAI.EmbeddingDeployment,
			Dimensions: cfg.OpenAI.EmbeddingDimensions,
			Azure:      true,
			APIVersion: cfg.AzureOpenAI.APIVersion,
		}), nil

	case BackendOllama:
		embedder.WarnIfChatModel(log, string(b), cfg.Ollama.EmbeddingModel)
		return embedder.NewOllamaEmbedder(&embedder.OllamaConfig{
			Host:  strings.TrimRight(cfg.Ollama.Host, "/"),
			Model: cfg.Ollama.EmbeddingModel,
		}), nil

	case BackendGemini:
		e, err := embedder.NewGeminiEmbedder(ctx, &embedder.GeminiConfig{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.EmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("provider: %w", err)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("provider: unknown embedding backend %q", b)
	}
}
