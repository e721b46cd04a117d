package provider

import (
	"os"
	"strconv"
	"strings"
)

// ConfigFromEnv builds a Config from environment variables.
//
// Environment variables:
//
//	LLM_PROVIDER        = openai | azure | anthropic | gemini | ollama | huggingface | ark (default: openai)
//	EMBEDDING_PROVIDER  = huggingface | openai | azure | ollama | gemini (default: huggingface)
//	EMBEDDING_FALLBACK  = provider used when huggingface is unreachable (default: openai, "none" disables)
//
//	OpenAI:      OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o-mini), OPENAI_BASE_URL,
//	             OPENAI_EMBEDDING_MODEL (default: text-embedding-3-small), EMBEDDING_DIMENSIONS
//	Azure:       AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	             AZURE_OPENAI_EMBEDDING_DEPLOYMENT, AZURE_OPENAI_API_VERSION (default: 2024-06-01)
//	Anthropic:   ANTHROPIC_API_KEY, ANTHROPIC_MODEL (default: claude-3-5-sonnet-latest), ANTHROPIC_BASE_URL
//	Gemini:      GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-1.5-pro),
//	             GEMINI_EMBEDDING_MODEL (default: text-embedding-004)
//	Ollama:      OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama2),
//	             OLLAMA_EMBEDDING_MODEL (default: nomic-embed-text)
//	HuggingFace: HF_TGI_URL (default: http://localhost:8080/v1), HF_MODEL (default: microsoft/DialoGPT-small),
//	             HF_TEI_URL (default: http://localhost:8081),
//	             HF_EMBEDDING_MODEL (default: sentence-transformers/all-MiniLM-L6-v2), HF_API_KEY
//	Ark:         ARK_API_KEY, ARK_MODEL, ARK_BASE_URL
//
//	Shared:      MODEL_MAX_TOKENS (default: 500), MODEL_TEMPERATURE (default: 0.9)
func ConfigFromEnv() *Config {
	fallback := Backend(strings.ToLower(getEnvOrDefault("EMBEDDING_FALLBACK", string(BackendOpenAI))))
	if fallback == "none" {
		fallback = ""
	}
	return &Config{
		DefaultCompletion: backendFromEnv("LLM_PROVIDER", BackendOpenAI),
		DefaultEmbedding:  backendFromEnv("EMBEDDING_PROVIDER", BackendHuggingFace),
		FallbackEmbedding: fallback,
		OpenAI: ProviderOpenAI{
			APIKey:              os.Getenv("OPENAI_API_KEY"),
			Model:               getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:             os.Getenv("OPENAI_BASE_URL"),
			EmbeddingModel:      getEnvOrDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		},
		AzureOpenAI: ProviderAzureOpenAI{
			APIKey:              os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:            os.Getenv("AZURE_OPENAI_ENDPOINT"),
			Deployment:          os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			EmbeddingDeployment: os.Getenv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT"),
			APIVersion:          getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-06-01"),
		},
		Anthropic: ProviderAnthropic{
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			Model:   getEnvOrDefault("ANTHROPIC_MODEL", defaultAnthropicModel),
			BaseURL: getEnvOrDefault("ANTHROPIC_BASE_URL", defaultAnthropicBaseURL),
		},
		Gemini: ProviderGemini{
			APIKey:         os.Getenv("GOOGLE_API_KEY"),
			Model:          getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-pro"),
			EmbeddingModel: getEnvOrDefault("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		},
		Ollama: ProviderOllama{
			Host:           getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			Model:          getEnvOrDefault("OLLAMA_MODEL", "llama2"),
			EmbeddingModel: getEnvOrDefault("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		HuggingFace: ProviderHuggingFace{
			CompletionURL:  getEnvOrDefault("HF_TGI_URL", "http://localhost:8080/v1"),
			Model:          getEnvOrDefault("HF_MODEL", "microsoft/DialoGPT-small"),
			EmbeddingURL:   getEnvOrDefault("HF_TEI_URL", "http://localhost:8081"),
			EmbeddingModel: getEnvOrDefault("HF_EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
			APIKey:         os.Getenv("HF_API_KEY"),
		},
		Ark: ProviderArk{
			APIKey:  os.Getenv("ARK_API_KEY"),
			Model:   os.Getenv("ARK_MODEL"),
			BaseURL: os.Getenv("ARK_BASE_URL"),
		},
		Tuning: SharedTuning{
			MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 500),
			Temperature: getEnvFloat32("MODEL_TEMPERATURE", 0.9),
		},
	}
}

// backendFromEnv parses a backend name from key, accepting display labels.
// Unknown names are kept verbatim so resolution reports them.
func backendFromEnv(key string, fallback Backend) Backend {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if b, ok := ParseBackend(v); ok {
		return b
	}
	return Backend(v)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
