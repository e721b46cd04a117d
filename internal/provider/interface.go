// Package provider resolves completion and embedding providers by name.
//
// The set of providers is closed: OpenAI, Azure OpenAI, Anthropic, Google
// Gemini, Ollama, a local Hugging Face inference server and Volcengine Ark
// for completions; a local Hugging Face embedding server, OpenAI, Azure
// OpenAI, Ollama and Gemini for embeddings. Each is built lazily the first
// time it is requested and reused afterwards.
package provider

import (
	"fmt"
	"strings"
)

// Backend enumerates the supported providers.
type Backend string

const (
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendAnthropic selects the Anthropic Messages API.
	BackendAnthropic Backend = "anthropic"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendHuggingFace selects local Hugging Face inference servers
	// (text-generation-inference for completions, text-embeddings-inference
	// for embeddings).
	BackendHuggingFace Backend = "huggingface"
	// BackendArk selects Volcengine Ark.
	BackendArk Backend = "ark"
)

// CompletionBackends lists the backends that can answer prompts.
var CompletionBackends = []Backend{
	BackendOpenAI, BackendAzure, BackendAnthropic, BackendGemini,
	BackendOllama, BackendHuggingFace, BackendArk,
}

// EmbeddingBackends lists the backends that can embed text.
var EmbeddingBackends = []Backend{
	BackendHuggingFace, BackendOpenAI, BackendAzure, BackendOllama, BackendGemini,
}

// aliases maps accepted display names to backends. Lookup is case-insensitive.
var aliases = map[string]Backend{
	"openai":              BackendOpenAI,
	"azure":               BackendAzure,
	"azure openai":        BackendAzure,
	"anthropic":           BackendAnthropic,
	"anthropic claude":    BackendAnthropic,
	"claude":              BackendAnthropic,
	"gemini":              BackendGemini,
	"google gemini":       BackendGemini,
	"ollama":              BackendOllama,
	"ollama (local)":      BackendOllama,
	"huggingface":         BackendHuggingFace,
	"hugging face":        BackendHuggingFace,
	"hugging face (free)": BackendHuggingFace,
	"local huggingface":   BackendHuggingFace,
	"ark":                 BackendArk,
}

// ParseBackend maps a provider name or display label to a Backend.
func ParseBackend(name string) (Backend, bool) {
	b, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return b, ok
}

// ProviderOpenAI holds OpenAI settings.
type ProviderOpenAI struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the chat model name.
	Model string
	// BaseURL overrides the API endpoint for OpenAI-compatible servers.
	BaseURL string
	// EmbeddingModel is the embedding model name.
	EmbeddingModel string
	// EmbeddingDimensions overrides the embedding vector size (0 = default).
	EmbeddingDimensions int
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	// APIKey is the Azure OpenAI API key.
	APIKey string
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string
	// Deployment is the chat deployment name.
	Deployment string
	// EmbeddingDeployment is the embedding deployment name.
	EmbeddingDeployment string
	// APIVersion is the Azure OpenAI REST API version.
	APIVersion string
}

// ProviderAnthropic holds Anthropic settings.
type ProviderAnthropic struct {
	// APIKey is the Anthropic API key.
	APIKey string
	// Model is the Claude model name.
	Model string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	// APIKey is the Google AI Studio API key.
	APIKey string
	// Model is the chat model name.
	Model string
	// EmbeddingModel is the embedding model name.
	EmbeddingModel string
}

// ProviderOllama holds Ollama settings.
type ProviderOllama struct {
	// Host is the Ollama API endpoint.
	Host string
	// Model is the chat model name.
	Model string
	// EmbeddingModel is the embedding model name.
	EmbeddingModel string
}

// ProviderHuggingFace holds settings for local Hugging Face inference servers.
type ProviderHuggingFace struct {
	// CompletionURL is the OpenAI-compatible base URL of a
	// text-generation-inference server, e.g. http://localhost:8080/v1.
	CompletionURL string
	// Model is the generation model served by CompletionURL.
	Model string
	// EmbeddingURL is the base URL of a text-embeddings-inference server.
	EmbeddingURL string
	// EmbeddingModel is the embedding model served by EmbeddingURL.
	EmbeddingModel string
	// APIKey is an optional Bearer token for hosted endpoints.
	APIKey string
}

// ProviderArk holds Volcengine Ark settings.
type ProviderArk struct {
	// APIKey is the Ark API key.
	APIKey string
	// Model is the Ark endpoint or model ID.
	Model string
	// BaseURL overrides the Ark API endpoint.
	BaseURL string
}

// SharedTuning holds generation parameters shared by all completion backends.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per answer.
	MaxTokens int
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Config holds all provider configuration.
type Config struct {
	// DefaultCompletion is used when a request names no completion provider.
	DefaultCompletion Backend
	// DefaultEmbedding is used when a request names no embedding provider.
	DefaultEmbedding Backend
	// FallbackEmbedding replaces the Hugging Face embedder when it cannot
	// be reached. Empty disables the fallback.
	FallbackEmbedding Backend

	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Anthropic   ProviderAnthropic
	Gemini      ProviderGemini
	Ollama      ProviderOllama
	HuggingFace ProviderHuggingFace
	Ark         ProviderArk
	Tuning      SharedTuning
}

// ValidateCompletion checks that b has the settings it needs to answer prompts.
func (c *Config) ValidateCompletion(b Backend) error {
	switch b {
	case BackendOpenAI:
		return requireEnv(b, "OPENAI_API_KEY", c.OpenAI.APIKey, "OPENAI_MODEL", c.OpenAI.Model)
	case BackendAzure:
		return requireEnv(b,
			"AZURE_OPENAI_API_KEY", c.AzureOpenAI.APIKey,
			"AZURE_OPENAI_ENDPOINT", c.AzureOpenAI.Endpoint,
			"AZURE_OPENAI_DEPLOYMENT", c.AzureOpenAI.Deployment,
		)
	case BackendAnthropic:
		return requireEnv(b, "ANTHROPIC_API_KEY", c.Anthropic.APIKey, "ANTHROPIC_MODEL", c.Anthropic.Model)
	case BackendGemini:
		return requireEnv(b, "GOOGLE_API_KEY", c.Gemini.APIKey, "GEMINI_MODEL", c.Gemini.Model)
	case BackendOllama:
		return requireEnv(b, "OLLAMA_HOST", c.Ollama.Host, "OLLAMA_MODEL", c.Ollama.Model)
	case BackendHuggingFace:
		return requireEnv(b, "HF_TGI_URL", c.HuggingFace.CompletionURL, "HF_MODEL", c.HuggingFace.Model)
	case BackendArk:
		return requireEnv(b, "ARK_API_KEY", c.Ark.APIKey, "ARK_MODEL", c.Ark.Model)
	default:
		return fmt.Errorf("provider: unknown completion backend %q", b)
	}
}

// ValidateEmbedding checks that b has the settings it needs to embed text.
func (c *Config) ValidateEmbedding(b Backend) error {
	switch b {
	case BackendHuggingFace:
		return requireEnv(b, "HF_TEI_URL", c.HuggingFace.EmbeddingURL, "HF_EMBEDDING_MODEL", c.HuggingFace.EmbeddingModel)
	case BackendOpenAI:
		return requireEnv(b, "OPENAI_API_KEY", c.OpenAI.APIKey, "OPENAI_EMBEDDING_MODEL", c.OpenAI.EmbeddingModel)
	case BackendAzure:
		return requireEnv(b,
			"AZURE_OPENAI_API_KEY", c.AzureOpenAI.APIKey,
			"AZURE_OPENAI_ENDPOINT", c.AzureOpenAI.Endpoint,
			"AZURE_OPENAI_EMBEDDING_DEPLOYMENT", c.AzureOpenAI.EmbeddingDeployment,
		)
	case BackendOllama:
		return requireEnv(b, "OLLAMA_HOST", c.Ollama.Host, "OLLAMA_EMBEDDING_MODEL", c.Ollama.EmbeddingModel)
	case BackendGemini:
		return requireEnv(b, "GOOGLE_API_KEY", c.Gemini.APIKey, "GEMINI_EMBEDDING_MODEL", c.Gemini.EmbeddingModel)
	default:
		return fmt.Errorf("provider: unknown embedding backend %q", b)
	}
}

// requireEnv takes (envName, value) pairs and reports the first empty value.
func requireEnv(b Backend, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("provider: %s is required for %s backend", pairs[i], b)
		}
	}
	return nil
}
