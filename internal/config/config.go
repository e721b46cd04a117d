// Package config provides layered configuration for rockybot.
// Configuration is loaded with a layered precedence: defaults → .env → YAML
// file → env vars. Environment variables always win, so a deployment can
// override any file value without editing it.
//
// File search order for YAML:
//  1. --config CLI flag (explicit path)
//  2. ROCKYBOT_CONFIG environment variable
//  3. ~/.rockybot/config.yaml
//  4. ./rockybot.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultDotEnv is the dotenv file read by LoadDotEnv when no path is given.
const DefaultDotEnv = ".env"

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// LLM configures the completion providers.
	LLM LLMConfig `yaml:"llm"`

	// Embedding configures the embedding providers.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// KnowledgeBase configures where the knowledge base is persisted.
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`

	// Qdrant configures the Qdrant vector store connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Loader configures article fetching.
	Loader LoaderConfig `yaml:"loader"`

	// RAG configures chunking and retrieval.
	RAG RAGConfig `yaml:"rag"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LLMConfig holds completion provider settings.
type LLMConfig struct {
	// Provider is the default completion provider: openai, anthropic,
	// huggingface, azure, ollama, gemini, ark.
	Provider string `yaml:"provider"`

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32 `yaml:"temperature"`

	// OpenAI holds OpenAI-specific settings.
	OpenAI OpenAIConfig `yaml:"openai"`

	// Anthropic holds Anthropic-specific settings.
	Anthropic AnthropicConfig `yaml:"anthropic"`

	// HuggingFace holds settings for the local text-generation server.
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`

	// Azure holds Azure OpenAI-specific settings.
	Azure AzureConfig `yaml:"azure"`

	// Ollama holds Ollama-specific settings.
	Ollama OllamaConfig `yaml:"ollama"`

	// Gemini holds Google Gemini-specific settings.
	Gemini GeminiConfig `yaml:"gemini"`

	// Ark holds Volcengine Ark-specific settings.
	Ark ArkConfig `yaml:"ark"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the OpenAI API endpoint.
	BaseURL string `yaml:"base_url"`
	// Model is the OpenAI chat model name.
	Model string `yaml:"model"`
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. Prefer env var ANTHROPIC_API_KEY.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the Anthropic API endpoint.
	BaseURL string `yaml:"base_url"`
	// Model is the Claude model name.
	Model string `yaml:"model"`
}

// HuggingFaceConfig holds Hugging Face settings shared by the local
// text-generation and text-embeddings servers.
type HuggingFaceConfig struct {
	// APIKey is the Hugging Face token. Prefer env var HF_API_KEY.
	APIKey string `yaml:"api_key"`
	// TGIURL is the text-generation-inference endpoint.
	TGIURL string `yaml:"tgi_url"`
	// Model is the generation model name.
	Model string `yaml:"model"`
}

// AzureConfig holds Azure OpenAI provider settings.
type AzureConfig struct {
	// APIKey is the Azure OpenAI API key. Prefer env var AZURE_OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string `yaml:"endpoint"`
	// Deployment is the Azure OpenAI chat deployment name.
	Deployment string `yaml:"deployment"`
	// APIVersion is the Azure OpenAI API version.
	APIVersion string `yaml:"api_version"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host"`
	// Model is the Ollama chat model name.
	Model string `yaml:"model"`
}

// GeminiConfig holds Google Gemini provider settings.
type GeminiConfig struct {
	// APIKey is the Google API key. Prefer env var GOOGLE_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the Gemini chat model name.
	Model string `yaml:"model"`
}

// ArkConfig holds Volcengine Ark provider settings.
type ArkConfig struct {
	// APIKey is the Ark API key. Prefer env var ARK_API_KEY.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the Ark API endpoint.
	BaseURL string `yaml:"base_url"`
	// Model is the Ark endpoint or model ID.
	Model string `yaml:"model"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider is the default embedding provider: huggingface, openai,
	// azure, ollama, gemini.
	Provider string `yaml:"provider"`
	// Fallback is used when the Hugging Face embedder is unavailable.
	// Set to "none" to disable the fallback.
	Fallback string `yaml:"fallback"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// BatchSize is the number of chunks sent per embedding call.
	BatchSize int `yaml:"batch_size"`
	// HuggingFaceURL is the text-embeddings-inference endpoint.
	HuggingFaceURL string `yaml:"huggingface_url"`
	// HuggingFaceModel is the sentence-transformers model name.
	HuggingFaceModel string `yaml:"huggingface_model"`
	// OpenAIModel is the OpenAI embedding model name.
	OpenAIModel string `yaml:"openai_model"`
	// AzureDeployment is the Azure OpenAI embedding deployment name.
	AzureDeployment string `yaml:"azure_deployment"`
	// OllamaModel is the Ollama embedding model name.
	OllamaModel string `yaml:"ollama_model"`
	// GeminiModel is the Gemini embedding model name.
	GeminiModel string `yaml:"gemini_model"`
}

// KnowledgeBaseConfig holds persistence settings.
type KnowledgeBaseConfig struct {
	// Store selects the snapshot backend: sqlite or file.
	Store string `yaml:"store"`
	// Path is the SQLite database file or the snapshot directory.
	Path string `yaml:"path"`
	// Key names the knowledge base inside the store or Qdrant collection.
	Key string `yaml:"key"`
	// Index selects the vector index: memory or qdrant.
	Index string `yaml:"index"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the Qdrant collection name.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// LoaderConfig holds article fetching settings.
type LoaderConfig struct {
	// Timeout is the per-URL fetch timeout, as a Go duration string.
	Timeout string `yaml:"timeout"`
	// MaxBytes caps the size of a fetched page.
	MaxBytes int `yaml:"max_bytes"`
	// UserAgent is sent with every fetch.
	UserAgent string `yaml:"user_agent"`
}

// RAGConfig holds chunking and retrieval settings.
type RAGConfig struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the maximum overlap between consecutive chunks in runes.
	ChunkOverlap int `yaml:"chunk_overlap"`
	// TopK is the number of chunks retrieved per question.
	TopK int `yaml:"top_k"`
	// MaxContextTokens caps the estimated prompt size. Negative disables trimming.
	MaxContextTokens int `yaml:"max_context_tokens"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var ROCKYBOT_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"LLM_PROVIDER", func(c *Config) string { return c.LLM.Provider }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.LLM.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.LLM.Temperature) }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.LLM.OpenAI.APIKey }},
	{"OPENAI_BASE_URL", func(c *Config) string { return c.LLM.OpenAI.BaseURL }},
	{"OPENAI_MODEL", func(c *Config) string { return c.LLM.OpenAI.Model }},
	{"ANTHROPIC_API_KEY", func(c *Config) string { return c.LLM.Anthropic.APIKey }},
	{"ANTHROPIC_BASE_URL", func(c *Config) string { return c.LLM.Anthropic.BaseURL }},
	{"ANTHROPIC_MODEL", func(c *Config) string { return c.LLM.Anthropic.Model }},
	{"HF_API_KEY", func(c *Config) string { return c.LLM.HuggingFace.APIKey }},
	{"HF_TGI_URL", func(c *Config) string { return c.LLM.HuggingFace.TGIURL }},
	{"HF_MODEL", func(c *Config) string { return c.LLM.HuggingFace.Model }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.LLM.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.LLM.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.LLM.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.LLM.Azure.APIVersion }},
	{"OLLAMA_HOST", func(c *Config) string { return c.LLM.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.LLM.Ollama.Model }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.LLM.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.LLM.Gemini.Model }},
	{"ARK_API_KEY", func(c *Config) string { return c.LLM.Ark.APIKey }},
	{"ARK_BASE_URL", func(c *Config) string { return c.LLM.Ark.BaseURL }},
	{"ARK_MODEL", func(c *Config) string { return c.LLM.Ark.Model }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_FALLBACK", func(c *Config) string { return c.Embedding.Fallback }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_BATCH_SIZE", func(c *Config) string { return intStr(c.Embedding.BatchSize) }},
	{"HF_TEI_URL", func(c *Config) string { return c.Embedding.HuggingFaceURL }},
	{"HF_EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.HuggingFaceModel }},
	{"OPENAI_EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.OpenAIModel }},
	{"AZURE_OPENAI_EMBEDDING_DEPLOYMENT", func(c *Config) string { return c.Embedding.AzureDeployment }},
	{"OLLAMA_EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.OllamaModel }},
	{"GEMINI_EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.GeminiModel }},
	{"KB_STORE", func(c *Config) string { return c.KnowledgeBase.Store }},
	{"KB_PATH", func(c *Config) string { return c.KnowledgeBase.Path }},
	{"KB_KEY", func(c *Config) string { return c.KnowledgeBase.Key }},
	{"INDEX_BACKEND", func(c *Config) string { return c.KnowledgeBase.Index }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"LOADER_TIMEOUT", func(c *Config) string { return c.Loader.Timeout }},
	{"LOADER_MAX_BYTES", func(c *Config) string { return intStr(c.Loader.MaxBytes) }},
	{"LOADER_USER_AGENT", func(c *Config) string { return c.Loader.UserAgent }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.RAG.ChunkSize) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.RAG.ChunkOverlap) }},
	{"RAG_TOP_K", func(c *Config) string { return intStr(c.RAG.TopK) }},
	{"RAG_MAX_CONTEXT_TOKENS", func(c *Config) string { return intStr(c.RAG.MaxContextTokens) }},
	{"ROCKYBOT_HOST", func(c *Config) string { return c.Server.Host }},
	{"ROCKYBOT_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"ROCKYBOT_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// LoadDotEnv reads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set are left untouched. A missing
// file is not an error. An empty path means DefaultDotEnv.
func LoadDotEnv(path string, log *slog.Logger) (string, error) {
	if path == "" {
		path = DefaultDotEnv
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("config: no dotenv file found", slog.String("path", path))
			return "", nil
		}
		return "", fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	log.Debug("config: loaded dotenv file", slog.String("path", path))
	return path, nil
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set, do not override
		}
		if err := os.Setenv(m.envKey, yamlVal); err != nil {
			return "", fmt.Errorf("config: failed to set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("ROCKYBOT_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".rockybot", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("rockybot.yaml"); err == nil {
		return "rockybot.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
