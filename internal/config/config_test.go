package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
llm:
  provider: anthropic
  max_tokens: 500
  temperature: 0.9
  anthropic:
    model: claude-3-5-sonnet-latest
  azure:
    endpoint: https://my-resource.openai.azure.com
    deployment: gpt-4o
    api_version: "2025-04-01-preview"
embedding:
  provider: huggingface
  fallback: openai
  huggingface_url: http://tei.internal:8080
knowledge_base:
  store: file
  path: /var/lib/rockybot
  index: qdrant
qdrant:
  host: qdrant.internal
  port: 6334
  collection: news
loader:
  timeout: 30s
rag:
  top_k: 5
  max_context_tokens: 3000
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"LLM_PROVIDER", "MODEL_MAX_TOKENS", "MODEL_TEMPERATURE", "ANTHROPIC_MODEL",
		"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT", "AZURE_OPENAI_API_VERSION",
		"EMBEDDING_PROVIDER", "EMBEDDING_FALLBACK", "HF_TEI_URL",
		"KB_STORE", "KB_PATH", "INDEX_BACKEND",
		"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION",
		"LOADER_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
		"RAG_TOP_K", "RAG_MAX_CONTEXT_TOKENS", "CHUNK_SIZE",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"LLM_PROVIDER":             "anthropic",
		"RAG_TOP_K":                "5",
		"RAG_MAX_CONTEXT_TOKENS":   "3000",
		"MODEL_MAX_TOKENS":         "500",
		"MODEL_TEMPERATURE":        "0.9",
		"ANTHROPIC_MODEL":          "claude-3-5-sonnet-latest",
		"AZURE_OPENAI_ENDPOINT":    "https://my-resource.openai.azure.com",
		"AZURE_OPENAI_DEPLOYMENT":  "gpt-4o",
		"AZURE_OPENAI_API_VERSION": "2025-04-01-preview",
		"EMBEDDING_PROVIDER":       "huggingface",
		"EMBEDDING_FALLBACK":       "openai",
		"HF_TEI_URL":               "http://tei.internal:8080",
		"KB_STORE":                 "file",
		"KB_PATH":                  "/var/lib/rockybot",
		"INDEX_BACKEND":            "qdrant",
		"QDRANT_HOST":              "qdrant.internal",
		"QDRANT_PORT":              "6334",
		"QDRANT_COLLECTION":        "news",
		"LOADER_TIMEOUT":           "30s",
		"LOG_LEVEL":                "debug",
		"LOG_FORMAT":               "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
llm:
  provider: ollama
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading; it must not be overwritten.
	t.Setenv("LLM_PROVIDER", "azure")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("LLM_PROVIDER"); got != "azure" {
		t.Errorf("LLM_PROVIDER: expected env override %q, got %q", "azure", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestFloat32Str(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float32
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{0.3, "0.3"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := float32Str(tt.in); got != tt.want {
			t.Errorf("float32Str(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := []byte("OPENAI_API_KEY=sk-from-dotenv\nLLM_PROVIDER=openai\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("LLM_PROVIDER", "anthropic")

	loaded, err := LoadDotEnv(path, slog.Default())
	if err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if loaded != path {
		t.Errorf("loaded path: got %q, want %q", loaded, path)
	}
	if got := os.Getenv("OPENAI_API_KEY"); got != "sk-from-dotenv" {
		t.Errorf("OPENAI_API_KEY: got %q, want %q", got, "sk-from-dotenv")
	}
	if got := os.Getenv("LLM_PROVIDER"); got != "anthropic" {
		t.Errorf("LLM_PROVIDER: existing env must win, got %q", got)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	t.Parallel()

	loaded, err := LoadDotEnv(filepath.Join(t.TempDir(), ".env"), slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != "" {
		t.Errorf("expected empty path, got %q", loaded)
	}
}

func TestResolveConfigPath_EnvVar(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rockybot.yaml")
	if err := os.WriteFile(cfgPath, []byte("llm:\n  provider: openai\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROCKYBOT_CONFIG", cfgPath)

	if got := resolveConfigPath(""); got != cfgPath {
		t.Errorf("resolveConfigPath: got %q, want %q", got, cfgPath)
	}
}

func TestIntStr(t *testing.T) {
	t.Parallel()
	if got := intStr(0); got != "" {
		t.Errorf("intStr(0) = %q, want empty", got)
	}
	if got := intStr(6334); got != "6334" {
		t.Errorf("intStr(6334) = %q, want %q", got, "6334")
	}
}
