package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/54b3r/rockybot-go/internal/rag"
)

// probeClient is used for zero-cost readiness probes.
var probeClient = &http.Client{Timeout: 5 * time.Second}

// newCompletion builds the completion provider for backend b. Every backend
// is an eino chat model whose calls are reported to handlers.
func newCompletion(ctx context.Context, cfg *Config, b Backend, handlers []callbacks.Handler) (rag.TextCompletion, error) {
	if err := cfg.ValidateCompletion(b); err != nil {
		return nil, err
	}

	var (
		m    model.BaseChatModel
		name string
		ping func(context.Context) error
		err  error
	)
	switch b {
	case BackendOpenAI:
		m, err = newOpenAI(ctx, cfg)
		name = "openai/" + cfg.OpenAI.Model
	case BackendAnthropic:
		m, err = newAnthropic(ctx, cfg)
		name = "anthropic/" + cfg.Anthropic.Model
		ping = anthropicProbe(cfg)
	case BackendAzure:
		m, err = newAzure(ctx, cfg)
		name = "azure/" + cfg.AzureOpenAI.Deployment
	case BackendGemini:
		m, err = newGemini(ctx, cfg)
		name = "gemini/" + cfg.Gemini.Model
	case BackendOllama:
		m, err = newOllama(ctx, cfg)
		name = "ollama/" + cfg.Ollama.Model
		ping = httpProbe(strings.TrimRight(cfg.Ollama.Host, "/")+"/api/tags", nil)
	case BackendHuggingFace:
		m, err = newHuggingFace(ctx, cfg)
		name = "huggingface/" + cfg.HuggingFace.Model
		root := strings.TrimSuffix(strings.TrimRight(cfg.HuggingFace.CompletionURL, "/"), "/v1")
		ping = httpProbe(root+"/health", bearerHeader(cfg.HuggingFace.APIKey))
	case BackendArk:
		m, err = newArk(ctx, cfg)
		name = "ark/" + cfg.Ark.Model
	default:
		return nil, fmt.Errorf("provider: unknown completion backend %q", b)
	}
	if err != nil {
		return nil, err
	}
	return &chatCompletion{name: name, model: m, handlers: handlers, ping: ping}, nil
}

// newOpenAI constructs a chat model backed by the OpenAI API.
func newOpenAI(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	maxTokens, temp := cfg.Tuning.MaxTokens, cfg.Tuning.Temperature
	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		Model:       cfg.OpenAI.Model,
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
}

// newAzure constructs a chat model backed by Azure OpenAI Service.
func newAzure(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	mc := &einoopenai.ChatModelConfig{
		Model:      cfg.AzureOpenAI.Deployment,
		APIKey:     cfg.AzureOpenAI.APIKey,
		BaseURL:    cfg.AzureOpenAI.Endpoint,
		ByAzure:    true,
		APIVersion: cfg.AzureOpenAI.APIVersion,
		// Use the deployment name as-is; the default mapper strips dots/colons
		// which breaks deployment names like "gpt-4.1".
		AzureModelMapperFunc: func(model string) string { return model },
	}
	// Reasoning deployments reject max_tokens and temperature.
	if !isAzureReasoningModel(cfg.AzureOpenAI.Deployment) {
		maxTokens, temp := cfg.Tuning.MaxTokens, cfg.Tuning.Temperature
		mc.MaxTokens = &maxTokens
		mc.Temperature = &temp
	}
	return einoopenai.NewChatModel(ctx, mc) //nolint:wrapcheck // constructor passthrough
}

// isAzureReasoningModel reports whether deployment names an o-series or
// codex reasoning model.
func isAzureReasoningModel(deployment string) bool {
	d := strings.ToLower(deployment)
	for _, prefix := range []string{"o1", "o3", "o4", "codex"} {
		if strings.HasPrefix(d, prefix) {
			return true
		}
	}
	return false
}

// newHuggingFace constructs a chat model against a local
// text-generation-inference server through its OpenAI-compatible API.
func newHuggingFace(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	maxTokens, temp := cfg.Tuning.MaxTokens, cfg.Tuning.Temperature
	apiKey := cfg.HuggingFace.APIKey
	if apiKey == "" {
		// TGI ignores the key but the client refuses to send an empty one.
		apiKey = "-"
	}
	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		Model:       cfg.HuggingFace.Model,
		APIKey:      apiKey,
		BaseURL:     cfg.HuggingFace.CompletionURL,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
}

// newOllama constructs a chat model backed by a local Ollama instance.
func newOllama(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		BaseURL: cfg.Ollama.Host,
		Model:   cfg.Ollama.Model,
	})
}

// newArk constructs a chat model backed by Volcengine Ark.
func newArk(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	maxTokens, temp := cfg.Tuning.MaxTokens, cfg.Tuning.Temperature
	return einoark.NewChatModel(ctx, &einoark.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		Model:       cfg.Ark.Model,
		APIKey:      cfg.Ark.APIKey,
		BaseURL:     cfg.Ark.BaseURL,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
}

// newGemini constructs a chat model backed by Google Gemini (AI Studio).
func newGemini(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create Gemini client: %w", err)
	}
	return einogemini.NewChatModel(ctx, &einogemini.Config{ //nolint:wrapcheck // constructor passthrough
		Client: client,
		Model:  cfg.Gemini.Model,
	})
}

// httpProbe returns a function that GETs url with header and expects a 2xx
// status.
func httpProbe(url string, header http.Header) func(context.Context) error {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		for k, v := range header {
			req.Header[k] = v
		}
		resp, err := probeClient.Do(req)
		if err != nil {
			return fmt.Errorf("GET %s: %w", url, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
		}
		return nil
	}
}

// bearerHeader returns an Authorization header for token, or nil when empty.
func bearerHeader(token string) http.Header {
	if token == "" {
		return nil
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
