package provider

import (
	"context"
	"net/http"
	"strings"

	einoclaude "github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-sonnet-latest"

	// anthropicVersion is the API version header sent by the readiness probe.
	anthropicVersion = "2023-06-01"

	// defaultAnthropicMaxTokens is used when no max token limit is configured;
	// the Messages API requires one.
	defaultAnthropicMaxTokens = 1024
)

// newAnthropic constructs a chat model backed by the Anthropic Messages API.
func newAnthropic(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	maxTokens := cfg.Tuning.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	temp := cfg.Tuning.Temperature
	mc := &einoclaude.Config{
		APIKey:      cfg.Anthropic.APIKey,
		Model:       cfg.Anthropic.Model,
		MaxTokens:   maxTokens,
		Temperature: &temp,
	}
	if base := anthropicBaseURL(cfg); base != defaultAnthropicBaseURL {
		mc.BaseURL = &base
	}
	return einoclaude.NewChatModel(ctx, mc) //nolint:wrapcheck // constructor passthrough
}

// anthropicProbe lists models, which costs no tokens.
func anthropicProbe(cfg *Config) func(context.Context) error {
	h := http.Header{}
	h.Set("x-api-key", cfg.Anthropic.APIKey)
	h.Set("anthropic-version", anthropicVersion)
	return httpProbe(anthropicBaseURL(cfg)+"/v1/models", h)
}

func anthropicBaseURL(cfg *Config) string {
	base := strings.TrimRight(cfg.Anthropic.BaseURL, "/")
	if base == "" {
		return defaultAnthropicBaseURL
	}
	return base
}
