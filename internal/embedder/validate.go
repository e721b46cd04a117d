package embedder

import (
	"log/slog"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
	"dialogpt",
	"falcon",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// WarnIfChatModel logs a warning when model looks like a chat model rather
// than an embedding model. Such models produce poor or broken embeddings.
// It reports whether a warning was emitted.
func WarnIfChatModel(log *slog.Logger, backend, model string) bool {
	if !looksLikeChatModel(model) {
		return false
	}
	log.Warn("embedder: embedding model looks like a chat model, not an embedding model",
		slog.String("backend", backend),
		slog.String("model", model),
		slog.String("hint", "use a dedicated embedding model e.g. all-MiniLM-L6-v2, text-embedding-3-small"),
	)
	return true
}
