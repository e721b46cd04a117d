package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Pinger is implemented by providers that can check their own reachability
// without spending tokens.
type Pinger interface {
	Ping(ctx context.Context) error
}

// chatCompletion adapts an eino chat model to rag.TextCompletion.
type chatCompletion struct {
	// name is "<backend>/<model>".
	name string
	// model is the underlying eino chat model.
	model model.BaseChatModel
	// handlers receive eino callbacks (e.g. Langfuse tracing) for each call.
	handlers []callbacks.Handler
	// ping, when set, probes the backend for readiness.
	ping func(ctx context.Context) error
}

// Name returns the provider identity.
func (c *chatCompletion) Name() string { return c.name }

// Complete sends prompt as a single user message and returns the reply text.
func (c *chatCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	if len(c.handlers) > 0 {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      c.name,
			Type:      string(c.backend()),
			Component: components.ComponentOfChatModel,
		}, c.handlers...)
	}

	resp, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("provider: %s generate: %w", c.name, err)
	}
	if resp == nil {
		return "", fmt.Errorf("provider: %s returned nil response", c.name)
	}
	return resp.Content, nil
}

// Ping probes the backend when a zero-cost health check is available.
func (c *chatCompletion) Ping(ctx context.Context) error {
	if c.ping == nil {
		return nil
	}
	return c.ping(ctx)
}

// backend returns the backend part of the name.
func (c *chatCompletion) backend() Backend {
	b, _, _ := strings.Cut(c.name, "/")
	return Backend(b)
}
