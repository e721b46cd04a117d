package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// contextPinger is satisfied by dependencies that probe themselves, such as
// the provider registry and the storage backends.
type contextPinger interface {
	Ping(ctx context.Context) error
}

// namedPinger adapts a contextPinger to the Pinger interface.
type namedPinger struct {
	// name identifies the dependency in readiness responses.
	name string
	// p performs the probe.
	p contextPinger
}

// NewPinger labels p for readiness responses. Use it for the provider
// registry ("provider") and the knowledge-base store ("store").
func NewPinger(name string, p contextPinger) Pinger {
	return &namedPinger{name: name, p: p}
}

// Name returns the dependency label.
func (n *namedPinger) Name() string { return n.name }

// Ping delegates to the wrapped probe.
func (n *namedPinger) Ping(ctx context.Context) error { return n.p.Ping(ctx) }

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
