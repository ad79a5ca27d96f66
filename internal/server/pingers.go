package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

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
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// storePinger is the slice of the transcript store the readiness probe needs.
type storePinger interface {
	Ping() error
}

// StorePinger probes the SQLite transcript store. It satisfies the Pinger
// interface and is used by GET /api/ready.
type StorePinger struct {
	// store is the transcript store to probe.
	store storePinger
}

// NewStorePinger constructs a StorePinger for the given store.
func NewStorePinger(store storePinger) *StorePinger {
	return &StorePinger{store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return "store" }

// Ping verifies the store's database connection is alive.
func (p *StorePinger) Ping(_ context.Context) error {
	if err := p.store.Ping(); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	return nil
}
