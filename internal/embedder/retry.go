package embedder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vtai/vtai-go/internal/rag"
)

// Retry policy for single-query embedding calls. Query embedding sits on the
// interactive path (semantic search, chat) where the backend occasionally
// rate-limits or hiccups, so transient failures are worth a few retries.
// Batch ingestion does NOT retry: a failed batch fails the whole batch and
// the videos stay unprocessed for the next run.
const (
	retryInitialInterval = 1 * time.Second
	retryMaxInterval     = 30 * time.Second
	retryMaxAttempts     = 10
)

// Retrier wraps a rag.Embedder and implements rag.QueryEmbedder with
// exponential backoff on transient failures.
type Retrier struct {
	inner rag.Embedder
	// initialInterval and maxInterval are overridable for tests.
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewRetrier wraps the given embedder with the query retry policy.
func NewRetrier(inner rag.Embedder) (*Retrier, error) {
	if inner == nil {
		return nil, fmt.Errorf("embedder: retrier requires an embedder")
	}
	return &Retrier{
		inner:           inner,
		initialInterval: retryInitialInterval,
		maxInterval:     retryMaxInterval,
	}, nil
}

// EmbedQuery embeds a single query string, retrying transient failures with
// exponential backoff and jitter. Empty input fails immediately without
// touching the backend.
func (r *Retrier) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embedder: empty query text")
	}

	var vector []float32
	op := func() error {
		vectors, err := r.inner.Embed(ctx, []string{text})
		if err != nil {
			return err
		}
		if len(vectors) != 1 {
			// A well-formed response carries exactly one vector; anything
			// else is a backend contract violation, not a transient fault.
			return backoff.Permanent(fmt.Errorf("embedder: expected 1 embedding, got %d", len(vectors)))
		}
		vector = vectors[0]
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initialInterval
	policy.MaxInterval = r.maxInterval

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(policy, retryMaxAttempts-1), ctx))
	if err != nil {
		return nil, fmt.Errorf("embedder: query embedding failed: %w", err)
	}
	return vector, nil
}

// Embed passes batch embedding straight through to the wrapped embedder
// without retry, so a Retrier can stand in wherever a rag.Embedder is needed.
func (r *Retrier) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return r.inner.Embed(ctx, texts)
}
