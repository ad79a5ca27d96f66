package rag

import (
	"context"
	"fmt"
)

// Retriever is the semantic search engine: it embeds a query and ranks stored
// chunks by vector similarity. Safe for concurrent use.
type Retriever struct {
	// embedder converts query text to a dense vector via the retrying
	// single-item path.
	embedder QueryEmbedder

	// store performs the vector similarity search.
	store VectorStore

	// defaultTopK is the number of results to return when the caller passes 0.
	defaultTopK int
}

// NewRetriever constructs a Retriever from the given QueryEmbedder and
// VectorStore. defaultTopK sets the fallback result count when Search is
// called with topK<=0.
func NewRetriever(embedder QueryEmbedder, store VectorStore, defaultTopK int) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Retriever{
		embedder:    embedder,
		store:       store,
		defaultTopK: defaultTopK,
	}, nil
}

// Search embeds the query and returns the topK most similar chunks, best
// match first, optionally restricted to videoID. Zero matches is an empty
// slice, not an error.
//
// Failures are staged: an embedding failure wraps ErrEmbeddingUnavailable
// and a store failure wraps ErrStorageFailure, so callers can tell the user
// which backend to check.
func (r *Retriever) Search(ctx context.Context, query, videoID string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}

	results, err := r.store.Search(ctx, vector, videoID, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	for i := range results {
		results[i].Timestamp = DisplayTimestamp(results[i].StartSeconds)
		results[i].WatchURL = WatchURL(results[i].VideoID, results[i].StartSeconds)
	}

	return results, nil
}
