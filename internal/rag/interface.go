// Package rag defines the retrieval side of the pipeline: vector storage,
// query embedding, and semantic search over embedded transcript chunks.
// Concrete implementations (Qdrant, the HTTP embedders) satisfy these
// interfaces so the chat layer never depends on a specific backend.
package rag

import (
	"context"
)

// Point is an embedded transcript chunk ready for vector storage.
type Point struct {
	// ID is the deterministic chunk identity (the idempotency key).
	ID string

	// VideoID is the owning video's external identifier.
	VideoID string

	// Text is the normalized chunk text.
	Text string

	// StartSeconds is the chunk's start offset within the video.
	StartSeconds float64

	// Duration is the chunk's span in seconds.
	Duration float64

	// Vector is the chunk's embedding. Must be non-empty on Upsert.
	Vector []float32
}

// Result is a retrieved chunk with its similarity score and derived
// presentation fields.
type Result struct {
	// ChunkID is the deterministic chunk identity.
	ChunkID string `json:"chunk_id"`

	// VideoID is the owning video's external identifier.
	VideoID string `json:"video_id"`

	// Text is the chunk text.
	Text string `json:"text"`

	// StartSeconds is the chunk's start offset within the video.
	StartSeconds float64 `json:"start_time_seconds"`

	// Similarity is the cosine similarity to the query (higher is better).
	// This is the 1-minus-distance value; it is not clamped.
	Similarity float32 `json:"similarity_score"`

	// Timestamp is the start offset formatted m:ss for display.
	Timestamp string `json:"timestamp"`

	// WatchURL is the timestamped video link for this chunk.
	WatchURL string `json:"url"`
}

// Embedder converts a batch of texts into their corresponding embeddings.
// The returned slice is parallel to the input slice: exactly one vector per
// input, same order. A failed call returns no partial results.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// QueryEmbedder embeds a single query string. Implementations retry
// transient failures internally — this is the live-query path, distinct from
// the bulk batch path which fails as a unit with no retry.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists embedded chunks and answers nearest-neighbor queries.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of embedded chunks. Point IDs are
	// deterministic, so re-upserting the same chunks is a no-op.
	Upsert(ctx context.Context, points []Point) error

	// Search returns the topK chunks nearest to the query embedding, best
	// match first. When videoID is non-empty, only that video's chunks are
	// considered. An empty result is not an error.
	Search(ctx context.Context, queryEmbedding []float32, videoID string, topK int) ([]Result, error)

	// Delete removes chunks by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the store.
	Close() error
}
