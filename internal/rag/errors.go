package rag

import "errors"

var (
	// ErrEmbeddingUnavailable indicates the query could not be embedded —
	// the embedding backend is unreachable or rejected the input. Callers
	// surface this distinctly from storage failures so the operator knows
	// which backend to check.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStorageFailure indicates the vector store query itself failed.
	ErrStorageFailure = errors.New("vector storage failure")
)
