package ingestion

import "errors"

var (
	// ErrNoContent means a video's transcript produced no chunks, usually
	// because every entry was empty or whitespace.
	ErrNoContent = errors.New("ingestion: transcript produced no chunks")

	// ErrBatchEmbedding means an embedding batch failed. The whole video is
	// abandoned so it stays in the unprocessed backlog for the next run.
	ErrBatchEmbedding = errors.New("ingestion: batch embedding failed")
)
