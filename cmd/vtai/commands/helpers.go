package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/vtai/vtai-go/internal/embedder"
	"github.com/vtai/vtai-go/internal/rag"
	"github.com/vtai/vtai-go/internal/store"
)

// openStore opens the SQLite transcript store. VTAI_DB overrides the default
// path (~/.vtai/vtai.db).
func openStore(log *slog.Logger) (*store.SQLiteStore, error) {
	dbPath := os.Getenv("VTAI_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("could not resolve database path: %w", err)
		}
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not open store at %s: %w", dbPath, err)
	}
	log.Info("store opened", slog.String("path", dbPath))
	return st, nil
}

// buildVectorStore connects to Qdrant using the QDRANT_* environment, sizing
// the collection for the configured embedding backend.
func buildVectorStore(ctx context.Context, log *slog.Logger) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "vtai-transcripts")
	vectorSize := uint64(embedder.DefaultDimensions(embedder.ResolveBackend()))

	vs, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("qdrant store ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("collection", collection),
	)
	return vs, nil
}

// buildQueryEmbedder constructs the retrying query embedder used by the
// retrieval side (serve, ask, search).
func buildQueryEmbedder(log *slog.Logger) (*embedder.Retrier, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("could not initialise embedder: %w", err)
	}
	return embedder.NewRetrier(emb)
}

// getEnvOrDefault returns the env var's value or the fallback if unset/empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or the fallback when unset
// or unparsable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
