package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vtai/vtai-go/internal/embedder"
	"github.com/vtai/vtai-go/internal/ingestion"
	"github.com/vtai/vtai-go/internal/logging"
)

// NewIngestCmd constructs the `vtai ingest` command, which chunks, embeds,
// and indexes every loaded video that has not been processed yet.
func NewIngestCmd() *cobra.Command {
	var workers int
	var batchSize int
	var segmentSeconds int
	var overlapWords int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk and embed unprocessed videos into the vector store",
		Long: `Run the embedding pipeline over every loaded video without stored chunks.

Each video's transcript entries are split into overlapping time-bounded
chunks, embedded in batches, and written to Qdrant. A video's chunk
bookkeeping is committed only after all of its vectors are stored, so a
failed video stays in the backlog and is retried on the next run. Chunk
identities are deterministic; re-running never duplicates vectors.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: vtai-transcripts)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider-specific overrides (model, endpoint, key, dimensions)

Examples:
  vtai ingest
  vtai ingest --workers 5 --batch-size 10
  EMBEDDING_PROVIDER=openai vtai ingest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("backend", embedder.ResolveBackend()))

			st, err := openStore(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = st.Close() }()

			vectors, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = vectors.Close() }()

			pipeline, err := ingestion.New(&ingestion.Config{
				Catalog:        st,
				Embedder:       emb,
				Vectors:        vectors,
				Workers:        workers,
				BatchSize:      batchSize,
				SegmentSeconds: segmentSeconds,
				OverlapWords:   overlapWords,
			})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			summary, err := pipeline.Run(ctx)
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			for _, r := range summary.Results {
				if r.Err != nil {
					fmt.Printf("  %s: FAILED (%v)\n", r.VideoID, r.Err)
					continue
				}
				fmt.Printf("  %s: %d chunks\n", r.VideoID, r.Chunks)
			}
			fmt.Printf("processed %d video(s), %d failed, %d chunks stored\n",
				summary.Processed, summary.Failed, summary.Chunks)

			if summary.Failed > 0 {
				return fmt.Errorf("ingest: %d video(s) failed and remain in the backlog", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", getEnvInt("INGEST_WORKERS", ingestion.DefaultWorkers), "Concurrent video workers")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", getEnvInt("INGEST_BATCH_SIZE", ingestion.DefaultBatchSize), "Chunks embedded per batch")
	cmd.Flags().IntVar(&segmentSeconds, "segment-seconds", getEnvInt("INGEST_SEGMENT_SECONDS", ingestion.DefaultSegmentSeconds), "Chunk window length in seconds")
	cmd.Flags().IntVar(&overlapWords, "overlap-words", getEnvInt("INGEST_OVERLAP_WORDS", ingestion.DefaultOverlapWords), "Word overlap between consecutive chunks")

	return cmd
}
