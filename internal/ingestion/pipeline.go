// Package ingestion turns stored transcripts into searchable vectors. A
// worker pool processes the unprocessed-video backlog concurrently; each
// video is fetched, chunked, embedded in batches, written to the vector
// store, and recorded in the catalog so it never gets processed twice.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/vtai/vtai-go/internal/chunker"
	"github.com/vtai/vtai-go/internal/logging"
	"github.com/vtai/vtai-go/internal/rag"
	"github.com/vtai/vtai-go/internal/store"
)

// Pipeline defaults, tuned for local embedding backends: small batches keep
// request payloads modest, and the pause between batches is a courtesy to
// rate-limited APIs.
const (
	DefaultWorkers        = 3
	DefaultBatchSize      = 20
	DefaultSegmentSeconds = 180
	DefaultOverlapWords   = 20
	defaultBatchPause     = 500 * time.Millisecond
)

// Catalog is the slice of the relational store the pipeline needs.
// Satisfied by *store.SQLiteStore.
type Catalog interface {
	UnprocessedVideos(ctx context.Context) ([]string, error)
	TranscriptEntries(ctx context.Context, videoID string) ([]chunker.TranscriptEntry, error)
	InsertChunks(ctx context.Context, records []store.ChunkRecord) (int, error)
}

// VectorWriter is the slice of the vector store the pipeline needs.
// Satisfied by *rag.QdrantStore.
type VectorWriter interface {
	Upsert(ctx context.Context, points []rag.Point) error
}

// VideoResult reports the outcome for one video.
type VideoResult struct {
	VideoID string
	// Chunks is the number of chunks produced and stored.
	Chunks int
	// Err is non-nil when the video failed and stays in the backlog.
	Err error
}

// Summary aggregates a pipeline run.
type Summary struct {
	Processed int
	Failed    int
	Chunks    int
	// Results holds per-video outcomes ordered by video ID.
	Results []VideoResult
}

// Config holds the collaborators and tuning for a Pipeline.
type Config struct {
	// Catalog is the relational store. Required.
	Catalog Catalog
	// Embedder converts chunk texts to vectors. Required.
	Embedder rag.Embedder
	// Vectors receives the embedded chunks. Required.
	Vectors VectorWriter
	// Workers is the pool size (default 3).
	Workers int
	// BatchSize is the number of chunks embedded per call (default 20).
	BatchSize int
	// SegmentSeconds is the chunk window length (default 180).
	SegmentSeconds int
	// OverlapWords is the word overlap between consecutive chunks (default 20).
	OverlapWords int
}

// Pipeline processes the unprocessed-video backlog.
type Pipeline struct {
	catalog        Catalog
	embedder       rag.Embedder
	vectors        VectorWriter
	workers        int
	batchSize      int
	segmentSeconds int
	overlapWords   int
	batchPause     time.Duration
}

// New constructs a Pipeline from the given config.
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil || cfg.Catalog == nil {
		return nil, fmt.Errorf("ingestion: a catalog is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("ingestion: an embedder is required")
	}
	if cfg.Vectors == nil {
		return nil, fmt.Errorf("ingestion: a vector writer is required")
	}
	p := &Pipeline{
		catalog:        cfg.Catalog,
		embedder:       cfg.Embedder,
		vectors:        cfg.Vectors,
		workers:        cfg.Workers,
		batchSize:      cfg.BatchSize,
		segmentSeconds: cfg.SegmentSeconds,
		overlapWords:   cfg.OverlapWords,
		batchPause:     defaultBatchPause,
	}
	if p.workers <= 0 {
		p.workers = DefaultWorkers
	}
	if p.batchSize <= 0 {
		p.batchSize = DefaultBatchSize
	}
	if p.segmentSeconds <= 0 {
		p.segmentSeconds = DefaultSegmentSeconds
	}
	if p.overlapWords < 0 {
		p.overlapWords = DefaultOverlapWords
	}
	return p, nil
}

// Run processes every video in the unprocessed backlog and returns a summary.
// Individual video failures do not abort the run; a failed video stays in the
// backlog and is retried on the next run.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	log := logging.FromContext(ctx)

	ids, err := p.catalog.UnprocessedVideos(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingestion: list backlog: %w", err)
	}
	if len(ids) == 0 {
		return &Summary{}, nil
	}
	log.Info("ingestion: processing backlog",
		slog.Int("videos", len(ids)), slog.Int("workers", p.workers))

	pool, err := ants.NewPool(p.workers)
	if err != nil {
		return nil, fmt.Errorf("ingestion: create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan VideoResult, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		videoID := id
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			chunks, err := p.processVideo(ctx, videoID)
			results <- VideoResult{VideoID: videoID, Chunks: chunks, Err: err}
		})
		if submitErr != nil {
			wg.Done()
			results <- VideoResult{VideoID: videoID, Err: fmt.Errorf("ingestion: submit %s: %w", videoID, submitErr)}
		}
	}
	wg.Wait()
	close(results)

	summary := &Summary{}
	for r := range results {
		summary.Results = append(summary.Results, r)
		if r.Err != nil {
			summary.Failed++
			log.Warn("ingestion: video failed",
				slog.String("video_id", r.VideoID), slog.Any("error", r.Err))
			continue
		}
		summary.Processed++
		summary.Chunks += r.Chunks
		log.Info("ingestion: video processed",
			slog.String("video_id", r.VideoID), slog.Int("chunks", r.Chunks))
	}
	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].VideoID < summary.Results[j].VideoID
	})
	return summary, nil
}

// processVideo runs the fetch → chunk → embed → store sequence for one video
// and returns the number of chunks produced.
func (p *Pipeline) processVideo(ctx context.Context, videoID string) (int, error) {
	entries, err := p.catalog.TranscriptEntries(ctx, videoID)
	if err != nil {
		return 0, fmt.Errorf("ingestion: fetch transcript %s: %w", videoID, err)
	}

	chunks := chunker.Split(entries, p.segmentSeconds, p.overlapWords)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoContent, videoID)
	}

	// Embed and upsert batch by batch. Point IDs are deterministic, so a
	// partially upserted video is safely re-written on the next attempt.
	for start := 0; start < len(chunks); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("ingestion: %s: %w", videoID, err)
		}

		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("%w: %s chunks %d-%d: %w", ErrBatchEmbedding, videoID, start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("%w: %s: expected %d vectors, got %d", ErrBatchEmbedding, videoID, len(batch), len(vectors))
		}

		points := make([]rag.Point, len(batch))
		for i, c := range batch {
			points[i] = rag.Point{
				ID:           chunker.Identity(videoID, start+i, c.StartSeconds),
				VideoID:      videoID,
				Text:         c.Text,
				StartSeconds: c.StartSeconds,
				Duration:     c.Duration,
				Vector:       vectors[i],
			}
		}
		if err := p.vectors.Upsert(ctx, points); err != nil {
			return 0, fmt.Errorf("ingestion: upsert %s: %w", videoID, err)
		}

		if end < len(chunks) && p.batchPause > 0 {
			select {
			case <-ctx.Done():
				return 0, fmt.Errorf("ingestion: %s: %w", videoID, ctx.Err())
			case <-time.After(p.batchPause):
			}
		}
	}

	// Record chunk rows last: the video leaves the backlog only after every
	// vector is safely stored.
	records := make([]store.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = store.ChunkRecord{
			ID:           chunker.Identity(videoID, i, c.StartSeconds),
			VideoID:      videoID,
			Ordinal:      i,
			StartSeconds: c.StartSeconds,
		}
	}
	if _, err := p.catalog.InsertChunks(ctx, records); err != nil {
		return 0, fmt.Errorf("ingestion: record chunks %s: %w", videoID, err)
	}
	return len(chunks), nil
}
