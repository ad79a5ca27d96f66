package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vtai/vtai-go/internal/chunker"
)

// ChunkRecord is the bookkeeping row for one embedded chunk. The vector
// itself lives in Qdrant under the same chunk ID.
type ChunkRecord struct {
	// ID is the deterministic chunk identity ("<video>_chunk_<ordinal>_<start>").
	ID string
	// VideoID is the owning video.
	VideoID string
	// Ordinal is the zero-based position of the chunk within the video.
	Ordinal int
	// StartSeconds is where the chunk begins in the video.
	StartSeconds float64
}

// CountsSummary reports catalog row counts for the stats endpoint.
type CountsSummary struct {
	Videos      int `json:"video_count"`
	Transcripts int `json:"transcript_count"`
	Chunks      int `json:"chunk_count"`
}

// KeywordHit is one transcript entry matched by a keyword search.
type KeywordHit struct {
	VideoID      string  `json:"video_id"`
	Text         string  `json:"text"`
	StartSeconds float64 `json:"start_time_seconds"`
}

// UpsertVideo registers a video, updating the title if the row already exists.
func (s *SQLiteStore) UpsertVideo(ctx context.Context, videoID, title string) error {
	const q = `
INSERT INTO videos (id, title, created_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET title = excluded.title`
	if _, err := s.db.ExecContext(ctx, q, videoID, title, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: upsert video %s: %w", videoID, err)
	}
	return nil
}

// ReplaceTranscript replaces the stored transcript entries for a video in a
// single transaction, so reloading a transcript file is idempotent.
func (s *SQLiteStore) ReplaceTranscript(ctx context.Context, videoID string, entries []chunker.TranscriptEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: replace transcript: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transcripts WHERE video_id = ?`, videoID); err != nil {
		return fmt.Errorf("store: replace transcript: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transcripts (video_id, text, start_time, duration) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: replace transcript: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, videoID, e.Text, e.Start, e.Duration); err != nil {
			return fmt.Errorf("store: replace transcript: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: replace transcript: commit: %w", err)
	}
	return nil
}

// TranscriptEntries returns a video's transcript entries in playback order.
func (s *SQLiteStore) TranscriptEntries(ctx context.Context, videoID string) ([]chunker.TranscriptEntry, error) {
	const q = `
SELECT text, start_time, duration
FROM   transcripts
WHERE  video_id = ?
ORDER  BY start_time ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, videoID)
	if err != nil {
		return nil, fmt.Errorf("store: transcript entries: %w", err)
	}
	defer rows.Close()

	var entries []chunker.TranscriptEntry
	for rows.Next() {
		var e chunker.TranscriptEntry
		if err := rows.Scan(&e.Text, &e.Start, &e.Duration); err != nil {
			return nil, fmt.Errorf("store: transcript entries scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: transcript entries rows: %w", err)
	}
	return entries, nil
}

// UnprocessedVideos returns IDs of videos that have a transcript but no
// chunks yet. These are the ingestion backlog.
func (s *SQLiteStore) UnprocessedVideos(ctx context.Context) ([]string, error) {
	const q = `
SELECT v.id
FROM   videos v
WHERE  EXISTS     (SELECT 1 FROM transcripts t WHERE t.video_id = v.id)
  AND  NOT EXISTS (SELECT 1 FROM chunks c WHERE c.video_id = v.id)
ORDER  BY v.id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: unprocessed videos: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: unprocessed videos scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: unprocessed videos rows: %w", err)
	}
	return ids, nil
}

// InsertChunks records embedded chunks, skipping rows whose ID already
// exists. It returns the number of rows actually inserted, so re-ingesting a
// processed video reports zero new chunks instead of failing.
func (s *SQLiteStore) InsertChunks(ctx context.Context, records []ChunkRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: insert chunks: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (id, video_id, ordinal, start_time, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("store: insert chunks: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx, r.ID, r.VideoID, r.Ordinal, r.StartSeconds, now)
		if err != nil {
			return 0, fmt.Errorf("store: insert chunk %s: %w", r.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("store: insert chunk %s: rows affected: %w", r.ID, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: insert chunks: commit: %w", err)
	}
	return inserted, nil
}

// Counts returns catalog row counts for videos, transcript entries, and chunks.
func (s *SQLiteStore) Counts(ctx context.Context) (CountsSummary, error) {
	const q = `
SELECT (SELECT COUNT(*) FROM videos),
       (SELECT COUNT(*) FROM transcripts),
       (SELECT COUNT(*) FROM chunks)`

	var c CountsSummary
	if err := s.db.QueryRowContext(ctx, q).Scan(&c.Videos, &c.Transcripts, &c.Chunks); err != nil {
		return CountsSummary{}, fmt.Errorf("store: counts: %w", err)
	}
	return c, nil
}

// KeywordSearch returns transcript entries whose text contains the keyword,
// case-insensitively, ordered by video then playback position.
func (s *SQLiteStore) KeywordSearch(ctx context.Context, keyword string, limit int) ([]KeywordHit, error) {
	const q = `
SELECT video_id, text, start_time
FROM   transcripts
WHERE  text LIKE '%' || ? || '%'
ORDER  BY video_id ASC, start_time ASC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("store: keyword search: %w", err)
	}
	defer rows.Close()

	var hits []KeywordHit
	for rows.Next() {
		var h KeywordHit
		if err := rows.Scan(&h.VideoID, &h.Text, &h.StartSeconds); err != nil {
			return nil, fmt.Errorf("store: keyword search scan: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: keyword search rows: %w", err)
	}
	return hits, nil
}

// TranscriptTexts streams every stored transcript entry text through fn, in
// no particular order. Used by the word frequency endpoint so the full corpus
// never has to be joined into one string in memory.
func (s *SQLiteStore) TranscriptTexts(ctx context.Context, fn func(text string) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT text FROM transcripts`)
	if err != nil {
		return fmt.Errorf("store: transcript texts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return fmt.Errorf("store: transcript texts scan: %w", err)
		}
		if err := fn(text); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: transcript texts rows: %w", err)
	}
	return nil
}

// HasVideo reports whether a video is registered.
func (s *SQLiteStore) HasVideo(ctx context.Context, videoID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM videos WHERE id = ?`, videoID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: has video: %w", err)
	}
	return true, nil
}
