package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/vtai/vtai-go/internal/chunker"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func Test_Store_AppendTurnAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, "sess-a", "what is attention?", strPtr("a weighting mechanism")); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	msgs, err := s.RecentMessages(ctx, "sess-a", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("want 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "what is attention?" {
		t.Errorf("msg[0]: want user question, got %s/%s", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "a weighting mechanism" {
		t.Errorf("msg[1]: want assistant answer, got %s/%s", msgs[1].Role, msgs[1].Content)
	}
}

func Test_Store_AppendTurnNilAnswerKeepsQuestion(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, "sess-fail", "unanswerable", nil); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	msgs, err := s.RecentMessages(ctx, "sess-fail", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("want 1 message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser {
		t.Errorf("want user message only, got %s", msgs[0].Role)
	}
}

func Test_Store_AppendTurnTouchesConversation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, "sess-t", "first", strPtr("one")); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	// Backdate the row so the next turn's touch is observable.
	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = 0 WHERE session_id = ?`, "sess-t"); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	if err := s.AppendTurn(ctx, "sess-t", "second", strPtr("two")); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	var conversations, createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(created_at), MAX(updated_at) FROM conversations WHERE session_id = ?`,
		"sess-t").Scan(&conversations, &createdAt, &updatedAt)
	if err != nil {
		t.Fatalf("read conversation: %v", err)
	}
	if conversations != 1 {
		t.Fatalf("want a single conversation row, got %d", conversations)
	}
	if updatedAt == 0 {
		t.Error("second turn did not touch updated_at")
	}
	if updatedAt < createdAt {
		t.Errorf("updated_at %d older than created_at %d", updatedAt, createdAt)
	}
}

func Test_Store_RecentMessagesWindow(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 11; i++ {
		q := fmt.Sprintf("question %d", i)
		a := fmt.Sprintf("answer %d", i)
		if err := s.AppendTurn(ctx, "sess-long", q, &a); err != nil {
			t.Fatalf("append turn %d: %v", i, err)
		}
	}

	msgs, err := s.RecentMessages(ctx, "sess-long", 20)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 20 {
		t.Fatalf("want 20 messages, got %d", len(msgs))
	}
	// The oldest exchange falls out of the window.
	if msgs[0].Content != "question 2" {
		t.Errorf("msg[0]: want %q, got %q", "question 2", msgs[0].Content)
	}
	if msgs[19].Content != "answer 11" {
		t.Errorf("msg[19]: want %q, got %q", "answer 11", msgs[19].Content)
	}
}

func Test_Store_SessionIsolation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, "sess-x", "from x", strPtr("x answer")); err != nil {
		t.Fatalf("append x: %v", err)
	}
	if err := s.AppendTurn(ctx, "sess-y", "from y", strPtr("y answer")); err != nil {
		t.Fatalf("append y: %v", err)
	}

	msgsX, err := s.RecentMessages(ctx, "sess-x", 10)
	if err != nil {
		t.Fatalf("recent x: %v", err)
	}
	if len(msgsX) != 2 || msgsX[0].Content != "from x" {
		t.Errorf("session x isolation failed: got %v", msgsX)
	}
}

func Test_Store_EmptySessionReturnsNil(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	msgs, err := s.RecentMessages(context.Background(), "sess-empty", 10)
	if err != nil {
		t.Fatalf("recent empty: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("want 0 messages, got %d", len(msgs))
	}
}

func Test_Store_UpsertVideoUpdatesTitle(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertVideo(ctx, "vid1", "first title"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertVideo(ctx, "vid1", "second title"); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Videos != 1 {
		t.Errorf("want 1 video after double upsert, got %d", counts.Videos)
	}
}

func Test_Store_ReplaceTranscriptIsIdempotent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertVideo(ctx, "vid1", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	entries := []chunker.TranscriptEntry{
		{Text: "hello", Start: 0, Duration: 4.2},
		{Text: "world", Start: 4.2, Duration: 3.1},
	}
	for range 2 {
		if err := s.ReplaceTranscript(ctx, "vid1", entries); err != nil {
			t.Fatalf("replace transcript: %v", err)
		}
	}

	got, err := s.TranscriptEntries(ctx, "vid1")
	if err != nil {
		t.Fatalf("transcript entries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 entries after reload, got %d", len(got))
	}
	if got[0].Text != "hello" || got[1].Text != "world" {
		t.Errorf("entries out of order: %v", got)
	}
}

func Test_Store_UnprocessedVideos(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	// vid1 has a transcript and no chunks; vid2 has no transcript;
	// vid3 has both.
	for _, id := range []string{"vid1", "vid2", "vid3"} {
		if err := s.UpsertVideo(ctx, id, ""); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	entry := []chunker.TranscriptEntry{{Text: "text", Start: 0, Duration: 1}}
	if err := s.ReplaceTranscript(ctx, "vid1", entry); err != nil {
		t.Fatalf("transcript vid1: %v", err)
	}
	if err := s.ReplaceTranscript(ctx, "vid3", entry); err != nil {
		t.Fatalf("transcript vid3: %v", err)
	}
	if _, err := s.InsertChunks(ctx, []ChunkRecord{
		{ID: "vid3_chunk_0_0", VideoID: "vid3", Ordinal: 0, StartSeconds: 0},
	}); err != nil {
		t.Fatalf("insert chunks: %v", err)
	}

	ids, err := s.UnprocessedVideos(ctx)
	if err != nil {
		t.Fatalf("unprocessed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "vid1" {
		t.Errorf("want [vid1], got %v", ids)
	}
}

func Test_Store_InsertChunksSkipsDuplicates(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertVideo(ctx, "vid1", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	records := []ChunkRecord{
		{ID: "vid1_chunk_0_0", VideoID: "vid1", Ordinal: 0, StartSeconds: 0},
		{ID: "vid1_chunk_1_180", VideoID: "vid1", Ordinal: 1, StartSeconds: 180},
	}

	n, err := s.InsertChunks(ctx, records)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 2 {
		t.Errorf("first insert: want 2 rows, got %d", n)
	}

	n, err = s.InsertChunks(ctx, records)
	if err != nil {
		t.Fatalf("re-insert: %v", err)
	}
	if n != 0 {
		t.Errorf("re-insert: want 0 rows, got %d", n)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Chunks != 2 {
		t.Errorf("want 2 chunks total, got %d", counts.Chunks)
	}
}

func Test_Store_KeywordSearch(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertVideo(ctx, "vid1", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	entries := []chunker.TranscriptEntry{
		{Text: "Gradient Descent takes small steps", Start: 30, Duration: 5},
		{Text: "unrelated entry", Start: 10, Duration: 5},
		{Text: "the gradient points uphill", Start: 20, Duration: 5},
	}
	if err := s.ReplaceTranscript(ctx, "vid1", entries); err != nil {
		t.Fatalf("transcript: %v", err)
	}

	hits, err := s.KeywordSearch(ctx, "gradient", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("want 2 hits, got %d", len(hits))
	}
	// Ordered by playback position, matching is case-insensitive.
	if hits[0].StartSeconds != 20 || hits[1].StartSeconds != 30 {
		t.Errorf("hits out of order: %v", hits)
	}

	hits, err = s.KeywordSearch(ctx, "gradient", 1)
	if err != nil {
		t.Fatalf("search with limit: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("limit not respected: got %d hits", len(hits))
	}
}

func Test_Store_TranscriptTextsStreams(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertVideo(ctx, "vid1", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	entries := []chunker.TranscriptEntry{
		{Text: "one", Start: 0, Duration: 1},
		{Text: "two", Start: 1, Duration: 1},
	}
	if err := s.ReplaceTranscript(ctx, "vid1", entries); err != nil {
		t.Fatalf("transcript: %v", err)
	}

	var got []string
	err := s.TranscriptTexts(ctx, func(text string) error {
		got = append(got, text)
		return nil
	})
	if err != nil {
		t.Fatalf("transcript texts: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("want 2 texts, got %d", len(got))
	}
}

func Test_Store_HasVideo(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	ok, err := s.HasVideo(ctx, "missing")
	if err != nil {
		t.Fatalf("has video: %v", err)
	}
	if ok {
		t.Error("missing video reported present")
	}

	if err := s.UpsertVideo(ctx, "vid1", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	ok, err = s.HasVideo(ctx, "vid1")
	if err != nil {
		t.Fatalf("has video: %v", err)
	}
	if !ok {
		t.Error("registered video reported missing")
	}
}
