package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vtai/vtai-go/internal/chat"
	"github.com/vtai/vtai-go/internal/rag"
	"github.com/vtai/vtai-go/internal/store"
)

// ---------------------------------------------------------------------------
// Fakes shared across handler tests
// ---------------------------------------------------------------------------

// fakeAnswerer implements the answerer interface for tests.
type fakeAnswerer struct {
	// ans is returned on success.
	ans *chat.Answer
	// err is returned as the error value.
	err error
	// gotReq records the last request received.
	gotReq *chat.Request
}

func (f *fakeAnswerer) Answer(_ context.Context, req *chat.Request) (*chat.Answer, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.ans, nil
}

// fakeRetriever implements the searcher interface for tests.
type fakeRetriever struct {
	results []rag.Result
	err     error
	gotTopK int
}

func (f *fakeRetriever) Search(_ context.Context, _, _ string, topK int) ([]rag.Result, error) {
	f.gotTopK = topK
	return f.results, f.err
}

// fakeCatalog implements the catalog interface for tests.
type fakeCatalog struct {
	counts store.CountsSummary
	hits   []store.KeywordHit
	texts  []string
	err    error
}

func (f *fakeCatalog) Counts(context.Context) (store.CountsSummary, error) {
	return f.counts, f.err
}

func (f *fakeCatalog) KeywordSearch(context.Context, string, int) ([]store.KeywordHit, error) {
	return f.hits, f.err
}

func (f *fakeCatalog) TranscriptTexts(_ context.Context, fn func(string) error) error {
	if f.err != nil {
		return f.err
	}
	for _, t := range f.texts {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// recordedTurn is one AppendTurn call captured by fakeHistory.
type recordedTurn struct {
	sessionID string
	question  string
	answer    *string
}

// fakeHistory implements store.HistoryStore for tests.
type fakeHistory struct {
	turns     []recordedTurn
	appendErr error
}

func (f *fakeHistory) AppendTurn(_ context.Context, sessionID, question string, answer *string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.turns = append(f.turns, recordedTurn{sessionID: sessionID, question: question, answer: answer})
	return nil
}

func (f *fakeHistory) RecentMessages(context.Context, string, int) ([]store.Message, error) {
	return nil, nil
}

// newTestServer builds a *Server with fake collaborators and a fresh
// Prometheus registry so tests stay hermetic.
func newTestServer(deps *Deps) *Server {
	if deps == nil {
		deps = &Deps{}
	}
	if deps.Answerer == nil {
		deps.Answerer = &fakeAnswerer{}
	}
	if deps.Searcher == nil {
		deps.Searcher = &fakeRetriever{}
	}
	if deps.Catalog == nil {
		deps.Catalog = &fakeCatalog{}
	}
	reg := prometheus.NewRegistry()
	return &Server{
		deps:    deps,
		cfg:     &Config{Port: 8080},
		log:     slog.Default(),
		metrics: newServerMetrics(reg),
	}
}

func testAnswer() *chat.Answer {
	return &chat.Answer{
		Text: "Backpropagation pushes the error gradient backwards.",
		Citations: []chat.Citation{
			{VideoID: "v1", TimestampSeconds: 360, Timestamp: "6:00",
				URL: "https://youtube.com/watch?v=v1&t=360s", Similarity: 0.9},
		},
		Confidence: 0.9,
	}
}

func postJSON(t *testing.T, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ---------------------------------------------------------------------------
// POST /api/chat — validation error paths
// ---------------------------------------------------------------------------

func TestHandleChat_InvalidJSON(t *testing.T) {
	t.Parallel()

	s := newTestServer(nil)
	w := httptest.NewRecorder()

	s.handleChat(w, postJSON(t, "/api/chat", `not-json`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleChat_MissingQuestion(t *testing.T) {
	t.Parallel()

	s := newTestServer(nil)
	w := httptest.NewRecorder()

	s.handleChat(w, postJSON(t, "/api/chat", `{"conversation_id":"user_123"}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleChat_MissingConversationID(t *testing.T) {
	t.Parallel()

	s := newTestServer(nil)
	w := httptest.NewRecorder()

	s.handleChat(w, postJSON(t, "/api/chat", `{"question":"what is backprop?"}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleChat_QuestionTooLong(t *testing.T) {
	t.Parallel()

	s := newTestServer(nil)
	long := strings.Repeat("a", maxQuestionLen+1)
	w := httptest.NewRecorder()

	s.handleChat(w, postJSON(t, "/api/chat",
		fmt.Sprintf(`{"conversation_id":"user_123","question":%q}`, long)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/chat — happy path and failure persistence
// ---------------------------------------------------------------------------

func TestHandleChat_Success(t *testing.T) {
	t.Parallel()

	hist := &fakeHistory{}
	s := newTestServer(&Deps{
		Answerer: &fakeAnswerer{ans: testAnswer()},
		History:  hist,
	})
	w := httptest.NewRecorder()

	s.handleChat(w, postJSON(t, "/api/chat",
		`{"conversation_id":"user_123","question":"what is backprop?"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Answer         string  `json:"answer"`
		ConversationID string  `json:"conversation_id"`
		Confidence     float64 `json:"confidence"`
		Sources        []struct {
			VideoID string `json:"video_id"`
			URL     string `json:"url"`
		} `json:"sources"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer == "" {
		t.Error("expected non-empty answer")
	}
	if resp.ConversationID != "user_123" {
		t.Errorf("conversation_id: expected user_123, got %q", resp.ConversationID)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].VideoID != "v1" {
		t.Errorf("unexpected sources: %+v", resp.Sources)
	}

	if len(hist.turns) != 1 {
		t.Fatalf("expected 1 persisted turn, got %d", len(hist.turns))
	}
	turn := hist.turns[0]
	if turn.sessionID != "user_123" || turn.question != "what is backprop?" {
		t.Errorf("unexpected turn: %+v", turn)
	}
	if turn.answer == nil || *turn.answer == "" {
		t.Error("expected assistant answer to be persisted")
	}
}

func TestHandleChat_ForwardsScopeAndTopK(t *testing.T) {
	t.Parallel()

	ans := &fakeAnswerer{ans: testAnswer()}
	s := newTestServer(&Deps{Answerer: ans})
	w := httptest.NewRecorder()

	s.handleChat(w, postJSON(t, "/api/chat",
		`{"conversation_id":"user_123","question":"q","video_id":"v1","top_k":7}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ans.gotReq.VideoID != "v1" {
		t.Errorf("video_id: expected v1, got %q", ans.gotReq.VideoID)
	}
	if ans.gotReq.TopK != 7 {
		t.Errorf("top_k: expected 7, got %d", ans.gotReq.TopK)
	}
	if ans.gotReq.SessionID != "user_123" {
		t.Errorf("session: expected user_123, got %q", ans.gotReq.SessionID)
	}
}

// TestHandleChat_NoContent verifies that an empty retrieval result maps to
// 404 and that the user's question is still recorded, with no assistant reply.
func TestHandleChat_NoContent(t *testing.T) {
	t.Parallel()

	hist := &fakeHistory{}
	s := newTestServer(&Deps{
		Answerer: &fakeAnswerer{err: chat.ErrNoContentFound},
		History:  hist,
	})
	w := httptest.NewRecorder()

	s.handleChat(w, postJSON(t, "/api/chat",
		`{"conversation_id":"user_123","question":"anything about llamas?"}`))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if len(hist.turns) != 1 {
		t.Fatalf("expected the question to be persisted, got %d turns", len(hist.turns))
	}
	if hist.turns[0].answer != nil {
		t.Error("expected nil assistant answer on failed turn")
	}
}

func TestHandleChat_GenerationUnavailable(t *testing.T) {
	t.Parallel()

	hist := &fakeHistory{}
	s := newTestServer(&Deps{
		Answerer: &fakeAnswerer{err: fmt.Errorf("%w: connection refused", chat.ErrGenerationUnavailable)},
		History:  hist,
	})
	w := httptest.NewRecorder()

	s.handleChat(w, postJSON(t, "/api/chat",
		`{"conversation_id":"user_123","question":"q"}`))

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
	if len(hist.turns) != 1 {
		t.Error("expected the question to be persisted despite the failure")
	}
}

func TestHandleChat_EmbeddingUnavailable(t *testing.T) {
	t.Parallel()

	s := newTestServer(&Deps{
		Answerer: &fakeAnswerer{err: fmt.Errorf("chat: retrieval failed: %w", rag.ErrEmbeddingUnavailable)},
	})
	w := httptest.NewRecorder()

	s.handleChat(w, postJSON(t, "/api/chat",
		`{"conversation_id":"user_123","question":"q"}`))

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestHandleChat_PersistFailure(t *testing.T) {
	t.Parallel()

	s := newTestServer(&Deps{
		Answerer: &fakeAnswerer{ans: testAnswer()},
		History:  &fakeHistory{appendErr: errors.New("disk full")},
	})
	w := httptest.NewRecorder()

	s.handleChat(w, postJSON(t, "/api/chat",
		`{"conversation_id":"user_123","question":"q"}`))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 when the turn cannot be recorded, got %d", w.Code)
	}
}

// TestHandleChat_NoHistoryStore verifies chat still answers when no history
// store is wired (stateless mode).
func TestHandleChat_NoHistoryStore(t *testing.T) {
	t.Parallel()

	s := newTestServer(&Deps{Answerer: &fakeAnswerer{ans: testAnswer()}})
	w := httptest.NewRecorder()

	s.handleChat(w, postJSON(t, "/api/chat",
		`{"conversation_id":"user_123","question":"q"}`))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
