package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vtai/vtai-go/internal/chat"
	"github.com/vtai/vtai-go/internal/logging"
	"github.com/vtai/vtai-go/internal/rag"
	"github.com/vtai/vtai-go/internal/store"
	"github.com/vtai/vtai-go/internal/words"
)

// maxQuestionLen is the upper bound on chat question length in characters.
const maxQuestionLen = 500

// defaultKeywordLimit bounds GET /api/search result sets when the client does
// not pass an explicit limit.
const defaultKeywordLimit = 100

// defaultCommonWords is how many words GET /api/common_words returns when the
// client does not pass n.
const defaultCommonWords = 10

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("response encode error", slog.Any("error", err))
	}
}

// writeError sends a JSON error body of the form {"error": "..."}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleChat handles POST /api/chat. It answers the question from the
// transcript library, persists the conversation turn, and returns the answer
// with its source citations.
//
// The user's question is recorded even when answering fails, so a retried
// question lands in an intact history.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)

	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question parameter is required")
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id parameter is required for history tracking")
		return
	}
	if len(req.Question) > maxQuestionLen {
		writeError(w, http.StatusBadRequest, "question must be under 500 characters")
		return
	}

	ans, err := s.deps.Answerer.Answer(r.Context(), &chat.Request{
		SessionID: req.ConversationID,
		Question:  req.Question,
		VideoID:   req.VideoID,
		TopK:      req.TopK,
	})
	if err != nil {
		s.recordFailedTurn(r, req.ConversationID, req.Question)

		outcome := "error"
		status := http.StatusInternalServerError
		msg := "failed to answer question"
		switch {
		case errors.Is(err, chat.ErrNoContentFound):
			outcome = "no_content"
			status = http.StatusNotFound
			msg = "no relevant content found for this question"
		case errors.Is(err, rag.ErrEmbeddingUnavailable):
			status = http.StatusBadGateway
			msg = "embedding service unavailable"
		case errors.Is(err, chat.ErrGenerationUnavailable):
			status = http.StatusBadGateway
			msg = "generation service unavailable"
		}

		log.Error("chat request failed",
			slog.String("conversation_id", req.ConversationID),
			slog.Any("error", err),
		)
		s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
		s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		writeError(w, status, msg)
		return
	}

	if s.deps.History != nil {
		if err := s.deps.History.AppendTurn(r.Context(), req.ConversationID, req.Question, &ans.Text); err != nil {
			log.Error("failed to persist conversation turn",
				slog.String("conversation_id", req.ConversationID),
				slog.Any("error", err),
			)
			s.metrics.chatRequestsTotal.WithLabelValues("error").Inc()
			s.metrics.chatDurationSeconds.WithLabelValues("error").Observe(time.Since(start).Seconds())
			writeError(w, http.StatusInternalServerError, "failed to record conversation")
			return
		}
	}

	s.metrics.chatRequestsTotal.WithLabelValues("ok").Inc()
	s.metrics.chatDurationSeconds.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, chatResponse{Answer: ans, ConversationID: req.ConversationID})
}

// recordFailedTurn persists the user's question with no assistant reply.
func (s *Server) recordFailedTurn(r *http.Request, conversationID, question string) {
	if s.deps.History == nil {
		return
	}
	if err := s.deps.History.AppendTurn(r.Context(), conversationID, question, nil); err != nil {
		logging.FromContext(r.Context()).Warn("failed to persist question after chat failure",
			slog.String("conversation_id", conversationID),
			slog.Any("error", err),
		)
	}
}

// handleSemanticSearch handles POST /api/semantic_search: embedding-based
// similarity search over the transcript library.
func (s *Server) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	var req semanticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	results, err := s.deps.Searcher.Search(r.Context(), req.Query, req.VideoID, req.TopK)
	if err != nil {
		logging.FromContext(r.Context()).Error("semantic search failed", slog.Any("error", err))
		if errors.Is(err, rag.ErrEmbeddingUnavailable) {
			writeError(w, http.StatusBadGateway, "embedding service unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []rag.Result{}
	}

	writeJSON(w, http.StatusOK, semanticSearchResponse{Query: req.Query, Results: results})
}

// handleKeywordSearch handles GET /api/search?q=<keyword>: a plain substring
// match over stored transcript segments, no embeddings involved.
func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "cannot process empty keyword")
		return
	}

	limit := defaultKeywordLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	hits, err := s.deps.Catalog.KeywordSearch(r.Context(), keyword, limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("keyword search failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	// Transcript segments keep their original line breaks in storage;
	// flatten them for single-line display.
	for i := range hits {
		hits[i].Text = strings.ReplaceAll(hits[i].Text, "\n", " ")
	}
	if hits == nil {
		hits = []store.KeywordHit{}
	}

	writeJSON(w, http.StatusOK, keywordSearchResponse{
		Keyword: keyword,
		Count:   len(hits),
		Results: hits,
	})
}

// handleCommonWords handles GET /api/common_words?n=<count>: the most frequent
// non-stop words across every stored transcript.
func (s *Server) handleCommonWords(w http.ResponseWriter, r *http.Request) {
	n := defaultCommonWords
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = v
	}

	counter := words.NewCounter()
	err := s.deps.Catalog.TranscriptTexts(r.Context(), func(text string) error {
		counter.Add(text)
		return nil
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("common words scan failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to scan transcripts")
		return
	}

	top := counter.MostCommon(n)
	if top == nil {
		top = []words.WordCount{}
	}
	writeJSON(w, http.StatusOK, commonWordsResponse{Words: top})
}

// handleCounts handles GET /api/counts: library size statistics.
func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.deps.Catalog.Counts(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("counts query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to read counts")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
