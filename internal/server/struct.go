package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vtai/vtai-go/internal/chat"
	"github.com/vtai/vtai-go/internal/rag"
	"github.com/vtai/vtai-go/internal/store"
	"github.com/vtai/vtai-go/internal/words"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Chat requests wait on an LLM round-trip, so this defaults generously.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's Prometheus metrics. Defaults to
	// prometheus.DefaultRegisterer; tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// answerer is the interface handleChat calls to produce a grounded answer.
// *chat.Answerer satisfies it; tests inject a fake.
type answerer interface {
	Answer(ctx context.Context, req *chat.Request) (*chat.Answer, error)
}

// searcher is the interface handleSemanticSearch calls.
// *rag.Retriever satisfies it; tests inject a fake.
type searcher interface {
	Search(ctx context.Context, query, videoID string, topK int) ([]rag.Result, error)
}

// catalog is the slice of the transcript store the read-only endpoints need.
// *store.SQLiteStore satisfies it; tests inject a fake.
type catalog interface {
	Counts(ctx context.Context) (store.CountsSummary, error)
	KeywordSearch(ctx context.Context, keyword string, limit int) ([]store.KeywordHit, error)
	TranscriptTexts(ctx context.Context, fn func(text string) error) error
}

// Deps are the collaborators the server exposes over HTTP.
type Deps struct {
	// Answerer produces grounded answers for POST /api/chat.
	Answerer answerer
	// Searcher backs POST /api/semantic_search.
	Searcher searcher
	// Catalog backs the counts, keyword search, and common words endpoints.
	Catalog catalog
	// History persists conversation turns. Optional; when nil, chat answers
	// are returned without being recorded.
	History store.HistoryStore
}

// Server is the HTTP server that exposes the transcript library.
type Server struct {
	// deps holds the wired collaborators.
	deps *Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds this instance's Prometheus metrics.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// ConversationID identifies the conversation this question belongs to.
	ConversationID string `json:"conversation_id"`
	// Question is the user's natural language question.
	Question string `json:"question"`
	// VideoID optionally restricts retrieval to a single video.
	VideoID string `json:"video_id,omitempty"`
	// TopK overrides the number of transcript chunks retrieved.
	TopK int `json:"top_k,omitempty"`
}

// chatResponse is the JSON response for POST /api/chat.
type chatResponse struct {
	*chat.Answer
	// ConversationID echoes the conversation the turn was recorded under.
	ConversationID string `json:"conversation_id"`
}

// semanticSearchRequest is the JSON body for POST /api/semantic_search.
type semanticSearchRequest struct {
	// Query is the natural language search query.
	Query string `json:"query"`
	// VideoID optionally restricts the search to a single video.
	VideoID string `json:"video_id,omitempty"`
	// TopK overrides the number of results returned.
	TopK int `json:"top_k,omitempty"`
}

// semanticSearchResponse is the JSON response for POST /api/semantic_search.
type semanticSearchResponse struct {
	// Query echoes the search query.
	Query string `json:"query"`
	// Results are the matching chunks in descending similarity order.
	Results []rag.Result `json:"results"`
}

// keywordSearchResponse is the JSON response for GET /api/search.
type keywordSearchResponse struct {
	// Keyword echoes the search term.
	Keyword string `json:"keyword"`
	// Count is the number of matching segments returned.
	Count int `json:"count"`
	// Results are the matching transcript segments in video order.
	Results []store.KeywordHit `json:"results"`
}

// commonWordsResponse is the JSON response for GET /api/common_words.
type commonWordsResponse struct {
	// Words are the most frequent non-stop words across all transcripts.
	Words []words.WordCount `json:"common_words"`
}
