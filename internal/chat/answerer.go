// Package chat orchestrates grounded question answering over ingested video
// transcripts: retrieve relevant chunks, build a context-augmented prompt with
// prior conversation turns, generate an answer, and report citations with a
// confidence score.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/vtai/vtai-go/internal/budget"
	"github.com/vtai/vtai-go/internal/logging"
	"github.com/vtai/vtai-go/internal/rag"
	"github.com/vtai/vtai-go/internal/store"
)

// systemPrompt establishes the grounding rules: the model answers only from
// the retrieved transcript excerpts and declines when they are insufficient.
const systemPrompt = `You are an assistant that answers questions about a library of video
transcripts. You are given excerpts from the transcripts as context.

Rules:
- Answer ONLY from the provided context. Do not use outside knowledge.
- If the context does not contain enough information to answer, say so
  plainly instead of guessing.
- When you use an excerpt, mention which video it came from so the viewer
  can follow the source links.
- Keep answers concise and conversational.`

// Defaults for the answer pipeline.
const (
	// defaultTopK is the number of transcript chunks retrieved per question.
	defaultTopK = 3
	// defaultHistoryExchanges is how many prior question/answer exchanges are
	// injected for multi-turn context.
	defaultHistoryExchanges = 10
	// defaultMaxTokens caps the generated answer length. Answers are meant
	// to be short cited passages, not essays.
	defaultMaxTokens = 512
	// defaultTemperature is the fixed sampling temperature for answers.
	defaultTemperature float32 = 0.7
)

// Generator produces a chat completion from a message slice. It is satisfied
// by every eino chat model.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Searcher retrieves ranked transcript chunks for a question. It is satisfied
// by rag.Retriever.
type Searcher interface {
	Search(ctx context.Context, query, videoID string, topK int) ([]rag.Result, error)
}

// Citation points the user at the transcript excerpt an answer drew from.
type Citation struct {
	VideoID          string  `json:"video_id"`
	TimestampSeconds float64 `json:"timestamp_seconds"`
	Timestamp        string  `json:"timestamp"`
	URL              string  `json:"url"`
	Similarity       float64 `json:"similarity_score"`
}

// Answer is a generated response with its supporting citations.
type Answer struct {
	Text string `json:"answer"`
	// Citations lists the source excerpts in retrieval rank order.
	Citations []Citation `json:"sources"`
	// Confidence is the mean similarity of the retrieved excerpts, a rough
	// signal of how well the library covers the question.
	Confidence float64 `json:"confidence"`
}

// Config holds the collaborators for an Answerer.
type Config struct {
	// Generator is the chat model used for answer generation. Required.
	Generator Generator
	// Searcher retrieves transcript chunks. Required.
	Searcher Searcher
	// History is the optional conversation store for multi-turn context.
	History store.HistoryStore
	// TopK is the number of chunks retrieved per question (default 3).
	TopK int
	// HistoryExchanges is the number of prior exchanges injected (default 10).
	HistoryExchanges int
	// MaxContextTokens is the input token budget
	// (default budget.DefaultMaxContextTokens).
	MaxContextTokens int
	// MaxTokens caps the generated answer length (default 512). Passed as a
	// per-request option so every backend honors it.
	MaxTokens int
	// Temperature is the sampling temperature (default 0.7).
	Temperature float32
}

// Answerer runs the retrieve-augment-generate pipeline.
type Answerer struct {
	gen              Generator
	searcher         Searcher
	history          store.HistoryStore
	topK             int
	historyExchanges int
	maxContextTokens int
	maxTokens        int
	temperature      float32
}

// New constructs an Answerer from the given config.
func New(cfg *Config) (*Answerer, error) {
	if cfg == nil || cfg.Generator == nil {
		return nil, fmt.Errorf("chat: a generator is required")
	}
	if cfg.Searcher == nil {
		return nil, fmt.Errorf("chat: a searcher is required")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	exchanges := cfg.HistoryExchanges
	if exchanges <= 0 {
		exchanges = defaultHistoryExchanges
	}
	contextTokens := cfg.MaxContextTokens
	if contextTokens <= 0 {
		contextTokens = budget.DefaultMaxContextTokens
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	return &Answerer{
		gen:              cfg.Generator,
		searcher:         cfg.Searcher,
		history:          cfg.History,
		topK:             topK,
		historyExchanges: exchanges,
		maxContextTokens: contextTokens,
		maxTokens:        maxTokens,
		temperature:      temperature,
	}, nil
}

// Request is one chat question.
type Request struct {
	// SessionID selects the conversation history to inject. Empty skips
	// history entirely.
	SessionID string
	// Question is the user's question.
	Question string
	// VideoID optionally restricts retrieval to a single video.
	VideoID string
	// TopK overrides the number of chunks retrieved (default 3).
	TopK int
}

// Answer retrieves transcript chunks for the question and generates a grounded
// answer. When retrieval comes back empty it returns ErrNoContentFound without
// touching the model. Persisting the new turn is the caller's responsibility,
// so the question can be recorded even when this method fails.
func (a *Answerer) Answer(ctx context.Context, req *Request) (*Answer, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = a.topK
	}
	results, err := a.searcher.Search(ctx, req.Question, req.VideoID, topK)
	if err != nil {
		return nil, fmt.Errorf("chat: retrieval failed: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoContentFound
	}

	messages := a.buildMessages(ctx, req.SessionID, req.Question, results)

	// Tuning rides on the request so every backend honors it, including the
	// ones whose client config has no tuning knobs.
	msg, err := a.gen.Generate(ctx, messages,
		model.WithTemperature(a.temperature),
		model.WithMaxTokens(a.maxTokens))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}

	citations := make([]Citation, 0, len(results))
	var totalSimilarity float64
	for _, r := range results {
		totalSimilarity += float64(r.Similarity)
		citations = append(citations, Citation{
			VideoID:          r.VideoID,
			TimestampSeconds: r.StartSeconds,
			Timestamp:        r.Timestamp,
			URL:              r.WatchURL,
			Similarity:       float64(r.Similarity),
		})
	}

	return &Answer{
		Text:       msg.Content,
		Citations:  citations,
		Confidence: totalSimilarity / float64(len(results)),
	}, nil
}

// buildMessages assembles [system, ...history, user(context+question)],
// trimming history oldest-first to fit the token budget.
func (a *Answerer) buildMessages(ctx context.Context, sessionID, question string, results []rag.Result) []*schema.Message {
	system := schema.SystemMessage(systemPrompt)
	user := schema.UserMessage(buildUserMessage(question, results))

	var historyMsgs []*schema.Message
	if a.history != nil && sessionID != "" {
		prior, err := a.history.RecentMessages(ctx, sessionID, a.historyExchanges*2)
		if err != nil {
			// History failure is non-fatal: answer without multi-turn context.
			logging.FromContext(ctx).Warn("chat: failed to load conversation history",
				slog.String("session_id", sessionID), slog.Any("error", err))
		} else {
			for _, m := range prior {
				switch m.Role {
				case store.RoleUser:
					historyMsgs = append(historyMsgs, schema.UserMessage(m.Content))
				case store.RoleAssistant:
					historyMsgs = append(historyMsgs, schema.AssistantMessage(m.Content, nil))
				}
			}
		}
	}

	fixed := []*schema.Message{system, user}
	before := len(historyMsgs)
	historyMsgs = budget.TrimHistory(fixed, historyMsgs, a.maxContextTokens)
	if dropped := before - len(historyMsgs); dropped > 0 {
		logging.FromContext(ctx).Warn("chat: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(historyMsgs)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	out := make([]*schema.Message, 0, 2+len(historyMsgs))
	out = append(out, system)
	out = append(out, historyMsgs...)
	out = append(out, user)
	return out
}

// buildUserMessage formats the retrieved excerpts and the question into the
// final user message, excerpts in retrieval rank order.
func buildUserMessage(question string, results []rag.Result) string {
	var sb strings.Builder
	sb.WriteString("Context from video transcripts:\n\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "Video: %s (URL: %s)\nText: %s\n\n", r.VideoID, r.WatchURL, r.Text)
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}
