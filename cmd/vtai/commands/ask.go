package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vtai/vtai-go/internal/chat"
	"github.com/vtai/vtai-go/internal/logging"
	"github.com/vtai/vtai-go/internal/provider"
	"github.com/vtai/vtai-go/internal/rag"
	"github.com/vtai/vtai-go/internal/store"
)

// NewAskCmd constructs the `vtai ask` command, which answers a single
// question from the transcript library and prints the cited sources.
func NewAskCmd() *cobra.Command {
	var videoID string
	var topK int
	var conversationID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question across the transcript library",
		Long: `Ask a natural language question answered from the transcript library.

The answer is grounded in retrieved transcript chunks and printed with the
videos and timestamps it drew from. Pass --conversation to thread follow-up
questions through a persistent history.

Examples:
  vtai ask "what is backpropagation?"
  vtai ask --video dQw4w9WgXcQ "what does this video say about gradients?"
  vtai ask --conversation alice "and how does that relate to momentum?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			st, err := openStore(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = st.Close() }()

			// Catch typo'd video IDs before paying for an embedding call.
			if videoID != "" {
				ok, err := st.HasVideo(ctx, videoID)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				if !ok {
					return fmt.Errorf("ask: unknown video %q — load its transcript first", videoID)
				}
			}

			queryEmb, err := buildQueryEmbedder(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			vectors, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = vectors.Close() }()

			retriever, err := rag.NewRetriever(queryEmb, vectors, searchTopK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			tuning := provider.TuningFromEnv()
			answerer, err := chat.New(&chat.Config{
				Generator:   chatModel,
				Searcher:    retriever,
				History:     st,
				MaxTokens:   tuning.MaxTokens,
				Temperature: tuning.Temperature,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			question := args[0]
			ans, err := answerer.Answer(ctx, &chat.Request{
				SessionID: conversationID,
				Question:  question,
				VideoID:   videoID,
				TopK:      topK,
			})
			if err != nil {
				recordFailedAsk(ctx, log, st, conversationID, question)
				return fmt.Errorf("ask: %w", err)
			}

			if conversationID != "" {
				if err := st.AppendTurn(ctx, conversationID, question, &ans.Text); err != nil {
					return fmt.Errorf("ask: failed to record conversation: %w", err)
				}
			}

			fmt.Println(ans.Text)
			fmt.Println()
			fmt.Printf("Sources (confidence %.2f):\n", ans.Confidence)
			for _, c := range ans.Citations {
				fmt.Printf("  %s @ %s — %s\n", c.VideoID, c.Timestamp, c.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&videoID, "video", "", "Restrict retrieval to a single video ID")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of transcript chunks to retrieve (default 3)")
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation ID for persistent multi-turn history")

	return cmd
}

// recordFailedAsk keeps the question in the conversation transcript when
// answering fails, matching the HTTP chat endpoint. Best effort: the original
// failure is what the user needs to see.
func recordFailedAsk(ctx context.Context, log *slog.Logger, history store.HistoryStore, conversationID, question string) {
	if conversationID == "" {
		return
	}
	if err := history.AppendTurn(ctx, conversationID, question, nil); err != nil {
		log.Warn("ask: failed to record question for failed turn",
			slog.String("conversation_id", conversationID), slog.Any("error", err))
	}
}
