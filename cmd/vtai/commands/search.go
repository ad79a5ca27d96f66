package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vtai/vtai-go/internal/logging"
	"github.com/vtai/vtai-go/internal/rag"
)

// NewSearchCmd constructs the `vtai search` command, a one-shot semantic
// search over the transcript library.
func NewSearchCmd() *cobra.Command {
	var videoID string
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Semantic search over the transcript library",
		Long: `Search the transcript library by meaning rather than exact words.

The query is embedded and matched against stored chunks by cosine
similarity. Each result carries its video, timestamp, similarity score,
and a timestamped watch link.

Examples:
  vtai search "explanations of gradient descent"
  vtai search --video dQw4w9WgXcQ --top-k 10 "loss curves"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			queryEmb, err := buildQueryEmbedder(log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			vectors, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer func() { _ = vectors.Close() }()

			retriever, err := rag.NewRetriever(queryEmb, vectors, searchTopK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			results, err := retriever.Search(ctx, args[0], videoID, topK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(results) == 0 {
				fmt.Println("no matches")
				return nil
			}
			for i, r := range results {
				fmt.Printf("%d. [%.3f] %s @ %s\n   %s\n   %s\n",
					i+1, r.Similarity, r.VideoID, r.Timestamp, r.Text, r.WatchURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&videoID, "video", "", "Restrict the search to a single video ID")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results to return (default 5)")

	return cmd
}
