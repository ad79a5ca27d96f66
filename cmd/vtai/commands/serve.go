package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/vtai/vtai-go/internal/chat"
	"github.com/vtai/vtai-go/internal/logging"
	"github.com/vtai/vtai-go/internal/provider"
	"github.com/vtai/vtai-go/internal/rag"
	"github.com/vtai/vtai-go/internal/server"
	"github.com/vtai/vtai-go/internal/tracing"
)

// searchTopK is the default result count for the semantic search surface.
// Chat retrieval uses its own tighter default.
const searchTopK = 5

// NewServeCmd constructs the `vtai serve` command, which starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the VTAI HTTP API",
		Long: `Start the VTAI HTTP server on localhost.

The server exposes the transcript library over REST: RAG chat with cited
sources, semantic search, keyword search, word frequency analysis, library
counts, and health/readiness/metrics endpoints.

Examples:
  vtai serve
  vtai serve --port 9090
  MODEL_PROVIDER=azure vtai serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}

			st, err := openStore(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = st.Close() }()

			queryEmb, err := buildQueryEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			vectors, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = vectors.Close() }()

			retriever, err := rag.NewRetriever(queryEmb, vectors, searchTopK)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
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
				return fmt.Errorf("serve: failed to initialise chat: %w", err)
			}

			srv, err := server.New(
				&server.Deps{
					Answerer: answerer,
					Searcher: retriever,
					Catalog:  st,
					History:  st,
				},
				&server.Config{
					Host:   host,
					Port:   port,
					Logger: log,
					Pingers: []server.Pinger{
						server.NewQdrantPinger(vectors.Client()),
						server.NewStorePinger(st),
					},
					APIKey: os.Getenv("VTAI_API_KEY"),
				},
			)
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", getEnvOrDefault("VTAI_HOST", "127.0.0.1"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", getEnvInt("VTAI_PORT", 8080), "TCP port to listen on")

	return cmd
}
