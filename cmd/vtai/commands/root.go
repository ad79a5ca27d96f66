// Package commands defines all Cobra CLI commands for the vtai binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/vtai/vtai-go/internal/audit"
	"github.com/vtai/vtai-go/internal/config"
	"github.com/vtai/vtai-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vtai",
		Short: "VTAI — ask questions across a library of video transcripts",
		Long: `VTAI turns a library of video transcripts into a queryable knowledge base.

Load raw transcripts, run the embedding pipeline, then chat with the library:
answers cite the exact videos and timestamps they drew from. Keyword search,
semantic search, and word frequency analysis are available alongside chat.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.vtai/config.yaml).
See 'vtai --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.vtai/config.yaml)")

	root.AddCommand(
		NewLoadCmd(),
		NewIngestCmd(),
		NewServeCmd(),
		NewAskCmd(),
		NewSearchCmd(),
		NewVersionCmd(),
	)

	return root
}
