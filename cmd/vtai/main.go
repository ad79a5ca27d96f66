// Command vtai is the entry point for the video transcript AI service.
// It provides a CLI interface (via Cobra) for loading transcripts, running
// the embedding pipeline, querying the library, and serving the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/vtai/vtai-go/cmd/vtai/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
