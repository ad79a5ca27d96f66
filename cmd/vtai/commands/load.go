package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vtai/vtai-go/internal/chunker"
	"github.com/vtai/vtai-go/internal/logging"
)

// transcriptFile is the JSON document the external transcript fetcher
// produces: one video with its raw timed caption entries.
type transcriptFile struct {
	// VideoID is the video's external identifier. Required.
	VideoID string `json:"video_id"`
	// Title is the human-readable video title. Defaults to VideoID.
	Title string `json:"title"`
	// Transcript is the ordered list of timed caption entries.
	Transcript []transcriptEntry `json:"transcript"`
}

// transcriptEntry mirrors the fetcher's raw entry shape.
type transcriptEntry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// NewLoadCmd constructs the `vtai load` command, which writes raw transcript
// files into the relational store.
func NewLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [file...]",
		Short: "Load raw transcript JSON files into the library",
		Long: `Load one or more transcript JSON files into the relational store.

Each file holds a single video's transcript in the shape the external
fetcher produces:

  {
    "video_id": "dQw4w9WgXcQ",
    "title": "Video title",
    "transcript": [
      {"text": "caption line", "start": 0.0, "duration": 4.2}
    ]
  }

Loading is idempotent per video: reloading a file replaces that video's
stored transcript entries. Run 'vtai ingest' afterwards to chunk and embed
the newly loaded videos.

Examples:
  vtai load transcripts/dQw4w9WgXcQ.json
  vtai load transcripts/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			st, err := openStore(log)
			if err != nil {
				return fmt.Errorf("load: %w", err)
			}
			defer func() { _ = st.Close() }()

			loaded := 0
			for _, path := range args {
				doc, err := readTranscriptFile(path)
				if err != nil {
					return fmt.Errorf("load: %s: %w", path, err)
				}

				entries := make([]chunker.TranscriptEntry, 0, len(doc.Transcript))
				for _, e := range doc.Transcript {
					entries = append(entries, chunker.TranscriptEntry{
						Text:     e.Text,
						Start:    e.Start,
						Duration: e.Duration,
					})
				}

				if err := st.UpsertVideo(ctx, doc.VideoID, doc.Title); err != nil {
					return fmt.Errorf("load: %s: %w", path, err)
				}
				if err := st.ReplaceTranscript(ctx, doc.VideoID, entries); err != nil {
					return fmt.Errorf("load: %s: %w", path, err)
				}

				log.Info("transcript loaded",
					slog.String("video_id", doc.VideoID),
					slog.Int("entries", len(entries)),
				)
				loaded++
			}

			fmt.Printf("loaded %d video transcript(s)\n", loaded)
			return nil
		},
	}

	return cmd
}

// readTranscriptFile parses and validates one transcript JSON file.
func readTranscriptFile(path string) (*transcriptFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc transcriptFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid transcript JSON: %w", err)
	}
	if doc.VideoID == "" {
		return nil, fmt.Errorf("video_id is required")
	}
	if len(doc.Transcript) == 0 {
		return nil, fmt.Errorf("transcript is empty")
	}
	if doc.Title == "" {
		doc.Title = doc.VideoID
	}
	return &doc, nil
}
