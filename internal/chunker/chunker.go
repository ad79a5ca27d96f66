// Package chunker turns ordered, timestamped transcript entries into
// overlapping time-bounded text segments — the unit of embedding and
// retrieval for the rest of the system.
//
// Splitting is a pure function over its input: no I/O, deterministic output,
// and a deterministic identity per produced chunk so reprocessing the same
// video never creates duplicate rows.
package chunker

import (
	"fmt"
	"strings"
)

// TranscriptEntry is a single timed caption line as produced by the
// transcript fetch collaborator. Entries are ordered by Start within a video.
type TranscriptEntry struct {
	// Text is the raw caption text. May be empty or whitespace-only.
	Text string

	// Start is the entry's start offset from the beginning of the video, in seconds.
	Start float64

	// Duration is the entry's span in seconds.
	Duration float64
}

// Chunk is a time-bounded segment of concatenated, normalized transcript text.
type Chunk struct {
	// Text is the normalized join of the words accumulated in this segment.
	Text string

	// StartSeconds is the segment's start offset in seconds.
	StartSeconds float64

	// Duration is the segment's span in seconds.
	Duration float64
}

// Split divides a video's transcript entries into chunks spanning roughly
// segmentSeconds each, carrying the last overlapWords words of each closed
// segment into the next one as a seed.
//
// Entries whose text is empty after trimming are dropped entirely — they
// contribute neither words nor span. A final segment shorter than
// segmentSeconds is still emitted; tail content is never lost. When a closed
// segment holds fewer words than overlapWords, the whole segment is carried
// forward — overlap never reaches back past the segment boundary.
func Split(entries []TranscriptEntry, segmentSeconds int, overlapWords int) []Chunk {
	if len(entries) == 0 {
		return nil
	}

	span := float64(segmentSeconds)

	var chunks []Chunk
	var words []string
	var startTime, endTime float64
	started := false

	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}

		if !started {
			startTime = e.Start
			started = true
		}

		words = append(words, strings.Fields(text)...)
		endTime = e.Start + e.Duration

		duration := endTime - startTime
		if duration < span {
			continue
		}

		chunks = append(chunks, Chunk{
			Text:         Normalize(strings.Join(words, " ")),
			StartSeconds: startTime,
			Duration:     duration,
		})

		// Seed the next segment with the overlap tail and restart the clock
		// at the boundary just closed.
		if overlapWords > 0 && len(words) > overlapWords {
			words = append([]string(nil), words[len(words)-overlapWords:]...)
		} else if overlapWords > 0 {
			words = append([]string(nil), words...)
		} else {
			words = nil
		}
		startTime = endTime
	}

	// Tail segment: shorter than segmentSeconds but still valid.
	if len(words) > 0 && started {
		chunks = append(chunks, Chunk{
			Text:         Normalize(strings.Join(words, " ")),
			StartSeconds: startTime,
			Duration:     endTime - startTime,
		})
	}

	return chunks
}

// Identity derives the deterministic chunk identity from the owning video,
// the chunk's ordinal position, and its rounded start time. This is the
// idempotency key for chunk persistence: re-splitting identical input with
// identical parameters always reproduces the same identities, so inserts can
// be conflict-safe no-ops.
func Identity(videoID string, ordinal int, startSeconds float64) string {
	return fmt.Sprintf("%s_chunk_%d_%d", videoID, ordinal, int(startSeconds))
}
