package rag

import "fmt"

// WatchURL builds the timestamped YouTube link for a chunk, jumping playback
// to the chunk's start offset.
func WatchURL(videoID string, startSeconds float64) string {
	return fmt.Sprintf("https://youtube.com/watch?v=%s&t=%ds", videoID, int(startSeconds))
}

// DisplayTimestamp formats a start offset as m:ss for human-readable result
// listings.
func DisplayTimestamp(startSeconds float64) string {
	total := int(startSeconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
