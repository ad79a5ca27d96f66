package chat

import "errors"

var (
	// ErrNoContentFound means retrieval produced no transcript excerpts for
	// the question, so there is nothing to ground an answer on. Generation is
	// skipped entirely in this case.
	ErrNoContentFound = errors.New("chat: no relevant video content found")

	// ErrGenerationUnavailable means the chat model backend failed to
	// produce a response.
	ErrGenerationUnavailable = errors.New("chat: answer generation unavailable")
)
