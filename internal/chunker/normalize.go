package chunker

import (
	"regexp"
	"strings"
)

// whitespaceRe matches runs of whitespace, including newlines, so they can be
// collapsed to single spaces.
var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize cleans up transcript text for chunk storage: runs of whitespace
// collapse to single spaces and the punctuation artifacts that upstream
// caption formatting produces (doubled periods, stray ". ," sequences) are
// repaired. The replacement order matters — ". ," removal must run before the
// doubled-period fixes so composites resolve the same way every time.
func Normalize(s string) string {
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
	s = strings.ReplaceAll(s, ". ,", "")
	s = strings.ReplaceAll(s, "..", ".")
	s = strings.ReplaceAll(s, ". .", ".")
	return strings.TrimSpace(s)
}
