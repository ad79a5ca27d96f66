// Package words computes word frequencies across the transcript corpus for
// the common-words endpoint. Spoken-language filler and function words are
// filtered out so the top of the list reflects actual topic vocabulary.
package words

import (
	"regexp"
	"sort"
	"strings"
)

// stopWords are function words and transcript filler that would otherwise
// dominate every frequency list.
var stopWords = map[string]struct{}{
	"the": {}, "is": {}, "it": {}, "he": {}, "she": {}, "we": {}, "they": {},
	"you": {}, "to": {}, "of": {}, "and": {}, "in": {}, "on": {}, "at": {},
	"for": {}, "with": {}, "about": {}, "as": {}, "by": {}, "or": {}, "so": {},
	"if": {}, "but": {}, "not": {}, "what": {}, "where": {}, "when": {},
	"why": {}, "how": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"just": {}, "like": {}, "get": {}, "up": {}, "down": {}, "out": {},
	"be": {}, "been": {}, "have": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "can": {}, "could": {}, "one": {},
	"two": {}, "three": {}, "four": {}, "five": {}, "time": {}, "know": {},
	"all": {}, "from": {}, "really": {}, "very": {}, "gonna": {}, "wanna": {},
	"yeah": {}, "okay": {}, "its": {}, "im": {}, "youre": {}, "thats": {},
	"were": {}, "theyre": {}, "dont": {}, "um": {}, "right": {}, "going": {},
	"me": {}, "some": {}, "lot": {}, "way": {}, "little": {}, "back": {},
	"make": {}, "want": {}, "think": {}, "see": {}, "good": {}, "now": {},
	"here": {}, "then": {}, "our": {}, "because": {}, "which": {}, "well": {},
	"are": {},
}

// nonWordRe strips everything that is not a lowercase letter or whitespace,
// so "it's" counts as "its" and "back-prop" as "backprop".
var nonWordRe = regexp.MustCompile(`[^a-z\s]`)

// WordCount is one entry in a frequency ranking.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Counter accumulates word frequencies across transcript texts.
// It is not safe for concurrent use.
type Counter struct {
	counts map[string]int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Add tokenizes text and counts every word longer than two letters that is
// not a stop word.
func (c *Counter) Add(text string) {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(text), "")
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		c.counts[word]++
	}
}

// MostCommon returns the n highest-frequency words, most frequent first.
// Ties are broken alphabetically so the ranking is deterministic.
func (c *Counter) MostCommon(n int) []WordCount {
	ranked := make([]WordCount, 0, len(c.counts))
	for word, count := range c.counts {
		ranked = append(ranked, WordCount{Word: word, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word < ranked[j].Word
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
