// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"
)

// sentencePattern matches runs of text ending in terminal punctuation.
// (?U) makes the quantifier lazy so each match stops at the first
// terminator.
var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// minSentenceLen filters out fragments left behind by equation and
// citation markup, which carry no retrievable meaning.
const minSentenceLen = 3

// SplitSentences splits a paragraph into sentences. Text after the last
// terminator is kept as a trailing sentence so no content is dropped.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	last := 0
	for _, loc := range sentencePattern.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); len(s) >= minSentenceLen {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); len(tail) >= minSentenceLen {
		sentences = append(sentences, tail)
	}
	return sentences
}
