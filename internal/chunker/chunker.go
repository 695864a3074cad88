package chunker

import (
	"strings"
	"unicode"
)

const (
	// DefaultMaxTokens is the window size used for prose chunks
	DefaultMaxTokens = 256

	// DefaultMarkdownMaxTokens bounds the estimated size of a markdown chunk
	DefaultMarkdownMaxTokens = 256
)

// EstimateTokens approximates a token count as words plus punctuation characters
func EstimateTokens(s string) int {
	count := len(strings.Fields(s))
	for _, r := range s {
		if unicode.IsPunct(r) {
			count++
		}
	}
	return count
}
