package chunker

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encoding is the BPE vocabulary used for prose windows
const Encoding = "cl100k_base"

var loaderOnce sync.Once

// TextChunker splits free text into fenced blocks and token windows
type TextChunker struct {
	enc *tiktoken.Tiktoken
}

// NewTextChunker creates a TextChunker backed by the embedded cl100k_base
// vocabulary. No network access is needed.
func NewTextChunker() (*TextChunker, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", Encoding, err)
	}
	return &TextChunker{enc: enc}, nil
}

// Chunk returns the fenced blocks of text, whole and in order, followed by
// non-overlapping windows of at most maxTokens tokens over the remaining prose
func (t *TextChunker) Chunk(text string, maxTokens int) []string {
	if text == "" {
		return []string{}
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	fences, prose := splitFences(text)
	chunks := make([]string, 0, len(fences))
	chunks = append(chunks, fences...)

	if strings.TrimSpace(prose) == "" {
		return chunks
	}

	tokens := t.enc.EncodeOrdinary(prose)
	for start := 0; start < len(tokens); start += maxTokens {
		end := min(start+maxTokens, len(tokens))
		chunks = append(chunks, t.enc.Decode(tokens[start:end]))
	}

	return chunks
}

// CountTokens returns the number of cl100k_base tokens in s
func (t *TextChunker) CountTokens(s string) int {
	return len(t.enc.EncodeOrdinary(s))
}
