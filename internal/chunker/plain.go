package chunker

import (
	"strings"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// PlainTextChunker emits one chunk per non-blank line
type PlainTextChunker struct{}

// Chunk returns the trimmed non-blank lines of text with their 1-based line numbers
func (PlainTextChunker) Chunk(text string) []types.Chunk {
	var chunks []types.Chunk
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		chunks = append(chunks, types.NewChunk(line, types.KindText, types.Metadata{
			types.MetaLineNumber: i + 1,
		}))
	}
	return chunks
}
