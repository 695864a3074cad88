package chunker

import (
	"errors"
	"log"
	"strings"

	"github.com/dshills/docrag-mcp/internal/parser"
	"github.com/dshills/docrag-mcp/pkg/types"
)

// Code chunk metadata keys
const (
	MetaDeclaration = "declaration"
	MetaName        = "name"
)

// CodeChunker creates one chunk per top-level declaration of a source file
type CodeChunker struct {
	parser *parser.Parser
}

// NewCodeChunker creates a new CodeChunker instance
func NewCodeChunker() *CodeChunker {
	return &CodeChunker{parser: parser.New()}
}

// Chunk splits src into declaration chunks. When the file cannot be parsed
// the whole file is returned as a single chunk marked as a fallback.
func (c *CodeChunker) Chunk(filename string, src []byte) []types.Chunk {
	text := string(src)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	result, err := c.parser.ParseFile(filename, src)
	if err != nil {
		if errors.Is(err, types.ErrParseFailure) {
			log.Printf("Falling back to whole-file chunk for %s: %v", filename, err)
		} else {
			log.Printf("No declaration parser for %s, using whole file", filename)
		}
		return []types.Chunk{wholeFile(text, true)}
	}

	chunks := make([]types.Chunk, 0, len(result.Declarations))
	for _, decl := range result.Declarations {
		content := strings.TrimSpace(text[decl.Start:decl.End])
		if content == "" {
			continue
		}

		meta := types.Metadata{
			MetaDeclaration:      string(decl.Kind),
			types.MetaLineNumber: decl.StartLine,
		}
		if decl.Name != "" {
			meta[MetaName] = decl.Name
		}
		if len(decl.Comments) > 0 {
			meta[types.MetaComments] = decl.Comments
		}

		chunks = append(chunks, types.NewChunk(content, types.KindCode, meta))
	}

	if len(chunks) == 0 {
		return []types.Chunk{wholeFile(text, false)}
	}
	return chunks
}

func wholeFile(text string, fallback bool) types.Chunk {
	meta := types.Metadata{types.MetaLineNumber: 1}
	if fallback {
		meta[types.MetaFallback] = true
	}
	return types.NewChunk(strings.TrimSpace(text), types.KindCode, meta)
}
