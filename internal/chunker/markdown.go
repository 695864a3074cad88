package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// MetaHeading holds the first heading of a markdown chunk
const MetaHeading = "heading"

// MarkdownChunker groups block-level markdown units under an estimated token bound
type MarkdownChunker struct {
	md goldmark.Markdown
}

// NewMarkdownChunker creates a MarkdownChunker using the CommonMark parser
func NewMarkdownChunker() *MarkdownChunker {
	return &MarkdownChunker{md: goldmark.New()}
}

type mdBlock struct {
	content string
	heading string
}

// Chunk accumulates blocks until adding the next one would exceed
// maxTokens, then flushes. A single block larger than the bound is kept whole.
func (m *MarkdownChunker) Chunk(src string, maxTokens int) []types.Chunk {
	if maxTokens <= 0 {
		maxTokens = DefaultMarkdownMaxTokens
	}

	var chunks []types.Chunk
	var buf []string
	var heading string
	bufTokens := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		meta := types.Metadata{}
		if heading != "" {
			meta[MetaHeading] = heading
		}
		chunks = append(chunks, types.NewChunk(strings.Join(buf, "\n\n"), types.KindMarkdown, meta))
		buf, heading, bufTokens = nil, "", 0
	}

	for _, block := range m.blocks([]byte(src)) {
		tokens := EstimateTokens(block.content)
		if len(buf) > 0 && bufTokens+tokens > maxTokens {
			flush()
		}
		buf = append(buf, block.content)
		bufTokens += tokens
		if heading == "" {
			heading = block.heading
		}
	}
	flush()

	return chunks
}

// blocks slices the source between the line starts of consecutive
// top-level blocks. Blocks without a locatable start are absorbed into
// the preceding slice.
func (m *MarkdownChunker) blocks(src []byte) []mdBlock {
	doc := m.md.Parser().Parse(text.NewReader(src))

	type start struct {
		offset  int
		heading string
	}
	var starts []start
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		offset, ok := blockStart(n, src)
		if !ok {
			continue
		}
		if len(starts) > 0 && offset <= starts[len(starts)-1].offset {
			continue
		}
		s := start{offset: offset}
		if h, isHeading := n.(*ast.Heading); isHeading {
			s.heading = strings.TrimSpace(string(segmentsText(h.Lines(), src)))
		}
		starts = append(starts, s)
	}

	if len(starts) == 0 {
		if content := strings.TrimSpace(string(src)); content != "" {
			return []mdBlock{{content: content}}
		}
		return nil
	}
	starts[0].offset = 0

	blocks := make([]mdBlock, 0, len(starts))
	for i, s := range starts {
		end := len(src)
		if i+1 < len(starts) {
			end = starts[i+1].offset
		}
		content := strings.TrimSpace(string(src[s.offset:end]))
		if content == "" {
			continue
		}
		blocks = append(blocks, mdBlock{content: content, heading: s.heading})
	}
	return blocks
}

// blockStart returns the offset of the line on which n begins
func blockStart(n ast.Node, src []byte) (int, bool) {
	offset := -1
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || child.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		if fenced, ok := child.(*ast.FencedCodeBlock); ok {
			if fenced.Info != nil {
				offset = fenced.Info.Segment.Start
			} else if fenced.Lines().Len() > 0 {
				// content starts on the line after the opening fence
				offset = lineStart(src, fenced.Lines().At(0).Start) - 1
			}
			if offset >= 0 {
				return ast.WalkStop, nil
			}
		}
		if lines := child.Lines(); lines.Len() > 0 {
			offset = lines.At(0).Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if offset < 0 {
		return 0, false
	}
	return lineStart(src, offset), true
}

func lineStart(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	for offset > 0 && src[offset-1] != '\n' {
		offset--
	}
	return offset
}

func segmentsText(lines *text.Segments, src []byte) []byte {
	var out []byte
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, seg.Value(src)...)
	}
	return out
}
