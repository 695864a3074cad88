package dispatch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/docrag-mcp/internal/chunker"
	"github.com/dshills/docrag-mcp/pkg/types"
)

// PDFTextFunc extracts the plain text of a PDF document
type PDFTextFunc func(ctx context.Context, data []byte) (string, error)

// Options configures chunk sizes
type Options struct {
	MaxTokens         int
	MarkdownMaxTokens int

	// PDFText overrides PDF text extraction; nil uses tabula
	PDFText PDFTextFunc
}

// Dispatcher routes a file to the chunker for its kind
type Dispatcher struct {
	text     *chunker.TextChunker
	code     *chunker.CodeChunker
	markdown *chunker.MarkdownChunker
	opts     Options
}

// New creates a Dispatcher with the given options
func New(opts Options) (*Dispatcher, error) {
	tc, err := chunker.NewTextChunker()
	if err != nil {
		return nil, err
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = chunker.DefaultMaxTokens
	}
	if opts.MarkdownMaxTokens <= 0 {
		opts.MarkdownMaxTokens = chunker.DefaultMarkdownMaxTokens
	}
	if opts.PDFText == nil {
		opts.PDFText = ExtractPDFText
	}

	return &Dispatcher{
		text:     tc,
		code:     chunker.NewCodeChunker(),
		markdown: chunker.NewMarkdownChunker(),
		opts:     opts,
	}, nil
}

// Classify maps a filename to its FileKind by case-insensitive extension
func Classify(filename string) types.FileKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return types.FilePDF
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs":
		return types.FileJavaScript
	case ".go":
		return types.FileGo
	case ".html", ".htm":
		return types.FileHTML
	case ".md", ".markdown":
		return types.FileMarkdown
	case ".txt", ".text", ".log":
		return types.FileText
	default:
		return types.FileUnsupported
	}
}

// Parse classifies filename and chunks data accordingly. Every chunk is
// tagged with filename and language metadata.
func (d *Dispatcher) Parse(ctx context.Context, data []byte, filename string) (types.FileKind, []types.Chunk, error) {
	kind := Classify(filename)

	var chunks []types.Chunk
	var err error
	switch kind {
	case types.FilePDF:
		chunks, err = d.parsePDF(ctx, data)
	case types.FileJavaScript, types.FileGo:
		chunks = d.code.Chunk(filename, data)
	case types.FileHTML:
		chunks, err = chunker.HTMLChunker{}.Chunk(string(data))
	case types.FileMarkdown:
		chunks = d.markdown.Chunk(string(data), d.opts.MarkdownMaxTokens)
	case types.FileText:
		chunks = chunker.PlainTextChunker{}.Chunk(string(data))
	default:
		return kind, nil, fmt.Errorf("%w: %s", types.ErrUnsupportedFileType, filename)
	}
	if err != nil {
		return kind, nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	valid := chunks[:0]
	for _, c := range chunks {
		if c.Validate() != nil {
			continue
		}
		c.Metadata[types.MetaFilename] = filepath.Base(filename)
		if _, ok := c.Metadata[types.MetaLanguage]; !ok {
			c.Metadata[types.MetaLanguage] = string(kind)
		}
		valid = append(valid, c)
	}
	if len(valid) == 0 {
		return kind, nil, fmt.Errorf("%w: %s", types.ErrNoValidChunks, filename)
	}

	log.Printf("Parsed %s as %s: %d chunks", filename, kind, len(valid))
	return kind, valid, nil
}

func (d *Dispatcher) parsePDF(ctx context.Context, data []byte) ([]types.Chunk, error) {
	raw, err := d.opts.PDFText(ctx, data)
	if err != nil {
		return nil, err
	}

	pieces := d.text.Chunk(NormalizeWhitespace(raw), d.opts.MaxTokens)
	chunks := make([]types.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		kind := types.KindText
		meta := types.Metadata{}
		if strings.HasPrefix(piece, types.FenceMarker) {
			kind = types.KindCode
			if lang := fenceLanguage(piece); lang != "" {
				meta[types.MetaLanguage] = lang
			}
		}
		chunks = append(chunks, types.NewChunk(piece, kind, meta))
	}
	return chunks, nil
}

var (
	spaceBeforeNewline = regexp.MustCompile(`\s+\n`)
	blankLines         = regexp.MustCompile(`\n{2,}`)
)

// NormalizeWhitespace replaces non-breaking spaces, strips whitespace before
// line breaks and collapses runs of blank lines
func NormalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spaceBeforeNewline.ReplaceAllString(s, "\n")
	return blankLines.ReplaceAllString(s, "\n\n")
}

// fenceLanguage returns the info string of a fenced block
func fenceLanguage(block string) string {
	first, _, _ := strings.Cut(strings.TrimPrefix(block, types.FenceMarker), "\n")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
